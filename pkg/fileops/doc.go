// Package fileops guards local file reads that feed LMS uploads.
//
// Tool callers hand over arbitrary paths, so every read runs through layered
// validation before content enters memory.
//
// # Validation Order
//
// ReadUpload() applies the guards in this order:
//
// 1. **Path Security**: ValidatePathSecurity() - Prevents path traversal and reads from reserved locations
// 2. **File Access**: ValidateFileAccess() - Ensures the path names a readable regular file
// 3. **File Size**: ValidateFileSizeLimit() - Prevents resource exhaustion before any read
// 4. **Filename**: SanitizeFilename() - Derives a safe name to store the upload under
//
// # Example: Staging an Upload
//
//	data, name, err := fileops.ReadUpload(path, fileops.MaxUploadBytes)
//	if err != nil {
//	    return fmt.Errorf("cannot stage upload: %w", err)
//	}
//	// data holds the content, name is safe to transmit
//
// The individual guards stay exported so callers can compose their own
// pipelines when ReadUpload's defaults do not fit.
package fileops
