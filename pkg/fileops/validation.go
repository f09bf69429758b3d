package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// MaxUploadBytes is the default ceiling for file content read into a single
// upload request. The web service takes file content base64-encoded inside a
// form post, which inflates the request by a third, so this stays well under
// common server post limits.
const MaxUploadBytes int64 = 20 << 20

// ReadUpload loads a local file for transmission to the LMS, running every
// guard this package provides before touching the content.
//
// The function:
//   - Expands a leading "~/" to the user's home directory
//   - Rejects traversal sequences and reserved system locations
//   - Verifies the path names a readable regular file
//   - Enforces the size ceiling before reading anything into memory
//   - Derives a safe upload filename from the path's base name
//
// Parameters:
//   - path: The local file path as given by the caller
//   - maxSize: Maximum allowed file size in bytes (use MaxUploadBytes)
//
// Returns:
//   - []byte: The file content
//   - string: The sanitized filename to upload under
//   - error: The first guard or read failure
//
// Usage example:
//
//	data, name, err := fileops.ReadUpload("~/slides/week1.pdf", fileops.MaxUploadBytes)
//	if err != nil {
//	    return fmt.Errorf("cannot stage upload: %w", err)
//	}
func ReadUpload(path string, maxSize int64) ([]byte, string, error) {
	expanded := ExpandPath(strings.TrimSpace(path))

	if err := ValidatePathSecurity(expanded); err != nil {
		return nil, "", err
	}
	if err := ValidateFileAccess(expanded); err != nil {
		return nil, "", err
	}
	if err := ValidateFileSizeLimit(expanded, maxSize); err != nil {
		return nil, "", err
	}

	name, err := SanitizeFilename(expanded)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read file: %w", err)
	}
	return data, name, nil
}

// ValidatePathSecurity performs static security validation on a file path
// before any filesystem access happens.
//
// The function validates:
//   - Path is not empty or whitespace-only
//   - No traversal attempts using ".." sequences, raw or after cleaning
//   - Absolute paths do not point into reserved system locations
//
// Parameters:
//   - path: The file path to validate
//
// Returns:
//   - error: Validation errors if the path is considered unsafe
//
// Security considerations:
//   - This function does not access the filesystem; symlink resolution
//     happens separately inside IsReservedDirectory
//
// Usage example:
//
//	if err := fileops.ValidatePathSecurity("../../etc/passwd"); err != nil {
//	    return err
//	}
func ValidatePathSecurity(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// Check raw input and the cleaned form; cleaning can both remove and
	// surface traversal sequences.
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed")
	}
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	if filepath.IsAbs(path) && IsReservedDirectory(cleanPath) {
		return fmt.Errorf("cannot read from system or reserved directories")
	}

	return nil
}

// SanitizeFilename reduces a path to a filename safe to transmit as the
// stored name of an upload.
//
// The function:
//   - Keeps only the base name, discarding directory components
//   - Strips surviving traversal sequences and surrounding whitespace
//   - Rejects names that are empty or reserved after cleaning
//
// Parameters:
//   - filename: The filename or path to sanitize
//
// Returns:
//   - string: Sanitized filename
//   - error: Validation errors for completely invalid filenames
//
// Usage example:
//
//	clean, err := fileops.SanitizeFilename("../../../etc/passwd")
//	// clean is "passwd"
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	clean := filepath.Base(filename)
	clean = strings.ReplaceAll(clean, "..", "")
	clean = strings.TrimSpace(clean)

	if clean == "" || clean == "." || clean == ".." {
		return "", fmt.Errorf("invalid filename after sanitization: %q", filename)
	}

	// On Unix a backslash is an ordinary filename character, so only the
	// forward slash matters here.
	if strings.ContainsAny(clean, `/`) {
		return "", fmt.Errorf("filename contains path separators: %q", clean)
	}

	return clean, nil
}

// ValidateFileAccess checks that a path names an existing, readable regular
// file. Uploads only ever read, so no write probe happens here.
//
// Parameters:
//   - filePath: Path to the file to check
//
// Returns:
//   - error: Access validation errors
func ValidateFileAccess(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filePath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file: %s", filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("file is not readable: %w", err)
	}
	f.Close()

	return nil
}

// ValidateFileSizeLimit checks if a file size is within the given limit.
// This prevents memory exhaustion before a large file is read for upload.
//
// Parameters:
//   - filePath: Path to the file to check
//   - maxSize: Maximum allowed file size in bytes
//
// Returns:
//   - error: Validation error if the file exceeds the limit or cannot be
//     accessed
//
// Usage example:
//
//	if err := fileops.ValidateFileSizeLimit(path, fileops.MaxUploadBytes); err != nil {
//	    return fmt.Errorf("file too large: %w", err)
//	}
func ValidateFileSizeLimit(filePath string, maxSize int64) error {
	if maxSize <= 0 {
		return fmt.Errorf("invalid size limit: %d", maxSize)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filepath.Base(filePath))
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if fileInfo.Size() > maxSize {
		return fmt.Errorf("file size %d bytes exceeds limit %d bytes", fileInfo.Size(), maxSize)
	}

	return nil
}

// ExpandPath expands a path that starts with "~/" to the user's home
// directory. Paths without the prefix come back unchanged.
//
// Usage example:
//
//	expanded := fileops.ExpandPath("~/slides/week1.pdf")
//	// Returns something like "/home/user/slides/week1.pdf"
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// IsReservedDirectory checks if the path points into a system or otherwise
// sensitive location that upload tooling should never read from.
//
// The function checks:
//   - System directories (like /etc, /bin, C:\Windows)
//   - Critical user directories (like ~/.ssh, ~/.gnupg)
//   - Symlink targets, so a link into a reserved location is caught
//
// Parameters:
//   - path: The path to check
//
// Returns:
//   - bool: true if the path is reserved, false otherwise
func IsReservedDirectory(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true // unresolvable paths are treated as reserved
	}
	absPath = filepath.Clean(absPath)

	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	// The filesystem root is always off limits.
	if absPath == "/" || absPath == "\\" || absPath == "C:\\" {
		return true
	}

	absPath = filepath.Clean(absPath)
	for _, reserved := range reservedDirectories() {
		reservedAbs, err := filepath.Abs(reserved)
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(reservedAbs); err == nil {
			reservedAbs = filepath.Clean(resolved)
		} else {
			reservedAbs = filepath.Clean(reservedAbs)
		}

		if strings.EqualFold(absPath, reservedAbs) {
			return true
		}

		reservedPrefix := strings.ToLower(reserved) + string(os.PathSeparator)
		if strings.HasPrefix(strings.ToLower(absPath), reservedPrefix) {
			// User temp directories can live under otherwise reserved
			// prefixes, notably on macOS.
			if isUserTempDirectory(absPath) {
				continue
			}
			return true
		}
	}

	return false
}

// reservedDirectories returns platform-specific locations that uploads must
// not read from.
func reservedDirectories() []string {
	var reservedDirs []string

	switch runtime.GOOS {
	case "windows":
		reservedDirs = []string{
			"C:\\Windows",
			"C:\\Program Files",
			"C:\\Program Files (x86)",
			"C:\\System32",
			"C:\\ProgramData\\Microsoft",
		}

	case "darwin":
		reservedDirs = []string{
			"/System",
			"/usr/bin",
			"/usr/sbin",
			"/bin",
			"/sbin",
			"/etc",
			"/var/log",
			"/var/db",
			"/var/root",
			"/Library/System",
			"/private/etc",
		}

	default: // Linux and other Unix
		reservedDirs = []string{
			"/bin",
			"/sbin",
			"/usr/bin",
			"/usr/sbin",
			"/etc",
			"/boot",
			"/dev",
			"/proc",
			"/sys",
			"/var/log",
			"/var/lib",
			"/root",
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		reservedDirs = append(reservedDirs,
			filepath.Join(home, ".ssh"),
			filepath.Join(home, ".gnupg"),
		)
	}

	return reservedDirs
}

// isUserTempDirectory detects legitimate user temp directories that sit
// under reserved prefixes.
func isUserTempDirectory(path string) bool {
	if runtime.GOOS == "darwin" && strings.Contains(path, "/var/folders/") {
		return true
	}
	if runtime.GOOS == "linux" && (strings.HasPrefix(path, "/tmp/") || path == "/tmp") {
		return true
	}
	if runtime.GOOS == "windows" {
		lower := strings.ToLower(path)
		if strings.Contains(lower, "\\temp\\") || strings.Contains(lower, "\\tmp\\") {
			return true
		}
	}

	systemTemp := filepath.Clean(os.TempDir())
	return strings.HasPrefix(filepath.Clean(path), systemTemp)
}
