// Package sanitize prepares arbitrary course content for transmission to a
// size- and encoding-constrained LMS web-service API.
//
// The target API rejects or silently mishandles oversized and high-Unicode
// payloads without returning a structured error, so every outbound field is
// normalized here first. The package never returns errors: malformed input
// degrades to a best-effort cleaned result (truncation, placeholder
// substitution) instead of aborting a multi-section course build.
//
// # Field Sanitizers
//
// Three field-level sanitizers cover the payload surface:
//
//   - Text() for plain-text fields: emoji removed, non-Latin runes replaced,
//     markup characters entity-escaped (never double-escaped), capped with a
//     trailing ellipsis.
//   - HTML() for rendered rich-text fields: emoji replaced with a visible
//     placeholder, inline event handlers and javascript: URIs neutralized via
//     a bluemonday policy, markup structure otherwise preserved.
//   - Filename() for upload names: reduced to a safe character set with the
//     extension preserved across the length cap.
//
// All field sanitizers are idempotent: feeding a sanitized string back in
// produces the same string.
//
// # Batch Processing
//
// Sections() walks an ordered section batch, sanitizes every field, enforces
// the per-field byte ceiling by truncating content at a markup or line
// boundary, and stops including sections once the running payload estimate
// would cross the total ceiling. The returned Report carries byte counts and
// a banded success-probability estimate; it is advisory telemetry and never
// gates behavior.
//
// Ceilings are empirically derived from observed remote behavior, not
// documented API limits, and are therefore tunables on Limits rather than
// package constants.
package sanitize
