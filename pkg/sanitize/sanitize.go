package sanitize

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// TruncationMarker terminates content fields that were cut at the
	// per-field byte ceiling. It is plain ASCII so it survives every
	// downstream encoding step and stays visible in rendered output.
	TruncationMarker = "[truncated]"

	// EllipsisMarker terminates plain-text fields capped at the rune limit.
	EllipsisMarker = "..."

	// EmojiPlaceholder replaces emoji in rendered HTML content, preserving
	// the fact that something was there for readability.
	EmojiPlaceholder = "[emoji]"
)

const (
	placeholderRune = '?'

	// latinExtendedMax is the last rune of Latin Extended-B; anything above
	// it is replaced in plain-text fields.
	latinExtendedMax = 'ɏ'
)

// htmlPolicy allows common user-generated markup while stripping inline
// event-handler attributes and non-http(s) URI schemes such as javascript:.
var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	return p
}()

// Text sanitizes a plain-text field for transmission.
//
// The pipeline, in order: emoji and pictographic runes are removed, runes
// outside the ASCII/Latin-extended range become a placeholder character,
// markup-significant characters are entity-escaped without re-escaping
// entities that already exist, and the result is capped at maxRunes with a
// trailing ellipsis when cut. A maxRunes of zero or less disables the cap.
//
// Sanitizing already-sanitized text returns it unchanged.
func Text(s string, maxRunes int) string {
	s = stripEmoji(s)
	s = foldToLatin(s)
	s = escapeHTML(s)
	return capRunes(s, maxRunes)
}

// HTML sanitizes a rich-text field while preserving its markup structure.
// Emoji become a bracketed placeholder, and the markup is filtered through a
// policy that removes inline event handlers, javascript: URIs and any other
// script-capable construct. Everything the policy allows passes through
// untouched.
func HTML(s string) string {
	s = placeholderEmoji(s)
	return htmlPolicy.Sanitize(s)
}

// Code sanitizes content that must survive near-verbatim, such as file
// bodies and code snippets: emoji and control characters are removed, but no
// escaping or rune folding is applied.
func Code(s string) string {
	s = stripEmoji(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		if r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Filename reduces an upload name to the safe set [A-Za-z0-9._-], replacing
// everything else with underscores, and caps the length while keeping the
// file extension intact. Empty or degenerate results fall back to "file".
func Filename(name string, maxRunes int) string {
	name = stripEmoji(name)

	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		safe := r >= 'a' && r <= 'z' ||
			r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' ||
			r == '.' || r == '-' || r == '_'
		if !safe {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxRunes > 0 && len(out) > maxRunes {
		ext := filepath.Ext(out)
		if len(ext) >= maxRunes || len(ext) > 12 {
			ext = ""
		}
		base := out[:len(out)-len(filepath.Ext(out))]
		keep := maxRunes - len(ext)
		if keep > len(base) {
			keep = len(base)
		}
		out = base[:keep] + ext
	}

	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}

// SuccessEstimate maps a payload size onto the observed acceptance bands of
// the remote API. The value is advisory only.
func SuccessEstimate(payloadBytes int) float64 {
	switch {
	case payloadBytes < 1*1024:
		return 0.95
	case payloadBytes < 5*1024:
		return 0.85
	case payloadBytes < 15*1024:
		return 0.70
	case payloadBytes < 30*1024:
		return 0.50
	default:
		return 0.25
	}
}

// stripEmoji removes emoji plus the invisible joiners and variation
// selectors emoji sequences leave behind.
func stripEmoji(s string) string {
	if gomoji.ContainsEmoji(s) {
		s = gomoji.RemoveEmojis(s)
	}
	s = strings.ReplaceAll(s, "‍", "")
	s = strings.ReplaceAll(s, "️", "")
	return s
}

// placeholderEmoji substitutes every emoji occurrence with EmojiPlaceholder
// and drops the sequence joiners so compound emoji collapse cleanly.
func placeholderEmoji(s string) string {
	if gomoji.ContainsEmoji(s) {
		for _, e := range gomoji.FindAll(s) {
			s = strings.ReplaceAll(s, e.Character, EmojiPlaceholder)
		}
	}
	s = strings.ReplaceAll(s, "‍", "")
	s = strings.ReplaceAll(s, "️", "")
	return s
}

// foldToLatin keeps ASCII and Latin-extended runes, preserves common
// whitespace, drops other control characters, and replaces everything else
// with the placeholder character.
func foldToLatin(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F:
			// drop remaining control characters
		case r <= latinExtendedMax:
			b.WriteRune(r)
		default:
			b.WriteRune(placeholderRune)
		}
	}
	return b.String()
}

// escapeHTML escapes markup-significant characters. Ampersands that already
// begin a character entity are left alone so repeated sanitization cannot
// double-escape.
func escapeHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if n := entityLen(s[i:]); n > 0 {
				b.WriteString(s[i : i+n])
				i += n - 1
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// entityLen reports the byte length of a character entity at the start of s
// ("&amp;", "&#39;", "&#x2026;"), or 0 when s does not start with one.
func entityLen(s string) int {
	const maxEntity = 12
	if len(s) < 3 || s[0] != '&' {
		return 0
	}
	i := 1
	numeric := false
	hex := false
	if s[i] == '#' {
		numeric = true
		i++
		if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
			hex = true
			i++
		}
	}
	start := i
	for ; i < len(s) && i <= maxEntity; i++ {
		c := s[i]
		if c == ';' {
			if i == start {
				return 0
			}
			return i + 1
		}
		switch {
		case numeric && hex:
			if !isHexDigit(c) {
				return 0
			}
		case numeric:
			if c < '0' || c > '9' {
				return 0
			}
		default:
			if !isAlnum(c) {
				return 0
			}
		}
	}
	return 0
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// capRunes cuts s to at most maxRunes runes, appending EllipsisMarker when a
// cut happens. The cut point backs off over a partial entity so the capped
// string still sanitizes to itself.
func capRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	keep := maxRunes - len(EllipsisMarker)
	if keep < 0 {
		keep = 0
	}
	cut := byteIndexOfRune(s, keep)
	cut = backoffEntity(s, cut)
	return s[:cut] + EllipsisMarker
}

// byteIndexOfRune returns the byte offset of the rune at index n, or len(s)
// when s has fewer runes.
func byteIndexOfRune(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// backoffEntity moves a cut point left when it would split a character
// entity, so "&amp;" never degrades to a bare ampersand plus debris.
func backoffEntity(s string, cut int) int {
	low := cut - 10
	if low < 0 {
		low = 0
	}
	for i := cut - 1; i >= low; i-- {
		switch s[i] {
		case ';':
			return cut
		case '&':
			return i
		}
	}
	return cut
}
