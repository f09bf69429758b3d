package course

import (
	"strings"
	"unicode/utf8"

	"coursemill/internal/content"
	"coursemill/pkg/sanitize"
)

// PreviewSection is one section of a dry-run outline. Excerpt holds the
// opening of the sanitized page body, for display only.
type PreviewSection struct {
	Title     string
	BodyBytes int
	Excerpt   string
	Resources []content.Resource
}

// Preview holds the outcome of a dry run: the outline a build would produce
// and the sanitizer's accounting, with nothing sent anywhere.
type Preview struct {
	Meta     content.Meta
	Sections []PreviewSection
	Report   sanitize.Report
}

// PreviewContent parses and sanitizes text exactly as a build run would and
// returns the resulting outline. Callers use it to vet content before
// committing to course creation.
func PreviewContent(text string, limits sanitize.Limits) Preview {
	meta, parsed := content.ParseDocument(text)
	clean, report := sanitize.Sections(batchFromParsed(parsed), limits)

	p := Preview{Meta: meta, Report: report}
	for i, sec := range clean {
		ps := PreviewSection{
			Title:     sec.Name,
			Resources: parsed[i].Resources,
		}
		if parsed[i].Body != "" && len(sec.Activities) > 0 {
			ps.BodyBytes = len(sec.Activities[0].Content)
			ps.Excerpt = excerpt(sec.Activities[0].Content, 160)
		}
		p.Sections = append(p.Sections, ps)
	}
	return p
}

// excerpt returns the first maxRunes runes of s collapsed to one line.
func excerpt(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
