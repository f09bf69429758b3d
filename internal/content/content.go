// Package content turns free-form chat or markdown text into the ordered
// section structure the course builder consumes. Parsing is stateless and
// never fails: whatever the input looks like, it comes back as at least a
// usable single-section document.
package content

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultSectionTitle names the section that collects text appearing before
// the first heading, or the whole input when no heading exists.
const DefaultSectionTitle = "General"

// ResourceType tags where a resource reference points.
type ResourceType string

const (
	ResourceURL  ResourceType = "url"
	ResourceFile ResourceType = "file"
)

// Resource is a reference extracted from a section body, or supplied
// directly for local file uploads.
type Resource struct {
	Type ResourceType
	URL  string
	Name string
}

// ParsedSection is one structural unit of the input document.
type ParsedSection struct {
	Title     string
	Body      string
	Resources []Resource
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// docExtensions are the attachment extensions worth a filename display name;
// other links are labeled by their host.
var docExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
	".xls":  true,
	".xlsx": true,
	".zip":  true,
	".txt":  true,
	".md":   true,
}

// Parse splits text into sections at markdown heading lines.
//
// A line whose first non-blank characters are a run of '#' followed by
// whitespace starts a new section titled by the rest of the line; the run
// length (heading depth) does not matter. Text before the first heading, or
// the entire input when it has no headings, becomes one section titled
// DefaultSectionTitle. A heading followed immediately by another heading
// yields a section with an empty body, which is preserved. Whitespace-only
// input yields no sections.
//
// Parsing the same input twice returns structurally identical output.
func Parse(text string) []ParsedSection {
	sections := []ParsedSection{}
	if strings.TrimSpace(text) == "" {
		return sections
	}

	title := DefaultSectionTitle
	seenHeading := false
	var body []string

	for _, line := range strings.Split(text, "\n") {
		heading, ok := headingTitle(line)
		if !ok {
			body = append(body, line)
			continue
		}
		if seenHeading || hasContent(body) {
			sections = append(sections, buildSection(title, body))
		}
		title = heading
		seenHeading = true
		body = nil
	}
	return append(sections, buildSection(title, body))
}

func buildSection(title string, body []string) ParsedSection {
	text := strings.TrimSpace(strings.Join(body, "\n"))
	return ParsedSection{
		Title:     title,
		Body:      text,
		Resources: extractResources(text),
	}
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

// headingTitle reports whether line is a markdown heading and returns its
// title text. "#hashtag" style lines without a separating space are body
// text, not headings.
func headingTitle(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	rest := strings.TrimLeft(trimmed, "#")
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}

	title := strings.TrimSpace(rest)
	// drop a markdown closing hash run ("## Title ##") but keep hashes that
	// belong to the title itself ("Intro to C#")
	stripped := strings.TrimRight(title, "#")
	if stripped != title && (stripped == "" || strings.HasSuffix(stripped, " ")) {
		title = strings.TrimSpace(stripped)
	}
	return title, true
}

// extractResources scans a section body for web links. Trailing prose
// punctuation and markdown link closers are not part of the address.
func extractResources(body string) []Resource {
	matches := urlPattern.FindAllString(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	resources := make([]Resource, 0, len(matches))
	for _, raw := range matches {
		u := strings.TrimRight(raw, `.,;:!?)>]}"'`)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		resources = append(resources, Resource{
			Type: ResourceURL,
			URL:  u,
			Name: displayName(u),
		})
	}
	return resources
}

// displayName labels a link for humans: the file name when the path ends in
// a document extension, otherwise the host.
func displayName(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	base := path.Base(parsed.Path)
	if docExtensions[strings.ToLower(path.Ext(base))] {
		return base
	}
	if parsed.Host != "" {
		return parsed.Host
	}
	return u
}
