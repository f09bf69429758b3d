package content

import (
	"strings"

	"github.com/adrg/frontmatter"
)

// Meta is the optional document header carried as YAML frontmatter. Every
// field is optional; a document without a header parses to the zero Meta.
type Meta struct {
	Title     string `yaml:"title"`
	ShortName string `yaml:"shortname"`
	Category  int64  `yaml:"category"`
	Summary   string `yaml:"summary"`
}

// ParseDocument reads an optional frontmatter header and parses the rest of
// the document into sections.
//
// A malformed header is not fatal: the zero Meta is returned and the entire
// input, delimiters included, is parsed as content so nothing the author
// wrote is silently discarded.
func ParseDocument(text string) (Meta, []ParsedSection) {
	var meta Meta
	rest, err := frontmatter.Parse(strings.NewReader(text), &meta)
	if err != nil {
		return Meta{}, Parse(text)
	}
	return meta, Parse(string(rest))
}
