package content

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestParseHeadings(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantTitles []string
	}{
		{
			name:       "single heading",
			input:      "# Welcome\nsome text",
			wantTitles: []string{"Welcome"},
		},
		{
			name:       "multiple headings in order",
			input:      "# One\na\n## Two\nb\n### Three\nc",
			wantTitles: []string{"One", "Two", "Three"},
		},
		{
			name:       "no headings collapse to default",
			input:      "just a paragraph\nand another line",
			wantTitles: []string{"General"},
		},
		{
			name:       "preamble before first heading",
			input:      "intro text\n# Real Section\nbody",
			wantTitles: []string{"General", "Real Section"},
		},
		{
			name:       "blank preamble is skipped",
			input:      "\n\n# First\nbody",
			wantTitles: []string{"First"},
		},
		{
			name:       "empty body sections survive",
			input:      "# A\n# B\n# C\nonly c has text",
			wantTitles: []string{"A", "B", "C"},
		},
		{
			name:       "hashtag is not a heading",
			input:      "# Real\nsee #golang for more",
			wantTitles: []string{"Real"},
		},
		{
			name:       "closing hashes stripped",
			input:      "## Trimmed ##\nbody",
			wantTitles: []string{"Trimmed"},
		},
		{
			name:       "title hash preserved",
			input:      "# Intro to C#\nbody",
			wantTitles: []string{"Intro to C#"},
		},
		{
			name:       "deep heading depth accepted",
			input:      "####### Very Deep\nbody",
			wantTitles: []string{"Very Deep"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("Parse() returned %d sections, want %d: %+v",
					len(got), len(tt.wantTitles), got)
			}
			for i, want := range tt.wantTitles {
				if got[i].Title != want {
					t.Errorf("section %d title = %q, want %q", i, got[i].Title, want)
				}
			}
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\t\n"} {
		if got := Parse(input); len(got) != 0 {
			t.Errorf("Parse(%q) = %+v, want no sections", input, got)
		}
	}
}

func TestParseBodiesAndResources(t *testing.T) {
	input := "# Intro\nWelcome\n\n# Topic\nDetails with https://example.com/file.pdf"

	got := Parse(input)

	if len(got) != 2 {
		t.Fatalf("Parse() returned %d sections, want 2", len(got))
	}
	if got[0].Title != "Intro" || got[0].Body != "Welcome" {
		t.Errorf("first section = %+v, want Intro/Welcome", got[0])
	}
	topic := got[1]
	if len(topic.Resources) != 1 {
		t.Fatalf("Topic resources = %+v, want exactly one", topic.Resources)
	}
	res := topic.Resources[0]
	if res.Type != ResourceURL {
		t.Errorf("resource type = %q, want %q", res.Type, ResourceURL)
	}
	if res.URL != "https://example.com/file.pdf" {
		t.Errorf("resource url = %q, want the address from the text", res.URL)
	}
	if res.Name != "file.pdf" {
		t.Errorf("resource name = %q, want %q", res.Name, "file.pdf")
	}
}

func TestResourceExtraction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantURLs []string
		wantName string
	}{
		{
			name:     "trailing punctuation dropped",
			body:     "read https://example.com/guide.pdf, then continue",
			wantURLs: []string{"https://example.com/guide.pdf"},
			wantName: "guide.pdf",
		},
		{
			name:     "markdown link closer dropped",
			body:     "see [the doc](https://example.com/a/b.docx) today",
			wantURLs: []string{"https://example.com/a/b.docx"},
			wantName: "b.docx",
		},
		{
			name:     "plain link labeled by host",
			body:     "visit https://moodle.example.org/course/view",
			wantURLs: []string{"https://moodle.example.org/course/view"},
			wantName: "moodle.example.org",
		},
		{
			name:     "duplicates collapse",
			body:     "https://example.com/x.pdf and again https://example.com/x.pdf",
			wantURLs: []string{"https://example.com/x.pdf"},
			wantName: "x.pdf",
		},
		{
			name:     "no links",
			body:     "nothing to see here",
			wantURLs: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := Parse("# S\n" + tt.body)
			if len(sections) != 1 {
				t.Fatalf("Parse() returned %d sections, want 1", len(sections))
			}
			res := sections[0].Resources
			if len(res) != len(tt.wantURLs) {
				t.Fatalf("resources = %+v, want %d", res, len(tt.wantURLs))
			}
			for i, want := range tt.wantURLs {
				if res[i].URL != want {
					t.Errorf("resource %d url = %q, want %q", i, res[i].URL, want)
				}
			}
			if tt.wantName != "" && res[0].Name != tt.wantName {
				t.Errorf("resource name = %q, want %q", res[0].Name, tt.wantName)
			}
		})
	}
}

func TestParseStable(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "# Heading %d\nbody line for %d\nhttps://example.com/res%d.pdf\n", i, i, i)
	}
	input := b.String()

	first := Parse(input)
	second := Parse(input)

	if len(first) != 200 {
		t.Fatalf("Parse() returned %d sections, want 200", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-parsing identical input produced different output")
	}
}

func TestParseDocument(t *testing.T) {
	t.Run("with frontmatter", func(t *testing.T) {
		input := `---
title: Networking 101
shortname: net101
category: 7
summary: Fundamentals of computer networking
---
# Week 1
Basics`

		meta, sections := ParseDocument(input)

		want := Meta{
			Title:     "Networking 101",
			ShortName: "net101",
			Category:  7,
			Summary:   "Fundamentals of computer networking",
		}
		if meta != want {
			t.Errorf("meta = %+v, want %+v", meta, want)
		}
		if len(sections) != 1 || sections[0].Title != "Week 1" {
			t.Errorf("sections = %+v, want single Week 1", sections)
		}
	})

	t.Run("without frontmatter", func(t *testing.T) {
		meta, sections := ParseDocument("# Only\ncontent")
		if meta != (Meta{}) {
			t.Errorf("meta = %+v, want zero value", meta)
		}
		if len(sections) != 1 || sections[0].Title != "Only" {
			t.Errorf("sections = %+v, want single Only", sections)
		}
	})

	t.Run("malformed frontmatter degrades", func(t *testing.T) {
		input := "---\ntitle: [broken\n---\n# Section\nbody"

		meta, sections := ParseDocument(input)

		if meta != (Meta{}) {
			t.Errorf("meta = %+v, want zero value", meta)
		}
		// the whole input, bad header included, must still be parsed
		if len(sections) != 2 {
			t.Fatalf("sections = %+v, want default plus Section", sections)
		}
		if sections[0].Title != DefaultSectionTitle || sections[1].Title != "Section" {
			t.Errorf("titles = %q, %q", sections[0].Title, sections[1].Title)
		}
	})
}
