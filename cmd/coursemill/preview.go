package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"coursemill/internal/config"
	"coursemill/internal/course"
	"coursemill/internal/logging"
	"coursemill/pkg/fileops"
	"coursemill/pkg/sanitize"
)

const bodyWrapWidth = 66

var warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

var previewFile string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Dry-run parsing and sanitization against a local file",
	Long: "Parses and sanitizes a markdown file exactly as course creation\n" +
		"would, then prints the resulting outline and the sanitizer's\n" +
		"accounting. Nothing is sent anywhere.",
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewFile, "file", "f", "", "markdown file to preview")
	_ = previewCmd.MarkFlagRequired("file")
}

func runPreview(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	logger := logging.NewAppLogger()

	// Configured ceilings apply when available; defaults otherwise. A
	// preview must work without any configuration at all.
	var limits sanitize.Limits
	if cfg, err := config.Load(); err == nil {
		limits = cfg.SanitizeLimits()
	} else {
		logger.Warn("Configuration unavailable, using default limits", "error", err)
	}

	data, _, err := fileops.ReadUpload(previewFile, fileops.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", previewFile, err)
	}

	p := course.PreviewContent(string(data), limits)

	fmt.Println(titleStyle.Render("Content preview: " + filepath.Base(previewFile)))
	fmt.Println()

	if len(p.Sections) == 0 && p.Report.SectionsIn == 0 {
		fmt.Println(warnStyle.Render("!") + " no sections found in the document")
		return nil
	}

	if p.Meta.Title != "" {
		row("Title", p.Meta.Title)
	}
	if p.Meta.Category != 0 {
		row("Category", fmt.Sprintf("%d", p.Meta.Category))
	}
	row("Sections", sectionCount(p.Report))
	row("Size", sizeLine(p.Report))
	row("Estimate", estimateLine(p.Report))
	fmt.Println()

	for i, sec := range p.Sections {
		fmt.Printf("  %d. %s %s\n", i+1, titleStyle.Render(sec.Title), dimStyle.Render(sectionStats(sec)))
		if sec.Excerpt != "" {
			fmt.Println(indent.String(wordwrap.String(sec.Excerpt, bodyWrapWidth), 5))
		}
		for _, r := range sec.Resources {
			fmt.Println("     " + dimStyle.Render("→ "+r.Name+"  "+r.URL))
		}
	}
	return nil
}

func sectionCount(rep sanitize.Report) string {
	s := fmt.Sprintf("%d planned", rep.SectionsOut)
	if rep.SectionsDropped > 0 {
		s += "  " + failStyle.Render(fmt.Sprintf("%d dropped to fit the payload ceiling", rep.SectionsDropped))
	}
	return s
}

func sizeLine(rep sanitize.Report) string {
	s := fmt.Sprintf("%d bytes after cleaning", rep.SanitizedBytes)
	if rep.ReductionPct > 0 {
		s += dimStyle.Render(fmt.Sprintf(" (%.0f%% smaller)", rep.ReductionPct))
	}
	if rep.FieldsTruncated > 0 {
		s += "  " + warnStyle.Render(fmt.Sprintf("%d fields truncated", rep.FieldsTruncated))
	}
	return s
}

func estimateLine(rep sanitize.Report) string {
	pct := fmt.Sprintf("%.0f%% acceptance", rep.SuccessEstimate*100)
	if rep.SuccessEstimate >= 0.85 {
		return okStyle.Render(pct)
	}
	return warnStyle.Render(pct)
}

func sectionStats(sec course.PreviewSection) string {
	s := fmt.Sprintf("(%d bytes", sec.BodyBytes)
	switch n := len(sec.Resources); {
	case n == 1:
		s += ", 1 link"
	case n > 1:
		s += fmt.Sprintf(", %d links", n)
	}
	return s + ")"
}
