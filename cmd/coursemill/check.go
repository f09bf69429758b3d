package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"coursemill/internal/config"
	"coursemill/internal/logging"
	"coursemill/internal/moodle"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and probe the configured site",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	logger := logging.NewAppLogger()

	fmt.Println(titleStyle.Render("Connection check"))
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(failStyle.Render("✗") + " cannot load configuration")
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(failStyle.Render("✗") + " configuration is incomplete")
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Moodle().Timeout)
	defer cancel()

	client := moodle.New(cfg.Moodle(), logger)
	info, err := client.GetSiteInfo(ctx)
	if err != nil {
		fmt.Println(failStyle.Render("✗") + " cannot reach the site")
		return err
	}

	fmt.Println(okStyle.Render("✓") + " connected")
	fmt.Println()
	row("Site", info.SiteName)
	row("URL", info.SiteURL)
	row("User", fmt.Sprintf("%s %s (%s)", info.FirstName, info.LastName, info.Username))
	row("Release", info.Release)
	row("Write", writeStatus(cfg))
	return nil
}

func row(label, value string) {
	fmt.Println("  " + labelStyle.Render(label) + value)
}

func writeStatus(cfg *config.Config) string {
	switch {
	case cfg.ReadOnly:
		return dimStyle.Render("disabled (read-only mode)")
	case cfg.AdminToken != "":
		return "enabled" + dimStyle.Render(" (separate admin token)")
	case cfg.Token != "":
		return "enabled" + dimStyle.Render(" (shared token)")
	default:
		return dimStyle.Render("disabled (no token)")
	}
}
