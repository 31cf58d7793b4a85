package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the recon-server startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	printBanner(os.Stderr, config, logger)
}

func printBanner(w io.Writer, config *Config, logger *Logger) {
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	storage := storageDescription(config.Storage)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 64) + banner.ColorReset
	build := CurrentBuild()

	fmt.Fprintf(w, "\n%s\n\n", hr)
	for _, line := range []string{
		` 8888888b.  8888888888  .d8888b.   .d88888b.  888b    888`,
		` 888   Y88b 888        d88P  Y88b d88P" "Y88b 8888b   888`,
		` 888   d88P 8888888    888        888     888 888Y88b 888`,
		` 8888888P'  888        888    888 888     888 888 Y88b888`,
		` 888 T88b   888        Y88b  d88P Y88b. .d88P 888  Y8888`,
		` 888  T88b  8888888888  "Y8888P"   "Y88888P"  888   Y888`,
	} {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  Portfolio Reconciliation & Allocation%s\n\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n\n", hr)

	for _, kv := range [][2]string{
		{"Version", build.String()},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Currency", config.ReportingCurrency},
		{"Storage", storage},
	} {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)

	logger.Info().
		Str("version", build.Version).
		Str("commit", build.Commit).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("reporting_currency", config.ReportingCurrency).
		Str("storage", storage).
		Msg("Application started")
}

func storageDescription(s StorageConfig) string {
	if s.Backend == "surrealdb" {
		return "surrealdb " + s.Address
	}
	return "file " + s.Path
}

// PrintShutdownBanner displays the shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	hr := banner.ColorCyan + strings.Repeat("═", 40) + banner.ColorReset
	fmt.Fprintf(os.Stderr, "\n%s\n%s  RECON SHUTTING DOWN%s\n%s\n\n", hr, banner.ColorBold+banner.ColorWhite, banner.ColorReset, hr)
	logger.Info().Msg("Application shutting down")
}
