package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bobmcallan/vire-recon/internal/app"
)

// openApp builds the shared App. The logger writes to stderr, leaving stdout
// for markdown and JSON output.
func openApp() (*app.App, error) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func writeJSONFile(filePath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
