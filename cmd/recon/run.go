package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/app"
)

type runCmd struct {
	input    string
	expected string
	out      string
	chart    bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "reconcile a snapshot input file and persist the result" }
func (*runCmd) Usage() string {
	return `recon run -input <file.json> [-expected <total>] [-out <snapshot.json>] [-chart]

  Normalizes, deduplicates, classifies and buckets the holdings and cash
  balances of the input file, verifies the grand total against the expected
  total and stores the snapshot. The markdown summary is printed to stdout.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "input", "", "Run input JSON file (required).")
	f.StringVar(&c.expected, "expected", "", "Expected grand total; overrides expected_total in the input.")
	f.StringVar(&c.out, "out", "", "Also write the snapshot JSON to this file.")
	f.BoolVar(&c.chart, "chart", false, "Save the allocation chart alongside the snapshot.")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.input == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		return subcommands.ExitUsageError
	}

	input, err := app.ReadRunInput(c.input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if c.expected != "" {
		d, err := decimal.NewFromString(c.expected)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing expected total %q: %v\n", c.expected, err)
			return subcommands.ExitUsageError
		}
		input.ExpectedTotal = &d
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	snapshot, err := a.ReconcileService.Run(ctx, input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.out != "" {
		if err := writeJSONFile(c.out, snapshot); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.out, err)
			return subcommands.ExitFailure
		}
	}
	if c.chart {
		chartPath, err := a.ReportService.SaveChart(ctx, snapshot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error saving chart: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Chart saved to %s\n", chartPath)
		}
	}

	fmt.Println(a.ReportService.Summary(snapshot))
	fmt.Fprintf(os.Stderr, "Snapshot %s stored\n", snapshot.ID)

	if !snapshot.Reconciliation.Match {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
