package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type chartCmd struct {
	id  string
	out string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "export the allocation chart of a snapshot as PNG" }
func (*chartCmd) Usage() string {
	return `recon chart -id <snapshot_id> [-out <file.png>]

  Without -out the chart is written to the store's charts directory.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Snapshot id (required).")
	f.StringVar(&c.out, "out", "", "Output PNG file.")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "-id is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	snapshot, err := a.ReconcileService.GetSnapshot(ctx, c.id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.out == "" {
		chartPath, err := a.ReportService.SaveChart(ctx, snapshot)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Println(chartPath)
		return subcommands.ExitSuccess
	}

	png, err := a.ReportService.RenderChart(snapshot)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := os.WriteFile(c.out, png, 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(c.out)
	return subcommands.ExitSuccess
}
