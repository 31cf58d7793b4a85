package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/vire-recon/internal/app"
	"github.com/bobmcallan/vire-recon/internal/models"
)

type overrideCmd struct {
	symbol   string
	sector   string
	industry string
	region   string
	listing  string
	delete   bool
	file     string
	replace  bool
}

func (*overrideCmd) Name() string     { return "override" }
func (*overrideCmd) Synopsis() string { return "manage manual classification overrides" }
func (*overrideCmd) Usage() string {
	return `recon override -symbol <X> -sector <sector> -region <region> [-industry <industry>]
recon override -symbol <X> -delete
recon override -file <overrides.json> [-replace]

  Manual overrides are applied before any external lookup on every run.
`
}

func (c *overrideCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Holding symbol.")
	f.StringVar(&c.sector, "sector", "", "Sector to assign.")
	f.StringVar(&c.industry, "industry", "", "Industry to assign.")
	f.StringVar(&c.region, "region", "", "Issuer region to assign.")
	f.StringVar(&c.listing, "listing", "", "Listing country.")
	f.BoolVar(&c.delete, "delete", false, "Remove the override for -symbol.")
	f.StringVar(&c.file, "file", "", "Import overrides from a JSON file.")
	f.BoolVar(&c.replace, "replace", false, "With -file, replace existing overrides.")
}

func (c *overrideCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" && c.symbol == "" {
		fmt.Fprintln(os.Stderr, "-symbol or -file is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	switch {
	case c.file != "":
		imported, skipped, err := app.ImportOverridesFromFile(ctx, a.ReconcileService, a.Logger, c.file, c.replace)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Imported %d overrides, skipped %d\n", imported, skipped)

	case c.delete:
		if err := a.ReconcileService.DeleteOverride(ctx, c.symbol); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Removed override for %s\n", c.symbol)

	default:
		rec := &models.ClassificationRecord{
			Symbol:         c.symbol,
			Sector:         c.sector,
			Industry:       c.industry,
			IssuerRegion:   c.region,
			ListingCountry: c.listing,
		}
		if err := a.ReconcileService.SaveOverride(ctx, rec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Saved override for %s: %s / %s\n", c.symbol, c.sector, c.region)
	}
	return subcommands.ExitSuccess
}
