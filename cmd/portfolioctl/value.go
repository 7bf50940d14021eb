package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/importer"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/tickers"
	"github.com/trogers1052/portfolio-service/internal/valuation"
)

type valueCmd struct {
	currency string
	rates    string
	prices   string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value a holdings file offline" }
func (*valueCmd) Usage() string {
	return `value [-currency SEK] [-rates USD=10.42,EUR=11.37] [-prices tickers.json] [file]

  Parses a holdings table and prints its performance without touching the
  database. Prices come from a JSON array of ticker records when -prices is
  given; otherwise holdings are valued at their purchase price.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "SEK", "Reporting currency")
	f.StringVar(&c.rates, "rates", "", "Exchange rates into the reporting currency, CODE=RATE separated by commas")
	f.StringVar(&c.prices, "prices", "", "JSON file with ticker records")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rates, err := currency.ParseStaticRates(c.rates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	text, err := readInput(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	dir := tickers.Empty()
	if c.prices != "" {
		if dir, err = loadPrices(c.prices); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	parsed := importer.NewParser(c.currency).Parse(text)
	for i, h := range parsed.Holdings {
		if !parsed.Sources[i].CurrencyDefaulted {
			continue
		}
		if rec, ok := dir.Lookup(h.Symbol); ok && rec.Currency != "" {
			h.Currency = rec.Currency
		}
	}
	tracker := valuation.NewTracker(currency.NewNormalizer(c.currency, rates), nil, zerolog.Nop())
	summary := tracker.Compute(ctx, "", parsed.Holdings, dir)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "NAME\tPRICE\tVALUE\tINVESTED\tRETURN\tRETURN %\t")
	for _, h := range summary.Holdings {
		label := h.Name
		if label == "" {
			label = h.Symbol
		}
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\t\n",
			label, h.PricePerUnit, h.PriceCurrency, h.CurrentValue, h.InvestedValue, h.Profit, h.ProfitPct)
	}
	w.Flush()

	fmt.Printf("\nTotal %s %s, invested %s, return %s (%s%%)\n",
		summary.TotalValue, summary.Currency, summary.InvestedValue, summary.Return, summary.ReturnPct)
	for _, s := range parsed.Skipped {
		fmt.Printf("  skipped line %d: %s\n", s.Line, s.Reason)
	}
	for _, warning := range summary.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	return subcommands.ExitSuccess
}

func loadPrices(file string) (*tickers.Directory, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	var records []models.TickerRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}
	for i := range records {
		if records[i].Source == "" {
			records[i].Source = models.SourceReference
		}
	}
	return tickers.Merge(records), nil
}
