package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/trogers1052/portfolio-service/internal/importer"
)

type importCmd struct {
	currency string
	asJSON   bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "parse a delimited holdings file" }
func (*importCmd) Usage() string {
	return `import [-currency SEK] [-json] [file]

  Parses a comma, semicolon or tab separated holdings table and prints the
  holdings it found and the rows it skipped. Reads stdin when no file is given.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "SEK", "Currency for rows that do not name one")
	f.BoolVar(&c.asJSON, "json", false, "Print the result as JSON")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	text, err := readInput(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	result := importer.NewParser(c.currency).Parse(text)

	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSYMBOL\tQUANTITY\tPRICE\tCURRENCY")
	for _, h := range result.Holdings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", h.Name, h.Symbol, h.Quantity, h.PurchasePrice, h.Currency)
	}
	w.Flush()

	fmt.Printf("\n%d of %d rows imported\n", len(result.Holdings), result.Rows)
	for _, s := range result.Skipped {
		fmt.Printf("  skipped line %d: %s\n", s.Line, s.Reason)
	}
	return subcommands.ExitSuccess
}

func readInput(args []string) (string, error) {
	if len(args) == 0 {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(b), nil
}
