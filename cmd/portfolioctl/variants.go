package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

type variantsCmd struct{}

func (*variantsCmd) Name() string     { return "variants" }
func (*variantsCmd) Synopsis() string { return "print the notations a symbol matches" }
func (*variantsCmd) Usage() string {
	return `variants <symbol>...

  Prints the canonical form of each symbol, its variants and the currency
  implied by its market suffix.
`
}

func (*variantsCmd) SetFlags(*flag.FlagSet) {}

func (*variantsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one symbol is required.")
		return subcommands.ExitUsageError
	}

	for _, raw := range f.Args() {
		canonical := symbols.Canonical(raw)
		fmt.Printf("%s\n", canonical)
		for _, v := range symbols.Variants(raw).Slice() {
			fmt.Printf("  %s\n", v)
		}
		if cur, ok := symbols.CurrencyForSuffix(canonical); ok {
			fmt.Printf("  currency: %s\n", cur)
		}
		if symbols.IsISIN(canonical) {
			fmt.Println("  looks like an ISIN")
		}
	}
	return subcommands.ExitSuccess
}
