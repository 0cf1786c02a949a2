package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/stockfolio/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	account string
	html    string
	show    bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the portfolio totals" }
func (*summaryCmd) Usage() string {
	return `pcs summary [-account <account>] [-html <file>] [-show]

  Displays the market value, adjusted cost, gain, dividends and total return
  of the portfolio, then of each account. With -html, the report is also
  written as a standalone HTML page.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "only report on this account, name or id")
	f.StringVar(&c.html, "html", "", "also write the report as HTML to this file")
	f.BoolVar(&c.show, "show", false, "show amounts even in privacy mode")
}

func (c *summaryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	title := "Portfolio"
	holdings := a.holdings.All()
	if c.account != "" {
		acc, err := a.account(c.account)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		title, holdings = acc.Name, a.holdings.ByAccount(acc.ID)
	}

	r := renderer.NewReport(title, a.agg, holdings)
	r.Privacy = a.privacy(c.show)
	md := renderer.RenderSummary(r)
	printMarkdown(md)

	if c.html != "" {
		page, err := renderer.HTMLPage(title, md)
		if err != nil {
			fmt.Fprintf(stderr, "Error rendering HTML: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.html, []byte(page), 0644); err != nil {
			fmt.Fprintf(stderr, "Error writing %q: %v\n", c.html, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stderr, "Report written to %s\n", c.html)
	}
	return subcommands.ExitSuccess
}

// statsCmd holds the flags for the 'stats' subcommand.
type statsCmd struct {
	account string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print portfolio statistics as JSON" }
func (*statsCmd) Usage() string {
	return `pcs stats [-account <account>]

  Prints the portfolio summary and the statistics of every account as JSON,
  or the statistics of a single account.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "only print this account, name or id")
}

func (c *statsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var v any
	if c.account != "" {
		acc, err := a.account(c.account)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if v, err = a.agg.AccountStats(acc.ID); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		v = struct {
			Summary  any `json:"summary"`
			Accounts any `json:"accounts"`
		}{a.agg.Summary(), a.agg.AllAccountStats()}
	}
	if err := printJSON(v); err != nil {
		fmt.Fprintf(stderr, "Error writing JSON: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
