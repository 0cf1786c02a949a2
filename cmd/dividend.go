package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/date"
	"github.com/etnz/stockfolio/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// dividendCmd holds the flags for the 'dividend' subcommand.
type dividendCmd struct {
	date     string
	perShare float64
	total    float64
	delete   string
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record or delete a dividend received for a holding" }
func (*dividendCmd) Usage() string {
	return `pcs dividend -per-share <amount> [-total <amount>] [-date <date>] <holding>
pcs dividend -delete <dividend id>

  Records a dividend paid on a holding, designated by its id or code. The
  total defaults to the amount per share times the shares held. Dividends
  lower the adjusted cost of the holding.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", date.Today().String(), "ex-dividend date")
	f.Float64Var(&c.perShare, "per-share", 0, "dividend per share")
	f.Float64Var(&c.total, "total", 0, "total dividend received, defaults to per-share times shares")
	f.StringVar(&c.delete, "delete", "", "id of a dividend to delete")
}

func (c *dividendCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.delete == "" && f.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: dividend requires exactly one holding")
		return subcommands.ExitUsageError
	}
	on, err := stockfolio.ValidateDateString("exDividendDate", c.date)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.delete != "" {
		if err := a.dividends.Delete(c.delete); err != nil {
			fmt.Fprintf(stderr, "Error deleting dividend: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Deleted dividend %s\n", c.delete)
		return subcommands.ExitSuccess
	}

	h, err := a.holding(f.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	total := c.total
	if total == 0 {
		total = decimal.NewFromFloat(c.perShare).Mul(decimal.NewFromInt(h.Shares)).InexactFloat64()
	}
	div, err := a.dividends.Add(stockfolio.DividendInput{
		StockID:          h.ID,
		ExDividendDate:   on,
		DividendPerShare: c.perShare,
		TotalDividend:    total,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error adding dividend: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Recorded dividend of %s on %s %s, adjusted cost is now %.2f (id %s)\n",
		stockfolio.FormatMoney(div.TotalDividend), h.Code, h.Name, a.dividends.AdjustedCostPrice(h), div.ID)
	return subcommands.ExitSuccess
}

// dividendsCmd holds the flags for the 'dividends' subcommand.
type dividendsCmd struct {
	show bool
}

func (*dividendsCmd) Name() string     { return "dividends" }
func (*dividendsCmd) Synopsis() string { return "display the dividend history of holdings" }
func (*dividendsCmd) Usage() string {
	return `pcs dividends [-show] [<holding>...]

  Displays the dividends of the given holdings, most recent first, with
  their trailing yield. Without arguments, every holding with dividends is shown.
`
}

func (c *dividendsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.show, "show", false, "show amounts even in privacy mode")
}

func (c *dividendsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var holdings []stockfolio.Holding
	for _, ref := range f.Args() {
		h, err := a.holding(ref)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		holdings = append(holdings, h)
	}
	if f.NArg() == 0 {
		for _, h := range a.holdings.All() {
			if len(a.dividends.ForStock(h.ID)) > 0 {
				holdings = append(holdings, h)
			}
		}
	}
	if len(holdings) == 0 {
		fmt.Fprintln(stdout, "No dividends recorded.")
		return subcommands.ExitSuccess
	}

	privacy := a.privacy(c.show)
	today := date.Today()
	for i, h := range holdings {
		r := renderer.NewDividendReport(a.agg, h, today)
		r.Privacy = privacy
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printMarkdown(renderer.RenderDividends(r))
	}
	return subcommands.ExitSuccess
}
