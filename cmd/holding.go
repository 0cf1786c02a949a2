package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/date"
	"github.com/etnz/stockfolio/renderer"
	"github.com/google/subcommands"
)

// addCmd holds the flags for the 'add' subcommand.
type addCmd struct {
	code    string
	name    string
	shares  int64
	cost    float64
	price   float64
	date    string
	account string
	merge   bool
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding to the portfolio" }
func (*addCmd) Usage() string {
	return `pcs add -code <code> -shares <n> -cost <price> [-price <price>] [-name <name>] [-date <date>] [-account <account>] [-merge]

  Adds a holding. The name is looked up when omitted and the current price is
  fetched when omitted; lookup failures do not prevent the addition.

  With -merge, buying more of a code already held in the account adds the
  shares to the existing holding at the average cost.

Usage Examples:
$ pcs add -code 2330 -shares 1000 -cost 500
$ pcs add -code 0050 -shares 500 -cost 100 -account 國泰 -date 2024-05-02
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "code", "", "stock code, 4 to 6 letters or digits")
	f.StringVar(&c.name, "name", "", "display name, looked up when empty")
	f.Int64Var(&c.shares, "shares", 0, "number of shares")
	f.Float64Var(&c.cost, "cost", 0, "cost price per share")
	f.Float64Var(&c.price, "price", 0, "current price per share, fetched when 0")
	f.StringVar(&c.date, "date", date.Today().String(), "purchase date")
	f.StringVar(&c.account, "account", "", "account name or id, the first account by default")
	f.BoolVar(&c.merge, "merge", false, "merge into the existing holding of the same code in the account")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.code == "" {
		fmt.Fprintln(stderr, "Error: -code is required")
		return subcommands.ExitUsageError
	}
	on, err := stockfolio.ValidateDateString("purchaseDate", c.date)
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

	acc, err := a.account(c.account)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.merge {
		code := stockfolio.NormalizeCode(c.code)
		for _, h := range a.holdings.ByAccount(acc.ID) {
			if h.Code != code {
				continue
			}
			h, err := a.holdings.MergeLot(h.ID, c.shares, c.cost)
			if err != nil {
				fmt.Fprintf(stderr, "Error merging lot: %v\n", err)
				return subcommands.ExitFailure
			}
			fmt.Fprintf(stdout, "Merged into %s %s: %d shares at %.2f (id %s)\n", h.Code, h.Name, h.Shares, h.CostPrice, h.ID)
			return subcommands.ExitSuccess
		}
	}

	h, err := a.holdings.Add(ctx, stockfolio.HoldingInput{
		Code:         c.code,
		Name:         c.name,
		Shares:       c.shares,
		CostPrice:    c.cost,
		CurrentPrice: c.price,
		PurchaseDate: on,
		AccountID:    acc.ID,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error adding holding: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Added %s %s to %s: %d shares at %.2f (id %s)\n", h.Code, h.Name, acc.Name, h.Shares, h.CostPrice, h.ID)
	if h.CurrentPrice == 0 {
		fmt.Fprintln(stderr, "Warning: no current price, run 'pcs update' later.")
	}
	return subcommands.ExitSuccess
}

// editCmd holds the flags for the 'edit' subcommand. Only the flags that
// are set are applied.
type editCmd struct {
	code    string
	name    string
	shares  int64
	cost    float64
	price   float64
	date    string
	account string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change the fields of a holding" }
func (*editCmd) Usage() string {
	return `pcs edit [-code <code>] [-name <name>] [-shares <n>] [-cost <price>] [-price <price>] [-date <date>] [-account <account>] <holding>

  Changes the given fields of a holding, designated by its id or by its code
  when held in a single account. Setting -price marks the price as entered by hand.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "code", "", "new stock code")
	f.StringVar(&c.name, "name", "", "new display name")
	f.Int64Var(&c.shares, "shares", 0, "new number of shares")
	f.Float64Var(&c.cost, "cost", 0, "new cost price per share")
	f.Float64Var(&c.price, "price", 0, "new current price per share")
	f.StringVar(&c.date, "date", "", "new purchase date")
	f.StringVar(&c.account, "account", "", "move to this account, name or id")
}

func (c *editCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: edit requires exactly one holding")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	h, err := a.holding(f.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var up stockfolio.HoldingUpdate
	var ferr error
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "code":
			up.Code = &c.code
		case "name":
			up.Name = &c.name
		case "shares":
			up.Shares = &c.shares
		case "cost":
			up.CostPrice = &c.cost
		case "price":
			up.CurrentPrice = &c.price
		case "date":
			d, err := stockfolio.ValidateDateString("purchaseDate", c.date)
			if err != nil {
				ferr = err
				return
			}
			up.PurchaseDate = &d
		case "account":
			acc, err := a.account(c.account)
			if err != nil {
				ferr = err
				return
			}
			up.AccountID = &acc.ID
		}
	})
	if ferr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", ferr)
		return subcommands.ExitUsageError
	}

	h, err = a.holdings.Update(h.ID, up)
	if err != nil {
		fmt.Fprintf(stderr, "Error updating holding: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Updated %s %s: %d shares at %.2f (id %s)\n", h.Code, h.Name, h.Shares, h.CostPrice, h.ID)
	return subcommands.ExitSuccess
}

// rmCmd removes holdings.
type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "remove holdings" }
func (*rmCmd) Usage() string {
	return `pcs rm <holding>...

  Removes holdings, designated by id or by code. Their dividends are kept.
`
}

func (*rmCmd) SetFlags(*flag.FlagSet) {}

func (*rmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: rm requires at least one holding")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	status := subcommands.ExitSuccess
	for _, ref := range f.Args() {
		h, err := a.holding(ref)
		if err == nil {
			err = a.holdings.Delete(h.ID)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error removing %s: %v\n", ref, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintf(stdout, "Removed %s %s (id %s)\n", h.Code, h.Name, h.ID)
	}
	return status
}

// listCmd holds the flags for the 'list' subcommand.
type listCmd struct {
	account string
	code    string
	json    bool
	show    bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list holdings with their gains" }
func (*listCmd) Usage() string {
	return `pcs list [-account <account>] [-code <code>] [-json] [-show]

  Lists holdings with their adjusted cost, market value and gain. Amounts are
  masked in privacy mode unless -show is set.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "only list this account, name or id")
	f.StringVar(&c.code, "code", "", "only list this stock code")
	f.BoolVar(&c.json, "json", false, "print JSON instead of markdown")
	f.BoolVar(&c.show, "show", false, "show amounts even in privacy mode")
}

func (c *listCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	title := "Holdings"
	holdings := a.holdings.All()
	if c.account != "" {
		acc, err := a.account(c.account)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		title = acc.Name
		holdings = a.holdings.ByAccount(acc.ID)
	}
	if c.code != "" {
		code := stockfolio.NormalizeCode(c.code)
		var kept []stockfolio.Holding
		for _, h := range holdings {
			if h.Code == code {
				kept = append(kept, h)
			}
		}
		holdings = kept
		title += " " + code
	}

	r := renderer.NewReport(title, a.agg, holdings)
	if c.json {
		if err := printJSON(r); err != nil {
			fmt.Fprintf(stderr, "Error writing JSON: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	r.Privacy = a.privacy(c.show)
	printMarkdown(renderer.RenderHoldings(r))
	return subcommands.ExitSuccess
}

// privacy reports whether amounts must be masked.
func (a *app) privacy(show bool) bool {
	if show {
		return false
	}
	s, err := a.settings()
	if err != nil {
		a.log.Warn().Err(err).Msg("cannot read settings")
		return false
	}
	return s.PrivacyMode
}
