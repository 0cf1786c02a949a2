package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/stockfolio"
	"github.com/google/subcommands"
)

// accountCmd holds the flags for the 'account' subcommand.
type accountCmd struct {
	create string
	rename string
	name   string
	delete string
	force  bool
}

func (*accountCmd) Name() string     { return "account" }
func (*accountCmd) Synopsis() string { return "list, create, rename or delete accounts" }
func (*accountCmd) Usage() string {
	return `pcs account [-new <name>] [-rename <account> -name <name>] [-delete <account> [-force]]

  Without flags, lists the accounts. Accounts are designated by name or id.
  The last account cannot be deleted.

  An account that still holds stocks is only deleted with -force. Its
  holdings are then kept without an account: they count in the portfolio
  totals but in no account statistics, until moved with 'pcs edit -account'.
`
}

func (c *accountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.create, "new", "", "create an account with this name")
	f.StringVar(&c.rename, "rename", "", "account to rename, use with -name")
	f.StringVar(&c.name, "name", "", "new name of the renamed account")
	f.StringVar(&c.delete, "delete", "", "account to delete")
	f.BoolVar(&c.force, "force", false, "delete the account even if it still holds stocks")
}

func (c *accountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.rename != "" && c.name == "" {
		fmt.Fprintln(stderr, "Error: -rename requires -name")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	switch {
	case c.create != "":
		acc, err := a.accounts.Create(c.create)
		if err != nil {
			fmt.Fprintf(stderr, "Error creating account: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Created account %s (id %s)\n", acc.Name, acc.ID)

	case c.rename != "":
		acc, err := a.account(c.rename)
		if err == nil {
			acc, err = a.accounts.Rename(acc.ID, c.name)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error renaming account: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Renamed account to %s (id %s)\n", acc.Name, acc.ID)

	case c.delete != "":
		acc, err := a.account(c.delete)
		if err != nil {
			fmt.Fprintf(stderr, "Error deleting account: %v\n", err)
			return subcommands.ExitFailure
		}
		held := len(a.holdings.ByAccount(acc.ID))
		if held > 0 && !c.force {
			fmt.Fprintf(stderr, "Error: %s still holds %d holdings, move them with 'pcs edit -account' or use -force\n", acc.Name, held)
			return subcommands.ExitFailure
		}
		if err := a.accounts.Delete(acc.ID); err != nil {
			fmt.Fprintf(stderr, "Error deleting account: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Deleted account %s\n", acc.Name)
		if held > 0 {
			fmt.Fprintf(stderr, "Warning: %d holdings no longer belong to any account.\n", held)
		}

	default:
		printMarkdown(accountsMarkdown(a.agg.AllAccountStats()))
	}
	return subcommands.ExitSuccess
}

func accountsMarkdown(stats []stockfolio.AccountStats) string {
	var b strings.Builder
	b.WriteString("| Account | Id | Holdings | Market value |\n")
	b.WriteString("|:---|:---|---:|---:|\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", s.Account.Name, s.Account.ID, s.StockCount, stockfolio.FormatMoney(s.TotalValue))
	}
	return b.String()
}
