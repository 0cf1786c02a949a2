package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/batch"
	"github.com/google/subcommands"
)

// priceCmd resolves prices without touching the portfolio.
type priceCmd struct{}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "fetch the current price of stock codes" }
func (*priceCmd) Usage() string {
	return `pcs price <code>...

  Fetches prices from the exchanges, falling back to Yahoo Finance. The
  portfolio is not changed.
`
}

func (*priceCmd) SetFlags(*flag.FlagSet) {}

type quoted struct {
	code string
	res  stockfolio.PriceResult
}

func (*priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: price requires at least one code")
		return subcommands.ExitUsageError
	}
	codes := make([]string, f.NArg())
	for i, c := range f.Args() {
		codes[i] = stockfolio.NormalizeCode(c)
		if err := stockfolio.ValidateCode(codes[i]); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result := batch.Process(ctx, codes, func(ctx context.Context, code string, _ int) (quoted, error) {
		res, err := a.resolver.ResolvePrice(ctx, code)
		return quoted{code, res}, err
	}, a.cfg.BatchOptions())

	byCode := make(map[string]stockfolio.PriceResult, len(result.Successful))
	for _, q := range result.Successful {
		byCode[q.code] = q.res
	}
	var b strings.Builder
	b.WriteString("| Code | Price | Source | Time |\n|:---|---:|:---|:---|\n")
	for _, code := range codes {
		if res, ok := byCode[code]; ok {
			fmt.Fprintf(&b, "| %s | %.2f | %s | %s |\n", code, res.Price, res.Source, res.Timestamp.Local().Format(time.DateTime))
		}
	}
	if len(byCode) > 0 {
		printMarkdown(b.String())
	}
	for _, fail := range result.Failed {
		fmt.Fprintf(stderr, "Error fetching %s: %v\n", codes[fail.Index], fail.Err)
	}
	if result.FailureCount > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// searchCmd looks up stock information.
type searchCmd struct {
	local bool
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "look up the name and price of stock codes" }
func (*searchCmd) Usage() string {
	return `pcs search [-local] <code>...

  Looks up the name, type and price of stock codes. With -local, only the
  embedded name table is searched.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.local, "local", false, "only search the embedded name table, without network access")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: search requires at least one code")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	status := subcommands.ExitSuccess
	found := 0
	var b strings.Builder
	b.WriteString("| Code | Name | Type | Price | Source |\n|:---|:---|:---|---:|:---|\n")
	for _, arg := range f.Args() {
		code := stockfolio.NormalizeCode(arg)
		var info stockfolio.StockInfo
		if c.local {
			e, ok := a.resolver.Names.Lookup(code)
			if !ok {
				fmt.Fprintf(stderr, "Error: %v\n", &stockfolio.NotFoundError{Kind: "stock", ID: code})
				status = subcommands.ExitFailure
				continue
			}
			info = stockfolio.StockInfo{Code: e.Code, Name: e.Name, Type: e.Type, Source: stockfolio.SourceLocal}
		} else {
			info, err = a.resolver.SearchInfo(ctx, code)
			if err != nil {
				fmt.Fprintf(stderr, "Error searching %s: %v\n", code, err)
				status = subcommands.ExitFailure
				continue
			}
		}
		price := "-"
		if info.Price > 0 {
			price = fmt.Sprintf("%.2f", info.Price)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", info.Code, info.Name, info.Type, price, info.Source)
		found++
	}
	if found > 0 {
		printMarkdown(b.String())
	}
	return status
}

// progressRate is the fastest rate at which progress lines are redrawn.
const progressRate = 100 * time.Millisecond

// updateCmd holds the flags for the 'update' subcommand.
type updateCmd struct {
	account string
	policy  string
	quiet   bool
	retry   bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "refresh the price of every holding" }
func (*updateCmd) Usage() string {
	return `pcs update [-account <account>] [-policy continue|stop] [-retry] [-quiet]

  Refreshes the current price of every holding, in batches. With the stop
  policy, the first failure halts the refresh. Prices refreshed before a
  failure are kept.

  With -retry, a failed price is asked again up to 3 times, waiting 1s, 2s
  then 4s.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "only refresh this account, name or id")
	f.StringVar(&c.policy, "policy", "continue", "what to do after a failure: continue or stop")
	f.BoolVar(&c.quiet, "quiet", false, "do not report progress")
	f.BoolVar(&c.retry, "retry", false, "retry failed prices with exponential backoff")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	policy, err := batch.ParsePolicy(c.policy)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	opts := a.cfg.BatchOptions()
	opts.Policy = policy
	if c.retry {
		a.holdings.Retry = batch.DefaultRetry
	}
	var onProgress func(batch.Stats)
	if !c.quiet {
		show := func(s batch.Stats) bool {
			fmt.Fprintf(stderr, "\r[%3.0f%%] %d/%d", s.Progress, s.Processed, s.Total)
			return true
		}
		throttled := batch.Throttle(progressRate, show)
		onProgress = func(s batch.Stats) {
			if s.Processed < s.Total {
				throttled(s)
				return
			}
			show(s)
			fmt.Fprintln(stderr)
		}
	}

	var rep stockfolio.RefreshReport
	if c.account != "" {
		acc, aerr := a.account(c.account)
		if aerr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", aerr)
			return subcommands.ExitFailure
		}
		rep, err = a.holdings.RefreshAccount(ctx, acc.ID, opts, onProgress)
	} else {
		rep, err = a.holdings.RefreshAll(ctx, opts, onProgress)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error saving prices: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "Updated %d of %d holdings\n", rep.SuccessCount, rep.Total)
	for _, fail := range rep.Failed {
		fmt.Fprintf(stderr, "Error updating %s %s: %v\n", fail.Holding.Code, fail.Holding.Name, fail.Err)
	}
	if rep.FailureCount > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
