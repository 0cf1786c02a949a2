// Package cmd implements the CLI application to manage a Taiwan stock portfolio.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/config"
	"github.com/etnz/stockfolio/logger"
	"github.com/etnz/stockfolio/quote"
	"github.com/etnz/stockfolio/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&addCmd{}, "holdings")
	c.Register(&editCmd{}, "holdings")
	c.Register(&rmCmd{}, "holdings")
	c.Register(&listCmd{}, "holdings")

	c.Register(&accountCmd{}, "accounts")

	c.Register(&dividendCmd{}, "dividends")
	c.Register(&dividendsCmd{}, "dividends")

	c.Register(&priceCmd{}, "prices")
	c.Register(&searchCmd{}, "prices")
	c.Register(&updateCmd{}, "prices")
	c.Register(&watchCmd{}, "prices")

	c.Register(&summaryCmd{}, "reports")
	c.Register(&statsCmd{}, "reports")

	c.Register(&settingsCmd{}, "data")
	c.Register(&migrateCmd{}, "data")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	envFile   = flag.String("env", "", "Path to a .env file. Defaults to .env in the working directory, if any.")
	storePath = flag.String("store", "", "Path to the portfolio store: SQLite for .db files, JSON otherwise. Overrides PCS_STORE.")
	logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error or off. Overrides PCS_LOG_LEVEL.")
)

// stdout receives reports, stderr receives errors and progress.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// newResolver builds the price resolver on the public endpoints.
var newResolver = func(cfg *config.Config, log zerolog.Logger) *quote.Resolver {
	return quote.NewResolver(quote.Options{
		TTL:               cfg.CacheTTL,
		ExchangeTimeout:   cfg.ExchangeTimeout,
		AggregatorTimeout: cfg.AggregatorTimeout,
		Logger:            log,
	})
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	var files []string
	if *envFile != "" {
		if _, err := os.Stat(*envFile); err != nil {
			return nil, fmt.Errorf("cannot read env file: %w", err)
		}
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, nil
}

// app is a portfolio opened from the configured store.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     store.Backend
	resolver  *quote.Resolver
	accounts  *stockfolio.Accounts
	holdings  *stockfolio.Holdings
	dividends *stockfolio.Dividends
	agg       *stockfolio.Aggregator
}

// openApp loads the configuration and the portfolio books.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Out: stderr})
	logger.SetGlobalLogger(log)

	backend, err := store.Open(cfg.Store())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, store: backend}
	a.resolver = newResolver(cfg, log)

	if a.accounts, err = stockfolio.NewAccounts(backend, log); err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	if a.holdings, err = stockfolio.NewHoldings(backend, a.resolver, a.accounts, log); err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	if a.dividends, err = stockfolio.NewDividends(backend, log); err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	if cfg.ClampAdjustedCost != nil {
		a.dividends.ClampAdjustedCost = *cfg.ClampAdjustedCost
	}
	a.agg = stockfolio.NewAggregator(a.holdings, a.dividends, a.accounts)
	log.Debug().Str("store", cfg.Store()).Int("holdings", a.holdings.Count()).Msg("portfolio opened")
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("cannot close store")
	}
}

// settings returns the persisted settings.
func (a *app) settings() (stockfolio.Settings, error) {
	return stockfolio.LoadSettings(a.store)
}

// account finds an account by id or by name. An empty ref is the first account.
func (a *app) account(ref string) (stockfolio.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return a.accounts.All()[0], nil
	}
	if acc, err := a.accounts.Get(ref); err == nil {
		return acc, nil
	}
	if acc, ok := a.accounts.ByName(ref); ok {
		return acc, nil
	}
	return stockfolio.Account{}, &stockfolio.NotFoundError{Kind: "account", ID: ref}
}

// holding finds a holding by id, or by code when the code is held once.
func (a *app) holding(ref string) (stockfolio.Holding, error) {
	if h, err := a.holdings.Get(ref); err == nil {
		return h, nil
	}
	matches := a.holdings.ByCode(stockfolio.NormalizeCode(ref))
	switch len(matches) {
	case 0:
		return stockfolio.Holding{}, &stockfolio.NotFoundError{Kind: "holding", ID: ref}
	case 1:
		return matches[0], nil
	}
	return stockfolio.Holding{}, fmt.Errorf("%s is held in %d accounts, use the holding id", ref, len(matches))
}
