package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/stockfolio/logger"
	"github.com/etnz/stockfolio/migrate"
	"github.com/etnz/stockfolio/store"
	"github.com/google/subcommands"
)

// migrateCmd holds the flags for the 'migrate' subcommand.
type migrateCmd struct {
	from   string
	force  bool
	dryRun bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "import portfolio data saved in an older layout" }
func (*migrateCmd) Usage() string {
	return `pcs migrate [-from <file>] [-force] [-dry-run]

  Converts a portfolio saved in the v1.2 layout to the current layout and
  saves it in the store. The data is read from the -from JSON file or, for a
  SQLite store, from its v1.2 key. The old data is kept.

  A store that already holds a portfolio is only replaced with -force.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "legacy JSON file to import")
	f.BoolVar(&c.force, "force", false, "replace the portfolio already in the store")
	f.BoolVar(&c.dryRun, "dry-run", false, "report what would be migrated without saving")
}

func (c *migrateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Out: stderr})

	backend, err := store.Open(cfg.Store())
	if err != nil {
		fmt.Fprintf(stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer backend.Close()

	var doc []byte
	switch {
	case c.from != "":
		if doc, err = os.ReadFile(c.from); err != nil {
			fmt.Fprintf(stderr, "Error reading legacy file: %v\n", err)
			return subcommands.ExitFailure
		}
	default:
		db, ok := backend.(*store.SQLite)
		if !ok {
			fmt.Fprintln(stderr, "Error: -from is required unless the store is a SQLite database")
			return subcommands.ExitUsageError
		}
		var found bool
		if doc, found, err = db.Get(migrate.LegacyStorageKey); err != nil {
			fmt.Fprintf(stderr, "Error reading legacy data: %v\n", err)
			return subcommands.ExitFailure
		}
		if !found {
			fmt.Fprintf(stderr, "Error: no %s data in %s\n", migrate.LegacyStorageKey, cfg.Store())
			return subcommands.ExitFailure
		}
	}

	snap, rep, err := migrate.Apply(doc)
	if err != nil {
		fmt.Fprintf(stderr, "Error migrating: %v\n", err)
		return subcommands.ExitFailure
	}
	applied := "nothing to migrate"
	if rep.Migrated() {
		applied = strings.Join(rep.Applied, ", ")
	}
	fmt.Fprintf(stdout, "Layout %s: %s. %d accounts, %d stocks, %d dividends.\n", rep.From, applied, rep.Accounts, rep.Stocks, rep.Dividends)
	if c.dryRun {
		return subcommands.ExitSuccess
	}

	existing, err := backend.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error reading store: %v\n", err)
		return subcommands.ExitFailure
	}
	if existing != nil && !c.force {
		fmt.Fprintf(stderr, "Error: %s already holds a portfolio, use -force to replace it\n", cfg.Store())
		return subcommands.ExitFailure
	}
	if err := backend.Save(snap); err != nil {
		fmt.Fprintf(stderr, "Error saving migrated portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Info().Str("store", cfg.Store()).Str("from", rep.From).Msg("portfolio migrated")
	fmt.Fprintf(stdout, "Saved to %s\n", cfg.Store())
	return subcommands.ExitSuccess
}
