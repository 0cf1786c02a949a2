package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etnz/stockfolio/config"
	"github.com/etnz/stockfolio/migrate"
	"github.com/etnz/stockfolio/quote"
	"github.com/etnz/stockfolio/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// market serves Yahoo chart prices, the exchanges answer 404.
type market struct {
	mu     sync.Mutex
	prices map[string]float64
	flaky  map[string]int // requests left to answer 503
}

func (m *market) set(code string, p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[code] = p
}

func (m *market) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
		http.NotFound(w, r)
		return
	}
	code := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/"), ".TW")
	m.mu.Lock()
	p, ok := m.prices[code]
	down := m.flaky[code] > 0
	if down {
		m.flaky[code]--
	}
	m.mu.Unlock()
	if down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	meta := map[string]any{"symbol": code + ".TW", "regularMarketPrice": p}
	_ = json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{map[string]any{"meta": meta}}}})
}

// setup points the commands at a fresh store and a fake market.
func setup(t *testing.T, storeName string) *market {
	t.Helper()
	m := &market{prices: map[string]float64{"2330": 550, "0050": 95.5}, flaky: map[string]int{}}
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	oldStore, oldLevel, oldResolver := *storePath, *logLevel, newResolver
	t.Cleanup(func() { *storePath, *logLevel, newResolver = oldStore, oldLevel, oldResolver })

	*storePath = filepath.Join(t.TempDir(), storeName)
	*logLevel = "off"
	newResolver = func(cfg *config.Config, log zerolog.Logger) *quote.Resolver {
		r := quote.NewResolver(quote.Options{
			Client:            srv.Client(),
			ExchangeTimeout:   200 * time.Millisecond,
			AggregatorTimeout: time.Second,
			Logger:            log,
		})
		r.Exchange.TWSEURL = srv.URL
		r.Exchange.TPExURL = srv.URL
		r.Yahoo.BaseURL = srv.URL
		return r
	}
	return m
}

// run executes c with args and returns its status, stdout and stderr.
func run(t *testing.T, c subcommands.Command, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()
	return runContext(t, context.Background(), c, args...)
}

func runContext(t *testing.T, ctx context.Context, c subcommands.Command, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	defer func() { stdout, stderr = oldOut, oldErr }()

	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	status := c.Execute(ctx, fs)
	return status, out.String(), errOut.String()
}

var idPattern = regexp.MustCompile(`\(id ([0-9a-f-]+)\)`)

func idOf(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.NotNil(t, m, "no id in %q", out)
	return m[1]
}

func TestAddListSummary(t *testing.T) {
	setup(t, "portfolio.json")

	status, out, errOut := run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-date", "2024-05-02")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Added 2330 台積電 to 預設帳戶: 1000 shares at 500.00")

	status, out, _ = run(t, &listCmd{})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "| 2330 | 台積電 | 預設帳戶 | 1,000 | 500.00 | 500.00 | 550.00 |")
	assert.Contains(t, out, "| +10.00% | Yahoo |")

	status, out, _ = run(t, &summaryCmd{})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "# Portfolio")
	assert.Contains(t, out, "| Holdings | 1 |")
	assert.Contains(t, out, "550,000.00")
}

func TestAdd_Errors(t *testing.T) {
	setup(t, "portfolio.json")

	status, _, errOut := run(t, &addCmd{}, "-shares", "1000", "-cost", "500")
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, errOut, "-code is required")

	status, _, errOut = run(t, &addCmd{}, "-code", "23", "-shares", "1000", "-cost", "500")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "Error adding holding")

	status, _, errOut = run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-date", "yesterday-ish")
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, errOut, "Error parsing date")

	status, _, errOut = run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-account", "nowhere")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "account not found")
}

func TestAdd_PriceUnavailable(t *testing.T) {
	setup(t, "portfolio.json")

	status, out, errOut := run(t, &addCmd{}, "-code", "9999", "-shares", "10", "-cost", "12")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Added 9999 9999")
	assert.Contains(t, errOut, "no current price")
}

func TestAdd_Merge(t *testing.T) {
	setup(t, "portfolio.json")

	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500")
	status, out, errOut := run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "600", "-merge")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Merged into 2330 台積電: 2000 shares at 550.00")

	_, out, _ = run(t, &listCmd{}, "-json")
	var r struct {
		Rows []struct {
			Shares int64 `json:"shares"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Rows, 1)
	assert.Equal(t, int64(2000), r.Rows[0].Shares)
}

func TestEditRm(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500")

	status, out, errOut := run(t, &editCmd{}, "-shares", "2000", "-price", "600", "2330")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Updated 2330 台積電: 2000 shares at 500.00")

	_, out, _ = run(t, &listCmd{})
	assert.Contains(t, out, "| 600.00 |")
	assert.Contains(t, out, "| Local |", "hand edited prices are local")

	status, _, errOut = run(t, &editCmd{}, "-shares", "-5", "2330")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "Error updating holding")

	status, _, _ = run(t, &editCmd{}, "-shares", "5")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, out, _ = run(t, &rmCmd{}, "2330")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Removed 2330 台積電")

	status, _, errOut = run(t, &rmCmd{}, "2330")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "holding not found")
}

func TestAccountCmd(t *testing.T) {
	setup(t, "portfolio.json")

	status, out, _ := run(t, &accountCmd{}, "-new", "國泰")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Created account 國泰")

	status, _, errOut := run(t, &addCmd{}, "-code", "0050", "-shares", "500", "-cost", "100", "-account", "國泰")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)

	_, out, _ = run(t, &accountCmd{})
	assert.Contains(t, out, "| 預設帳戶 |")
	assert.Contains(t, out, "| 國泰 |")

	status, out, _ = run(t, &accountCmd{}, "-rename", "國泰", "-name", "國泰證券")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Renamed account to 國泰證券")

	status, _, _ = run(t, &accountCmd{}, "-rename", "國泰證券")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, out, _ = run(t, &accountCmd{}, "-delete", "預設帳戶")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Deleted account 預設帳戶")

	status, _, errOut = run(t, &accountCmd{}, "-delete", "國泰證券", "-force")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "last account")

	_, out, _ = run(t, &listCmd{}, "-account", "國泰證券")
	assert.Contains(t, out, "| 0050 | 元大台灣50 | 國泰證券 |")
}

func TestAccountCmd_DeleteHeld(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &accountCmd{}, "-new", "國泰")
	status, _, errOut := run(t, &addCmd{}, "-code", "0050", "-shares", "500", "-cost", "100", "-account", "國泰")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)

	status, _, errOut = run(t, &accountCmd{}, "-delete", "國泰")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "國泰 still holds 1 holdings")

	_, out, _ := run(t, &accountCmd{})
	assert.Contains(t, out, "| 國泰 |")

	status, out, errOut = run(t, &accountCmd{}, "-delete", "國泰", "-force")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Deleted account 國泰")
	assert.Contains(t, errOut, "1 holdings no longer belong to any account")

	_, out, _ = run(t, &listCmd{})
	assert.Contains(t, out, "0050")
}

func TestDividendCmds(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500")

	status, out, errOut := run(t, &dividendCmd{}, "-per-share", "5", "-date", "2025-07-10", "2330")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "adjusted cost is now 495.00")
	id := idOf(t, out)

	status, out, _ = run(t, &dividendsCmd{})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "# Dividends of 2330 台積電")
	assert.Contains(t, out, "| 2025-07-10 | 5.00 |")

	_, out, _ = run(t, &listCmd{})
	assert.Contains(t, out, "| 500.00 | 495.00 | 550.00 |")

	status, _, _ = run(t, &dividendCmd{}, "-per-share", "5")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, _, errOut = run(t, &dividendCmd{}, "-per-share", "-1", "2330")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "Error adding dividend")

	status, out, _ = run(t, &dividendCmd{}, "-delete", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Deleted dividend "+id)

	_, out, _ = run(t, &dividendsCmd{})
	assert.Contains(t, out, "No dividends recorded.")
}

func TestUpdateCmd(t *testing.T) {
	m := setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-price", "540")
	run(t, &addCmd{}, "-code", "0050", "-shares", "500", "-cost", "100", "-price", "90")

	m.set("2330", 560)
	status, out, errOut := run(t, &updateCmd{}, "-quiet")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Updated 2 of 2 holdings")

	_, out, _ = run(t, &listCmd{}, "-code", "2330")
	assert.Contains(t, out, "| 560.00 |")
	assert.Contains(t, out, "| Yahoo |")
	assert.NotContains(t, out, "| 0050 |")

	run(t, &addCmd{}, "-code", "9999", "-shares", "10", "-cost", "12", "-price", "13")
	status, out, errOut = run(t, &updateCmd{}, "-quiet")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, out, "Updated 2 of 3 holdings")
	assert.Contains(t, errOut, "Error updating 9999")

	status, _, _ = run(t, &updateCmd{}, "-policy", "maybe")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestUpdateCmd_Retry(t *testing.T) {
	m := setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-price", "540")

	m.mu.Lock()
	m.flaky["2330"] = 1
	m.mu.Unlock()
	status, _, _ := run(t, &updateCmd{}, "-quiet")
	assert.Equal(t, subcommands.ExitFailure, status, "without -retry the outage fails the update")

	m.mu.Lock()
	m.flaky["2330"] = 1
	m.mu.Unlock()
	status, out, errOut := run(t, &updateCmd{}, "-quiet", "-retry")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Updated 1 of 1 holdings")
}

func TestUpdateCmd_Progress(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-price", "540")
	run(t, &addCmd{}, "-code", "0050", "-shares", "500", "-cost", "100", "-price", "90")

	status, _, errOut := run(t, &updateCmd{})
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, errOut, "[100%] 2/2\n", "the last step is always shown")
}

func TestPriceAndSearchCmds(t *testing.T) {
	setup(t, "portfolio.json")

	status, out, errOut := run(t, &priceCmd{}, "2330", "0050")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "| 2330 | 550.00 | Yahoo |")
	assert.Contains(t, out, "| 0050 | 95.50 | Yahoo |")
	assert.Less(t, strings.Index(out, "2330"), strings.Index(out, "0050"), "codes keep their order")

	status, _, errOut = run(t, &priceCmd{}, "9999")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "Error fetching 9999")

	status, _, _ = run(t, &priceCmd{}, "23")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, out, _ = run(t, &searchCmd{}, "-local", "2330")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "| 2330 | 台積電 | 上市 | - | Local |")

	status, out, _ = run(t, &searchCmd{}, "2330")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "| 2330 | 台積電 | 上市 | 550.00 | Yahoo |")

	status, _, errOut = run(t, &searchCmd{}, "9999")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "stock not found")
}

func TestStatsCmd(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500")

	status, out, _ := run(t, &statsCmd{})
	require.Equal(t, subcommands.ExitSuccess, status)
	var v struct {
		Summary struct {
			TotalValue       float64 `json:"totalValue"`
			TotalGainPercent float64 `json:"totalGainPercent"`
			StockCount       int     `json:"stockCount"`
		} `json:"summary"`
		Accounts []struct {
			Account struct {
				Name string `json:"name"`
			} `json:"account"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 550000.0, v.Summary.TotalValue)
	assert.InDelta(t, 10, v.Summary.TotalGainPercent, 1e-9)
	assert.Equal(t, 1, v.Summary.StockCount)
	require.Len(t, v.Accounts, 1)
	assert.Equal(t, "預設帳戶", v.Accounts[0].Account.Name)

	status, out, _ = run(t, &statsCmd{}, "-account", "預設帳戶")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, `"stockCount": 1`)
}

func TestSettingsCmd(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500")

	status, out, _ := run(t, &settingsCmd{})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "privacy      false")
	assert.Contains(t, out, "interval     5m0s")

	status, out, _ = run(t, &settingsCmd{}, "-privacy", "-interval", "1m")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "privacy      true")
	assert.Contains(t, out, "interval     1m0s")

	_, out, _ = run(t, &listCmd{})
	assert.Contains(t, out, "****")
	assert.NotContains(t, out, "550,000")

	_, out, _ = run(t, &listCmd{}, "-show")
	assert.Contains(t, out, "550,000")

	status, _, errOut := run(t, &settingsCmd{}, "-interval", "1s")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "update interval")
}

func TestSummaryHTML(t *testing.T) {
	setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500")

	file := filepath.Join(t.TempDir(), "summary.html")
	status, _, errOut := run(t, &summaryCmd{}, "-html", file)
	require.Equal(t, subcommands.ExitSuccess, status, errOut)

	page, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Portfolio</title>")
	assert.Contains(t, string(page), "<table>")
}

func TestMigrateCmd_File(t *testing.T) {
	setup(t, "portfolio.json")
	legacy := filepath.Join("..", "migrate", "testdata", "v12.json")

	status, out, errOut := run(t, &migrateCmd{}, "-from", legacy, "-dry-run")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Layout 1.2: 1.2 to 1.3. 2 accounts, 3 stocks, 2 dividends.")
	_, err := os.Stat(*storePath)
	assert.ErrorIs(t, err, os.ErrNotExist, "dry runs do not save")

	status, out, errOut = run(t, &migrateCmd{}, "-from", legacy)
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Saved to")

	_, out, _ = run(t, &listCmd{}, "-account", "元大")
	assert.Contains(t, out, "| 2330 | 台積電 | 元大 |")

	status, _, errOut = run(t, &migrateCmd{}, "-from", legacy)
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "already holds a portfolio")

	status, _, _ = run(t, &migrateCmd{}, "-from", legacy, "-force")
	assert.Equal(t, subcommands.ExitSuccess, status)

	status, _, errOut = run(t, &migrateCmd{})
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, errOut, "-from is required")
}

func TestMigrateCmd_SQLite(t *testing.T) {
	setup(t, "portfolio.db")
	doc, err := os.ReadFile(filepath.Join("..", "migrate", "testdata", "v12.json"))
	require.NoError(t, err)

	status, _, errOut := run(t, &migrateCmd{})
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "no "+migrate.LegacyStorageKey+" data")

	db, err := store.OpenSQLite(*storePath)
	require.NoError(t, err)
	require.NoError(t, db.Put(migrate.LegacyStorageKey, doc))
	require.NoError(t, db.Close())

	status, _, errOut = run(t, &migrateCmd{})
	require.Equal(t, subcommands.ExitSuccess, status, errOut)

	db, err = store.OpenSQLite(*storePath)
	require.NoError(t, err)
	defer db.Close()
	keys, err := db.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"stockPortfolio_v1.2", "stockPortfolio_v1.3"}, keys, "legacy data is kept")
	snap, err := db.Load()
	require.NoError(t, err)
	assert.Len(t, snap.Holdings, 3)
}

func TestWatchCmd(t *testing.T) {
	m := setup(t, "portfolio.json")
	run(t, &addCmd{}, "-code", "2330", "-shares", "1000", "-cost", "500", "-price", "540")
	m.set("2330", 570)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	status, out, errOut := runContext(t, ctx, &watchCmd{}, "-interval", "1m")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "updated 1 of 1 holdings")
	assert.Contains(t, errOut, "Refreshing every 1m0s")

	_, out, _ = run(t, &listCmd{})
	assert.Contains(t, out, "| 570.00 |")

	status, _, _ = run(t, &watchCmd{}, "-interval", "1s")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestTopicCmd(t *testing.T) {
	status, out, _ := run(t, &topicCmd{})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "* dividends:")

	status, out, _ = run(t, &topicCmd{}, "dividends")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.True(t, strings.HasPrefix(out, "# Dividends\n"), out)

	status, _, errOut := run(t, &topicCmd{}, "nope")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, `topic "nope" not found`)
}
