package stockfolio_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/batch"
	"github.com/etnz/stockfolio/date"
	"github.com/etnz/stockfolio/quote"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// market is a fake upstream, the zero value answers nothing.
type market struct {
	twse  float64       // close on the main board, 0 for no data
	hang  bool          // main board never answers
	yahoo float64       // 0 for a 404
	delay time.Duration // yahoo latency
}

func (m market) resolver(t *testing.T) *quote.Resolver {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/exchangeReport/STOCK_DAY", func(w http.ResponseWriter, r *http.Request) {
		if m.hang {
			<-r.Context().Done()
			return
		}
		if m.twse == 0 {
			_ = json.NewEncoder(w).Encode(map[string]any{"stat": "很抱歉，沒有符合條件的資料!"})
			return
		}
		row := []any{"114/03/07", "1,000", "550,000", "1", "1", "1", strconv.FormatFloat(m.twse, 'f', 2, 64), "0", "1"}
		_ = json.NewEncoder(w).Encode(map[string]any{"stat": "OK", "data": []any{row}})
	})
	mux.HandleFunc("/web/stock/aftertrading/daily_close_quotes/stk_quote_result.php", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"aaData": []any{}})
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(m.delay)
		if m.yahoo == 0 {
			http.NotFound(w, r)
			return
		}
		meta := map[string]any{"regularMarketPrice": m.yahoo}
		_ = json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{map[string]any{"meta": meta}}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	r := quote.NewResolver(quote.Options{
		Client:            srv.Client(),
		ExchangeTimeout:   100 * time.Millisecond,
		AggregatorTimeout: time.Second,
		Logger:            zerolog.Nop(),
	})
	r.Exchange.TWSEURL = srv.URL
	r.Exchange.TPExURL = srv.URL
	r.Exchange.Today = func() date.Date { return date.New(2025, time.March, 7) }
	r.Yahoo.BaseURL = srv.URL
	return r
}

type portfolio struct {
	holdings  *stockfolio.Holdings
	dividends *stockfolio.Dividends
	agg       *stockfolio.Aggregator
}

func newPortfolio(t *testing.T, resolver stockfolio.PriceResolver) portfolio {
	t.Helper()
	store := &stockfolio.MemoryStore{}
	accounts, err := stockfolio.NewAccounts(store, zerolog.Nop())
	require.NoError(t, err)
	holdings, err := stockfolio.NewHoldings(store, resolver, accounts, zerolog.Nop())
	require.NoError(t, err)
	dividends, err := stockfolio.NewDividends(store, zerolog.Nop())
	require.NoError(t, err)
	return portfolio{holdings, dividends, stockfolio.NewAggregator(holdings, dividends, accounts)}
}

var purchased = date.New(2024, time.May, 2)

func TestScenarioExchangePrice(t *testing.T) {
	p := newPortfolio(t, market{twse: 550}.resolver(t))

	h, err := p.holdings.Add(context.Background(), stockfolio.HoldingInput{Code: "2330", Shares: 1000, CostPrice: 500, PurchaseDate: purchased})
	require.NoError(t, err)
	assert.Equal(t, 550.0, h.CurrentPrice)
	assert.Equal(t, stockfolio.SourceTWSE, h.DataSource)
	assert.Equal(t, "台積電", h.Name)

	stats := p.agg.PortfolioStats()
	assert.Equal(t, 550000.0, stats.TotalValue)
	assert.Equal(t, 500000.0, stats.TotalCost)
	assert.Equal(t, 50000.0, stats.TotalGain)
	assert.True(t, stats.TotalGainPercent.Equal(10), stats.TotalGainPercent)
}

func TestScenarioSingleDividend(t *testing.T) {
	p := newPortfolio(t, nil)
	h, err := p.holdings.Add(context.Background(), stockfolio.HoldingInput{Code: "2330", Shares: 1000, CostPrice: 500, CurrentPrice: 550, PurchaseDate: purchased})
	require.NoError(t, err)

	_, err = p.dividends.Add(stockfolio.DividendInput{StockID: h.ID, ExDividendDate: date.New(2024, time.June, 13), DividendPerShare: 5, TotalDividend: 5000})
	require.NoError(t, err)

	total := p.dividends.TotalDividend(h.ID)
	assert.Equal(t, 5000.0, total)
	assert.Equal(t, 495.0, stockfolio.AdjustedCost(h.Cost(), total, float64(h.Shares)))
	assert.Equal(t, 495.0, p.dividends.AdjustedCostPrice(h))
}

func TestScenarioThreeDividends(t *testing.T) {
	p := newPortfolio(t, nil)
	h, err := p.holdings.Add(context.Background(), stockfolio.HoldingInput{Code: "0056", Shares: 100, CostPrice: 100, CurrentPrice: 100, PurchaseDate: purchased})
	require.NoError(t, err)

	for _, m := range []time.Month{time.July, time.October, time.December} {
		_, err := p.dividends.Add(stockfolio.DividendInput{StockID: h.ID, ExDividendDate: date.New(2024, m, 16), DividendPerShare: 1.5, TotalDividend: 150})
		require.NoError(t, err)
	}

	assert.Equal(t, 450.0, p.dividends.TotalDividend(h.ID))
	assert.Equal(t, 95.5, stockfolio.AdjustedCost(10000, 450, 100))
	assert.Equal(t, 95.5, p.dividends.AdjustedCostPrice(h))
	assert.Equal(t, 450.0, p.agg.PortfolioStats().TotalDividend)
}

func TestScenarioExchangeTimeout(t *testing.T) {
	t.Run("yahoo answers", func(t *testing.T) {
		r := market{hang: true, yahoo: 580}.resolver(t)
		res, err := r.ResolvePrice(context.Background(), "2330")
		require.NoError(t, err)
		assert.Equal(t, 580.0, res.Price)
		assert.Equal(t, stockfolio.SourceYahoo, res.Source)
	})

	t.Run("nothing answers", func(t *testing.T) {
		r := market{hang: true}.resolver(t)
		_, err := r.ResolvePrice(context.Background(), "2330")
		require.Error(t, err)
		var rerr *stockfolio.ResolutionError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "2330", rerr.Code)
		assert.ErrorIs(t, err, batch.ErrTimeout)
	})
}

// failingAt resolves every code but the one of the holding at index bad.
type failingAt struct {
	codes []string
	bad   int
}

func (f failingAt) ResolvePrice(ctx context.Context, code string) (stockfolio.PriceResult, error) {
	if code == f.codes[f.bad] {
		return stockfolio.PriceResult{}, &stockfolio.ResolutionError{Code: code, Err: errors.New("always down")}
	}
	return stockfolio.PriceResult{Price: 10, Source: stockfolio.SourceTWSE, Timestamp: time.Now()}, nil
}

func (f failingAt) SearchInfo(ctx context.Context, code string) (stockfolio.StockInfo, error) {
	return stockfolio.StockInfo{Code: code, Name: code, Source: stockfolio.SourceLocal}, nil
}

func TestScenarioBatchRefresh(t *testing.T) {
	codes := []string{"2330", "2317", "2454", "0050", "2882"}
	p := newPortfolio(t, failingAt{codes: codes, bad: 2})
	for _, c := range codes {
		_, err := p.holdings.Add(context.Background(), stockfolio.HoldingInput{Code: c, Name: c + " Co", Shares: 1, CostPrice: 5, CurrentPrice: 5, PurchaseDate: purchased})
		require.NoError(t, err)
	}

	rep, err := p.holdings.RefreshAll(context.Background(), batch.Options{Concurrency: 3, Policy: batch.Continue}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.SuccessCount)
	assert.Equal(t, 1, rep.FailureCount)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, 2, rep.Failed[0].Index)
	assert.Equal(t, "2454", rep.Failed[0].Holding.Code)
	assert.Equal(t, 5.0, p.holdings.ByCode("2454")[0].CurrentPrice)
}
