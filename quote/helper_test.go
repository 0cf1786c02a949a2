package quote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etnz/stockfolio/date"
	"github.com/rs/zerolog"
)

// fakeMarket serves the three upstream APIs from a single test server.
type fakeMarket struct {
	srv *httptest.Server

	mu    sync.Mutex
	twse  http.HandlerFunc
	tpex  http.HandlerFunc
	yahoo http.HandlerFunc
	calls []string // "twse", "tpex" or "yahoo", in arrival order
	last  map[string]*http.Request
}

func newFakeMarket(t *testing.T) *fakeMarket {
	t.Helper()
	f := &fakeMarket{last: make(map[string]*http.Request)}
	notFound := func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }
	f.twse, f.tpex, f.yahoo = notFound, notFound, notFound

	mux := http.NewServeMux()
	mux.HandleFunc("/exchangeReport/STOCK_DAY", func(w http.ResponseWriter, r *http.Request) { f.serve("twse", w, r) })
	mux.HandleFunc("/web/stock/aftertrading/daily_close_quotes/stk_quote_result.php", func(w http.ResponseWriter, r *http.Request) { f.serve("tpex", w, r) })
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) { f.serve("yahoo", w, r) })
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeMarket) serve(name string, w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.last[name] = r
	var h http.HandlerFunc
	switch name {
	case "twse":
		h = f.twse
	case "tpex":
		h = f.tpex
	default:
		h = f.yahoo
	}
	f.mu.Unlock()
	h(w, r)
}

func (f *fakeMarket) set(twse, tpex, yahoo http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if twse != nil {
		f.twse = twse
	}
	if tpex != nil {
		f.tpex = tpex
	}
	if yahoo != nil {
		f.yahoo = yahoo
	}
}

func (f *fakeMarket) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMarket) Request(name string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[name]
}

// resolver returns a Resolver wired to the fake market.
func (f *fakeMarket) resolver() *Resolver {
	r := NewResolver(Options{
		Client:            f.srv.Client(),
		ExchangeTimeout:   100 * time.Millisecond,
		AggregatorTimeout: 500 * time.Millisecond,
		Logger:            zerolog.Nop(),
	})
	r.Exchange.TWSEURL = f.srv.URL
	r.Exchange.TPExURL = f.srv.URL
	r.Exchange.Today = func() date.Date { return date.New(2025, time.March, 7) }
	r.Yahoo.BaseURL = f.srv.URL
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// twseDay returns a main board handler whose last rows close at the given prices.
func twseDay(closes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows [][]string
		for _, c := range closes {
			rows = append(rows, []string{"114/03/07", "25,634,512", "26,420,101,236", "1,025.00", "1,035.00", "1,020.00", c, "+5.00", "45,120"})
		}
		writeJSON(w, map[string]any{"stat": "OK", "date": "20250307", "data": rows})
	}
}

func twseNoData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"stat": "很抱歉，沒有符合條件的資料!"})
}

func tpexDay(prices ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows [][]string
		for _, p := range prices {
			rows = append(rows, []string{"5274", "信驊", p, "+10.00", "2,480.00", "2,520.00", "2,470.00", "1,234,000"})
		}
		writeJSON(w, map[string]any{"reportDate": "114/03/07", "aaData": rows})
	}
}

func tpexNoData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"aaData": []any{}})
}

func yahooChart(meta map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		m := map[string]any{"symbol": symbol, "currency": "TWD"}
		for k, v := range meta {
			m[k] = v
		}
		writeJSON(w, map[string]any{"chart": map[string]any{"result": []any{map[string]any{"meta": m}}, "error": nil}})
	}
}

func yahooPrice(p float64) http.HandlerFunc {
	return yahooChart(map[string]any{"regularMarketPrice": p})
}

// hang blocks until the client gives up.
func hang(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { http.Error(w, http.StatusText(code), code) }
}
