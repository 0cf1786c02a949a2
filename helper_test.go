package stockfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/etnz/stockfolio/date"
	"github.com/rs/zerolog"
)

// fakeResolver serves fixed prices and names, codes listed in fail always fail.
type fakeResolver struct {
	mu     sync.Mutex
	prices map[string]PriceResult
	names  map[string]string
	fail   map[string]bool
	flaky  map[string]int // failures left before the price is served
	calls  []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		prices: map[string]PriceResult{},
		names:  map[string]string{},
		fail:   map[string]bool{},
		flaky:  map[string]int{},
	}
}

func (f *fakeResolver) price(code string, p float64, src Source) *fakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[code] = PriceResult{Price: p, Source: src, Timestamp: time.Date(2025, time.March, 7, 13, 30, 0, 0, time.UTC)}
	return f
}

func (f *fakeResolver) name(code, name string) *fakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[code] = name
	return f
}

func (f *fakeResolver) failing(code string) *fakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[code] = true
	return f
}

// failingTimes makes the next n resolutions of code fail.
func (f *fakeResolver) failingTimes(code string, n int) *fakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flaky[code] = n
	return f
}

func (f *fakeResolver) ResolvePrice(ctx context.Context, code string) (PriceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "price "+code)
	res, ok := f.prices[code]
	flaky := f.flaky[code] > 0
	if flaky {
		f.flaky[code]--
	}
	if !ok || f.fail[code] || flaky {
		return PriceResult{}, &ResolutionError{Code: code, Tried: []string{"TWSE", "Yahoo"}, Err: errors.New("down")}
	}
	return res, nil
}

func (f *fakeResolver) SearchInfo(ctx context.Context, code string) (StockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "info "+code)
	name, ok := f.names[code]
	if !ok {
		return StockInfo{}, &NotFoundError{Kind: "stock", ID: code}
	}
	return StockInfo{Code: code, Name: name, Source: SourceYahoo}, nil
}

// books are the portfolio books sharing one store.
type books struct {
	store     *MemoryStore
	accounts  *Accounts
	holdings  *Holdings
	dividends *Dividends
	agg       *Aggregator
}

func newBooks(t *testing.T, store *MemoryStore, resolver PriceResolver) *books {
	t.Helper()
	log := zerolog.Nop()
	accounts, err := NewAccounts(store, log)
	if err != nil {
		t.Fatalf("NewAccounts() error = %v", err)
	}
	holdings, err := NewHoldings(store, resolver, accounts, log)
	if err != nil {
		t.Fatalf("NewHoldings() error = %v", err)
	}
	dividends, err := NewDividends(store, log)
	if err != nil {
		t.Fatalf("NewDividends() error = %v", err)
	}
	return &books{
		store:     store,
		accounts:  accounts,
		holdings:  holdings,
		dividends: dividends,
		agg:       NewAggregator(holdings, dividends, accounts),
	}
}

var lastYear = date.Today().Add(-365)

func ptr[T any](v T) *T { return &v }
