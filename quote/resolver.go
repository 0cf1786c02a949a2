// Package quote resolves market prices and display names of Taiwan
// securities. Prices come from the exchanges first, then from Yahoo Finance;
// successful prices are cached for a short time.
package quote

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/rs/zerolog"
)

// Defaults used by NewResolver for zero Options fields.
const (
	DefaultTTL               = 60 * time.Second
	DefaultExchangeTimeout   = 5 * time.Second
	DefaultAggregatorTimeout = 10 * time.Second
)

// Options configures a Resolver.
type Options struct {
	Client            *http.Client
	TTL               time.Duration
	ExchangeTimeout   time.Duration
	AggregatorTimeout time.Duration
	Names             *Names
	Logger            zerolog.Logger
}

// source is one price provider, in priority order.
type source struct {
	tag   stockfolio.Source
	price func(ctx context.Context, code string) (float64, error)
}

type cacheEntry struct {
	data     stockfolio.PriceResult
	cachedAt time.Time
}

// Resolver resolves prices with an ordered fallback across sources. It is
// safe for concurrent use; concurrent resolutions of the same code all hit
// the network and the last one to finish wins the cache slot.
type Resolver struct {
	Exchange *Exchange
	Yahoo    *Yahoo
	Names    *Names

	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
	sources []source

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewResolver returns a Resolver on the public endpoints.
func NewResolver(opts Options) *Resolver {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = DefaultExchangeTimeout
	}
	if opts.AggregatorTimeout <= 0 {
		opts.AggregatorTimeout = DefaultAggregatorTimeout
	}
	if opts.Names == nil {
		opts.Names = DefaultNames()
	}
	log := opts.Logger.With().Str("component", "resolver").Logger()
	r := &Resolver{
		Exchange: NewExchange(opts.Client, opts.ExchangeTimeout, log),
		Yahoo:    NewYahoo(opts.Client, opts.AggregatorTimeout, log),
		Names:    opts.Names,
		ttl:      opts.TTL,
		now:      time.Now,
		log:      log,
		cache:    make(map[string]cacheEntry),
	}
	r.sources = []source{
		{stockfolio.SourceTWSE, func(ctx context.Context, code string) (float64, error) { return r.Exchange.Price(ctx, code) }},
		{stockfolio.SourceYahoo, func(ctx context.Context, code string) (float64, error) { return r.Yahoo.Price(ctx, code) }},
	}
	return r
}

// ResolvePrice returns the current price of code. A cached price younger
// than the TTL is returned without any network access. Otherwise sources
// are tried in order and the first strictly positive price is cached and
// returned. The name table is never used for prices.
func (r *Resolver) ResolvePrice(ctx context.Context, code string) (stockfolio.PriceResult, error) {
	code = stockfolio.NormalizeCode(code)
	if res, ok := r.cached(code); ok {
		r.log.Debug().Str("code", code).Msg("cache hit")
		return res, nil
	}

	attempts := make([]Attempt[float64], 0, len(r.sources))
	for _, s := range r.sources {
		attempts = append(attempts, Attempt[float64]{
			Name: string(s.tag),
			Fn:   func(ctx context.Context) (float64, error) { return s.price(ctx, code) },
		})
	}
	price, name, err := First(ctx, r.log.With().Str("code", code).Logger(), attempts, positive)
	if err != nil {
		r.log.Error().Str("code", code).Msg("every price source failed")
		return stockfolio.PriceResult{}, &stockfolio.ResolutionError{Code: code, Tried: names(attempts), Err: err}
	}

	res := stockfolio.PriceResult{Price: price, Source: stockfolio.Source(name), Timestamp: r.now()}
	r.mu.Lock()
	r.cache[code] = cacheEntry{data: res, cachedAt: res.Timestamp}
	r.mu.Unlock()
	r.log.Info().Str("code", code).Str("source", name).Float64("price", price).Msg("price resolved")
	return res, nil
}

func (r *Resolver) cached(code string) (stockfolio.PriceResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[code]
	if !ok || r.now().Sub(e.cachedAt) >= r.ttl {
		return stockfolio.PriceResult{}, false
	}
	return e.data, true
}

// SearchInfo describes code, favouring a complete name over a price. Yahoo
// is asked first; the exchanges come next and only provide a price. Names
// from the local table take precedence when present.
func (r *Resolver) SearchInfo(ctx context.Context, code string) (stockfolio.StockInfo, error) {
	code = stockfolio.NormalizeCode(code)
	local, known := r.Names.Lookup(code)

	attempts := []Attempt[stockfolio.StockInfo]{
		{Name: string(stockfolio.SourceYahoo), Fn: func(ctx context.Context) (stockfolio.StockInfo, error) {
			m, err := r.Yahoo.Chart(ctx, code)
			if err != nil {
				return stockfolio.StockInfo{}, err
			}
			if err := positive(m.Price()); err != nil {
				return stockfolio.StockInfo{}, err
			}
			info := stockfolio.StockInfo{Code: code, Name: m.Name(), Price: m.Price(), Source: stockfolio.SourceYahoo}
			if info.Name == "" {
				info.Name = code
			}
			return info, nil
		}},
		{Name: string(stockfolio.SourceTWSE), Fn: func(ctx context.Context) (stockfolio.StockInfo, error) {
			p, err := r.Exchange.Price(ctx, code)
			if err != nil {
				return stockfolio.StockInfo{}, err
			}
			return stockfolio.StockInfo{Code: code, Name: code, Price: p, Source: stockfolio.SourceTWSE}, nil
		}},
	}
	info, _, err := First(ctx, r.log.With().Str("code", code).Logger(), attempts, nil)
	if err != nil {
		return stockfolio.StockInfo{}, fmt.Errorf("%w: %w", &stockfolio.NotFoundError{Kind: "stock", ID: code}, err)
	}
	if known {
		info.Name = local.Name
		info.Type = local.Type
	}
	return info, nil
}

// ClearCache forgets the cached price of code.
func (r *Resolver) ClearCache(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, stockfolio.NormalizeCode(code))
}

// ClearAllCache forgets every cached price.
func (r *Resolver) ClearAllCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
}

// CacheStats describes the cache content.
type CacheStats struct {
	Size  int
	Codes []string
}

// CacheStats returns the codes currently cached, fresh or not, sorted.
func (r *Resolver) CacheStats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.cache))
	for c := range r.cache {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return CacheStats{Size: len(codes), Codes: codes}
}

var _ stockfolio.PriceResolver = (*Resolver)(nil)
