package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// YahooURL is the default Yahoo Finance host.
const YahooURL = "https://query1.finance.yahoo.com"

// Yahoo queries the Yahoo Finance chart endpoint.
type Yahoo struct {
	Client  *http.Client
	Timeout time.Duration // per request
	BaseURL string
	log     zerolog.Logger
}

// NewYahoo returns a Yahoo client on the public endpoint.
func NewYahoo(client *http.Client, timeout time.Duration, log zerolog.Logger) *Yahoo {
	return &Yahoo{
		Client:  client,
		Timeout: timeout,
		BaseURL: YahooURL,
		log:     log.With().Str("source", "yahoo").Logger(),
	}
}

// Symbol maps a Taiwan code to its Yahoo symbol.
func Symbol(code string) string { return code + ".TW" }

// Meta is the part of the chart response used here.
type Meta struct {
	Symbol             string
	RegularMarketPrice float64
	PreviousClose      float64
	LongName           string
	ShortName          string
}

// Price returns RegularMarketPrice, or PreviousClose when the market price is missing.
func (m Meta) Price() float64 {
	if m.RegularMarketPrice > 0 {
		return m.RegularMarketPrice
	}
	return m.PreviousClose
}

// Name returns the long name, or the short name.
func (m Meta) Name() string {
	if m.LongName != "" {
		return m.LongName
	}
	return m.ShortName
}

/*
	{
	  "chart": {
	    "result": [{
	      "meta": {
	        "currency": "TWD", "symbol": "2330.TW",
	        "regularMarketPrice": 1030.0, "previousClose": 1025.0,
	        "longName": "Taiwan Semiconductor Manufacturing Company Limited",
	        "shortName": "TAIWAN SEMICONDUCTOR MANUFACTUR"
	      }
	    }],
	    "error": null
	  }
	}
*/

// Chart returns the chart metadata of code.
func (y *Yahoo) Chart(ctx context.Context, code string) (Meta, error) {
	addr := y.BaseURL + "/v8/finance/chart/" + url.PathEscape(Symbol(code))
	jobj, err := getJSON(ctx, y.Client, y.Timeout, addr)
	if err != nil {
		return Meta{}, err
	}
	jval, err := pick("$.chart.result[0].meta", jobj)
	if err != nil {
		return Meta{}, fmt.Errorf("no chart for %s: %w", code, err)
	}
	jmeta, ok := jval.(map[string]any)
	if !ok {
		return Meta{}, fmt.Errorf("no chart for %s: invalid meta %v", code, jval)
	}
	m := Meta{}
	m.Symbol, _ = jmeta["symbol"].(string)
	m.LongName, _ = jmeta["longName"].(string)
	m.ShortName, _ = jmeta["shortName"].(string)
	if f, err := number(jmeta["regularMarketPrice"]); err == nil {
		m.RegularMarketPrice = f
	}
	if f, err := number(jmeta["previousClose"]); err == nil {
		m.PreviousClose = f
	}
	return m, nil
}

// Price returns the market price of code.
func (y *Yahoo) Price(ctx context.Context, code string) (float64, error) {
	m, err := y.Chart(ctx, code)
	if err != nil {
		return 0, err
	}
	p := m.Price()
	if err := positive(p); err != nil {
		return 0, errors.Join(fmt.Errorf("no yahoo price for %s", code), err)
	}
	y.log.Debug().Str("code", code).Float64("price", p).Msg("yahoo quote")
	return p, nil
}
