package stockfolio

import (
	"context"
	"time"

	"github.com/etnz/stockfolio/date"
	"github.com/shopspring/decimal"
)

// Source identifies which provider produced a price.
type Source string

const (
	SourceTWSE  Source = "TWSE"  // Taiwan exchanges (main board and OTC)
	SourceYahoo Source = "Yahoo" // Yahoo Finance chart API
	SourceLocal Source = "Local" // entered by hand or migrated
)

// Holding is one position of a stock code within one account.
type Holding struct {
	ID           string    `json:"id" msgpack:"id"`
	Code         string    `json:"code" msgpack:"code"`
	Name         string    `json:"name" msgpack:"name"`
	Shares       int64     `json:"shares" msgpack:"shares"`
	CostPrice    float64   `json:"costPrice" msgpack:"costPrice"`
	CurrentPrice float64   `json:"currentPrice" msgpack:"currentPrice"` // 0 means never priced
	PurchaseDate date.Date `json:"purchaseDate" msgpack:"purchaseDate"`
	AccountID    string    `json:"accountId" msgpack:"accountId"`
	LastUpdated  time.Time `json:"lastUpdated" msgpack:"lastUpdated"`
	DataSource   Source    `json:"dataSource" msgpack:"dataSource"`
}

// MarketValue returns CurrentPrice * Shares.
func (h Holding) MarketValue() float64 {
	return mustDec(h.CurrentPrice).Mul(decimal.NewFromInt(h.Shares)).InexactFloat64()
}

// Cost returns CostPrice * Shares.
func (h Holding) Cost() float64 {
	return mustDec(h.CostPrice).Mul(decimal.NewFromInt(h.Shares)).InexactFloat64()
}

// Account is a named group of holdings, usually a brokerage account.
type Account struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
}

// Dividend is one ex-dividend payment received for a holding.
type Dividend struct {
	ID               string    `json:"id" msgpack:"id"`
	StockID          string    `json:"stockId" msgpack:"stockId"`
	ExDividendDate   date.Date `json:"exDividendDate" msgpack:"exDividendDate"`
	DividendPerShare float64   `json:"dividendPerShare" msgpack:"dividendPerShare"`
	TotalDividend    float64   `json:"totalDividend" msgpack:"totalDividend"`
	CreatedAt        time.Time `json:"createdAt" msgpack:"createdAt"`
}

// PriceResult is a resolved market price and its provenance.
type PriceResult struct {
	Price     float64   `json:"price"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// StockInfo describes a ticker: its display name and, when known, its price and listing type.
type StockInfo struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Price  float64 `json:"price,omitempty"`
	Type   string  `json:"type,omitempty"`
	Source Source  `json:"source"`
}

// PriceResolver obtains market prices and ticker information.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, code string) (PriceResult, error)
	SearchInfo(ctx context.Context, code string) (StockInfo, error)
}
