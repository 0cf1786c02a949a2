package renderer

import (
	"slices"
	"strings"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/date"
)

// Row is one holding as displayed in a table.
type Row struct {
	ID           string             `json:"id"`
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	Account      string             `json:"account"`
	Shares       int64              `json:"shares"`
	CostPrice    float64            `json:"costPrice"`
	AdjustedCost float64            `json:"adjustedCost"` // per share, net of dividends
	CurrentPrice float64            `json:"currentPrice"` // 0 when never priced
	MarketValue  float64            `json:"marketValue"`
	Gain         float64            `json:"gain"`
	Return       stockfolio.Percent `json:"return"`
	Dividend     float64            `json:"dividend"`
	Source       stockfolio.Source  `json:"source"`
	LastUpdated  time.Time          `json:"lastUpdated"`
}

// Priced reports whether the row has a market price.
func (r Row) Priced() bool { return r.CurrentPrice > 0 }

// Report is the data behind the summary and holdings reports.
type Report struct {
	Title    string                    `json:"title"`
	Date     date.Date                 `json:"date"`
	Privacy  bool                      `json:"privacy"`
	Summary  stockfolio.Summary        `json:"summary"`
	Accounts []stockfolio.AccountStats `json:"accounts"`
	Rows     []Row                     `json:"rows"`
}

// NewReport builds a report over holdings. Accounts are reported only when
// holdings span more than one of them.
func NewReport(title string, agg *stockfolio.Aggregator, holdings []stockfolio.Holding) *Report {
	r := &Report{
		Title:   title,
		Date:    date.Today(),
		Summary: agg.Summary(),
	}
	if len(holdings) != agg.Holdings.Count() {
		r.Summary.Stats = agg.StatsFor(holdings)
		r.Summary.StockCount = len(holdings)
		r.Summary.AccountCount = 0
	}

	seen := make(map[string]bool)
	for _, h := range holdings {
		r.Rows = append(r.Rows, NewRow(agg, h))
		seen[h.AccountID] = true
	}
	if len(seen) > 1 {
		for _, s := range agg.AllAccountStats() {
			if seen[s.Account.ID] {
				r.Accounts = append(r.Accounts, s)
			}
		}
	}
	if r.Summary.AccountCount == 0 {
		r.Summary.AccountCount = len(seen)
	}
	slices.SortStableFunc(r.Rows, func(a, b Row) int {
		if c := strings.Compare(a.Account, b.Account); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return r
}

// NewRow computes the displayed figures of a holding.
func NewRow(agg *stockfolio.Aggregator, h stockfolio.Holding) Row {
	adjusted := agg.Dividends.AdjustedCostPrice(h)
	row := Row{
		ID:           h.ID,
		Code:         h.Code,
		Name:         h.Name,
		Account:      h.AccountID,
		Shares:       h.Shares,
		CostPrice:    h.CostPrice,
		AdjustedCost: adjusted,
		CurrentPrice: h.CurrentPrice,
		MarketValue:  h.MarketValue(),
		Dividend:     agg.Dividends.TotalDividend(h.ID),
		Source:       h.DataSource,
		LastUpdated:  h.LastUpdated,
	}
	if acc, err := agg.Accounts.Get(h.AccountID); err == nil {
		row.Account = acc.Name
	}
	if row.Priced() {
		row.Gain = stockfolio.Gain(h.CurrentPrice, adjusted, float64(h.Shares))
		row.Return = stockfolio.PercentOf(stockfolio.ReturnRate(h.CurrentPrice, adjusted))
	}
	return row
}

// DividendReport lists the dividends of one holding.
type DividendReport struct {
	Holding   Row                   `json:"holding"`
	Privacy   bool                  `json:"privacy"`
	Dividends []stockfolio.Dividend `json:"dividends"`
	Total     float64               `json:"total"`
	// Yield is the dividend per share of the last year over the current price.
	Yield stockfolio.Percent `json:"yield"`
}

// NewDividendReport builds the dividend history of a holding as of day.
func NewDividendReport(agg *stockfolio.Aggregator, h stockfolio.Holding, day date.Date) *DividendReport {
	r := &DividendReport{
		Holding:   NewRow(agg, h),
		Dividends: agg.Dividends.ForStock(h.ID),
		Total:     agg.Dividends.TotalDividend(h.ID),
	}
	yearAgo := day.Add(-365)
	var perShare float64
	for _, d := range r.Dividends {
		if d.ExDividendDate.After(yearAgo) && !d.ExDividendDate.After(day) {
			perShare += d.DividendPerShare
		}
	}
	r.Yield = stockfolio.PercentOf(stockfolio.YieldRate(perShare, h.CurrentPrice))
	return r
}
