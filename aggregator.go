package stockfolio

import (
	"github.com/shopspring/decimal"
)

// Stats are the totals of a set of holdings, in TWD. TotalCost uses the
// dividend adjusted cost price of each holding.
type Stats struct {
	TotalValue         float64 `json:"totalValue"`
	TotalCost          float64 `json:"totalCost"`
	TotalGain          float64 `json:"totalGain"`
	TotalGainPercent   Percent `json:"totalGainPercent"`
	TotalDividend      float64 `json:"totalDividend"`
	TotalReturn        float64 `json:"totalReturn"`
	TotalReturnPercent Percent `json:"totalReturnPercent"`
}

// AccountStats are the Stats of one account.
type AccountStats struct {
	Account Account `json:"account"`
	Stats
	StockCount int `json:"stockCount"`
}

// Summary are the whole portfolio Stats with its size.
type Summary struct {
	Stats
	StockCount   int `json:"stockCount"`
	AccountCount int `json:"accountCount"`
}

// Aggregator computes portfolio statistics from the holding book and the
// dividend ledger.
type Aggregator struct {
	Holdings  *Holdings
	Dividends *Dividends
	Accounts  *Accounts
}

// NewAggregator returns an Aggregator over the given books.
func NewAggregator(holdings *Holdings, dividends *Dividends, accounts *Accounts) *Aggregator {
	return &Aggregator{Holdings: holdings, Dividends: dividends, Accounts: accounts}
}

// StatsFor returns the totals of holdings.
func (a *Aggregator) StatsFor(holdings []Holding) Stats {
	value, cost, dividend := decimal.Zero, decimal.Zero, decimal.Zero
	for _, h := range holdings {
		shares := decimal.NewFromInt(h.Shares)
		value = value.Add(mustDec(h.CurrentPrice).Mul(shares))
		cost = cost.Add(mustDec(a.Dividends.AdjustedCostPrice(h)).Mul(shares))
		dividend = dividend.Add(mustDec(a.Dividends.TotalDividend(h.ID)))
	}
	gain := value.Sub(cost)
	ret := gain.Add(dividend)

	s := Stats{
		TotalValue:    value.InexactFloat64(),
		TotalCost:     cost.InexactFloat64(),
		TotalGain:     gain.InexactFloat64(),
		TotalDividend: dividend.InexactFloat64(),
		TotalReturn:   ret.InexactFloat64(),
	}
	if cost.IsPositive() {
		hundred := decimal.NewFromInt(100)
		s.TotalGainPercent = Percent(gain.Mul(hundred).Div(cost).InexactFloat64())
		s.TotalReturnPercent = Percent(ret.Mul(hundred).Div(cost).InexactFloat64())
	}
	return s
}

// PortfolioStats returns the totals of every holding.
func (a *Aggregator) PortfolioStats() Stats {
	return a.StatsFor(a.Holdings.All())
}

// AccountStats returns the totals of the holdings of one account.
func (a *Aggregator) AccountStats(accountID string) (AccountStats, error) {
	acc, err := a.Accounts.Get(accountID)
	if err != nil {
		return AccountStats{}, err
	}
	holdings := a.Holdings.ByAccount(accountID)
	return AccountStats{Account: acc, Stats: a.StatsFor(holdings), StockCount: len(holdings)}, nil
}

// AllAccountStats returns the totals of every account, in creation order.
func (a *Aggregator) AllAccountStats() []AccountStats {
	accounts := a.Accounts.All()
	res := make([]AccountStats, 0, len(accounts))
	for _, acc := range accounts {
		holdings := a.Holdings.ByAccount(acc.ID)
		res = append(res, AccountStats{Account: acc, Stats: a.StatsFor(holdings), StockCount: len(holdings)})
	}
	return res
}

// Summary returns the portfolio totals along with its number of holdings and accounts.
func (a *Aggregator) Summary() Summary {
	all := a.Holdings.All()
	return Summary{
		Stats:        a.StatsFor(all),
		StockCount:   len(all),
		AccountCount: a.Accounts.Count(),
	}
}
