package migrate

import (
	"encoding/json"
	"math"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/date"
	"github.com/shopspring/decimal"
)

// v12 is the legacy layout: accounts are plain names and dividends are
// nested in their stock.
type v12 struct {
	Stocks   []v12Stock `json:"stocks"`
	Accounts []string   `json:"accounts"`
}

type v12Stock struct {
	StockCode    string        `json:"stockCode"`
	StockName    string        `json:"stockName"`
	Quantity     float64       `json:"quantity"`
	BuyPrice     float64       `json:"buyPrice"`
	CurrentPrice float64       `json:"currentPrice"`
	BuyDate      string        `json:"buyDate"`
	Account      string        `json:"account"`
	Dividends    []v12Dividend `json:"dividends"`
}

type v12Dividend struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Shares float64 `json:"shares"`
}

// fromV12 converts the legacy layout. Unreadable dates become the migration
// day, a missing current price falls back to the buy price and a dividend
// without shares is paid on the whole position.
func fromV12(env Env, doc []byte) ([]byte, error) {
	var old v12
	if err := json.Unmarshal(doc, &old); err != nil {
		return nil, err
	}
	now := env.Now.UTC()
	today := date.Of(now)
	day := func(s string) date.Date {
		d, err := date.ParseAny(s)
		if err != nil {
			return today
		}
		return d
	}

	snap := stockfolio.NewSnapshot()
	snap.Metadata = stockfolio.Metadata{CreatedAt: now, LastModified: now, MigratedFrom: "v1.2.X"}

	byName := make(map[string]string)
	for _, name := range old.Accounts {
		if _, dup := byName[name]; dup {
			continue
		}
		a := stockfolio.Account{ID: env.NewID(), Name: name, CreatedAt: now}
		byName[name] = a.ID
		snap.Accounts = append(snap.Accounts, a)
	}
	if len(snap.Accounts) == 0 {
		a := stockfolio.Account{ID: env.NewID(), Name: stockfolio.DefaultAccountName, CreatedAt: now}
		byName[a.Name] = a.ID
		snap.Accounts = append(snap.Accounts, a)
	}

	for _, s := range old.Stocks {
		accountID, ok := byName[s.Account]
		if !ok {
			accountID = snap.Accounts[0].ID
		}
		price := s.CurrentPrice
		if price == 0 {
			price = s.BuyPrice
		}
		h := stockfolio.Holding{
			ID:           env.NewID(),
			Code:         stockfolio.NormalizeCode(s.StockCode),
			Name:         s.StockName,
			Shares:       int64(math.Round(s.Quantity)),
			CostPrice:    s.BuyPrice,
			CurrentPrice: price,
			PurchaseDate: day(s.BuyDate),
			AccountID:    accountID,
			LastUpdated:  now,
			DataSource:   stockfolio.SourceLocal,
		}
		snap.Holdings = append(snap.Holdings, h)

		for _, d := range s.Dividends {
			shares := d.Shares
			if shares == 0 {
				shares = s.Quantity
			}
			snap.Dividends = append(snap.Dividends, stockfolio.Dividend{
				ID:               env.NewID(),
				StockID:          h.ID,
				ExDividendDate:   day(d.Date),
				DividendPerShare: d.Amount,
				TotalDividend:    decimal.NewFromFloat(d.Amount).Mul(decimal.NewFromFloat(shares)).InexactFloat64(),
				CreatedAt:        now,
			})
		}
	}
	return json.Marshal(snap)
}
