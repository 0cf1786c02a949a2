package stockfolio

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/etnz/stockfolio/date"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DividendInput holds the user supplied fields of a dividend.
type DividendInput struct {
	StockID          string
	ExDividendDate   date.Date
	DividendPerShare float64
	TotalDividend    float64
}

// Validate checks the dividend fields. Ex-dividend dates may be in the future.
func (in DividendInput) Validate() error {
	if strings.TrimSpace(in.StockID) == "" {
		return invalid("stockId", "stock id is required")
	}
	if in.ExDividendDate.IsZero() {
		return invalid("exDividendDate", "ex-dividend date is required")
	}
	if err := ValidateAmount("dividendPerShare", in.DividendPerShare); err != nil {
		return err
	}
	return ValidateAmount("totalDividend", in.TotalDividend)
}

// Dividends is the dividend ledger. Records are kept when their holding is
// deleted, so that income history survives.
type Dividends struct {
	mu    sync.RWMutex
	store Store
	log   zerolog.Logger
	byID  map[string]Dividend
	order []string // insertion order

	// ClampAdjustedCost floors the adjusted cost price at zero when
	// dividends exceed the cost basis.
	ClampAdjustedCost bool
}

// NewDividends loads the dividend ledger from store.
func NewDividends(store Store, log zerolog.Logger) (*Dividends, error) {
	snap, err := load(store)
	if err != nil {
		return nil, err
	}
	d := &Dividends{
		store:             store,
		log:               log.With().Str("component", "dividends").Logger(),
		byID:              make(map[string]Dividend),
		ClampAdjustedCost: snap.Settings.ClampAdjustedCost,
	}
	for _, div := range snap.Dividends {
		d.byID[div.ID] = div
		d.order = append(d.order, div.ID)
	}
	return d, nil
}

// save must be called with the lock held.
func (d *Dividends) save(op string) error {
	all := d.all()
	return persist(d.store, op, func(s *Snapshot) { s.Dividends = all })
}

func (d *Dividends) all() []Dividend {
	res := make([]Dividend, 0, len(d.order))
	for _, id := range d.order {
		res = append(res, d.byID[id])
	}
	return res
}

// Add records a new dividend.
func (d *Dividends) Add(in DividendInput) (Dividend, error) {
	if err := in.Validate(); err != nil {
		return Dividend{}, err
	}
	div := Dividend{
		ID:               uuid.NewString(),
		StockID:          strings.TrimSpace(in.StockID),
		ExDividendDate:   in.ExDividendDate,
		DividendPerShare: in.DividendPerShare,
		TotalDividend:    in.TotalDividend,
		CreatedAt:        time.Now().UTC(),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[div.ID] = div
	d.order = append(d.order, div.ID)
	d.log.Info().Str("stockId", div.StockID).Float64("total", div.TotalDividend).Msg("dividend added")
	return div, d.save("add dividend")
}

// Update replaces the fields of an existing dividend.
func (d *Dividends) Update(id string, in DividendInput) (Dividend, error) {
	if err := in.Validate(); err != nil {
		return Dividend{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	div, ok := d.byID[id]
	if !ok {
		return Dividend{}, &NotFoundError{Kind: "dividend", ID: id}
	}
	div.StockID = strings.TrimSpace(in.StockID)
	div.ExDividendDate = in.ExDividendDate
	div.DividendPerShare = in.DividendPerShare
	div.TotalDividend = in.TotalDividend
	d.byID[id] = div
	return div, d.save("update dividend")
}

// Delete removes a dividend.
func (d *Dividends) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[id]; !ok {
		return &NotFoundError{Kind: "dividend", ID: id}
	}
	delete(d.byID, id)
	d.order = slices.DeleteFunc(d.order, func(x string) bool { return x == id })
	return d.save("delete dividend")
}

// Get returns the dividend with the given id.
func (d *Dividends) Get(id string) (Dividend, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	div, ok := d.byID[id]
	if !ok {
		return Dividend{}, &NotFoundError{Kind: "dividend", ID: id}
	}
	return div, nil
}

// All returns every dividend in insertion order.
func (d *Dividends) All() []Dividend {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.all()
}

// ForStock returns the dividends of a holding, most recent ex-dividend date first.
// Dividends sharing a date keep their insertion order.
func (d *Dividends) ForStock(stockID string) []Dividend {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var res []Dividend
	for _, id := range d.order {
		if div := d.byID[id]; div.StockID == stockID {
			res = append(res, div)
		}
	}
	slices.SortStableFunc(res, func(a, b Dividend) int {
		return b.ExDividendDate.Compare(a.ExDividendDate)
	})
	return res
}

// TotalDividend returns the dividend income received for a holding.
func (d *Dividends) TotalDividend(stockID string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := decimal.Zero
	for _, div := range d.byID {
		if div.StockID == stockID {
			total = total.Add(mustDec(div.TotalDividend))
		}
	}
	return total.InexactFloat64()
}

// TotalAll returns the dividend income received across the whole portfolio.
func (d *Dividends) TotalAll() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := decimal.Zero
	for _, div := range d.byID {
		total = total.Add(mustDec(div.TotalDividend))
	}
	return total.InexactFloat64()
}

// AdjustedCostPrice returns the cost price of h reduced by the dividends it earned per share.
func (d *Dividends) AdjustedCostPrice(h Holding) float64 {
	return AdjustedCostPrice(h.CostPrice, d.TotalDividend(h.ID), float64(h.Shares), d.ClampAdjustedCost)
}
