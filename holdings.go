package stockfolio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/etnz/stockfolio/batch"
	"github.com/etnz/stockfolio/date"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HoldingInput holds the user supplied fields of a new holding.
type HoldingInput struct {
	Code         string
	Name         string // resolved from the code when empty
	Shares       int64
	CostPrice    float64
	CurrentPrice float64 // resolved when 0
	PurchaseDate date.Date
	AccountID    string // first account when empty
}

// HoldingUpdate lists the fields to change, nil fields are kept.
type HoldingUpdate struct {
	Code         *string
	Name         *string
	Shares       *int64
	CostPrice    *float64
	CurrentPrice *float64
	PurchaseDate *date.Date
	AccountID    *string
}

// validateHolding checks every user supplied field of h.
func validateHolding(h Holding) error {
	if err := ValidateCode(h.Code); err != nil {
		return err
	}
	if err := ValidateShares(h.Shares); err != nil {
		return err
	}
	if err := ValidateAmount("costPrice", h.CostPrice); err != nil {
		return err
	}
	if err := ValidateNonNegative("currentPrice", h.CurrentPrice); err != nil {
		return err
	}
	return ValidatePurchaseDate(h.PurchaseDate)
}

// Holdings is the book of holdings.
type Holdings struct {
	mu       sync.RWMutex
	store    Store
	resolver PriceResolver // may be nil
	accounts *Accounts
	log      zerolog.Logger
	byID     map[string]Holding
	order    []string // insertion order

	// Retry applies to every price resolution. The zero value tries once.
	Retry batch.RetryOptions
}

// NewHoldings loads the holdings from store. The resolver is optional,
// without it names and prices are never looked up.
func NewHoldings(store Store, resolver PriceResolver, accounts *Accounts, log zerolog.Logger) (*Holdings, error) {
	snap, err := load(store)
	if err != nil {
		return nil, err
	}
	h := &Holdings{
		store:    store,
		resolver: resolver,
		accounts: accounts,
		log:      log.With().Str("component", "holdings").Logger(),
		byID:     make(map[string]Holding),
	}
	for _, x := range snap.Holdings {
		h.byID[x.ID] = x
		h.order = append(h.order, x.ID)
	}
	return h, nil
}

// save must be called with the lock held.
func (h *Holdings) save(op string) error {
	all := h.all()
	return persist(h.store, op, func(s *Snapshot) { s.Holdings = all })
}

func (h *Holdings) all() []Holding {
	res := make([]Holding, 0, len(h.order))
	for _, id := range h.order {
		res = append(res, h.byID[id])
	}
	return res
}

// account returns the account id to use for id, the first account if id is empty.
func (h *Holdings) account(id string) (string, error) {
	if h.accounts == nil {
		return id, nil
	}
	if id == "" {
		all := h.accounts.All()
		if len(all) == 0 {
			return "", &NotFoundError{Kind: "account", ID: id}
		}
		return all[0].ID, nil
	}
	if !h.accounts.Exists(id) {
		return "", &NotFoundError{Kind: "account", ID: id}
	}
	return id, nil
}

// Add validates and records a new holding. A missing name is looked up, and
// a missing price is resolved; lookup failures leave the code as name and
// the price at 0, they never fail the add.
func (h *Holdings) Add(ctx context.Context, in HoldingInput) (Holding, error) {
	x := Holding{
		Code:         NormalizeCode(in.Code),
		Name:         strings.TrimSpace(in.Name),
		Shares:       in.Shares,
		CostPrice:    in.CostPrice,
		CurrentPrice: in.CurrentPrice,
		PurchaseDate: in.PurchaseDate,
		DataSource:   SourceLocal,
	}
	if err := validateHolding(x); err != nil {
		return Holding{}, err
	}
	accountID, err := h.account(in.AccountID)
	if err != nil {
		return Holding{}, err
	}
	x.AccountID = accountID

	log := h.log.With().Str("code", x.Code).Logger()
	if h.resolver != nil && (x.Name == "" || x.Name == x.Code) {
		info, err := h.resolver.SearchInfo(ctx, x.Code)
		if err != nil {
			log.Warn().Err(err).Msg("name lookup failed")
		} else {
			x.Name = info.Name
		}
	}
	if x.Name == "" {
		x.Name = x.Code
	}
	if h.resolver != nil && x.CurrentPrice == 0 {
		res, err := h.resolver.ResolvePrice(ctx, x.Code)
		if err != nil {
			log.Warn().Err(err).Msg("initial price unavailable")
		} else {
			x.CurrentPrice = res.Price
			x.DataSource = res.Source
		}
	}
	x.ID = uuid.NewString()
	x.LastUpdated = time.Now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[x.ID] = x
	h.order = append(h.order, x.ID)
	log.Info().Str("id", x.ID).Int64("shares", x.Shares).Float64("costPrice", x.CostPrice).Msg("holding added")
	return x, h.save("add holding")
}

// Update changes the given fields of a holding. The result is validated as
// a whole before anything changes. Setting CurrentPrice marks the price as
// entered by hand.
func (h *Holdings) Update(id string, up HoldingUpdate) (Holding, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	x, ok := h.byID[id]
	if !ok {
		return Holding{}, &NotFoundError{Kind: "holding", ID: id}
	}
	if up.Code != nil {
		x.Code = NormalizeCode(*up.Code)
	}
	if up.Name != nil {
		x.Name = strings.TrimSpace(*up.Name)
		if x.Name == "" {
			x.Name = x.Code
		}
	}
	if up.Shares != nil {
		x.Shares = *up.Shares
	}
	if up.CostPrice != nil {
		x.CostPrice = *up.CostPrice
	}
	if up.CurrentPrice != nil {
		x.CurrentPrice = *up.CurrentPrice
		x.DataSource = SourceLocal
	}
	if up.PurchaseDate != nil {
		x.PurchaseDate = *up.PurchaseDate
	}
	if err := validateHolding(x); err != nil {
		return Holding{}, err
	}
	if up.AccountID != nil && *up.AccountID != x.AccountID {
		if h.accounts != nil && !h.accounts.Exists(*up.AccountID) {
			return Holding{}, &NotFoundError{Kind: "account", ID: *up.AccountID}
		}
		x.AccountID = *up.AccountID
	}
	x.LastUpdated = time.Now().UTC()
	h.byID[id] = x
	return x, h.save("update holding")
}

// MergeLot adds shares bought at costPrice to an existing holding, its cost
// price becomes the average cost of both lots.
func (h *Holdings) MergeLot(id string, shares int64, costPrice float64) (Holding, error) {
	if err := ValidateShares(shares); err != nil {
		return Holding{}, err
	}
	if err := ValidateAmount("costPrice", costPrice); err != nil {
		return Holding{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	x, ok := h.byID[id]
	if !ok {
		return Holding{}, &NotFoundError{Kind: "holding", ID: id}
	}
	x.CostPrice = AverageCost(float64(x.Shares), x.CostPrice, float64(shares), costPrice)
	x.Shares += shares
	x.LastUpdated = time.Now().UTC()
	h.byID[id] = x
	h.log.Info().Str("id", id).Int64("shares", x.Shares).Float64("costPrice", x.CostPrice).Msg("lot merged")
	return x, h.save("merge lot")
}

// Delete removes a holding. Its dividends are kept.
func (h *Holdings) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[id]; !ok {
		return &NotFoundError{Kind: "holding", ID: id}
	}
	delete(h.byID, id)
	h.order = slices.DeleteFunc(h.order, func(x string) bool { return x == id })
	h.log.Info().Str("id", id).Msg("holding deleted")
	return h.save("delete holding")
}

// Get returns the holding with the given id.
func (h *Holdings) Get(id string) (Holding, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	x, ok := h.byID[id]
	if !ok {
		return Holding{}, &NotFoundError{Kind: "holding", ID: id}
	}
	return x, nil
}

// All returns every holding in insertion order.
func (h *Holdings) All() []Holding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.all()
}

// ByAccount returns the holdings of an account.
func (h *Holdings) ByAccount(accountID string) []Holding {
	return h.filter(func(x Holding) bool { return x.AccountID == accountID })
}

// ByCode returns the holdings of a stock code, across accounts.
func (h *Holdings) ByCode(code string) []Holding {
	code = NormalizeCode(code)
	return h.filter(func(x Holding) bool { return x.Code == code })
}

func (h *Holdings) filter(keep func(Holding) bool) []Holding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var res []Holding
	for _, id := range h.order {
		if x := h.byID[id]; keep(x) {
			res = append(res, x)
		}
	}
	return res
}

// Count returns the number of holdings.
func (h *Holdings) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// fetch resolves the price of a holding without changing it.
func (h *Holdings) fetch(ctx context.Context, x Holding) (PriceResult, error) {
	if h.resolver == nil {
		return PriceResult{}, &ResolutionError{Code: x.Code, Err: errors.New("no price resolver")}
	}
	res, err := batch.Retry(ctx, func(ctx context.Context) (PriceResult, error) {
		return h.resolver.ResolvePrice(ctx, x.Code)
	}, h.Retry)
	if err != nil {
		return PriceResult{}, fmt.Errorf("price update failed for %s: %w", x.Code, err)
	}
	return res, nil
}

// apply records a resolved price. It must be called with the lock held and
// returns false if the holding has been deleted meanwhile.
func (h *Holdings) apply(id string, res PriceResult) (Holding, bool) {
	x, ok := h.byID[id]
	if !ok {
		return Holding{}, false
	}
	x.CurrentPrice = res.Price
	x.DataSource = res.Source
	x.LastUpdated = res.Timestamp.UTC()
	if res.Timestamp.IsZero() {
		x.LastUpdated = time.Now().UTC()
	}
	h.byID[id] = x
	return x, true
}

// RefreshPrice resolves the current price of a holding. On failure the
// previous price is kept and the resolution error is returned.
func (h *Holdings) RefreshPrice(ctx context.Context, id string) (Holding, error) {
	x, err := h.Get(id)
	if err != nil {
		return Holding{}, err
	}
	res, err := h.fetch(ctx, x)
	if err != nil {
		return x, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	x, ok := h.apply(id, res)
	if !ok {
		return Holding{}, &NotFoundError{Kind: "holding", ID: id}
	}
	return x, h.save("update price")
}

// RefreshFailure is a holding whose price could not be refreshed. Index is
// its position in the refreshed list.
type RefreshFailure struct {
	Index   int
	Holding Holding
	Err     error
}

// RefreshReport is the outcome of RefreshAll.
type RefreshReport struct {
	Updated      []Holding // completion order
	Failed       []RefreshFailure
	Total        int
	SuccessCount int
	FailureCount int
}

// RefreshAll refreshes the price of every holding through the batch
// processor and saves once at the end. onProgress may be nil. The report is
// valid even when the final save fails.
func (h *Holdings) RefreshAll(ctx context.Context, opts batch.Options, onProgress func(batch.Stats)) (RefreshReport, error) {
	return h.refresh(ctx, h.All(), opts, onProgress)
}

// RefreshAccount is RefreshAll restricted to one account.
func (h *Holdings) RefreshAccount(ctx context.Context, accountID string, opts batch.Options, onProgress func(batch.Stats)) (RefreshReport, error) {
	if h.accounts != nil && !h.accounts.Exists(accountID) {
		return RefreshReport{}, &NotFoundError{Kind: "account", ID: accountID}
	}
	return h.refresh(ctx, h.ByAccount(accountID), opts, onProgress)
}

func (h *Holdings) refresh(ctx context.Context, list []Holding, opts batch.Options, onProgress func(batch.Stats)) (RefreshReport, error) {
	start := time.Now()
	fn := func(ctx context.Context, x Holding, _ int) (Holding, error) {
		res, err := h.fetch(ctx, x)
		if err != nil {
			return x, err
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		updated, ok := h.apply(x.ID, res)
		if !ok {
			return x, &NotFoundError{Kind: "holding", ID: x.ID}
		}
		return updated, nil
	}
	var result batch.Result[Holding]
	if onProgress != nil {
		result = batch.ProcessWithProgress(ctx, list, fn, opts, onProgress)
	} else {
		result = batch.Process(ctx, list, fn, opts)
	}

	rep := RefreshReport{
		Updated:      result.Successful,
		Total:        result.Total,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	}
	for _, f := range result.Failed {
		rep.Failed = append(rep.Failed, RefreshFailure{Index: f.Index, Holding: list[f.Index], Err: f.Err})
	}
	h.log.Info().
		Int("total", rep.Total).
		Int("updated", rep.SuccessCount).
		Int("failed", rep.FailureCount).
		Dur("elapsed", time.Since(start)).
		Msg("prices refreshed")

	if rep.SuccessCount == 0 {
		return rep, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return rep, h.save("update prices")
}
