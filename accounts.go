package stockfolio

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultAccountName is the name of the account created in an empty portfolio.
const DefaultAccountName = "預設帳戶"

// Accounts is the book of accounts. There is always at least one account.
type Accounts struct {
	mu    sync.RWMutex
	store Store
	log   zerolog.Logger
	byID  map[string]Account
	order []string // creation order
}

// NewAccounts loads the accounts from store. If there is none, a default
// account is created and saved.
func NewAccounts(store Store, log zerolog.Logger) (*Accounts, error) {
	snap, err := load(store)
	if err != nil {
		return nil, err
	}
	a := &Accounts{
		store: store,
		log:   log.With().Str("component", "accounts").Logger(),
		byID:  make(map[string]Account),
	}
	for _, acc := range snap.Accounts {
		a.byID[acc.ID] = acc
		a.order = append(a.order, acc.ID)
	}
	if len(a.order) == 0 {
		acc := newAccount(DefaultAccountName)
		a.byID[acc.ID] = acc
		a.order = append(a.order, acc.ID)
		if err := a.save("create default account"); err != nil {
			a.log.Warn().Err(err).Msg("default account not persisted")
		}
	}
	return a, nil
}

func newAccount(name string) Account {
	return Account{ID: uuid.NewString(), Name: strings.TrimSpace(name), CreatedAt: time.Now().UTC()}
}

// save must be called with the lock held.
func (a *Accounts) save(op string) error {
	all := a.all()
	return persist(a.store, op, func(s *Snapshot) { s.Accounts = all })
}

func (a *Accounts) all() []Account {
	res := make([]Account, 0, len(a.order))
	for _, id := range a.order {
		res = append(res, a.byID[id])
	}
	return res
}

// Create adds a new account.
func (a *Accounts) Create(name string) (Account, error) {
	if err := ValidateAccountName(name); err != nil {
		return Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	acc := newAccount(name)
	a.byID[acc.ID] = acc
	a.order = append(a.order, acc.ID)
	a.log.Info().Str("id", acc.ID).Str("name", acc.Name).Msg("account created")
	return acc, a.save("create account")
}

// Rename changes the name of an existing account.
func (a *Accounts) Rename(id, name string) (Account, error) {
	if err := ValidateAccountName(name); err != nil {
		return Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.byID[id]
	if !ok {
		return Account{}, &NotFoundError{Kind: "account", ID: id}
	}
	acc.Name = strings.TrimSpace(name)
	a.byID[id] = acc
	return acc, a.save("rename account")
}

// Delete removes an account. The last account cannot be deleted. Holdings
// referencing the account are left untouched.
func (a *Accounts) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byID[id]; !ok {
		return &NotFoundError{Kind: "account", ID: id}
	}
	if len(a.order) <= 1 {
		return invalid("accountId", "cannot delete the last account")
	}
	delete(a.byID, id)
	a.order = slices.DeleteFunc(a.order, func(x string) bool { return x == id })
	a.log.Info().Str("id", id).Msg("account deleted")
	return a.save("delete account")
}

// Get returns the account with the given id.
func (a *Accounts) Get(id string) (Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byID[id]
	if !ok {
		return Account{}, &NotFoundError{Kind: "account", ID: id}
	}
	return acc, nil
}

// Exists reports whether id is a known account.
func (a *Accounts) Exists(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byID[id]
	return ok
}

// ByName returns the first account with the given name.
func (a *Accounts) ByName(name string) (Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, id := range a.order {
		if acc := a.byID[id]; acc.Name == name {
			return acc, true
		}
	}
	return Account{}, false
}

// All returns the accounts in creation order.
func (a *Accounts) All() []Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.all()
}

// Count returns the number of accounts.
func (a *Accounts) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}
