package stockfolio

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountsDefault(t *testing.T) {
	store := &MemoryStore{}
	a, err := NewAccounts(store, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, a.Count())
	def := a.All()[0]
	assert.Equal(t, DefaultAccountName, def.Name)

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []Account{def}, snap.Accounts)
	assert.Equal(t, SnapshotVersion, snap.Version)
}

func TestAccountsDefaultNotPersisted(t *testing.T) {
	a, err := NewAccounts(&MemoryStore{Fail: errors.New("read only")}, zerolog.Nop())
	require.NoError(t, err, "a failing save does not prevent startup")
	assert.Equal(t, 1, a.Count())
}

func TestAccountsCRUD(t *testing.T) {
	a, err := NewAccounts(&MemoryStore{}, zerolog.Nop())
	require.NoError(t, err)

	acc, err := a.Create("  元大證券 ")
	require.NoError(t, err)
	assert.Equal(t, "元大證券", acc.Name)
	assert.True(t, a.Exists(acc.ID))

	got, ok := a.ByName("元大證券")
	require.True(t, ok)
	assert.Equal(t, acc, got)

	renamed, err := a.Rename(acc.ID, "元大")
	require.NoError(t, err)
	assert.Equal(t, "元大", renamed.Name)
	got, err = a.Get(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "元大", got.Name)

	require.NoError(t, a.Delete(acc.ID))
	assert.False(t, a.Exists(acc.ID))
	_, err = a.Get(acc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, a.Delete(acc.ID), ErrNotFound)
	_, err = a.Rename(acc.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountsCannotDeleteLast(t *testing.T) {
	a, err := NewAccounts(&MemoryStore{}, zerolog.Nop())
	require.NoError(t, err)
	err = a.Delete(a.All()[0].ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, a.Count())
}

func TestAccountsCreationOrder(t *testing.T) {
	a, err := NewAccounts(&MemoryStore{}, zerolog.Nop())
	require.NoError(t, err)
	for _, n := range []string{"B", "A", "C"} {
		_, err := a.Create(n)
		require.NoError(t, err)
	}
	var got []string
	for _, acc := range a.All() {
		got = append(got, acc.Name)
	}
	assert.Equal(t, []string{DefaultAccountName, "B", "A", "C"}, got)
}

func TestAccountsInvalidName(t *testing.T) {
	a, err := NewAccounts(&MemoryStore{}, zerolog.Nop())
	require.NoError(t, err)
	for _, name := range []string{"", "   ", "a/b", "what?", strings.Repeat("帳", 51)} {
		_, err := a.Create(name)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
	assert.Equal(t, 1, a.Count())
}
