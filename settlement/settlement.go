// Package settlement provides an in-process settlement authority: a plain
// account balance table that commits or rejects transfers atomically.
//
// It stands in for the ledger that would normally settle funds alongside the
// triggering request. The market core only ever sees the Transfer method.
package settlement

import (
	"errors"
	"sync"

	"xdao.co/descimarket/identity"
)

var (
	ErrInsufficientFunds = errors.New("settlement: insufficient funds")
	ErrZeroAccount       = errors.New("settlement: zero address account")
)

// Bank is a mutex-guarded balance table in microunits.
type Bank struct {
	mu       sync.Mutex
	balances map[identity.Address]uint64
}

func NewBank() *Bank {
	return &Bank{balances: make(map[identity.Address]uint64)}
}

// Mint credits freshly created funds to an account. Deployment and demo
// tooling use it to fund accounts; the market core never mints.
func (b *Bank) Mint(to identity.Address, amount uint64) error {
	if to.IsZero() {
		return ErrZeroAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[to] += amount
	return nil
}

// Transfer moves amount from one account to another, entirely or not at all.
func (b *Bank) Transfer(from, to identity.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return ErrInsufficientFunds
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}

// Balance reports an account's current balance.
func (b *Bank) Balance(a identity.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[a]
}
