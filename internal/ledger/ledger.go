// Package ledger implements the custodial balance book: the authoritative
// mapping of (owner, asset) to a non-negative integer balance.
//
// The book is exclusively owned by the vault controller; all mutation goes
// through Credit and Debit. Conservation holds by construction: a balance is
// exactly the sum of credits minus the sum of successful debits, and a debit
// that would drive a balance negative is refused without mutating anything.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// ErrInvalidAmount is returned for zero amounts. Amounts are unsigned, so
// negative values cannot be represented.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrInsufficientBalance is returned when a debit exceeds the current
// balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Key identifies one ledger entry.
type Key struct {
	Owner identity.Address
	Asset identity.Asset
}

// Book is the in-memory balance book.
//
// Thread-safety: all methods are safe for concurrent use. Individual credits
// and debits are atomic; multi-entry operations (e.g. a swap's debit+credit
// pair) are made atomic by the vault controller's operation guard, not here.
type Book struct {
	mu       sync.Mutex
	balances map[Key]uint64
}

// NewBook creates an empty balance book.
func NewBook() *Book {
	return &Book{balances: make(map[Key]uint64)}
}

// Balance returns the current balance for (owner, asset). Missing entries
// read as zero.
func (b *Book) Balance(owner identity.Address, asset identity.Asset) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[Key{Owner: owner, Asset: asset}]
}

// Credit increases the balance for (owner, asset).
func (b *Book) Credit(owner identity.Address, asset identity.Asset, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := Key{Owner: owner, Asset: asset}
	if b.balances[k] > ^uint64(0)-amount {
		return fmt.Errorf("credit overflows balance for %s/%s", owner, asset)
	}
	b.balances[k] += amount
	return nil
}

// Debit decreases the balance for (owner, asset). Refused with
// ErrInsufficientBalance when the balance is lower than amount; the entry is
// left untouched in that case.
func (b *Book) Debit(owner identity.Address, asset identity.Asset, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := Key{Owner: owner, Asset: asset}
	bal := b.balances[k]
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d of %s", ErrInsufficientBalance, bal, amount, asset)
	}
	b.balances[k] = bal - amount
	return nil
}

// DebitAll zeroes the balance for (owner, asset) and returns the amount
// removed. Used by the emergency-withdraw handler, which drains the entire
// entry regardless of the proposed amount.
func (b *Book) DebitAll(owner identity.Address, asset identity.Asset) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := Key{Owner: owner, Asset: asset}
	bal := b.balances[k]
	delete(b.balances, k)
	return bal
}

// Restore reinstates a previously debited amount. Semantically a credit;
// named separately so rollback paths read as rollbacks.
func (b *Book) Restore(owner identity.Address, asset identity.Asset, amount uint64) {
	if amount == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[Key{Owner: owner, Asset: asset}] += amount
}

// Snapshot returns a copy of every non-zero entry, for persistence and
// inspection.
func (b *Book) Snapshot() map[Key]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[Key]uint64, len(b.balances))
	for k, v := range b.balances {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Load replaces the book contents with the given entries. Used once at
// startup to rehydrate from the journal; not safe to call while operations
// are in flight.
func (b *Book) Load(entries map[Key]uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances = make(map[Key]uint64, len(entries))
	for k, v := range entries {
		if v != 0 {
			b.balances[k] = v
		}
	}
}
