package transfer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// ErrTransferRejected is the failure an in-memory token reports when a
// transfer cannot complete (insufficient external balance, or injected
// failure).
var ErrTransferRejected = errors.New("transfer rejected")

// Book is an in-memory multi-asset token world: per-asset external balances
// for every account, including the vault's custody account. It implements
// Registry, handing out a Token view per asset.
//
// FailNext injects one transfer failure, for exercising the vault's
// rollback paths.
type Book struct {
	mu       sync.Mutex
	balances map[identity.Asset]map[identity.Address]uint64
	failNext bool

	// Reenter, when set, is invoked during Transfer before the balance
	// moves. Tests use it to simulate a malicious token calling back into
	// the vault mid-execution.
	Reenter func()
}

// NewBook creates an empty token world.
func NewBook() *Book {
	return &Book{balances: make(map[identity.Asset]map[identity.Address]uint64)}
}

// Mint creates external funds out of thin air. Test/CLI setup only.
func (b *Book) Mint(asset identity.Asset, account identity.Address, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts(asset)[account] += amount
}

// BalanceOf returns an account's external balance for an asset.
func (b *Book) BalanceOf(asset identity.Asset, account identity.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts(asset)[account]
}

// FailNext makes the next transfer (either direction, any asset) fail.
func (b *Book) FailNext() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = true
}

// Token implements Registry.
func (b *Book) Token(asset identity.Asset) Token {
	return &bookToken{book: b, asset: asset}
}

func (b *Book) accounts(asset identity.Asset) map[identity.Address]uint64 {
	m, ok := b.balances[asset]
	if !ok {
		m = make(map[identity.Address]uint64)
		b.balances[asset] = m
	}
	return m
}

func (b *Book) move(asset identity.Asset, from, to identity.Address, amount uint64, reenter func()) error {
	if reenter != nil {
		reenter()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext {
		b.failNext = false
		return fmt.Errorf("%w: injected failure", ErrTransferRejected)
	}
	accounts := b.accounts(asset)
	if accounts[from] < amount {
		return fmt.Errorf("%w: %s holds %d of %s, need %d", ErrTransferRejected, from, accounts[from], asset, amount)
	}
	accounts[from] -= amount
	accounts[to] += amount
	return nil
}

// bookToken is the single-asset Token view over a Book.
type bookToken struct {
	book  *Book
	asset identity.Asset
}

// custody is the account vault-held funds live under in the in-memory
// world. A chain deployment would use the vault contract's own address.
var custody = identity.MustParseAddress("0x00000000000000000000000000000000c0570d17")

// Custody returns the in-memory custody account.
func Custody() identity.Address { return custody }

func (t *bookToken) Transfer(to identity.Address, amount uint64) error {
	return t.book.move(t.asset, custody, to, amount, t.book.Reenter)
}

func (t *bookToken) TransferFrom(from, to identity.Address, amount uint64) error {
	return t.book.move(t.asset, from, to, amount, nil)
}
