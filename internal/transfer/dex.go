package transfer

import (
	"fmt"
	"sync"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// StubVenue is a SwapVenue with a fixed price table, standing in for the
// external exchange router. Quotes are amountOut per single unit of
// amountIn, integer arithmetic.
type StubVenue struct {
	mu     sync.Mutex
	quotes map[[2]identity.Asset]uint64
	fail   bool
}

// NewStubVenue creates a venue with no routes.
func NewStubVenue() *StubVenue {
	return &StubVenue{quotes: make(map[[2]identity.Asset]uint64)}
}

// SetQuote sets the per-unit output for an (assetIn, assetOut) route.
func (v *StubVenue) SetQuote(assetIn, assetOut identity.Asset, unitOut uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.quotes[[2]identity.Asset{assetIn, assetOut}] = unitOut
}

// FailNext makes the next swap fail.
func (v *StubVenue) FailNext() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fail = true
}

// Swap implements SwapVenue.
func (v *StubVenue) Swap(assetIn, assetOut identity.Asset, amountIn, minAmountOut uint64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fail {
		v.fail = false
		return 0, fmt.Errorf("%w: venue unavailable", ErrTransferRejected)
	}
	unit, ok := v.quotes[[2]identity.Asset{assetIn, assetOut}]
	if !ok {
		return 0, fmt.Errorf("%w: no route %s -> %s", ErrTransferRejected, assetIn, assetOut)
	}
	out := amountIn * unit
	if out < minAmountOut {
		return 0, fmt.Errorf("%w: quote %d below minimum %d", ErrTransferRejected, out, minAmountOut)
	}
	return out, nil
}

// StubPool is a LiquidityPool returning configured legs per pool token,
// standing in for the external pool contract.
type StubPool struct {
	mu   sync.Mutex
	legs map[identity.Asset][]Leg // per-unit legs for one pool token
	fail bool
}

// NewStubPool creates a pool with no positions.
func NewStubPool() *StubPool {
	return &StubPool{legs: make(map[identity.Asset][]Leg)}
}

// SetPosition sets the per-unit constituent legs for a pool token.
func (p *StubPool) SetPosition(lpAsset identity.Asset, perUnit ...Leg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.legs[lpAsset] = perUnit
}

// FailNext makes the next removal fail.
func (p *StubPool) FailNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = true
}

// Remove implements LiquidityPool.
func (p *StubPool) Remove(lpAsset identity.Asset, amount uint64) ([]Leg, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		p.fail = false
		return nil, fmt.Errorf("%w: pool unavailable", ErrTransferRejected)
	}
	perUnit, ok := p.legs[lpAsset]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pool token %s", ErrTransferRejected, lpAsset)
	}
	out := make([]Leg, len(perUnit))
	for i, leg := range perUnit {
		out[i] = Leg{Asset: leg.Asset, Amount: leg.Amount * amount}
	}
	return out, nil
}
