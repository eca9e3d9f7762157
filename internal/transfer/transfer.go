// Package transfer defines the external collaborators the vault core
// depends on: the asset transfer primitive and the DEX-side swap and
// liquidity collaborators.
//
// The core trusts these to be atomic and to report success or failure
// honestly; a reported failure must surface as a failed execution, never be
// swallowed. Real chain-backed implementations live outside this repo; the
// in-memory implementations here back the CLI and the test suites.
package transfer

import "github.com/iMaginarParas/singapore-token-hackathon/internal/identity"

// Token is the transfer primitive for a single asset, in the shape of an
// ERC-20 style contract.
type Token interface {
	// Transfer moves vault-held funds to an external account.
	Transfer(to identity.Address, amount uint64) error

	// TransferFrom pulls funds from an external account into another,
	// typically the vault's custody account on deposit.
	TransferFrom(from, to identity.Address, amount uint64) error
}

// Registry resolves the transfer primitive for an asset. Assets without a
// primitive (unknown tokens) resolve to nil.
type Registry interface {
	Token(asset identity.Asset) Token
}

// Leg is one asset/amount pair reported back by a DEX collaborator.
type Leg struct {
	Asset  identity.Asset
	Amount uint64
}

// SwapVenue executes swaps against an external exchange. The vault has
// already debited amountIn when Swap is called; the venue reports the
// realized output amount, which must honor minAmountOut.
type SwapVenue interface {
	Swap(assetIn, assetOut identity.Asset, amountIn, minAmountOut uint64) (amountOut uint64, err error)
}

// LiquidityPool removes liquidity positions. The vault has already debited
// the pool tokens when Remove is called; the pool reports the constituent
// legs released.
type LiquidityPool interface {
	Remove(lpAsset identity.Asset, amount uint64) ([]Leg, error)
}
