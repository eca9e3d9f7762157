package vault

import (
	"fmt"
	"sort"
	"time"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// Kind is the closed set of action kinds. Dispatch in handlers.go switches
// exhaustively over these; adding a kind means extending both.
type Kind int

const (
	KindWithdraw Kind = iota + 1
	KindSwap
	KindRemoveLiquidity
	KindEmergencyWithdraw
)

// String returns the lowercase wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindWithdraw:
		return "withdraw"
	case KindSwap:
		return "swap"
	case KindRemoveLiquidity:
		return "remove_liquidity"
	case KindEmergencyWithdraw:
		return "emergency_withdraw"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindWithdraw, KindSwap, KindRemoveLiquidity, KindEmergencyWithdraw:
		return true
	}
	return false
}

// ParseKind parses a wire name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "withdraw":
		return KindWithdraw, nil
	case "swap":
		return KindSwap, nil
	case "remove_liquidity":
		return KindRemoveLiquidity, nil
	case "emergency_withdraw":
		return KindEmergencyWithdraw, nil
	default:
		return 0, fmt.Errorf("unknown action kind %q", s)
	}
}

// Action is one proposed fund-moving operation. Records are immutable after
// creation except for the Approved and Executed flags, each of which flips
// to true at most once and never back. Records are never deleted; an
// executed action is terminal, an expired one is permanently blocked but
// retained for audit.
type Action struct {
	ID           uint64
	User         identity.Address
	Kind         Kind
	AssetIn      identity.Asset
	AssetOut     identity.Asset
	AmountIn     uint64
	MinAmountOut uint64
	Recipient    identity.Address

	Approved bool
	Executed bool

	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the action's validity window has closed at the
// given instant. Staleness is derived, never stored.
func (a Action) ExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// actionBook owns the id space and the action records. Ids are allocated
// monotonically and never reused. Callers hold the vault's state lock.
type actionBook struct {
	nextID uint64
	byID   map[uint64]*Action
}

func newActionBook() *actionBook {
	return &actionBook{nextID: 1, byID: make(map[uint64]*Action)}
}

// create stores a new record under the next id and returns it.
func (b *actionBook) create(a Action) *Action {
	a.ID = b.nextID
	b.nextID++
	stored := a
	b.byID[stored.ID] = &stored
	return &stored
}

// get returns the live record for id.
func (b *actionBook) get(id uint64) (*Action, bool) {
	a, ok := b.byID[id]
	return a, ok
}

// restore reinstates a persisted record, advancing the id space past it.
func (b *actionBook) restore(a Action) {
	stored := a
	b.byID[stored.ID] = &stored
	if stored.ID >= b.nextID {
		b.nextID = stored.ID + 1
	}
}

// all returns copies of every record in id order.
func (b *actionBook) all() []Action {
	out := make([]Action, 0, len(b.byID))
	for _, a := range b.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
