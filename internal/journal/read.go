package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/ledger"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// ReadEvents returns all events with seq > after, in (seq, id) order. Pass
// after=0 for the full stream. This is the polling interface for the
// external notification service.
func (j *Journal) ReadEvents(ctx context.Context, after int64) ([]vault.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, seq, type, at, actor, action_id, payload
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC, id ASC
	`, after)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var out []vault.Event
	for rows.Next() {
		var (
			ev       vault.Event
			evType   string
			at       int64
			actionID int64
			payload  string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &evType, &at, &ev.Actor, &actionID, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = vault.EventType(evType)
		ev.At = time.Unix(0, at).UTC()
		ev.ActionID = uint64(actionID)
		if payload != "" && payload != "{}" {
			if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of event %s: %w", ev.ID, err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// State is the rehydration snapshot a restarted vault loads.
type State struct {
	Actions   []vault.Action
	Balances  map[ledger.Key]uint64
	Operators []identity.Address
}

// LoadState reads the mirrored actions, balances, and operator set.
func (j *Journal) LoadState(ctx context.Context) (State, error) {
	var st State

	actions, err := j.readActions(ctx)
	if err != nil {
		return st, err
	}
	st.Actions = actions

	st.Balances = make(map[ledger.Key]uint64)
	rows, err := j.db.QueryContext(ctx, `SELECT owner, asset, amount FROM balances`)
	if err != nil {
		return st, fmt.Errorf("read balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			owner, asset string
			amount       int64
		)
		if err := rows.Scan(&owner, &asset, &amount); err != nil {
			return st, fmt.Errorf("scan balance: %w", err)
		}
		addr, err := identity.ParseAddress(owner)
		if err != nil {
			return st, fmt.Errorf("stored balance owner: %w", err)
		}
		st.Balances[ledger.Key{Owner: addr, Asset: identity.Asset(asset)}] = uint64(amount)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	ops, err := j.db.QueryContext(ctx, `SELECT address FROM operators ORDER BY address`)
	if err != nil {
		return st, fmt.Errorf("read operators: %w", err)
	}
	defer ops.Close()
	for ops.Next() {
		var addr string
		if err := ops.Scan(&addr); err != nil {
			return st, fmt.Errorf("scan operator: %w", err)
		}
		parsed, err := identity.ParseAddress(addr)
		if err != nil {
			return st, fmt.Errorf("stored operator: %w", err)
		}
		st.Operators = append(st.Operators, parsed)
	}
	return st, ops.Err()
}

func (j *Journal) readActions(ctx context.Context) ([]vault.Action, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user, kind, asset_in, asset_out, amount_in, min_amount_out, recipient, approved, executed, created_at, expires_at
		FROM actions
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	defer rows.Close()

	var out []vault.Action
	for rows.Next() {
		var (
			a                    vault.Action
			id, amountIn, minOut int64
			user, kind, recip    string
			assetIn, assetOut    string
			approved, executed   int64
			createdAt, expiresAt int64
		)
		if err := rows.Scan(&id, &user, &kind, &assetIn, &assetOut, &amountIn, &minOut, &recip, &approved, &executed, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.ID = uint64(id)
		if a.User, err = identity.ParseAddress(user); err != nil {
			return nil, fmt.Errorf("stored action %d user: %w", id, err)
		}
		if a.Kind, err = vault.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("stored action %d: %w", id, err)
		}
		a.AssetIn = identity.Asset(assetIn)
		a.AssetOut = identity.Asset(assetOut)
		a.AmountIn = uint64(amountIn)
		a.MinAmountOut = uint64(minOut)
		if a.Recipient, err = identity.ParseAddress(recip); err != nil {
			return nil, fmt.Errorf("stored action %d recipient: %w", id, err)
		}
		a.Approved = approved != 0
		a.Executed = executed != 0
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		a.ExpiresAt = time.Unix(0, expiresAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastSeq returns the seq of the most recent event, 0 when empty.
func (j *Journal) LastSeq() int64 {
	return j.clock.Current()
}
