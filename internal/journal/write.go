package journal

import (
	"encoding/json"
	"fmt"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/ledger"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// Record appends an audit event, assigning its seq and (unless preset) its
// id, and publishes it to the feed. Duplicate ids are ignored idempotently.
// Implements vault.Recorder.
func (j *Journal) Record(ev vault.Event) (vault.Event, error) {
	if ev.ID == "" {
		ev.ID = j.ids.Generate()
	}
	ev.Seq = j.clock.Next()

	payload := "{}"
	if ev.Payload != nil {
		// encoding/json sorts map keys, so stored payloads are
		// deterministic for identical inputs.
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			return vault.Event{}, fmt.Errorf("marshal event payload: %w", err)
		}
		payload = string(b)
	}

	_, err := j.db.Exec(`
		INSERT INTO events (id, seq, type, at, actor, action_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.ID, ev.Seq, string(ev.Type), ev.At.UnixNano(), ev.Actor, int64(ev.ActionID), payload)
	if err != nil {
		return vault.Event{}, fmt.Errorf("record event: %w", err)
	}

	j.feed.Publish(ev)
	return ev, nil
}

// SaveAction mirrors an action record. Insert-or-update: only the approved
// and executed flags change after the first write. Implements
// vault.Recorder.
func (j *Journal) SaveAction(a vault.Action) error {
	_, err := j.db.Exec(`
		INSERT INTO actions
		(id, user, kind, asset_in, asset_out, amount_in, min_amount_out, recipient, approved, executed, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			approved = excluded.approved,
			executed = excluded.executed
	`,
		int64(a.ID),
		a.User.String(),
		a.Kind.String(),
		string(a.AssetIn),
		string(a.AssetOut),
		int64(a.AmountIn),
		int64(a.MinAmountOut),
		a.Recipient.String(),
		boolToInt(a.Approved),
		boolToInt(a.Executed),
		a.CreatedAt.UnixNano(),
		a.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save action %d: %w", a.ID, err)
	}
	return nil
}

// SaveBalances replaces the mirrored ledger with the given snapshot, in one
// transaction. Implements vault.Recorder.
func (j *Journal) SaveBalances(entries map[ledger.Key]uint64) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("save balances: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM balances`); err != nil {
		return fmt.Errorf("save balances: %w", err)
	}
	for k, amount := range entries {
		if amount == 0 {
			continue
		}
		_, err := tx.Exec(`INSERT INTO balances (owner, asset, amount) VALUES (?, ?, ?)`,
			k.Owner.String(), string(k.Asset), int64(amount))
		if err != nil {
			return fmt.Errorf("save balance %s/%s: %w", k.Owner, k.Asset, err)
		}
	}
	return tx.Commit()
}

// SaveOperators replaces the mirrored operator set. Implements
// vault.Recorder.
func (j *Journal) SaveOperators(operators []identity.Address) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("save operators: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM operators`); err != nil {
		return fmt.Errorf("save operators: %w", err)
	}
	for _, op := range operators {
		if _, err := tx.Exec(`INSERT INTO operators (address) VALUES (?)`, op.String()); err != nil {
			return fmt.Errorf("save operator %s: %w", op, err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
