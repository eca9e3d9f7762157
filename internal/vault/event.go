package vault

import (
	"time"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/ledger"
)

// EventType names one audit event.
type EventType string

const (
	EventDeposit         EventType = "deposit"
	EventActionProposed  EventType = "action_proposed"
	EventActionApproved  EventType = "action_approved"
	EventActionExecuted  EventType = "action_executed"
	EventOperatorAdded   EventType = "operator_added"
	EventOperatorRemoved EventType = "operator_removed"
)

// Event is one entry of the audit stream. The vault emits events without ID
// and Seq; the recorder assigns both when it appends the event.
type Event struct {
	ID       string         `json:"id"`
	Seq      int64          `json:"seq"`
	Type     EventType      `json:"type"`
	At       time.Time      `json:"at"`
	Actor    string         `json:"actor"`
	ActionID uint64         `json:"action_id,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Recorder receives every state transition: audit events plus the durable
// mirror of actions, balances, and the operator set. Implemented by the
// journal; a no-op implementation backs pure in-memory vaults.
//
// Recorder calls happen after the in-memory transition commits; the
// in-memory vault is the source of truth within a run, the recorder is the
// source of truth across runs.
type Recorder interface {
	Record(ev Event) (Event, error)
	SaveAction(a Action) error
	SaveBalances(entries map[ledger.Key]uint64) error
	SaveOperators(operators []identity.Address) error
}

type noopRecorder struct{}

func (noopRecorder) Record(ev Event) (Event, error)           { return ev, nil }
func (noopRecorder) SaveAction(Action) error                  { return nil }
func (noopRecorder) SaveBalances(map[ledger.Key]uint64) error { return nil }
func (noopRecorder) SaveOperators([]identity.Address) error   { return nil }

// Clock supplies wall time for expiry checks. The system clock in
// production; a manual clock in tests and the harness.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

func systemClock() Clock { return ClockFunc(time.Now) }
