package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// snapshotEvent is the golden-file shape of one audit event. Actor
// addresses are replaced by scenario actor names so the files stay
// readable and independent of key derivation.
type snapshotEvent struct {
	ID      string         `json:"id"`
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"`
	At      string         `json:"at"`
	Actor   string         `json:"actor"`
	Action  uint64         `json:"action,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TraceSnapshot is the golden-file shape of a full scenario trace.
type TraceSnapshot struct {
	Scenario string          `json:"scenario"`
	Events   []snapshotEvent `json:"events"`
}

// Snapshot converts the result's trace into its golden-file shape.
func (r *Result) Snapshot() TraceSnapshot {
	names := r.actorNames()
	events := make([]snapshotEvent, len(r.Trace))
	for i, ev := range r.Trace {
		payload := make(map[string]any, len(ev.Payload))
		for k, v := range ev.Payload {
			if s, ok := v.(string); ok {
				if name, known := names[s]; known {
					v = name
				}
			}
			payload[k] = v
		}
		if len(payload) == 0 {
			payload = nil
		}
		actor := ev.Actor
		if name, known := names[actor]; known {
			actor = name
		}
		events[i] = snapshotEvent{
			ID:      ev.ID,
			Seq:     ev.Seq,
			Type:    string(ev.Type),
			At:      ev.At.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Actor:   actor,
			Action:  ev.ActionID,
			Payload: payload,
		}
	}
	return TraceSnapshot{Scenario: r.Scenario.Name, Events: events}
}

// RunWithGolden executes a scenario, checks its assertions, and compares
// the trace against testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return err
	}
	if err := result.Check(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(result.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
	return nil
}
