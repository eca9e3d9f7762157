package harness

import (
	"fmt"
	"reflect"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// Check validates every assertion of the scenario against the result,
// returning the first failure.
func (r *Result) Check() error {
	for i, a := range r.Scenario.Assertions {
		if err := r.checkAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d] %s: %w", i, a.Type, err)
		}
	}
	return nil
}

func (r *Result) checkAssertion(a Assertion) error {
	switch a.Type {
	case AssertBalance:
		owner, err := r.actor(a.Owner)
		if err != nil {
			return err
		}
		got := r.Vault.UserBalance(owner, identity.Asset(a.Asset))
		if got != a.Amount {
			return fmt.Errorf("balance(%s, %s) = %d, want %d", a.Owner, a.Asset, got, a.Amount)
		}
		return nil

	case AssertExternalBalance:
		owner, err := r.actor(a.Owner)
		if err != nil {
			return err
		}
		got := r.World.BalanceOf(identity.Asset(a.Asset), owner)
		if got != a.Amount {
			return fmt.Errorf("external balance(%s, %s) = %d, want %d", a.Owner, a.Asset, got, a.Amount)
		}
		return nil

	case AssertActionState:
		action, err := r.Vault.Action(a.Action)
		if err != nil {
			return err
		}
		if a.Approved != nil && action.Approved != *a.Approved {
			return fmt.Errorf("action %d approved = %v, want %v", a.Action, action.Approved, *a.Approved)
		}
		if a.Executed != nil && action.Executed != *a.Executed {
			return fmt.Errorf("action %d executed = %v, want %v", a.Action, action.Executed, *a.Executed)
		}
		if a.Expired != nil {
			expired, err := r.Vault.IsActionExpired(a.Action)
			if err != nil {
				return err
			}
			if expired != *a.Expired {
				return fmt.Errorf("action %d expired = %v, want %v", a.Action, expired, *a.Expired)
			}
		}
		return nil

	case AssertTraceContains:
		for _, ev := range r.Trace {
			if string(ev.Type) != a.Event {
				continue
			}
			if a.Action != 0 && ev.ActionID != a.Action {
				continue
			}
			if payloadMatches(ev.Payload, a.Payload, r.actorNames()) {
				return nil
			}
		}
		return fmt.Errorf("no %s event matches", a.Event)

	case AssertTraceCount:
		count := 0
		for _, ev := range r.Trace {
			if string(ev.Type) == a.Event && (a.Action == 0 || ev.ActionID == a.Action) {
				count++
			}
		}
		if count != a.Count {
			return fmt.Errorf("%d %s events, want %d", count, a.Event, a.Count)
		}
		return nil

	case AssertTraceOrder:
		next := 0
		for _, ev := range r.Trace {
			if next < len(a.Events) && string(ev.Type) == a.Events[next] {
				next++
			}
		}
		if next != len(a.Events) {
			return fmt.Errorf("trace missing %q at position %d of expected order", a.Events[next], next)
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// actorNames maps addresses back to actor names, so assertions can use the
// scenario's vocabulary.
func (r *Result) actorNames() map[string]string {
	names := make(map[string]string, len(r.Signers))
	for name, signer := range r.Signers {
		names[signer.Address.String()] = name
	}
	return names
}

// payloadMatches reports whether every expected key matches the payload.
// Expected string values naming an actor match that actor's address.
func payloadMatches(payload, expected map[string]any, names map[string]string) bool {
	for key, want := range expected {
		got, ok := payload[key]
		if !ok {
			return false
		}
		if s, isStr := got.(string); isStr {
			if name, known := names[s]; known {
				got = name
			}
		}
		if !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares across the numeric type drift of a JSON roundtrip.
func looseEqual(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	gf, gok := asFloat(got)
	wf, wok := asFloat(want)
	return gok && wok && gf == wf
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
