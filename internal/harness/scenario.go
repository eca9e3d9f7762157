// Package harness runs YAML-described vault scenarios: named actors with
// deterministic keys, a scripted lifecycle flow, and assertions over the
// resulting balances and audit trace. Golden files pin full traces for the
// scenarios that serve as executable documentation.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance scenario: initial state, a flow of lifecycle
// operations, and assertions on the outcome.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Config overrides vault construction defaults.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Actors maps actor names to one-byte signer seeds, so every run (and
	// the golden files) sees the same identities.
	Actors map[string]int `yaml:"actors"`

	// Owner names the actor that owns the vault. Operators lists further
	// actors authorized at construction; the owner is always an operator.
	Owner     string   `yaml:"owner"`
	Operators []string `yaml:"operators,omitempty"`

	// Market configures the stub swap venue and liquidity pool.
	Market *Market `yaml:"market,omitempty"`

	// Setup steps establish initial state and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are the scenario body; each may expect a refusal code.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioConfig mirrors the vault options a scenario may override.
type ScenarioConfig struct {
	AllowDirectApproval bool   `yaml:"allow_direct_approval,omitempty"`
	Expiry              string `yaml:"expiry,omitempty"`
	NativeSymbol        string `yaml:"native_symbol,omitempty"`
}

// Market configures the external collaborator stubs.
type Market struct {
	Quotes    []Quote    `yaml:"quotes,omitempty"`
	Positions []Position `yaml:"positions,omitempty"`
}

// Quote is a per-unit swap route on the stub venue.
type Quote struct {
	AssetIn  string `yaml:"asset_in"`
	AssetOut string `yaml:"asset_out"`
	UnitOut  uint64 `yaml:"unit_out"`
}

// Position is the per-unit constituent legs of a pool token.
type Position struct {
	LPAsset string        `yaml:"lp_asset"`
	Legs    []PositionLeg `yaml:"legs"`
}

// PositionLeg is one leg of a position.
type PositionLeg struct {
	Asset  string `yaml:"asset"`
	Amount uint64 `yaml:"amount"`
}

// Step is one scripted operation. Op selects the operation; the remaining
// fields are its parameters. Actor-valued fields name entries of Actors.
//
// Ops:
//
//	deposit          from, asset, amount        (token pull into custody)
//	deposit_native   from, amount               (native value transfer)
//	propose          as, user, kind, asset_in, amount
//	                 [asset_out, min_out, recipient]
//	approve          as, action, signed_by      (signed relay path)
//	approve_direct   as, action                 (caller-is-user path)
//	execute          as, action
//	add_operator     as, operator
//	remove_operator  as, operator
//	advance          by                         (move the clock)
//	fail_next        target: token|venue|pool   (inject one failure)
type Step struct {
	Op string `yaml:"op"`

	As        string `yaml:"as,omitempty"`
	From      string `yaml:"from,omitempty"`
	User      string `yaml:"user,omitempty"`
	Kind      string `yaml:"kind,omitempty"`
	Asset     string `yaml:"asset,omitempty"`
	AssetIn   string `yaml:"asset_in,omitempty"`
	AssetOut  string `yaml:"asset_out,omitempty"`
	Amount    uint64 `yaml:"amount,omitempty"`
	MinOut    uint64 `yaml:"min_out,omitempty"`
	Recipient string `yaml:"recipient,omitempty"`
	Action    uint64 `yaml:"action,omitempty"`
	SignedBy  string `yaml:"signed_by,omitempty"`
	Operator  string `yaml:"operator,omitempty"`
	By        string `yaml:"by,omitempty"`
	Target    string `yaml:"target,omitempty"`

	// Expect names the refusal code this step must fail with. Empty means
	// the step must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the outcome of a scenario.
//
// Types:
//
//	balance           owner, asset, amount      (custodial ledger)
//	external_balance  owner, asset, amount      (simulated token world)
//	action_state      action, approved, executed, expired
//	trace_contains    event [, action, payload subset]
//	trace_count       event, count
//	trace_order       events
type Assertion struct {
	Type string `yaml:"type"`

	Owner  string `yaml:"owner,omitempty"`
	Asset  string `yaml:"asset,omitempty"`
	Amount uint64 `yaml:"amount,omitempty"`

	Action   uint64 `yaml:"action,omitempty"`
	Approved *bool  `yaml:"approved,omitempty"`
	Executed *bool  `yaml:"executed,omitempty"`
	Expired  *bool  `yaml:"expired,omitempty"`

	Event   string         `yaml:"event,omitempty"`
	Count   int            `yaml:"count,omitempty"`
	Events  []string       `yaml:"events,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance         = "balance"
	AssertExternalBalance = "external_balance"
	AssertActionState     = "action_state"
	AssertTraceContains   = "trace_contains"
	AssertTraceCount      = "trace_count"
	AssertTraceOrder      = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Actors) == 0 {
		return fmt.Errorf("actors map is required")
	}
	for name, seed := range s.Actors {
		if seed < 1 || seed > 255 {
			return fmt.Errorf("actor %s: seed %d out of range 1..255", name, seed)
		}
	}
	if s.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if _, ok := s.Actors[s.Owner]; !ok {
		return fmt.Errorf("owner %q is not a declared actor", s.Owner)
	}
	for _, op := range s.Operators {
		if _, ok := s.Actors[op]; !ok {
			return fmt.Errorf("operator %q is not a declared actor", op)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != "" {
			return fmt.Errorf("setup[%d]: setup steps cannot expect a refusal", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(&a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step *Step) error {
	switch step.Op {
	case "deposit":
		if step.From == "" || step.Asset == "" || step.Amount == 0 {
			return fmt.Errorf("deposit requires from, asset, amount")
		}
	case "deposit_native":
		if step.From == "" || step.Amount == 0 {
			return fmt.Errorf("deposit_native requires from, amount")
		}
	case "propose":
		if step.As == "" || step.User == "" || step.Kind == "" || step.AssetIn == "" {
			return fmt.Errorf("propose requires as, user, kind, asset_in")
		}
	case "approve":
		if step.As == "" || step.Action == 0 || step.SignedBy == "" {
			return fmt.Errorf("approve requires as, action, signed_by")
		}
	case "approve_direct":
		if step.As == "" || step.Action == 0 {
			return fmt.Errorf("approve_direct requires as, action")
		}
	case "execute":
		if step.As == "" || step.Action == 0 {
			return fmt.Errorf("execute requires as, action")
		}
	case "add_operator", "remove_operator":
		if step.As == "" || step.Operator == "" {
			return fmt.Errorf("%s requires as, operator", step.Op)
		}
	case "advance":
		if _, err := time.ParseDuration(step.By); err != nil {
			return fmt.Errorf("advance requires a duration in by: %w", err)
		}
	case "fail_next":
		switch step.Target {
		case "token", "venue", "pool":
		default:
			return fmt.Errorf("fail_next target must be token, venue, or pool")
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(a *Assertion) error {
	switch a.Type {
	case AssertBalance, AssertExternalBalance:
		if a.Owner == "" || a.Asset == "" {
			return fmt.Errorf("%s requires owner and asset", a.Type)
		}
	case AssertActionState:
		if a.Action == 0 {
			return fmt.Errorf("action_state requires action")
		}
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("trace_contains requires event")
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("trace_count requires event")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count count must be non-negative")
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("trace_order requires events")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
