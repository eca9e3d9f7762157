package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/journal"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/testutil"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/transfer"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// Result holds the world a scenario ran in, for assertions beyond the
// scripted ones.
type Result struct {
	Scenario *Scenario
	Vault    *vault.Vault
	World    *transfer.Book
	Clock    *testutil.ManualClock
	Signers  map[string]testutil.Signer

	// Trace is the full audit stream in seq order.
	Trace []vault.Event
}

// Run executes a scenario against a fresh in-memory world: a manual clock
// frozen at the epoch, deterministic actor keys, a sequential event id
// generator, and an in-memory journal. Every run of the same scenario
// produces an identical trace.
func Run(s *Scenario) (*Result, error) {
	jrnl, err := journal.Open(":memory:", journal.WithIDGenerator(&journal.SequentialIDGenerator{}))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	signers := make(map[string]testutil.Signer, len(s.Actors))
	for name, seed := range s.Actors {
		signers[name] = testutil.NewSigner(byte(seed))
	}

	clock := testutil.NewManualClock()
	world := transfer.NewBook()
	venue := transfer.NewStubVenue()
	pool := transfer.NewStubPool()
	if s.Market != nil {
		for _, q := range s.Market.Quotes {
			venue.SetQuote(identity.Asset(q.AssetIn), identity.Asset(q.AssetOut), q.UnitOut)
		}
		for _, p := range s.Market.Positions {
			legs := make([]transfer.Leg, len(p.Legs))
			for i, leg := range p.Legs {
				legs[i] = transfer.Leg{Asset: identity.Asset(leg.Asset), Amount: leg.Amount}
			}
			pool.SetPosition(identity.Asset(p.LPAsset), legs...)
		}
	}

	expiry := time.Duration(0)
	if s.Config.Expiry != "" {
		if expiry, err = time.ParseDuration(s.Config.Expiry); err != nil {
			return nil, fmt.Errorf("config expiry: %w", err)
		}
	}
	operators := make([]identity.Address, len(s.Operators))
	for i, name := range s.Operators {
		operators[i] = signers[name].Address
	}

	v := vault.New(vault.Options{
		Owner:               signers[s.Owner].Address,
		Operators:           operators,
		AllowDirectApproval: s.Config.AllowDirectApproval,
		Expiry:              expiry,
		NativeAsset:         identity.Asset(s.Config.NativeSymbol),
		Custody:             transfer.Custody(),
		Clock:               clock,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:            jrnl,
		Tokens:              world,
		Venue:               venue,
		Pool:                pool,
	})

	r := &Result{
		Scenario: s,
		Vault:    v,
		World:    world,
		Clock:    clock,
		Signers:  signers,
	}

	for i, step := range s.Setup {
		if err := r.runStep(step, venue, pool); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
		}
	}
	for i, step := range s.Flow {
		err := r.runStep(step, venue, pool)
		switch {
		case step.Expect == "" && err != nil:
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		case step.Expect != "" && err == nil:
			return nil, fmt.Errorf("flow[%d] %s: expected refusal %s, succeeded", i, step.Op, step.Expect)
		case step.Expect != "" && string(vault.CodeOf(err)) != step.Expect:
			return nil, fmt.Errorf("flow[%d] %s: expected refusal %s, got %v", i, step.Op, step.Expect, err)
		}
	}

	trace, err := jrnl.ReadEvents(context.Background(), 0)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	r.Trace = trace
	return r, nil
}

// actor resolves an actor name to its address.
func (r *Result) actor(name string) (identity.Address, error) {
	signer, ok := r.Signers[name]
	if !ok {
		return identity.Address{}, fmt.Errorf("unknown actor %q", name)
	}
	return signer.Address, nil
}

func (r *Result) runStep(step Step, venue *transfer.StubVenue, pool *transfer.StubPool) error {
	switch step.Op {
	case "deposit":
		from, err := r.actor(step.From)
		if err != nil {
			return err
		}
		// Fund the depositor's external account right before the pull.
		r.World.Mint(identity.Asset(step.Asset), from, step.Amount)
		return r.Vault.Deposit(from, identity.Asset(step.Asset), step.Amount)

	case "deposit_native":
		from, err := r.actor(step.From)
		if err != nil {
			return err
		}
		return r.Vault.DepositNative(from, step.Amount)

	case "propose":
		caller, err := r.actor(step.As)
		if err != nil {
			return err
		}
		user, err := r.actor(step.User)
		if err != nil {
			return err
		}
		kind, err := vault.ParseKind(step.Kind)
		if err != nil {
			return err
		}
		var recipient identity.Address
		if step.Recipient != "" {
			if recipient, err = r.actor(step.Recipient); err != nil {
				return err
			}
		}
		_, err = r.Vault.ProposeAction(caller, vault.Proposal{
			User:         user,
			Kind:         kind,
			AssetIn:      identity.Asset(step.AssetIn),
			AssetOut:     identity.Asset(step.AssetOut),
			AmountIn:     step.Amount,
			MinAmountOut: step.MinOut,
			Recipient:    recipient,
		})
		return err

	case "approve":
		caller, err := r.actor(step.As)
		if err != nil {
			return err
		}
		signer, ok := r.Signers[step.SignedBy]
		if !ok {
			return fmt.Errorf("unknown actor %q", step.SignedBy)
		}
		return r.Vault.ApproveAction(caller, step.Action, signer.ApproveSignature(step.Action))

	case "approve_direct":
		caller, err := r.actor(step.As)
		if err != nil {
			return err
		}
		return r.Vault.ApproveActionDirect(caller, step.Action)

	case "execute":
		caller, err := r.actor(step.As)
		if err != nil {
			return err
		}
		return r.Vault.ExecuteAction(caller, step.Action)

	case "add_operator":
		caller, err := r.actor(step.As)
		if err != nil {
			return err
		}
		operator, err := r.actor(step.Operator)
		if err != nil {
			return err
		}
		return r.Vault.AddOperator(caller, operator)

	case "remove_operator":
		caller, err := r.actor(step.As)
		if err != nil {
			return err
		}
		operator, err := r.actor(step.Operator)
		if err != nil {
			return err
		}
		return r.Vault.RemoveOperator(caller, operator)

	case "advance":
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return err
		}
		r.Clock.Advance(d)
		return nil

	case "fail_next":
		switch step.Target {
		case "token":
			r.World.FailNext()
		case "venue":
			venue.FailNext()
		case "pool":
			pool.FailNext()
		}
		return nil

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}
