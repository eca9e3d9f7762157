// Package vault implements the custodial core: the ledger of deposited
// funds, the action lifecycle state machine, signature-based authorization,
// and dispatch to the fund-moving handlers.
//
// Every state-mutating operation runs as a single atomic unit: it either
// completes fully or leaves no observable state change. Operations that
// reach external collaborators (deposit, execute) are additionally protected
// by a reentrancy guard: while one is in flight, any other guarded entry is
// rejected immediately rather than queued. Callers sequence their own
// submissions.
package vault

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/ledger"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/metrics"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/sigver"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/transfer"
)

// DefaultExpiry is the fixed validity window granted to every action at
// proposal time.
const DefaultExpiry = time.Hour

// DefaultNativeAsset backs depositNative when no override is configured.
const DefaultNativeAsset = identity.Asset("CELO")

// Options configures a Vault. Zero values get sensible defaults; only Owner
// is required.
type Options struct {
	Owner               identity.Address
	Operators           []identity.Address
	AllowDirectApproval bool
	Expiry              time.Duration
	NativeAsset         identity.Asset
	Custody             identity.Address // account vault-held token funds live under

	Clock    Clock
	Logger   *slog.Logger
	Recorder Recorder
	Metrics  *metrics.Set

	Tokens transfer.Registry
	Venue  transfer.SwapVenue
	Pool   transfer.LiquidityPool

	// Rehydration state from a previous run, normally loaded from the
	// journal. Actions also advance the id space.
	Actions  []Action
	Balances map[ledger.Key]uint64
}

// Vault is the lifecycle controller and the exclusive owner of the ledger
// and the action store.
type Vault struct {
	busy atomic.Bool // reentrancy guard over deposit/execute
	mu   sync.Mutex  // guards actions and access for concurrent readers

	book    *ledger.Book
	actions *actionBook
	access  *accessList

	allowDirect bool
	expiry      time.Duration
	native      identity.Asset
	custody     identity.Address

	clock  Clock
	log    *slog.Logger
	rec    Recorder
	met    *metrics.Set
	tokens transfer.Registry
	venue  transfer.SwapVenue
	pool   transfer.LiquidityPool
}

// New assembles a vault from options.
func New(opts Options) *Vault {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.NativeAsset == "" {
		opts.NativeAsset = DefaultNativeAsset
	}
	if opts.Clock == nil {
		opts.Clock = systemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewUnregistered()
	}

	v := &Vault{
		book:        ledger.NewBook(),
		actions:     newActionBook(),
		access:      newAccessList(opts.Owner, opts.Operators),
		allowDirect: opts.AllowDirectApproval,
		expiry:      opts.Expiry,
		native:      opts.NativeAsset,
		custody:     opts.Custody,
		clock:       opts.Clock,
		log:         opts.Logger,
		rec:         opts.Recorder,
		met:         opts.Metrics,
		tokens:      opts.Tokens,
		venue:       opts.Venue,
		pool:        opts.Pool,
	}
	if opts.Balances != nil {
		v.book.Load(opts.Balances)
	}
	for _, a := range opts.Actions {
		v.actions.restore(a)
	}
	return v
}

// Deposit pulls amount of asset from the caller's external account into
// custody and credits the caller's ledger entry. The credit happens only
// after the inbound transfer primitive reports success.
func (v *Vault) Deposit(caller identity.Address, asset identity.Asset, amount uint64) error {
	if err := v.enter("deposit"); err != nil {
		return err
	}
	defer v.leave()

	if amount == 0 {
		return &Error{Code: CodeInvalidAmount, Message: "deposit amount must be positive", Actor: caller}
	}
	tok := v.token(asset)
	if tok == nil {
		return &Error{Code: CodeTransferFailed, Message: fmt.Sprintf("no transfer primitive for asset %s", asset), Actor: caller}
	}
	if err := tok.TransferFrom(caller, v.custody, amount); err != nil {
		return &Error{Code: CodeTransferFailed, Message: "inbound transfer failed", Actor: caller, Err: err}
	}
	return v.creditDeposit(caller, asset, amount, false)
}

// DepositNative credits the caller's native-asset ledger entry. The native
// value is carried by the call itself, so no transfer primitive is invoked.
func (v *Vault) DepositNative(caller identity.Address, amount uint64) error {
	if err := v.enter("deposit"); err != nil {
		return err
	}
	defer v.leave()

	if amount == 0 {
		return &Error{Code: CodeInvalidAmount, Message: "deposit amount must be positive", Actor: caller}
	}
	return v.creditDeposit(caller, v.native, amount, true)
}

func (v *Vault) creditDeposit(caller identity.Address, asset identity.Asset, amount uint64, native bool) error {
	if err := v.book.Credit(caller, asset, amount); err != nil {
		return &Error{Code: CodeInvalidAmount, Message: "ledger credit refused", Actor: caller, Err: err}
	}
	payload := map[string]any{"asset": string(asset), "amount": amount}
	if native {
		payload["native"] = true
	}
	v.persistBalances()
	v.emit(Event{Type: EventDeposit, Actor: caller.String(), Payload: payload})
	v.met.Deposits.Inc()
	v.log.Info("deposit", "owner", caller, "asset", asset, "amount", amount)
	return nil
}

// Proposal carries the parameters of a proposed action.
type Proposal struct {
	User         identity.Address
	Kind         Kind
	AssetIn      identity.Asset
	AssetOut     identity.Asset
	AmountIn     uint64
	MinAmountOut uint64
	Recipient    identity.Address
}

// ProposeAction stores a new pending action on behalf of a user and returns
// its id. Operator-only. The balance precondition is advisory: funds are not
// reserved, so the check may go stale before execution.
func (v *Vault) ProposeAction(caller identity.Address, p Proposal) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.access.requireOperator(caller); err != nil {
		return 0, err
	}
	if !p.Kind.valid() {
		return 0, fmt.Errorf("unknown action kind %d", int(p.Kind))
	}
	if p.AmountIn == 0 {
		return 0, &Error{Code: CodeInvalidAmount, Message: "proposed amount must be positive", Actor: caller}
	}
	if bal := v.book.Balance(p.User, p.AssetIn); bal < p.AmountIn {
		return 0, &Error{
			Code:    CodeInsufficientBalance,
			Message: fmt.Sprintf("user holds %d of %s, proposal needs %d", bal, p.AssetIn, p.AmountIn),
			Actor:   caller,
		}
	}

	now := v.clock.Now()
	a := v.actions.create(Action{
		User:         p.User,
		Kind:         p.Kind,
		AssetIn:      p.AssetIn,
		AssetOut:     p.AssetOut,
		AmountIn:     p.AmountIn,
		MinAmountOut: p.MinAmountOut,
		Recipient:    p.Recipient,
		CreatedAt:    now,
		ExpiresAt:    now.Add(v.expiry),
	})

	v.persistAction(*a)
	v.emit(Event{
		Type:     EventActionProposed,
		Actor:    caller.String(),
		ActionID: a.ID,
		Payload: map[string]any{
			"user":           a.User.String(),
			"kind":           a.Kind.String(),
			"asset_in":       string(a.AssetIn),
			"asset_out":      string(a.AssetOut),
			"amount_in":      a.AmountIn,
			"min_amount_out": a.MinAmountOut,
			"recipient":      a.Recipient.String(),
		},
	})
	v.met.Proposed.WithLabelValues(a.Kind.String()).Inc()
	v.log.Info("action proposed", "action", a.ID, "user", a.User, "kind", a.Kind)
	return a.ID, nil
}

// ApproveAction marks an action approved on the strength of a signature the
// operator obtained from the user out-of-band. Operator-only. Re-approval
// with another valid signature is idempotent; an invalid signature fails
// without mutating state.
func (v *Vault) ApproveAction(caller identity.Address, actionID uint64, signature []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.access.requireOperator(caller); err != nil {
		return err
	}
	a, err := v.approvableAction(actionID)
	if err != nil {
		return err
	}

	signer, rerr := sigver.RecoverSigner(sigver.CanonicalMessage(a.ID, a.User), signature)
	if rerr != nil {
		return &Error{Code: CodeSignatureInvalid, Message: "signature unrecoverable", ActionID: a.ID, Err: rerr}
	}
	if signer != a.User {
		return &Error{Code: CodeSignatureInvalid, Message: "signer is not the action user", ActionID: a.ID}
	}
	v.approve(a, caller, "signed")
	return nil
}

// ApproveActionDirect marks an action approved because the caller is the
// action's user. No cryptographic proof is involved, so this path trusts the
// surrounding environment to have authenticated the caller; it is refused
// entirely unless direct approval is enabled in the configuration.
func (v *Vault) ApproveActionDirect(caller identity.Address, actionID uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.allowDirect {
		return &Error{Code: CodeUnauthorized, Message: "direct approval is disabled", Actor: caller, ActionID: actionID}
	}
	a, err := v.approvableAction(actionID)
	if err != nil {
		return err
	}
	if caller != a.User {
		return errUnauthorized(caller, "the action user")
	}
	v.approve(a, caller, "direct")
	return nil
}

// approvableAction checks the shared approval preconditions: the action
// exists, has not executed, and is inside its validity window.
func (v *Vault) approvableAction(actionID uint64) (*Action, error) {
	a, ok := v.actions.get(actionID)
	if !ok {
		return nil, errActionNotFound(actionID)
	}
	if a.Executed {
		return nil, &Error{Code: CodeAlreadyExecuted, Message: "action already executed", ActionID: a.ID}
	}
	if a.ExpiredAt(v.clock.Now()) {
		return nil, &Error{Code: CodeActionExpired, Message: "action validity window has closed", ActionID: a.ID}
	}
	return a, nil
}

func (v *Vault) approve(a *Action, caller identity.Address, path string) {
	if a.Approved {
		// Idempotent: the signature (or identity) was re-verified above,
		// nothing further changes and no second event is emitted.
		return
	}
	a.Approved = true
	v.persistAction(*a)
	v.emit(Event{
		Type:     EventActionApproved,
		Actor:    caller.String(),
		ActionID: a.ID,
		Payload:  map[string]any{"user": a.User.String(), "path": path},
	})
	v.met.Approvals.WithLabelValues(path).Inc()
	v.log.Info("action approved", "action", a.ID, "path", path)
}

// ExecuteAction runs an approved action exactly once. Operator-only,
// reentrancy-guarded. The executed flag is set before the handler runs so a
// reentrant observer sees it; if the handler fails, every change of this
// call — the flag included — is rolled back, and the action stays
// executable for a retry.
func (v *Vault) ExecuteAction(caller identity.Address, actionID uint64) error {
	if err := v.enter("executeAction"); err != nil {
		return err
	}
	defer v.leave()

	v.mu.Lock()
	if err := v.access.requireOperator(caller); err != nil {
		v.mu.Unlock()
		return err
	}
	a, ok := v.actions.get(actionID)
	if !ok {
		v.mu.Unlock()
		return errActionNotFound(actionID)
	}
	switch {
	case a.Executed:
		v.mu.Unlock()
		return &Error{Code: CodeAlreadyExecuted, Message: "action already executed", ActionID: a.ID}
	case !a.Approved:
		v.mu.Unlock()
		return &Error{Code: CodeNotApproved, Message: "action is not approved", ActionID: a.ID}
	case a.ExpiredAt(v.clock.Now()):
		v.mu.Unlock()
		return &Error{Code: CodeActionExpired, Message: "action validity window has closed", ActionID: a.ID}
	}
	a.Executed = true
	v.mu.Unlock()

	// Handler runs without the state lock: it reaches external
	// collaborators, and reentrant guarded calls are fenced by the busy
	// flag, not the lock. Ledger mutations are the handler's to revert on
	// failure.
	outcome, herr := v.dispatch(a)

	v.mu.Lock()
	if herr != nil {
		a.Executed = false
	}
	v.mu.Unlock()

	payload := map[string]any{
		"user":    a.User.String(),
		"kind":    a.Kind.String(),
		"success": herr == nil,
	}
	for k, val := range outcome {
		payload[k] = val
	}
	if herr != nil {
		payload["reason"] = string(CodeOf(herr))
	}
	v.emit(Event{Type: EventActionExecuted, Actor: caller.String(), ActionID: a.ID, Payload: payload})

	if herr != nil {
		v.met.Executions.WithLabelValues(a.Kind.String(), "failure").Inc()
		v.log.Warn("action execution failed", "action", a.ID, "kind", a.Kind, "err", herr)
		return herr
	}
	v.persistAction(*a)
	v.persistBalances()
	v.met.Executions.WithLabelValues(a.Kind.String(), "success").Inc()
	v.log.Info("action executed", "action", a.ID, "kind", a.Kind)
	return nil
}

// UserBalance returns the custodial balance for (owner, asset).
func (v *Vault) UserBalance(owner identity.Address, asset identity.Asset) uint64 {
	return v.book.Balance(owner, asset)
}

// Action returns a copy of the action record.
func (v *Vault) Action(actionID uint64) (Action, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a, ok := v.actions.get(actionID)
	if !ok {
		return Action{}, errActionNotFound(actionID)
	}
	return *a, nil
}

// Actions returns copies of every action record in id order.
func (v *Vault) Actions() []Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.actions.all()
}

// IsActionExpired reports whether the action's validity window has closed.
func (v *Vault) IsActionExpired(actionID uint64) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a, ok := v.actions.get(actionID)
	if !ok {
		return false, errActionNotFound(actionID)
	}
	return a.ExpiredAt(v.clock.Now()), nil
}

// AddOperator authorizes an identity to propose, approve-relay, and execute
// actions. Owner-only; idempotent.
func (v *Vault) AddOperator(caller, operator identity.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.access.requireOwner(caller); err != nil {
		return err
	}
	if !v.access.add(operator) {
		return nil
	}
	v.persistOperators()
	v.emit(Event{Type: EventOperatorAdded, Actor: caller.String(), Payload: map[string]any{"operator": operator.String()}})
	v.log.Info("operator added", "operator", operator)
	return nil
}

// RemoveOperator revokes an operator. Owner-only; idempotent.
func (v *Vault) RemoveOperator(caller, operator identity.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.access.requireOwner(caller); err != nil {
		return err
	}
	if !v.access.remove(operator) {
		return nil
	}
	v.persistOperators()
	v.emit(Event{Type: EventOperatorRemoved, Actor: caller.String(), Payload: map[string]any{"operator": operator.String()}})
	v.log.Info("operator removed", "operator", operator)
	return nil
}

// Operators returns the operator set in address order.
func (v *Vault) Operators() []identity.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.access.list()
}

// Owner returns the owner identity.
func (v *Vault) Owner() identity.Address {
	return v.access.owner
}

func (v *Vault) enter(op string) error {
	if !v.busy.CompareAndSwap(false, true) {
		return errReentrant(op)
	}
	return nil
}

func (v *Vault) leave() { v.busy.Store(false) }

func (v *Vault) token(asset identity.Asset) transfer.Token {
	if v.tokens == nil {
		return nil
	}
	return v.tokens.Token(asset)
}

// emit appends an audit event. Recording is best-effort relative to the
// in-memory transition, which has already committed; failures are logged.
func (v *Vault) emit(ev Event) {
	ev.At = v.clock.Now()
	if _, err := v.rec.Record(ev); err != nil {
		v.log.Error("record audit event", "type", ev.Type, "err", err)
	}
}

func (v *Vault) persistAction(a Action) {
	if err := v.rec.SaveAction(a); err != nil {
		v.log.Error("persist action", "action", a.ID, "err", err)
	}
}

func (v *Vault) persistBalances() {
	if err := v.rec.SaveBalances(v.book.Snapshot()); err != nil {
		v.log.Error("persist balances", "err", err)
	}
}

func (v *Vault) persistOperators() {
	if err := v.rec.SaveOperators(v.access.list()); err != nil {
		v.log.Error("persist operators", "err", err)
	}
}
