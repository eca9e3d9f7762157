package vault

import (
	"errors"
	"fmt"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/ledger"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/transfer"
)

// dispatch routes an executing action to its handler. The switch is the
// closed dispatch table over Kind; every handler debits the ledger before
// touching an external collaborator and reverts its own ledger mutations on
// failure, so the caller only has to roll back the executed flag.
//
// The returned map is merged into the execution event payload.
func (v *Vault) dispatch(a *Action) (map[string]any, error) {
	switch a.Kind {
	case KindWithdraw:
		return v.execWithdraw(a)
	case KindSwap:
		return v.execSwap(a)
	case KindRemoveLiquidity:
		return v.execRemoveLiquidity(a)
	case KindEmergencyWithdraw:
		return v.execEmergencyWithdraw(a)
	default:
		return nil, fmt.Errorf("no handler for action kind %d", int(a.Kind))
	}
}

// execWithdraw debits amountIn and pays it out to the recipient.
func (v *Vault) execWithdraw(a *Action) (map[string]any, error) {
	if err := v.book.Debit(a.User, a.AssetIn, a.AmountIn); err != nil {
		return nil, v.ledgerError(a, err)
	}
	tok := v.token(a.AssetIn)
	if tok == nil {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{Code: CodeTransferFailed, Message: fmt.Sprintf("no transfer primitive for asset %s", a.AssetIn), ActionID: a.ID}
	}
	if err := tok.Transfer(a.Recipient, a.AmountIn); err != nil {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{Code: CodeTransferFailed, Message: "outbound transfer failed", ActionID: a.ID, Err: err}
	}
	return map[string]any{"amount": a.AmountIn, "recipient": a.Recipient.String()}, nil
}

// execSwap debits amountIn and delegates the swap to the external venue.
// The venue's reported output must honor minAmountOut; the output is
// credited back to the user's ledger entry so custody stays auditable.
func (v *Vault) execSwap(a *Action) (map[string]any, error) {
	if err := v.book.Debit(a.User, a.AssetIn, a.AmountIn); err != nil {
		return nil, v.ledgerError(a, err)
	}
	if v.venue == nil {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{Code: CodeTransferFailed, Message: "no swap venue configured", ActionID: a.ID}
	}
	out, err := v.venue.Swap(a.AssetIn, a.AssetOut, a.AmountIn, a.MinAmountOut)
	if err != nil {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{Code: CodeTransferFailed, Message: "swap venue refused", ActionID: a.ID, Err: err}
	}
	if out < a.MinAmountOut {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{
			Code:     CodeTransferFailed,
			Message:  fmt.Sprintf("venue returned %d, below minimum %d", out, a.MinAmountOut),
			ActionID: a.ID,
		}
	}
	if out > 0 {
		if err := v.book.Credit(a.User, a.AssetOut, out); err != nil {
			v.book.Restore(a.User, a.AssetIn, a.AmountIn)
			return nil, &Error{Code: CodeTransferFailed, Message: "crediting swap output failed", ActionID: a.ID, Err: err}
		}
	}
	return map[string]any{"amount_in": a.AmountIn, "asset_out": string(a.AssetOut), "amount_out": out}, nil
}

// execRemoveLiquidity debits the pool tokens and delegates removal to the
// external pool; the released legs are credited back to the user.
func (v *Vault) execRemoveLiquidity(a *Action) (map[string]any, error) {
	if err := v.book.Debit(a.User, a.AssetIn, a.AmountIn); err != nil {
		return nil, v.ledgerError(a, err)
	}
	if v.pool == nil {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{Code: CodeTransferFailed, Message: "no liquidity pool configured", ActionID: a.ID}
	}
	legs, err := v.pool.Remove(a.AssetIn, a.AmountIn)
	if err != nil {
		v.book.Restore(a.User, a.AssetIn, a.AmountIn)
		return nil, &Error{Code: CodeTransferFailed, Message: "liquidity removal refused", ActionID: a.ID, Err: err}
	}
	var credited []transfer.Leg
	for _, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		if cerr := v.book.Credit(a.User, leg.Asset, leg.Amount); cerr != nil {
			// Unwind the partial credits and the original debit.
			for _, done := range credited {
				if derr := v.book.Debit(a.User, done.Asset, done.Amount); derr != nil {
					v.log.Error("unwind pool leg credit", "action", a.ID, "asset", done.Asset, "err", derr)
				}
			}
			v.book.Restore(a.User, a.AssetIn, a.AmountIn)
			return nil, &Error{Code: CodeTransferFailed, Message: "crediting pool leg failed", ActionID: a.ID, Err: cerr}
		}
		credited = append(credited, leg)
	}
	payloadLegs := make([]map[string]any, len(credited))
	for i, leg := range credited {
		payloadLegs[i] = map[string]any{"asset": string(leg.Asset), "amount": leg.Amount}
	}
	return map[string]any{"amount_in": a.AmountIn, "legs": payloadLegs}, nil
}

// execEmergencyWithdraw drains the user's entire balance of assetIn and
// sends all of it to the user, ignoring amountIn and recipient. Fail-safe
// path: a zero balance succeeds with nothing moved.
func (v *Vault) execEmergencyWithdraw(a *Action) (map[string]any, error) {
	drained := v.book.DebitAll(a.User, a.AssetIn)
	if drained == 0 {
		return map[string]any{"amount": uint64(0), "recipient": a.User.String()}, nil
	}
	tok := v.token(a.AssetIn)
	if tok == nil {
		v.book.Restore(a.User, a.AssetIn, drained)
		return nil, &Error{Code: CodeTransferFailed, Message: fmt.Sprintf("no transfer primitive for asset %s", a.AssetIn), ActionID: a.ID}
	}
	if err := tok.Transfer(a.User, drained); err != nil {
		v.book.Restore(a.User, a.AssetIn, drained)
		return nil, &Error{Code: CodeTransferFailed, Message: "outbound transfer failed", ActionID: a.ID, Err: err}
	}
	return map[string]any{"amount": drained, "recipient": a.User.String()}, nil
}

// ledgerError maps ledger sentinel errors onto vault codes.
func (v *Vault) ledgerError(a *Action, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return &Error{Code: CodeInsufficientBalance, Message: "balance changed since proposal", ActionID: a.ID, Err: err}
	case errors.Is(err, ledger.ErrInvalidAmount):
		return &Error{Code: CodeInvalidAmount, Message: "invalid ledger amount", ActionID: a.ID, Err: err}
	default:
		return &Error{Code: CodeTransferFailed, Message: "ledger refused the debit", ActionID: a.ID, Err: err}
	}
}
