package cli

import (
	"context"
	"log/slog"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/config"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/journal"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/transfer"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// session is one command's view of the vault: configuration, the open
// journal, and a vault rehydrated from the journal's mirror.
//
// Token transfers run against an in-memory world rebuilt per command: the
// custody account is funded to match the mirrored ledger, so outbound
// transfers settle exactly as far as the ledger says they can. A chain
// deployment would swap the world for real token bindings.
type session struct {
	cfg   *config.Config
	jrnl  *journal.Journal
	world *transfer.Book
	vault *vault.Vault
}

// openSession loads the configuration, opens the journal, and rehydrates
// the vault. The operator set persisted in the journal wins over the
// configured one once the vault has run at least once.
func openSession(opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open journal", err)
	}

	st, err := jrnl.LoadState(context.Background())
	if err != nil {
		jrnl.Close()
		return nil, WrapExitError(ExitCommandError, "load vault state", err)
	}

	world := transfer.NewBook()
	custodyTotals := make(map[identity.Asset]uint64)
	for key, amount := range st.Balances {
		custodyTotals[key.Asset] += amount
	}
	for asset, total := range custodyTotals {
		world.Mint(asset, transfer.Custody(), total)
	}

	operators := cfg.Operators
	if len(st.Operators) > 0 {
		operators = st.Operators
	}

	v := vault.New(vault.Options{
		Owner:               cfg.Owner,
		Operators:           operators,
		AllowDirectApproval: cfg.AllowDirectApproval,
		Expiry:              cfg.Expiry,
		NativeAsset:         cfg.NativeSymbol,
		Custody:             transfer.Custody(),
		Logger:              slog.Default(),
		Recorder:            jrnl,
		Tokens:              world,
		Actions:             st.Actions,
		Balances:            st.Balances,
	})

	return &session{cfg: cfg, jrnl: jrnl, world: world, vault: v}, nil
}

func (s *session) Close() error {
	return s.jrnl.Close()
}

// parseAddr wraps address parsing in a command error.
func parseAddr(s string) (identity.Address, error) {
	addr, err := identity.ParseAddress(s)
	if err != nil {
		return identity.Address{}, WrapExitError(ExitCommandError, "bad address", err)
	}
	return addr, nil
}

// parseAsset wraps asset normalization in a command error.
func parseAsset(s string) (identity.Asset, error) {
	asset, err := identity.NormalizeAsset(s)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "bad asset symbol", err)
	}
	return asset, nil
}
