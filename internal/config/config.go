// Package config loads and validates the vault configuration.
//
// Configuration is YAML on disk; before any value is used it is unified
// with the embedded CUE schema, so malformed addresses, durations, or
// unknown fields fail at startup with a schema error instead of surfacing
// later as vault misbehavior.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

//go:embed schema.cue
var schemaCUE string

// Defaults applied for absent optional fields.
const (
	DefaultExpiry      = time.Hour
	DefaultJournalPath = "vault.db"
	DefaultNative      = identity.Asset("CELO")

	// MinExpiry bounds how short the validity window may be configured;
	// anything below it leaves no realistic time to relay an approval.
	MinExpiry = time.Minute
)

// Config is the validated vault configuration.
type Config struct {
	Owner               identity.Address
	Operators           []identity.Address
	AllowDirectApproval bool
	Expiry              time.Duration
	JournalPath         string
	NativeSymbol        identity.Asset
}

// raw mirrors the YAML document before validation.
type raw struct {
	Owner               string   `yaml:"owner" json:"owner"`
	Operators           []string `yaml:"operators,omitempty" json:"operators,omitempty"`
	AllowDirectApproval bool     `yaml:"allow_direct_approval,omitempty" json:"allow_direct_approval,omitempty"`
	Expiry              string   `yaml:"expiry,omitempty" json:"expiry,omitempty"`
	JournalPath         string   `yaml:"journal_path,omitempty" json:"journal_path,omitempty"`
	NativeSymbol        string   `yaml:"native_symbol,omitempty" json:"native_symbol,omitempty"`
}

// Load reads, validates, and resolves the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates a YAML document against the schema and resolves defaults.
func Parse(data []byte) (*Config, error) {
	var r raw
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := validate(r); err != nil {
		return nil, err
	}

	cfg := &Config{
		AllowDirectApproval: r.AllowDirectApproval,
		Expiry:              DefaultExpiry,
		JournalPath:         DefaultJournalPath,
		NativeSymbol:        DefaultNative,
	}

	var err error
	if cfg.Owner, err = identity.ParseAddress(r.Owner); err != nil {
		return nil, err
	}
	for _, op := range r.Operators {
		addr, err := identity.ParseAddress(op)
		if err != nil {
			return nil, err
		}
		cfg.Operators = append(cfg.Operators, addr)
	}
	if r.Expiry != "" {
		if cfg.Expiry, err = time.ParseDuration(r.Expiry); err != nil {
			return nil, fmt.Errorf("expiry: %w", err)
		}
		if cfg.Expiry < MinExpiry {
			return nil, fmt.Errorf("expiry %s is below the minimum %s", cfg.Expiry, MinExpiry)
		}
	}
	if r.JournalPath != "" {
		cfg.JournalPath = r.JournalPath
	}
	if r.NativeSymbol != "" {
		if cfg.NativeSymbol, err = identity.NormalizeAsset(r.NativeSymbol); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// validate unifies the raw document with the embedded schema.
func validate(r raw) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup config schema: %w", err)
	}

	doc := ctx.Encode(r)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}
