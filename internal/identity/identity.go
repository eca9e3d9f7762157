// Package identity defines the account and asset identifiers used by the
// vault core.
//
// Addresses are 20-byte account identities in the Ethereum style: the
// Keccak-256 hash of the uncompressed secp256k1 public key, truncated to the
// last 20 bytes. Assets are symbolic identifiers ("CELO", "cUSD"), normalized
// to NFC so that visually identical symbols map to the same ledger entry.
package identity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/unicode/norm"
)

// AddressLength is the byte length of an account identity.
const AddressLength = 20

// Address is a 20-byte account identity.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It is never a valid signer identity.
var ZeroAddress Address

// ParseAddress decodes a hex address with optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) != AddressLength*2 {
		return a, fmt.Errorf("invalid address %q: want %d hex chars, got %d", s, AddressLength*2, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress that panics on error. For fixtures and
// package-level constants only.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String formats the address as 0x-prefixed lowercase hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AddressFromPubkey derives the account identity from an uncompressed
// secp256k1 public key (65 bytes, 0x04 prefix): Keccak-256 of the 64-byte
// point, last 20 bytes.
func AddressFromPubkey(uncompressed []byte) (Address, error) {
	var a Address
	if len(uncompressed) != 65 || uncompressed[0] != 0x04 {
		return a, fmt.Errorf("invalid uncompressed public key: %d bytes", len(uncompressed))
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	sum := h.Sum(nil)
	copy(a[:], sum[12:])
	return a, nil
}

// Asset identifies a ledger asset by symbol.
//
// Always construct via NormalizeAsset; raw string conversion bypasses
// normalization and can split one asset across two ledger entries.
type Asset string

// NormalizeAsset trims surrounding whitespace and applies Unicode NFC
// normalization so canonically equivalent symbol spellings key the same
// ledger entry. Symbols remain case-sensitive ("cUSD" != "CUSD").
func NormalizeAsset(symbol string) (Asset, error) {
	s := norm.NFC.String(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("empty asset symbol")
	}
	return Asset(s), nil
}
