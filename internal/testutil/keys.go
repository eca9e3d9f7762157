package testutil

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/sigver"
)

// Signer is a deterministic user fixture: a secp256k1 key and the identity
// derived from it.
type Signer struct {
	Key     *secp256k1.PrivateKey
	Address identity.Address
}

// NewSigner derives a signer from a one-byte seed, so "user 1" is the same
// identity in every test run and in golden files.
func NewSigner(seed byte) Signer {
	if seed == 0 {
		// A zero scalar is not a valid private key.
		seed = 0xff
	}
	raw := make([]byte, 32)
	raw[31] = seed
	key := secp256k1.PrivKeyFromBytes(raw)
	addr, err := identity.AddressFromPubkey(key.PubKey().SerializeUncompressed())
	if err != nil {
		panic(err)
	}
	return Signer{Key: key, Address: addr}
}

// ApproveSignature signs the canonical approval message for an action owned
// by this signer.
func (s Signer) ApproveSignature(actionID uint64) []byte {
	return sigver.Sign(sigver.CanonicalMessage(actionID, s.Address), s.Key)
}
