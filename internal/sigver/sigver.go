// Package sigver verifies user approval signatures.
//
// A signature covers only (actionId, user): it attests "this user approved
// whatever this action id refers to". Binding to the id alone is safe
// because action records are immutable after creation and ids are never
// reused.
package sigver

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// domainTag separates approval digests from any other signed payload.
const domainTag = "guardianvault/approve/v1"

// SignatureLength is the byte length of a compact signature:
// 1 recovery byte followed by 32-byte R and 32-byte S.
const SignatureLength = 65

// CanonicalMessage returns the deterministic byte encoding a signature must
// cover: domain tag, big-endian action id, user address.
func CanonicalMessage(actionID uint64, user identity.Address) []byte {
	msg := make([]byte, 0, len(domainTag)+8+identity.AddressLength)
	msg = append(msg, domainTag...)
	msg = binary.BigEndian.AppendUint64(msg, actionID)
	msg = append(msg, user[:]...)
	return msg
}

// Digest hashes a canonical message with Keccak-256.
func Digest(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(message)
	return h.Sum(nil)
}

// RecoverSigner recovers the identity that produced a compact signature over
// the given canonical message. Returns an error for malformed or
// unrecoverable signatures; the caller decides whether the recovered
// identity is the expected one.
func RecoverSigner(message, signature []byte) (identity.Address, error) {
	if len(signature) != SignatureLength {
		return identity.ZeroAddress, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(signature))
	}
	pub, _, err := ecdsa.RecoverCompact(signature, Digest(message))
	if err != nil {
		return identity.ZeroAddress, fmt.Errorf("recover signer: %w", err)
	}
	return identity.AddressFromPubkey(pub.SerializeUncompressed())
}

// Sign produces a compact signature over the canonical message with the
// given private key. Used by test fixtures and the approval relay tooling;
// end users normally sign in their own wallet.
func Sign(message []byte, key *secp256k1.PrivateKey) []byte {
	return ecdsa.SignCompact(key, Digest(message), false)
}
