package jwz

import (
	"encoding/base64"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Hasher maps the signing input to a field integer. It must be deterministic
// and pure.
type Hasher func(message []byte) (*big.Int, error)

// PoseidonHasher is the default hash collaborator.
var PoseidonHasher Hasher = poseidon.HashBytes

// fieldByteLen is the fixed width of the serialized message hash. Proving
// circuits consume field elements as fixed-size little-endian byte arrays;
// this width is a contract boundary and must not change.
const fieldByteLen = 32

// signingInput renders the canonical byte sequence that is hashed and proved
// over: ASCII(base64url(protected) || "." || base64url(payload)). Any change
// to the header after this point invalidates the proof.
func signingInput(protected, payload []byte) []byte {
	enc := base64.RawURLEncoding
	n := enc.EncodedLen(len(protected))
	out := make([]byte, n+1+enc.EncodedLen(len(payload)))
	enc.Encode(out, protected)
	out[n] = '.'
	enc.Encode(out[n+1:], payload)
	return out
}

// hashMessage hashes the signing input and serializes the result as
// little-endian field bytes.
func hashMessage(h Hasher, protected, payload []byte) ([]byte, error) {
	if h == nil {
		h = PoseidonHasher
	}
	n, err := h(signingInput(protected, payload))
	if err != nil {
		return nil, wrapError(KindHash, RuleHashFailed, "message hashing failed", err)
	}
	return fieldBytesLE(n), nil
}

// fieldBytesLE serializes n as exactly fieldByteLen little-endian bytes.
func fieldBytesLE(n *big.Int) []byte {
	be := n.Bytes()
	out := make([]byte, fieldByteLen)
	for i := 0; i < len(be) && i < fieldByteLen; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// fieldIntLE reads little-endian field bytes back into an integer.
func fieldIntLE(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}
