package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// SignerKeyFromSeed returns the manifest signer-key string for an Ed25519
// seed: "ed25519:" + base64(pubkey).
func SignerKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub)
}

// SignerKeyFromPublicKey encodes an Ed25519 public key into the signer-key
// string format.
func SignerKeyFromPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub), nil
}

// DeriveCircuitSeed deterministically derives a circuit-specific Ed25519
// seed from a root seed, so one root key can sign manifests for many
// circuits without reuse.
func DeriveCircuitSeed(rootSeed []byte, circuitID string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := checkCircuit(circuitID); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("xdao-jwz-manifest-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("circuit:"))
	_, _ = h.Write([]byte(circuitID))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
