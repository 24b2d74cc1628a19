package artifacts

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// ManifestVersion is the current manifest schema version.
const ManifestVersion = 1

// Manifest records sha3-256 digests for the artifact files of one circuit,
// optionally signed by the artifact publisher.
//
// The signature covers the canonical manifest bytes with the signature
// fields emptied; SignerKey uses the "alg:base64" public key encoding
// (ed25519 or dilithium3).
type Manifest struct {
	Version   int               `json:"version"`
	CircuitID string            `json:"circuitId"`
	Digests   map[string]string `json:"digests"`

	SignatureAlg string `json:"signatureAlg,omitempty"`
	SignerKey    string `json:"signerKey,omitempty"`
	Signature    string `json:"signature,omitempty"`
}

// NewManifest computes an unsigned manifest for the bundle.
func NewManifest(circuitID string, b *Bundle) *Manifest {
	return &Manifest{
		Version:   ManifestVersion,
		CircuitID: circuitID,
		Digests: map[string]string{
			ProvingKeyFile:      digestHex(b.ProvingKey),
			VerificationKeyFile: digestHex(b.VerificationKey),
			CircuitProgramFile:  digestHex(b.CircuitProgram),
		},
	}
}

func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

func (m *Manifest) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// CheckBundle verifies every bundle file against the manifest digests.
func (m *Manifest) CheckBundle(circuitID string, b *Bundle) error {
	if m.CircuitID != circuitID {
		return fmt.Errorf("manifest is for circuit %q, not %q", m.CircuitID, circuitID)
	}
	files := map[string][]byte{
		ProvingKeyFile:      b.ProvingKey,
		VerificationKeyFile: b.VerificationKey,
		CircuitProgramFile:  b.CircuitProgram,
	}
	for name, data := range files {
		want, ok := m.Digests[name]
		if !ok {
			return fmt.Errorf("manifest has no digest for %s", name)
		}
		if got := digestHex(data); got != want {
			return fmt.Errorf("digest mismatch for %s", name)
		}
	}
	return nil
}

// signedBytes is the canonical byte form the signature covers: the manifest
// with signature fields emptied. json.Marshal sorts map keys, so the form is
// deterministic.
func (m *Manifest) signedBytes() ([]byte, error) {
	clone := *m
	clone.SignatureAlg = ""
	clone.SignerKey = ""
	clone.Signature = ""
	return json.Marshal(&clone)
}

// SignEd25519 signs the manifest and records the signer public key.
func (m *Manifest) SignEd25519(privateKey ed25519.PrivateKey) error {
	msg, err := m.signedBytes()
	if err != nil {
		return err
	}
	digest := sha3.Sum256(msg)
	sig := ed25519.Sign(privateKey, digest[:])
	pub := privateKey.Public().(ed25519.PublicKey)
	m.SignatureAlg = "ed25519"
	m.SignerKey = "ed25519:" + base64.StdEncoding.EncodeToString(pub)
	m.Signature = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// SignDilithium3 signs the manifest with a dilithium3 key.
func (m *Manifest) SignDilithium3(privateKey *mode3.PrivateKey) error {
	if privateKey == nil {
		return errors.New("missing private key")
	}
	msg, err := m.signedBytes()
	if err != nil {
		return err
	}
	digest := sha3.Sum256(msg)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest[:], sig)
	pub, err := privateKey.Public().(*mode3.PublicKey).MarshalBinary()
	if err != nil {
		return err
	}
	m.SignatureAlg = "dilithium3"
	m.SignerKey = "dilithium3:" + base64.StdEncoding.EncodeToString(pub)
	m.Signature = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// VerifySignature checks the manifest signature against trustedSignerKey
// ("alg:base64"). The recorded signer key must match the trusted key exactly.
func (m *Manifest) VerifySignature(trustedSignerKey string) error {
	if m.SignatureAlg == "" || m.SignerKey == "" || m.Signature == "" {
		return errors.New("manifest is not signed")
	}
	if m.SignerKey != trustedSignerKey {
		return errors.New("manifest signer key does not match trusted key")
	}
	alg, enc, ok := strings.Cut(trustedSignerKey, ":")
	if !ok || alg != m.SignatureAlg {
		return errors.New("invalid signer key encoding")
	}
	pub, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return fmt.Errorf("invalid signer key base64: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(m.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	msg, err := m.signedBytes()
	if err != nil {
		return err
	}
	digest := sha3.Sum256(msg)

	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return errors.New("invalid ed25519 public key length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
			return errors.New("manifest signature invalid")
		}
		return nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		if len(sig) != mode3.SignatureSize {
			return errors.New("invalid dilithium3 signature length")
		}
		if !mode3.Verify(&pk, digest[:], sig) {
			return errors.New("manifest signature invalid")
		}
		return nil
	default:
		return fmt.Errorf("unsupported signature alg %q", alg)
	}
}

func digestHex(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
