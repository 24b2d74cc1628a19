package artifacts

import (
	"crypto/ed25519"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

type deterministicReader struct{}

func (deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x42
	}
	return len(p), nil
}

func signedManifestEd25519(t *testing.T) (*Manifest, string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(deterministicReader{})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m := NewManifest("auth.v2", testBundle())
	if err := m.SignEd25519(priv); err != nil {
		t.Fatalf("SignEd25519: %v", err)
	}
	return m, m.SignerKey
}

func TestManifest_SignVerifyEd25519(t *testing.T) {
	m, signer := signedManifestEd25519(t)
	if m.SignatureAlg != "ed25519" {
		t.Fatalf("expected ed25519 alg, got %s", m.SignatureAlg)
	}
	if err := m.VerifySignature(signer); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestManifest_SignVerifyDilithium3(t *testing.T) {
	_, priv, err := mode3.GenerateKey(deterministicReader{})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m := NewManifest("auth.v2", testBundle())
	if err := m.SignDilithium3(priv); err != nil {
		t.Fatalf("SignDilithium3: %v", err)
	}
	if m.SignatureAlg != "dilithium3" {
		t.Fatalf("expected dilithium3 alg, got %s", m.SignatureAlg)
	}
	if err := m.VerifySignature(m.SignerKey); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestManifest_VerifyRejectsUnsigned(t *testing.T) {
	m := NewManifest("auth.v2", testBundle())
	if err := m.VerifySignature("ed25519:AA=="); err == nil {
		t.Fatalf("expected error for unsigned manifest")
	}
}

func TestManifest_VerifyRejectsWrongSigner(t *testing.T) {
	m, _ := signedManifestEd25519(t)
	if err := m.VerifySignature("ed25519:c29tZW90aGVya2V5"); err == nil {
		t.Fatalf("expected error for untrusted signer key")
	}
}

func TestManifest_VerifyRejectsTamperedDigests(t *testing.T) {
	m, signer := signedManifestEd25519(t)
	m.Digests[ProvingKeyFile] = digestHex([]byte("other proving key"))
	if err := m.VerifySignature(signer); err == nil {
		t.Fatalf("expected error for digests changed after signing")
	}
}

func TestManifest_EncodeDecode(t *testing.T) {
	m, signer := signedManifestEd25519(t)
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest: %v", err)
	}
	if err := decoded.VerifySignature(signer); err != nil {
		t.Fatalf("signature did not survive encode/decode: %v", err)
	}
}

func TestDecodeManifest_RejectsUnknownVersion(t *testing.T) {
	if _, err := DecodeManifest([]byte(`{"version":99,"circuitId":"x","digests":{}}`)); err == nil {
		t.Fatalf("expected error for unknown manifest version")
	}
}

func TestCheckBundle_MissingDigest(t *testing.T) {
	m := NewManifest("auth.v2", testBundle())
	delete(m.Digests, CircuitProgramFile)
	if err := m.CheckBundle("auth.v2", testBundle()); err == nil {
		t.Fatalf("expected error for missing digest entry")
	}
}

func TestStore_LoadVerified(t *testing.T) {
	s := testStore(t)
	bundle := testBundle()
	if err := s.Save("auth.v2", bundle); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Unsigned manifests fail the verified load.
	if _, err := s.LoadVerified("auth.v2", "ed25519:AA=="); err == nil {
		t.Fatalf("expected error for unsigned manifest")
	}

	m, err := s.Manifest("auth.v2")
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	_, priv, err := ed25519.GenerateKey(deterministicReader{})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if err := m.SignEd25519(priv); err != nil {
		t.Fatalf("SignEd25519: %v", err)
	}
	if err := s.WriteManifest("auth.v2", m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	if _, err := s.LoadVerified("auth.v2", m.SignerKey); err != nil {
		t.Fatalf("LoadVerified: %v", err)
	}
	if _, err := s.LoadVerified("auth.v2", "ed25519:c29tZW90aGVya2V5"); err == nil {
		t.Fatalf("expected error for untrusted signer")
	}
}
