package jwz

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

func TestHashMessage_Deterministic(t *testing.T) {
	protected := []byte(`{"alg":"m1","circuitId":"c1","crit":["circuitId"],"typ":"JWZ"}`)
	payload := []byte("hello")

	h1, err := hashMessage(PoseidonHasher, protected, payload)
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	h2, err := hashMessage(PoseidonHasher, protected, payload)
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	if !bytes.Equal(h1, h2) {
		t.Fatalf("hash not deterministic")
	}
	if len(h1) != fieldByteLen {
		t.Fatalf("expected %d bytes, got %d", fieldByteLen, len(h1))
	}
}

func TestHashMessage_SensitiveToBothInputs(t *testing.T) {
	protected := []byte(`{"typ":"JWZ"}`)
	payload := []byte("hello")

	base, err := hashMessage(PoseidonHasher, protected, payload)
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	otherHeader, err := hashMessage(PoseidonHasher, []byte(`{"typ":"JWS"}`), payload)
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	otherPayload, err := hashMessage(PoseidonHasher, protected, []byte("hellp"))
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	if bytes.Equal(base, otherHeader) {
		t.Fatalf("hash ignored the protected headers")
	}
	if bytes.Equal(base, otherPayload) {
		t.Fatalf("hash ignored the payload")
	}
}

func TestHashMessage_NilHasherDefaults(t *testing.T) {
	a, err := hashMessage(nil, []byte("h"), []byte("p"))
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	b, err := hashMessage(PoseidonHasher, []byte("h"), []byte("p"))
	if err != nil {
		t.Fatalf("hashMessage: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("nil hasher must default to poseidon")
	}
}

func TestHashMessage_HasherFailure(t *testing.T) {
	failing := Hasher(func(message []byte) (*big.Int, error) {
		return nil, errors.New("hasher broken")
	})
	_, err := hashMessage(failing, []byte("h"), []byte("p"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if RuleID(err) != RuleHashFailed {
		t.Fatalf("expected %s, got %s", RuleHashFailed, RuleID(err))
	}
	if !IsKind(err, KindHash) {
		t.Fatalf("expected KindHash, got %v", err)
	}
}

func TestSigningInput_Shape(t *testing.T) {
	got := signingInput([]byte("header"), []byte("payload"))
	// ASCII(base64url("header") + "." + base64url("payload"))
	want := "aGVhZGVy.cGF5bG9hZA"
	if string(got) != want {
		t.Fatalf("signing input mismatch: got %q want %q", got, want)
	}
}

func TestFieldBytesLE_Roundtrip(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(255),
		big.NewInt(256),
		new(big.Int).Lsh(big.NewInt(1), 200),
	}
	for _, n := range cases {
		b := fieldBytesLE(n)
		if len(b) != fieldByteLen {
			t.Fatalf("n=%s: expected %d bytes, got %d", n, fieldByteLen, len(b))
		}
		back := fieldIntLE(b)
		if back.Cmp(n) != 0 {
			t.Fatalf("roundtrip mismatch: %s -> %s", n, back)
		}
	}
}

func TestFieldBytesLE_ByteOrder(t *testing.T) {
	b := fieldBytesLE(big.NewInt(0x0102))
	if b[0] != 0x02 || b[1] != 0x01 {
		t.Fatalf("expected little-endian serialization, got % x", b[:4])
	}
	for _, rest := range b[2:] {
		if rest != 0 {
			t.Fatalf("expected zero padding in high bytes")
		}
	}
}
