package jwz

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"xdao.co/jwz/proving"
)

// mockMethod is a deterministic stand-in proving method: its "proof" is the
// message hash echoed into the first public signal, and Verify checks that
// binding. It exercises the full token lifecycle without a real circuit.
type mockMethod struct {
	alg     string
	circuit string
	failed  bool
}

func (m *mockMethod) Alg() string       { return m.alg }
func (m *mockMethod) CircuitID() string { return m.circuit }

func (m *mockMethod) Prove(inputs, provingKey, circuitProgram []byte) (*proving.ZKProof, error) {
	if m.failed {
		return nil, errors.New("mock prover refused")
	}
	return &proving.ZKProof{
		Proof: &proving.ProofData{
			A:        []string{"1", "2", "1"},
			B:        [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
			C:        []string{"7", "8", "1"},
			Protocol: "mock",
		},
		PubSignals: []string{fieldIntLE(inputs).String()},
	}, nil
}

func (m *mockMethod) Verify(messageHash []byte, proof *proving.ZKProof, verificationKey []byte) error {
	if proof == nil || len(proof.PubSignals) == 0 {
		return errors.New("mock: no proof")
	}
	if proof.PubSignals[0] != fieldIntLE(messageHash).String() {
		return errors.New("mock: proof does not bind the message hash")
	}
	return nil
}

// hashPreparer passes the message hash through as circuit inputs.
var hashPreparer = proving.InputsPreparerFunc(func(messageHash []byte, circuitID string) ([]byte, error) {
	return messageHash, nil
})

func testRegistry(t *testing.T, methods ...proving.Method) *proving.Registry {
	t.Helper()
	r := proving.NewRegistry()
	for _, m := range methods {
		r.Register(m)
	}
	return r
}

func provenToken(t *testing.T) (*Token, string) {
	t.Helper()
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok := New(method, `{"claim":"value"}`, hashPreparer)
	compact, err := tok.Prove(nil, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	return tok, compact
}

func TestProveAndVerify(t *testing.T) {
	tok, compact := provenToken(t)
	if tok.ZkProof == nil {
		t.Fatalf("expected proof attached after Prove")
	}
	if strings.Count(compact, ".") != 2 {
		t.Fatalf("expected 3-segment compact form, got %q", compact)
	}
	if err := tok.Verify(nil); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProve_NoPreparer(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1", failed: true}
	tok := New(method, "payload", nil)
	_, err := tok.Prove(nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	// The preparer check fires before the method is ever invoked.
	if RuleID(err) != RulePrepareFunctionMissing {
		t.Fatalf("expected %s, got %s", RulePrepareFunctionMissing, RuleID(err))
	}
	if !IsKind(err, KindProving) {
		t.Fatalf("expected KindProving, got %v", err)
	}
}

func TestProve_MethodFailure(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1", failed: true}
	tok := New(method, "payload", hashPreparer)
	_, err := tok.Prove(nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if RuleID(err) != RuleProvingFailed {
		t.Fatalf("expected %s, got %s", RuleProvingFailed, RuleID(err))
	}
	if tok.ZkProof != nil {
		t.Fatalf("expected no proof state after failed Prove")
	}
}

func TestProve_MissingCriticalHeader(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok := New(method, "payload", hashPreparer)
	tok.SetHeader(HeaderCritical, []HeaderKey{HeaderCircuitID, "foo"})
	_, err := tok.Prove(nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if RuleID(err) != RuleCriticalHeaderMissing {
		t.Fatalf("expected %s, got %s", RuleCriticalHeaderMissing, RuleID(err))
	}
}

func TestCompactRoundtrip(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok, compact := provenToken(t)

	parsed, err := Parse(compact, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Alg != "m1" || parsed.CircuitID != "c1" {
		t.Fatalf("expected alg=m1 circuitId=c1, got %s/%s", parsed.Alg, parsed.CircuitID)
	}
	if parsed.Payload() != tok.Payload() {
		t.Fatalf("payload changed across roundtrip: %q", parsed.Payload())
	}
	if err := parsed.Verify(nil); err != nil {
		t.Fatalf("Verify after roundtrip: %v", err)
	}

	reserialized, err := parsed.CompactSerialize()
	if err != nil {
		t.Fatalf("CompactSerialize: %v", err)
	}
	if reserialized != compact {
		t.Fatalf("compact form not stable across roundtrip")
	}
}

func TestFullRoundtrip(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok, _ := provenToken(t)

	full, err := tok.FullSerialize()
	if err != nil {
		t.Fatalf("FullSerialize: %v", err)
	}

	// The full form is one JSON object with native fields.
	var obj struct {
		Payload   string                 `json:"payload"`
		Protected string                 `json:"protectedHeaders"`
		Header    map[string]interface{} `json:"header"`
		ZKP       json.RawMessage        `json:"zkp"`
	}
	if err := json.Unmarshal([]byte(full), &obj); err != nil {
		t.Fatalf("full form is not a JSON object: %v", err)
	}
	if obj.Payload != tok.Payload() {
		t.Fatalf("payload double-encoded or altered: %q", obj.Payload)
	}
	if obj.Header["typ"] != TypeJWZ {
		t.Fatalf("expected typ=JWZ, got %v", obj.Header["typ"])
	}
	if obj.Header["alg"] != "m1" || obj.Header["circuitId"] != "c1" {
		t.Fatalf("header alg/circuitId wrong: %v", obj.Header)
	}
	crit, ok := obj.Header["crit"].([]interface{})
	if !ok || len(crit) != 1 || crit[0] != "circuitId" {
		t.Fatalf("expected crit=[circuitId], got %v", obj.Header["crit"])
	}

	parsed, err := Parse(full, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse full: %v", err)
	}
	if err := parsed.Verify(nil); err != nil {
		t.Fatalf("Verify after full roundtrip: %v", err)
	}
	compact, err := parsed.CompactSerialize()
	if err != nil {
		t.Fatalf("CompactSerialize after full parse: %v", err)
	}
	want, err := tok.CompactSerialize()
	if err != nil {
		t.Fatalf("CompactSerialize original: %v", err)
	}
	if compact != want {
		t.Fatalf("full and compact forms disagree on the same token")
	}
}

func TestCustomHeaderSurvivesRoundtrip(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok := New(method, "payload", hashPreparer)
	tok.SetHeader("kid", "issuer-7")
	compact, err := tok.Prove(nil, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	parsed, err := Parse(compact, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Headers()["kid"] != "issuer-7" {
		t.Fatalf("expected kid header to survive, got %v", parsed.Headers()["kid"])
	}
}

func TestVerify_HeaderMutationInvalidatesProof(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	_, compact := provenToken(t)

	parsed, err := Parse(compact, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Re-encode the protected segment with an extra header. The parsed
	// proof no longer binds the new signing input.
	segments := strings.Split(compact, ".")
	var hdr map[string]interface{}
	protected := mustDecodeSegment(t, segments[0])
	if err := json.Unmarshal(protected, &hdr); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	hdr["kid"] = "attacker"
	tampered, err := json.Marshal(hdr)
	if err != nil {
		t.Fatalf("re-encode header: %v", err)
	}
	forged := encodeSegment(tampered) + "." + segments[1] + "." + segments[2]

	forgedTok, err := Parse(forged, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse forged: %v", err)
	}
	if err := forgedTok.Verify(nil); err == nil {
		t.Fatalf("expected verification failure after header tampering")
	}
	if err := parsed.Verify(nil); err != nil {
		t.Fatalf("untampered token must still verify: %v", err)
	}
}

func TestVerify_PayloadMutationInvalidatesProof(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	_, compact := provenToken(t)

	segments := strings.Split(compact, ".")
	forged := segments[0] + "." + encodeSegment([]byte(`{"claim":"other"}`)) + "." + segments[2]

	tok, err := Parse(forged, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse forged: %v", err)
	}
	if err := tok.Verify(nil); err == nil {
		t.Fatalf("expected verification failure after payload swap")
	}
}

func TestCompactSerialize_Incomplete(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok := New(method, "payload", hashPreparer)
	_, err := tok.CompactSerialize()
	if err == nil {
		t.Fatalf("expected error before Prove")
	}
	if RuleID(err) != RuleSerializationIncomplete {
		t.Fatalf("expected %s, got %s", RuleSerializationIncomplete, RuleID(err))
	}
	if !IsKind(err, KindRender) {
		t.Fatalf("expected KindRender, got %v", err)
	}
	if _, err := tok.FullSerialize(); RuleID(err) != RuleSerializationIncomplete {
		t.Fatalf("expected %s from FullSerialize, got %v", RuleSerializationIncomplete, err)
	}
}

func TestCID_DeterministicOverCompactBytes(t *testing.T) {
	_, compact := provenToken(t)
	method := &mockMethod{alg: "m1", circuit: "c1"}
	parsed, err := Parse(compact, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	c1, err := parsed.CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	c2, err := parsed.CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("CID not deterministic: %s vs %s", c1, c2)
	}
	if !strings.HasPrefix(c1, "bafk") {
		t.Fatalf("expected CIDv1 raw+sha2-256 prefix, got %s", c1)
	}

	_, other := func() (*Token, string) {
		m := &mockMethod{alg: "m1", circuit: "c1"}
		tok := New(m, "different payload", hashPreparer)
		s, err := tok.Prove(nil, nil)
		if err != nil {
			t.Fatalf("Prove: %v", err)
		}
		return tok, s
	}()
	otherTok, err := Parse(other, WithMethods(testRegistry(t, method)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c3, err := otherTok.CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if c3 == c1 {
		t.Fatalf("distinct tokens must not share a CID")
	}
}

func TestMessageHash_FixedWidth(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok := New(method, "payload", hashPreparer)
	h, err := tok.MessageHash()
	if err != nil {
		t.Fatalf("MessageHash: %v", err)
	}
	if len(h) != 32 {
		t.Fatalf("expected 32-byte hash, got %d", len(h))
	}
}

func TestMessageHash_StableBeforeAndAfterProve(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	tok := New(method, "payload", hashPreparer)
	before, err := tok.MessageHash()
	if err != nil {
		t.Fatalf("MessageHash: %v", err)
	}
	if _, err := tok.Prove(nil, nil); err != nil {
		t.Fatalf("Prove: %v", err)
	}
	after, err := tok.MessageHash()
	if err != nil {
		t.Fatalf("MessageHash: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("message hash changed across Prove with unchanged headers")
	}
}

func TestWithTokenHasher(t *testing.T) {
	method := &mockMethod{alg: "m1", circuit: "c1"}
	calls := 0
	h := Hasher(func(message []byte) (*big.Int, error) {
		calls++
		return PoseidonHasher(message)
	})
	tok := New(method, "payload", hashPreparer, WithTokenHasher(h))
	if _, err := tok.MessageHash(); err != nil {
		t.Fatalf("MessageHash: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected custom hasher to be used, calls=%d", calls)
	}
}

func mustDecodeSegment(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}
	return b
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
