package proving

import (
	"reflect"
	"testing"
)

type stubMethod struct {
	alg string
}

func (s *stubMethod) Alg() string       { return s.alg }
func (s *stubMethod) CircuitID() string { return "stub" }
func (s *stubMethod) Prove(inputs, provingKey, circuitProgram []byte) (*ZKProof, error) {
	return nil, nil
}
func (s *stubMethod) Verify(messageHash []byte, proof *ZKProof, verificationKey []byte) error {
	return nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	m := &stubMethod{alg: "groth16"}
	r.Register(m)

	got, ok := r.Method("groth16")
	if !ok {
		t.Fatalf("expected method for groth16")
	}
	if got != Method(m) {
		t.Fatalf("resolved a different method")
	}
	if _, ok := r.Method("plonk"); ok {
		t.Fatalf("expected no method for unregistered alg")
	}
}

func TestRegistry_ReplaceOnSameAlg(t *testing.T) {
	r := NewRegistry()
	first := &stubMethod{alg: "groth16"}
	second := &stubMethod{alg: "groth16"}
	r.Register(first)
	r.Register(second)

	got, ok := r.Method("groth16")
	if !ok || got != Method(second) {
		t.Fatalf("expected later registration to win")
	}
}

func TestRegistry_AlgsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubMethod{alg: "plonk"})
	r.Register(&stubMethod{alg: "groth16"})
	r.Register(&stubMethod{alg: "aurora"})

	want := []string{"aurora", "groth16", "plonk"}
	if got := r.Algs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Algs() = %v, want %v", got, want)
	}
}

func TestRegistry_NilRegistrationIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register(nil)
	if algs := r.Algs(); len(algs) != 0 {
		t.Fatalf("expected empty registry, got %v", algs)
	}
}

func TestRegistry_IsolatedFromDefault(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubMethod{alg: "isolated"})
	if _, ok := Default.Method("isolated"); ok {
		t.Fatalf("registration leaked into the default registry")
	}
}
