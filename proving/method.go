package proving

import "encoding/json"

// ProofData holds the groth16 proof points as decimal strings, in the
// layout proof JSON uses on the wire.
type ProofData struct {
	A        []string   `json:"pi_a"`
	B        [][]string `json:"pi_b"`
	C        []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
}

// ZKProof is the proof object carried in a token's zkp field: the proof
// itself plus the circuit's public signals.
type ZKProof struct {
	Proof      *ProofData `json:"proof"`
	PubSignals []string   `json:"pub_signals"`
}

// MarshalJSON keeps the wire form stable for serialized tokens.
func (p *ZKProof) MarshalJSON() ([]byte, error) {
	type alias ZKProof
	return json.Marshal((*alias)(p))
}

// Method produces and checks zero-knowledge proofs for one circuit.
//
// provingKey, verificationKey and circuitProgram are opaque artifact bytes;
// their format is a contract of the concrete method (see proving/groth16).
type Method interface {
	// Alg returns the method identifier used in the token alg header.
	Alg() string

	// CircuitID returns the identifier of the circuit this method is bound to.
	CircuitID() string

	// Prove generates a proof from prepared inputs.
	Prove(inputs, provingKey, circuitProgram []byte) (*ZKProof, error)

	// Verify checks proof against messageHash. A nil return means the proof
	// is valid for the hash.
	Verify(messageHash []byte, proof *ZKProof, verificationKey []byte) error
}

// InputsPreparer maps a message hash to the circuit-specific proof inputs
// consumed by Method.Prove. Implementations must be pure.
type InputsPreparer interface {
	Prepare(messageHash []byte, circuitID string) ([]byte, error)
}

// InputsPreparerFunc adapts a function to the InputsPreparer interface.
type InputsPreparerFunc func(messageHash []byte, circuitID string) ([]byte, error)

func (f InputsPreparerFunc) Prepare(messageHash []byte, circuitID string) ([]byte, error) {
	return f(messageHash, circuitID)
}
