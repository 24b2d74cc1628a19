package grpcprover

import "xdao.co/jwz/proving"

// proveRequest is the JSON envelope for the Prove RPC. Inputs are the
// prepared circuit inputs; key material stays on the server, loaded from its
// artifact store by circuit ID.
type proveRequest struct {
	Alg       string `json:"alg"`
	CircuitID string `json:"circuitId"`
	Inputs    []byte `json:"inputs"`
}

// verifyRequest is the JSON envelope for the Verify RPC.
type verifyRequest struct {
	Alg         string           `json:"alg"`
	CircuitID   string           `json:"circuitId"`
	MessageHash []byte           `json:"messageHash"`
	Proof       *proving.ZKProof `json:"proof"`
}
