// Package groth16 provides a JWZ proving method backed by gnark's BN254
// groth16 backend.
//
// Artifact byte formats are gnark's binary serializations: provingKey and
// verificationKey as written by the key types' WriteTo, circuitProgram as a
// compiled constraint system. Prepared inputs are a gnark binary full
// witness whose first public variable is the message-hash field element.
package groth16

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	fr_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"

	"xdao.co/jwz/proving"
)

// Alg is the proving-method identifier carried in token alg headers.
const Alg = "groth16"

const protocol = "groth16"

// Method proves and verifies BN254 groth16 statements for one circuit.
type Method struct {
	circuitID string
}

// New returns a method bound to circuitID.
func New(circuitID string) *Method {
	return &Method{circuitID: circuitID}
}

func (m *Method) Alg() string       { return Alg }
func (m *Method) CircuitID() string { return m.circuitID }

var _ proving.Method = (*Method)(nil)

// Prove runs the groth16 prover over the deserialized constraint system,
// proving key and witness, and renders the proof in the wire layout.
func (m *Method) Prove(inputs, provingKey, circuitProgram []byte) (*proving.ZKProof, error) {
	cs := groth16.NewCS(ecc.BN254)
	if _, err := cs.ReadFrom(bytes.NewReader(circuitProgram)); err != nil {
		return nil, fmt.Errorf("groth16: read constraint system: %w", err)
	}

	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(provingKey)); err != nil {
		return nil, fmt.Errorf("groth16: read proving key: %w", err)
	}

	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("groth16: new witness: %w", err)
	}
	if _, err := w.ReadFrom(bytes.NewReader(inputs)); err != nil {
		return nil, fmt.Errorf("groth16: decode witness inputs: %w", err)
	}

	proof, err := groth16.Prove(cs, pk, w)
	if err != nil {
		return nil, fmt.Errorf("groth16: prove: %w", err)
	}

	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("groth16: extract public witness: %w", err)
	}
	vector, ok := pub.Vector().(fr_bn254.Vector)
	if !ok {
		return nil, errors.New("groth16: public witness is not a bn254 vector")
	}
	signals := make([]string, len(vector))
	for i := range vector {
		signals[i] = vector[i].String()
	}

	data, err := proofData(proof)
	if err != nil {
		return nil, err
	}
	return &proving.ZKProof{Proof: data, PubSignals: signals}, nil
}

// Verify checks that the message hash is bound as the first public signal,
// then runs the groth16 verifier against the deserialized verification key.
func (m *Method) Verify(messageHash []byte, proof *proving.ZKProof, verificationKey []byte) error {
	if proof == nil || proof.Proof == nil {
		return errors.New("groth16: missing proof")
	}
	if proof.Proof.Protocol != protocol {
		return fmt.Errorf("groth16: unexpected protocol %q", proof.Proof.Protocol)
	}
	if len(proof.PubSignals) == 0 {
		return errors.New("groth16: proof has no public signals")
	}

	// First public signal carries the message hash the proof was made over.
	bound, ok := new(big.Int).SetString(proof.PubSignals[0], 10)
	if !ok {
		return fmt.Errorf("groth16: public signal %q is not an integer", proof.PubSignals[0])
	}
	if bound.Cmp(leInt(messageHash)) != 0 {
		return errors.New("groth16: message hash does not match proof public signal")
	}

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(verificationKey)); err != nil {
		return fmt.Errorf("groth16: read verification key: %w", err)
	}

	p, err := backendProof(proof.Proof)
	if err != nil {
		return err
	}

	pub, err := publicWitness(proof.PubSignals)
	if err != nil {
		return err
	}

	if err := groth16.Verify(p, vk, pub); err != nil {
		return fmt.Errorf("groth16: verify: %w", err)
	}
	return nil
}

// proofData renders a backend proof as decimal point strings.
func proofData(proof groth16.Proof) (*proving.ProofData, error) {
	p, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("groth16: unexpected proof type %T", proof)
	}
	if len(p.Commitments) > 0 {
		// The wire layout has no slot for commitments; circuits using
		// api.Commit are outside this method's contract.
		return nil, errors.New("groth16: committed circuits are not supported")
	}
	return &proving.ProofData{
		A: []string{p.Ar.X.String(), p.Ar.Y.String(), "1"},
		B: [][]string{
			{p.Bs.X.A0.String(), p.Bs.X.A1.String()},
			{p.Bs.Y.A0.String(), p.Bs.Y.A1.String()},
			{"1", "0"},
		},
		C:        []string{p.Krs.X.String(), p.Krs.Y.String(), "1"},
		Protocol: protocol,
	}, nil
}

// backendProof rebuilds a backend proof from decimal point strings.
func backendProof(data *proving.ProofData) (*groth16_bn254.Proof, error) {
	if len(data.A) < 2 || len(data.C) < 2 ||
		len(data.B) < 2 || len(data.B[0]) < 2 || len(data.B[1]) < 2 {
		return nil, errors.New("groth16: proof points have wrong shape")
	}

	var p groth16_bn254.Proof
	if err := setG1(&p.Ar, data.A[0], data.A[1]); err != nil {
		return nil, fmt.Errorf("groth16: pi_a: %w", err)
	}
	if err := setG2(&p.Bs, data.B[0][0], data.B[0][1], data.B[1][0], data.B[1][1]); err != nil {
		return nil, fmt.Errorf("groth16: pi_b: %w", err)
	}
	if err := setG1(&p.Krs, data.C[0], data.C[1]); err != nil {
		return nil, fmt.Errorf("groth16: pi_c: %w", err)
	}
	p.Commitments = []curve.G1Affine{}
	return &p, nil
}

func setG1(p *curve.G1Affine, x, y string) error {
	if _, err := p.X.SetString(x); err != nil {
		return err
	}
	if _, err := p.Y.SetString(y); err != nil {
		return err
	}
	return nil
}

func setG2(p *curve.G2Affine, xa0, xa1, ya0, ya1 string) error {
	if _, err := p.X.A0.SetString(xa0); err != nil {
		return err
	}
	if _, err := p.X.A1.SetString(xa1); err != nil {
		return err
	}
	if _, err := p.Y.A0.SetString(ya0); err != nil {
		return err
	}
	if _, err := p.Y.A1.SetString(ya1); err != nil {
		return err
	}
	return nil
}

// publicWitness rebuilds the verifier-side witness from public signals.
func publicWitness(signals []string) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("groth16: new witness: %w", err)
	}
	values := make(chan any, len(signals))
	for _, s := range signals {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			close(values)
			return nil, fmt.Errorf("groth16: public signal %q is not an integer", s)
		}
		values <- v
	}
	close(values)
	if err := w.Fill(len(signals), 0, values); err != nil {
		return nil, fmt.Errorf("groth16: fill public witness: %w", err)
	}
	return w, nil
}

// leInt reads little-endian field bytes as an integer.
func leInt(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}
