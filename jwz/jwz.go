// Package jwz implements the JWZ token format: a JWS analogue whose
// integrity proof is a zero-knowledge proof instead of a signature.
//
// A token is three parts: a header mapping (typ, alg, circuitId, crit plus
// caller keys), a payload, and a proof. The bytes proved over are the
// canonical signing input base64url(protectedHeaders) + "." +
// base64url(payload), hashed to a field integer and serialized as 32
// little-endian bytes. Two serializations exist: compact (three period-joined
// base64url segments) and full (a single JSON object).
package jwz

import (
	"encoding/base64"
	"encoding/json"

	"xdao.co/jwz/cidutil"
	"xdao.co/jwz/proving"
)

// Token is the validated, working representation of a JWZ.
//
// Alg and CircuitID stay consistent with Method. The protected-header bytes
// are derived from the header mapping (at Prove time, or at parse) and are
// never hand-edited; ZkProof is nil until Prove succeeds or a parsed proof is
// attached. A Token must not be mutated concurrently with an in-flight Prove
// or Verify on the same instance.
type Token struct {
	ZkProof *proving.ZKProof

	Alg       string
	CircuitID string

	Method proving.Method

	raw      rawToken
	preparer proving.InputsPreparer
	hasher   Hasher
}

// TokenOption adjusts token construction.
type TokenOption func(*Token)

// WithTokenHasher overrides the hash collaborator for a built token.
func WithTokenHasher(h Hasher) TokenOption {
	return func(t *Token) {
		if h != nil {
			t.hasher = h
		}
	}
}

// New creates a token for the proving path: bound to method, carrying
// payload, with preparer mapping the message hash to circuit inputs.
//
// The header is initialized with typ, alg, circuitId and crit=["circuitId"].
func New(method proving.Method, payload string, preparer proving.InputsPreparer, opts ...TokenOption) *Token {
	t := &Token{
		Alg:       method.Alg(),
		CircuitID: method.CircuitID(),
		Method:    method,
		preparer:  preparer,
		hasher:    PoseidonHasher,
		raw: rawToken{
			Payload: []byte(payload),
			Header:  newHeaders(method.Alg(), method.CircuitID()),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Payload returns the token payload text.
func (t *Token) Payload() string {
	return string(t.raw.Payload)
}

// Headers returns the live header mapping. Entries added before Prove are
// frozen into the protected bytes; entries named in crit must exist.
func (t *Token) Headers() Headers {
	return t.raw.Header
}

// SetHeader sets a caller-supplied header entry. Call before Prove; headers
// changed after proving invalidate the proof.
func (t *Token) SetHeader(key HeaderKey, value interface{}) {
	t.raw.Header[key] = value
}

// protectedBytes returns the frozen protected-header bytes, deriving them
// from the live header mapping when they have not been frozen yet. The
// derivation is the only way protected bytes come to exist, so they cannot
// desynchronize from a header mapping other than by later mutation, which
// verification then rejects.
func (t *Token) protectedBytes() ([]byte, error) {
	if len(t.raw.Protected) > 0 {
		return t.raw.Protected, nil
	}
	return json.Marshal(t.raw.Header)
}

// MessageHash computes the canonical message hash from current header and
// payload state: 32 little-endian bytes of the hashed signing input.
func (t *Token) MessageHash() ([]byte, error) {
	protected, err := t.protectedBytes()
	if err != nil {
		return nil, wrapError(KindInternal, RuleHashFailed, "serialize protected headers", err)
	}
	return hashMessage(t.hasher, protected, t.raw.Payload)
}

// Prove freezes the headers, computes the message hash, prepares circuit
// inputs, generates the proof and returns the compact serialization.
//
// Failure at any step aborts the operation; no partial proof state remains
// observable.
func (t *Token) Prove(provingKey, circuitProgram []byte) (string, error) {
	if t.preparer == nil {
		return "", newError(KindProving, RulePrepareFunctionMissing, "no inputs preparer bound to token")
	}
	if err := t.raw.Header.checkCritical(); err != nil {
		return "", err
	}

	protected, err := json.Marshal(t.raw.Header)
	if err != nil {
		return "", wrapError(KindInternal, RuleProvingFailed, "serialize protected headers", err)
	}
	t.raw.Protected = protected

	hash, err := hashMessage(t.hasher, protected, t.raw.Payload)
	if err != nil {
		return "", err
	}

	inputs, err := t.preparer.Prepare(hash, t.CircuitID)
	if err != nil {
		return "", wrapError(KindProving, RuleProvingFailed, "prepare circuit inputs", err)
	}

	proof, err := t.Method.Prove(inputs, provingKey, circuitProgram)
	if err != nil {
		return "", wrapError(KindProving, RuleProvingFailed, "proving method failed", err)
	}

	zkp, err := json.Marshal(proof)
	if err != nil {
		return "", wrapError(KindInternal, RuleProvingFailed, "serialize proof", err)
	}
	t.ZkProof = proof
	t.raw.ZKP = zkp

	return t.CompactSerialize()
}

// Verify recomputes the message hash from current state and delegates to the
// proving method. The method's result is returned unchanged; nothing is
// cached.
func (t *Token) Verify(verificationKey []byte) error {
	hash, err := t.MessageHash()
	if err != nil {
		return err
	}
	return t.Method.Verify(hash, t.ZkProof, verificationKey)
}

// CompactSerialize renders the three-segment form. Header, protected bytes
// and proof must all be present.
func (t *Token) CompactSerialize() (string, error) {
	if t.raw.Header == nil || len(t.raw.Protected) == 0 || len(t.raw.ZKP) == 0 {
		return "", newError(KindRender, RuleSerializationIncomplete,
			"token must have header, protected headers and proof before compact serialization")
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(t.raw.Protected) + "." +
		enc.EncodeToString(t.raw.Payload) + "." +
		enc.EncodeToString(t.raw.ZKP), nil
}

// FullSerialize renders the single-object form with the raw fields in their
// native, non-doubly-encoded shape.
func (t *Token) FullSerialize() (string, error) {
	if t.raw.Header == nil || len(t.raw.Protected) == 0 || len(t.raw.ZKP) == 0 {
		return "", newError(KindRender, RuleSerializationIncomplete,
			"token must have header, protected headers and proof before full serialization")
	}
	out, err := json.Marshal(fullToken{
		Payload:   string(t.raw.Payload),
		Protected: string(t.raw.Protected),
		Header:    t.raw.Header,
		ZKP:       t.raw.ZKP,
	})
	if err != nil {
		return "", wrapError(KindInternal, RuleSerializationIncomplete, "serialize full form", err)
	}
	return string(out), nil
}

// CID returns a deterministic content identifier for the compact form: a
// CIDv1 (raw + sha2-256) over the canonical compact bytes.
func (t *Token) CID() (string, error) {
	compact, err := t.CompactSerialize()
	if err != nil {
		return "", err
	}
	return cidutil.CIDv1RawSHA256([]byte(compact)), nil
}
