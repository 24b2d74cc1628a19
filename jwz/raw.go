package jwz

import (
	"encoding/json"
	"fmt"

	"xdao.co/jwz/proving"
)

// rawToken is the untrusted, structurally-parsed form of a token. It is
// constructed fresh per parse attempt and consumed exactly once by
// sanitized, which either fails or yields a Token.
type rawToken struct {
	Payload   []byte
	Protected []byte
	Header    Headers
	ZKP       json.RawMessage
}

// fullToken is the wire shape of the full serialization format: one JSON
// object exposing the raw fields directly, none of them double-encoded.
type fullToken struct {
	Payload   string          `json:"payload"`
	Protected string          `json:"protectedHeaders"`
	Header    Headers         `json:"header"`
	ZKP       json.RawMessage `json:"zkp"`
}

// sanitized validates the raw token and yields the working Token. Validation
// is all-or-nothing; any failure leaves no partial result.
func (raw *rawToken) sanitized(methods *proving.Registry, hasher Hasher) (*Token, error) {
	if len(raw.Payload) == 0 {
		return nil, newError(KindValidation, RuleMissingPayload, "token payload is empty")
	}

	var headers Headers
	if err := json.Unmarshal(raw.Protected, &headers); err != nil {
		return nil, wrapError(KindParse, RuleHeaderEncoding, "protected headers are not a JSON object", err)
	}
	raw.Header = headers

	if err := headers.checkCritical(); err != nil {
		return nil, err
	}
	alg, circuitID, err := headers.checkRequired()
	if err != nil {
		return nil, err
	}

	method, ok := methods.Method(alg)
	if !ok {
		return nil, newError(KindValidation, RuleUnknownProvingMethod,
			fmt.Sprintf("no proving method registered for alg %q", alg))
	}

	var proof proving.ZKProof
	if err := json.Unmarshal(raw.ZKP, &proof); err != nil {
		return nil, wrapError(KindParse, RuleMalformedProof, "zkp does not decode to a proof object", err)
	}

	return &Token{
		Alg:       alg,
		CircuitID: circuitID,
		Method:    method,
		ZkProof:   &proof,
		raw:       *raw,
		hasher:    hasher,
	}, nil
}
