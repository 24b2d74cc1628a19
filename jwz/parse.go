package jwz

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"xdao.co/jwz/proving"
)

// ParseOption adjusts parsing behavior.
type ParseOption func(*parseOpts)

type parseOpts struct {
	methods *proving.Registry
	hasher  Hasher
}

// WithMethods selects the proving-method registry used to resolve the alg
// header. Defaults to proving.Default.
func WithMethods(r *proving.Registry) ParseOption {
	return func(o *parseOpts) {
		if r != nil {
			o.methods = r
		}
	}
}

// WithHasher selects the hash collaborator used for the message hash.
// Defaults to PoseidonHasher.
func WithHasher(h Hasher) ParseOption {
	return func(o *parseOpts) {
		if h != nil {
			o.hasher = h
		}
	}
}

// Parse parses a serialized token in either format and validates it.
//
// A trimmed input starting with '{' is treated as the full format; anything
// else as the compact format.
func Parse(token string, opts ...ParseOption) (*Token, error) {
	o := parseOpts{methods: proving.Default, hasher: PoseidonHasher}
	for _, opt := range opts {
		opt(&o)
	}

	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "{") {
		return parseFull(token, o)
	}
	return parseCompact(token, o)
}

// parseCompact parses the three-segment period-joined form. Each segment is
// unpadded base64url: protected headers, payload, proof, in that order.
func parseCompact(token string, o parseOpts) (*Token, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, newError(KindParse, RuleInvalidCompactSegments,
			fmt.Sprintf("compact token must have 3 segments, got %d", len(segments)))
	}

	protected, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		return nil, wrapError(KindParse, RuleSegmentEncoding, "protected headers segment is not base64url", err)
	}
	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return nil, wrapError(KindParse, RuleSegmentEncoding, "payload segment is not base64url", err)
	}
	zkp, err := base64.RawURLEncoding.DecodeString(segments[2])
	if err != nil {
		return nil, wrapError(KindParse, RuleSegmentEncoding, "proof segment is not base64url", err)
	}

	raw := rawToken{Payload: payload, Protected: protected, ZKP: zkp}
	return raw.sanitized(o.methods, o.hasher)
}

// parseFull parses the single-object form.
func parseFull(token string, o parseOpts) (*Token, error) {
	var full fullToken
	if err := json.Unmarshal([]byte(token), &full); err != nil {
		return nil, wrapError(KindParse, RuleFullFormEncoding, "full-form token is not a JWZ object", err)
	}

	raw := rawToken{
		Payload:   []byte(full.Payload),
		Protected: []byte(full.Protected),
		Header:    full.Header,
		ZKP:       full.ZKP,
	}
	return raw.sanitized(o.methods, o.hasher)
}
