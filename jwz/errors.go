package jwz

import "errors"

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind/RuleID rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindParse      Kind = "Parse"
	KindValidation Kind = "Validation"
	KindRender     Kind = "Render"
	KindProving    Kind = "Proving"
	KindHash       Kind = "Hash"
	KindInternal   Kind = "Internal"
)

// Stable rule IDs. One ID per violated invariant; tests and callers key on
// these rather than on message text.
const (
	// RuleInvalidCompactSegments: compact input did not split into exactly 3 segments.
	RuleInvalidCompactSegments = "JWZ-PARSE-001"
	// RuleSegmentEncoding: a compact segment is not valid unpadded base64url.
	RuleSegmentEncoding = "JWZ-PARSE-002"
	// RuleFullFormEncoding: full-form input is not a valid JWZ JSON object.
	RuleFullFormEncoding = "JWZ-PARSE-003"
	// RuleHeaderEncoding: protected headers do not decode to a JSON object.
	RuleHeaderEncoding = "JWZ-PARSE-004"
	// RuleMalformedProof: zkp bytes do not decode to a proof object.
	RuleMalformedProof = "JWZ-PARSE-005"

	// RuleMissingPayload: raw token has an empty payload.
	RuleMissingPayload = "JWZ-VAL-001"
	// RuleMissingCriticalList: the crit header is absent or not a name list.
	RuleMissingCriticalList = "JWZ-VAL-002"
	// RuleCriticalHeaderMissing: a name listed in crit is absent from the header.
	RuleCriticalHeaderMissing = "JWZ-VAL-003"
	// RuleUnknownProvingMethod: no method registered for the alg header.
	RuleUnknownProvingMethod = "JWZ-VAL-004"
	// RuleInvalidType: the typ header is absent or not the JWZ literal.
	RuleInvalidType = "JWZ-VAL-005"
	// RuleMissingHeader: a required header (alg, circuitId) is absent or malformed.
	RuleMissingHeader = "JWZ-VAL-006"

	// RuleSerializationIncomplete: compact serialization attempted before
	// header, protected bytes and proof are all present.
	RuleSerializationIncomplete = "JWZ-RENDER-001"

	// RulePrepareFunctionMissing: Prove called without an inputs preparer.
	RulePrepareFunctionMissing = "JWZ-PROVE-001"
	// RuleProvingFailed: the proving method reported an error.
	RuleProvingFailed = "JWZ-PROVE-002"

	// RuleHashFailed: the hash collaborator reported an error.
	RuleHashFailed = "JWZ-HASH-001"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier naming the violated invariant or failed
// stage. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
