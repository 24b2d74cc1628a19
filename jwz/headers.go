package jwz

import (
	"fmt"
)

// HeaderKey names a JWZ header field.
type HeaderKey string

const (
	// HeaderType is the format literal header; always TypeJWZ.
	HeaderType HeaderKey = "typ"
	// HeaderAlg selects the proving method.
	HeaderAlg HeaderKey = "alg"
	// HeaderCircuitID identifies the proof circuit.
	HeaderCircuitID HeaderKey = "circuitId"
	// HeaderCritical lists header names that must be present in this header.
	HeaderCritical HeaderKey = "crit"
)

// TypeJWZ is the value of the typ header.
const TypeJWZ = "JWZ"

// Headers is the token header mapping. Beyond the required keys callers may
// add arbitrary entries; entries named in crit must exist.
type Headers map[HeaderKey]interface{}

func newHeaders(alg, circuitID string) Headers {
	return Headers{
		HeaderType:      TypeJWZ,
		HeaderAlg:       alg,
		HeaderCircuitID: circuitID,
		HeaderCritical:  []HeaderKey{HeaderCircuitID},
	}
}

func (h Headers) stringValue(key HeaderKey) (string, bool) {
	v, ok := h[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// criticalNames returns the crit list as header names. It fails when crit is
// absent or is not a list of strings; the format mandates the list.
func (h Headers) criticalNames() ([]HeaderKey, error) {
	v, ok := h[HeaderCritical]
	if !ok {
		return nil, newError(KindValidation, RuleMissingCriticalList, "crit header list is missing")
	}
	switch crit := v.(type) {
	case []HeaderKey:
		return crit, nil
	case []string:
		names := make([]HeaderKey, len(crit))
		for i, s := range crit {
			names[i] = HeaderKey(s)
		}
		return names, nil
	case []interface{}:
		names := make([]HeaderKey, len(crit))
		for i, e := range crit {
			s, ok := e.(string)
			if !ok {
				return nil, newError(KindValidation, RuleMissingCriticalList,
					fmt.Sprintf("crit entry %d is not a header name", i))
			}
			names[i] = HeaderKey(s)
		}
		return names, nil
	default:
		return nil, newError(KindValidation, RuleMissingCriticalList, "crit header is not a name list")
	}
}

// checkCritical enforces the crit completeness invariant: every listed name
// must exist as a header key.
func (h Headers) checkCritical() error {
	names, err := h.criticalNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := h[name]; !ok {
			return newError(KindValidation, RuleCriticalHeaderMissing,
				fmt.Sprintf("critical header %q is missing", string(name)))
		}
	}
	return nil
}

// checkRequired validates the fixed header surface: typ literal plus string
// alg and circuitId. It returns the alg and circuitId values.
func (h Headers) checkRequired() (alg, circuitID string, err error) {
	typ, ok := h.stringValue(HeaderType)
	if !ok || typ != TypeJWZ {
		return "", "", newError(KindValidation, RuleInvalidType,
			fmt.Sprintf("typ header must be %q", TypeJWZ))
	}
	alg, ok = h.stringValue(HeaderAlg)
	if !ok || alg == "" {
		return "", "", newError(KindValidation, RuleMissingHeader, "alg header is missing")
	}
	circuitID, ok = h.stringValue(HeaderCircuitID)
	if !ok || circuitID == "" {
		return "", "", newError(KindValidation, RuleMissingHeader, "circuitId header is missing")
	}
	return alg, circuitID, nil
}
