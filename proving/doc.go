// Package proving defines the proving-method capability used by JWZ tokens.
//
// A Method produces and checks zero-knowledge proofs for one circuit. Methods
// are identified by their alg string and resolved through a Registry; the
// registry is an explicit object so multiple registries (e.g. per test) can
// coexist.
package proving
