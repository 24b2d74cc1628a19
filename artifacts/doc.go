// Package artifacts stores per-circuit proving artifacts on the local
// filesystem: proving key, verification key and compiled circuit program,
// guarded by a manifest of sha3-256 digests that may additionally be signed.
//
// The store does not compile circuits; it only holds and integrity-checks
// compiled artifacts.
package artifacts
