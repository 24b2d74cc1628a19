// Package keys manages the signer keys used for circuit artifact manifests.
//
// Stable:
//   - Pure, deterministic primitives for signer-key formatting and
//     circuit-seed derivation.
//
// Experimental:
//   - Filesystem-backed seed storage (SignerStore). A local-first
//     convenience surface, not part of the long-term format contract.
package keys
