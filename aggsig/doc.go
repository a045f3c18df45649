// Package aggsig implements the aggregate signature engine on BLS12-381.
//
// Public keys live in G1 (48 bytes compressed), signatures in G2 (96 bytes
// compressed), secret keys are 32-byte scalars. Signing is deterministic in
// (message, key), so re-signing the same message yields identical bytes.
// Aggregation is point addition and therefore order-independent: any
// permutation of the same signature set produces the same aggregate value,
// which lets verifiers recompute and compare.
//
// The engine is stateless. Verification is a public relation over the
// signature, the message, and the signer's public key; no private lookup
// table is involved. All verification failures are boolean outcomes;
// structural misuse of the aggregation API is an error.
package aggsig
