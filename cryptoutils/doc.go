// Package cryptoutils provides the envelope encryption and commitment
// primitives consumed by the escrow orchestrator.
//
// # Envelope Encryption
//
// EnvelopeCipher implements Elliptic Curve Integrated Encryption Scheme
// with ECDH key agreement on P-256, SHA-256 key derivation, and AES-256-GCM
// authenticated encryption. A fresh ephemeral key is generated for each
// encryption operation; its public point is the encapsulated key carried in
// the sealed document alongside the nonce, the authentication tag, and the
// algorithm identifier.
//
// # Commitments
//
// Committer binds a document to a public commitment value:
//
//	commitment = SHA3-256(document || blinding)
//
// The 32-byte blinding factor is drawn from a cryptographically strong
// random source and retained in the commitment record so the holder can
// re-verify a revealed document locally. A record without a blinding factor
// is unverifiable by definition, not an error.
//
// # Custodial Keys
//
// GenerateCustodialKeyPair creates the per-escrow P-256 key pair whose
// public half seals the document and whose private half is immediately
// split between the parties and erased.
package cryptoutils
