// Package interfaces defines the core types and contracts for the document
// escrow system, separating interface definitions from implementations.
//
// The package provides the contracts between the escrow orchestrator and its
// collaborators:
//
// # Cryptographic Contracts
//
// SignatureEngine: produces, aggregates, and verifies per-party signatures
// over a shared message so that a single compact aggregate proves both
// parties attested to the same content.
//
// EnvelopeService: asymmetric envelope encryption of a document for a
// custodial public key, returning the structured envelope fields
// (ciphertext, encapsulated key, nonce, authentication tag, algorithm).
//
// SecretSplitter: fixed 2-of-2 threshold splitting of the custodial key
// material into holder-tagged shares, and recombination of both shares.
//
// CommitmentScheme: binds a document to a public commitment value without
// revealing the content, and verifies a revealed document against it.
//
// # Storage Contracts
//
// EscrowRepository: keyed store of escrow record snapshots with
// list-by-tenant and list-by-subject queries and a test-only purge.
//
// StorageBackend: content-addressed storage for envelope ciphertexts and
// audit trail exports across multiple backend types (memory, file, S3,
// IPFS, Vault).
//
// # Domain Model
//
// Escrow is the aggregate root: classification, payload metadata, the
// encrypted envelope, both secret shares, the commitment, the accumulated
// signatures, the state-machine status, and the append-only audit trail.
// All enumerations (PartyRole, DocumentType, EscrowStatus, AuditAction) are
// closed sets validated at the boundary.
package interfaces
