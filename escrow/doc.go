// Package escrow implements the document escrow orchestrator and its state
// machine.
//
// The Service owns the lifecycle of a custodial document record: creation
// (seal, split, commit), two-party signature collection with aggregate
// verification, consent-gated release, and share-based reconstruction. Every
// state transition appends a hash-chained audit entry, so mutating or
// splicing any historical entry breaks every later link.
//
// # Concurrency
//
// Operations on different escrows proceed independently. Operations on the
// same escrow are serialized by a per-escrow mutex, and each operation works
// on a deep copy of the stored record, storing the new snapshot only on
// success. A failed operation leaves the stored record untouched.
//
// # Error classes
//
// Structural misuse (unknown document type, malformed keys, storage faults)
// returns Go errors. Expected negative outcomes (record not found, not ready
// for release, missing consent, failed verification) return structured
// results with Success=false and a distinguishing message, because callers
// branch on them in normal operation.
package escrow
