// Package storage provides the escrow record repository and the
// content-addressed blob backends holding envelope ciphertexts and audit
// trail exports.
//
// Blob content is addressed by its SHA-256 hash and namespaced by content
// type (envelope or audit). Backends are created from location URIs by
// StorageBackendFactory:
//
//	memory://                                    - In-process storage for tests
//	file:///var/lib/escrow/blobs                 - Local filesystem
//	s3://KEY:SECRET@bucket/prefix?region=eu-1    - Amazon S3 or compatible
//	ipfs://127.0.0.1:5001                        - IPFS node
//	vault://TOKEN@vault.example.com:8200/secret  - HashiCorp Vault KV v2
//
// CreateMultiBackend aggregates several backends into one redundant unit
// that stores to every available backend and fetches from the first that
// has the content.
//
// The Repository is an in-memory snapshot store: Get and Put exchange deep
// copies, so callers can freely mutate a working copy and commit it
// atomically with Put.
package storage
