// Package common holds shared metadata and logging setup used by every
// binary in the escrow backend.
package common

// PackageName tags metrics and logs emitted by this service.
const PackageName = "document_escrow_backend"

// Version is set at build time via -ldflags.
var Version = "dev"
