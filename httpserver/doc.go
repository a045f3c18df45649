// Package httpserver exposes the escrow orchestrator over a JSON HTTP API.
//
// One endpoint per orchestrator operation:
//
//	POST /api/escrows                        - Place a document in escrow
//	POST /api/escrows/{escrow_id}/sign       - Collect a party's signature
//	POST /api/escrows/{escrow_id}/release    - Consent-gated release
//	POST /api/escrows/{escrow_id}/reconstruct - Recover the document from shares
//	POST /api/escrows/{escrow_id}/dispute    - Freeze pending external resolution
//	POST /api/escrows/{escrow_id}/expire     - Retire after the retention window
//	POST /api/escrows/{escrow_id}/audit/export - Export the audit trail
//	GET  /api/escrows/{escrow_id}            - Fetch a record snapshot
//	GET  /api/tenants/{tenant_id}/escrows    - List a tenant's escrows
//	GET  /api/subjects/{subject_id}/escrows  - List a subject's escrows
//
// Plus the operational endpoints /livez, /readyz, /drain, /undrain, and an
// optional pprof mount under /debug.
//
// Expected negative outcomes (unknown record, wrong state, missing consent,
// failed verification) map to 404 or 409 with the orchestrator's structured
// result as the body; structural errors map to 400 or 500.
package httpserver
