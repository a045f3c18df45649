// Package secretshare splits custodial key material between the two escrow
// parties with Shamir secret sharing at a fixed 2-of-2 threshold.
//
// Splitter produces exactly two shares: index 1 held by the EMPLOYEE, index
// 2 held by the EMPLOYER. Each share carries a SHA-256 proof digest of its
// value, letting the orchestrator check a presented share against the
// original split before attempting reconstruction. Neither share alone
// reveals anything about the secret; both are required to combine.
package secretshare
