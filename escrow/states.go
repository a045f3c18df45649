package escrow

import "github.com/docvault/document-escrow-backend/interfaces"

// canSign reports whether a signature may be collected in the given state.
// Re-signing in FULLY_SIGNED is allowed and replaces the earlier signature
// by the same role without regressing the state machine.
func canSign(status interfaces.EscrowStatus) bool {
	switch status {
	case interfaces.StatusCreated,
		interfaces.StatusPendingEmployeeSignature,
		interfaces.StatusPendingEmployerSignature,
		interfaces.StatusFullySigned:
		return true
	default:
		return false
	}
}

// canRelease reports whether the escrow is ready for release. Only a fully
// signed record is releasable.
func canRelease(status interfaces.EscrowStatus) bool {
	return status == interfaces.StatusFullySigned
}

// canReconstruct reports whether the document may be reconstructed. Both
// parties must have released the escrow first.
func canReconstruct(status interfaces.EscrowStatus) bool {
	return status == interfaces.StatusReleased
}

// canClose reports whether the escrow may still be moved to an
// administrative terminal state.
func canClose(status interfaces.EscrowStatus) bool {
	return !status.Terminal()
}

// statusAfterSign returns the state following a signature round. Both roles
// present means fully signed; otherwise the machine waits on the counterpart.
func statusAfterSign(agg *interfaces.AggregateSignature, signed interfaces.PartyRole) interfaces.EscrowStatus {
	if agg.Complete() {
		return interfaces.StatusFullySigned
	}
	return interfaces.PendingFor(signed.Other())
}
