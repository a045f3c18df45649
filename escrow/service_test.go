package escrow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/docvault/document-escrow-backend/aggsig"
	"github.com/docvault/document-escrow-backend/cryptoutils"
	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/docvault/document-escrow-backend/secretshare"
	"github.com/docvault/document-escrow-backend/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryBackend) {
	t.Helper()

	blobs := storage.NewMemoryBackend()
	return newTestServiceWith(t, storage.NewRepository(), blobs), blobs
}

func newTestServiceWith(t *testing.T, repo interfaces.EscrowRepository, blobs interfaces.StorageBackend) *Service {
	t.Helper()

	service, err := NewService(&Config{
		Repository:  repo,
		Engine:      aggsig.NewEngine(),
		Envelopes:   cryptoutils.NewEnvelopeCipher(),
		Splitter:    secretshare.NewSplitter(),
		Commitments: cryptoutils.NewCommitter(),
		Blobs:       blobs,
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return service
}

// testEscrow bundles a created record with the private key halves the
// parties kept for themselves.
type testEscrow struct {
	*CreateResult
	EmployeeKey interfaces.SignerPrivateKey
	EmployerKey interfaces.SignerPrivateKey
}

func newPartyKey(t *testing.T, ownerID string, role interfaces.PartyRole) (interfaces.SignerPublicKey, interfaces.SignerPrivateKey) {
	t.Helper()

	pub, priv, err := aggsig.NewEngine().GenerateKeyPair(ownerID, role)
	require.NoError(t, err)
	return pub, priv
}

func createTestEscrow(t *testing.T, service *Service, document []byte) *testEscrow {
	t.Helper()

	employeePub, employeePriv := newPartyKey(t, "employee-42", interfaces.RoleEmployee)
	employerPub, employerPriv := newPartyKey(t, "acme-corp", interfaces.RoleEmployer)

	result, err := service.Create(context.Background(), &CreateRequest{
		TenantID:     "acme-corp",
		SubjectID:    "employee-42",
		RequestID:    "req-1",
		ActorID:      "acme-corp",
		DocumentType: interfaces.DocEmploymentContract,
		FileName:     "contract.pdf",
		MimeType:     "application/pdf",
		Document:     document,
		EmployeeKey:  employeePub,
		EmployerKey:  employerPub,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	return &testEscrow{CreateResult: result, EmployeeKey: employeePriv, EmployerKey: employerPriv}
}

func TestService_CreateInitialState(t *testing.T) {
	service, blobs := newTestService(t)
	document := []byte("employment contract body")

	created := createTestEscrow(t, service, document)
	record := created.Escrow

	assert.Equal(t, interfaces.StatusCreated, record.Status)
	assert.Equal(t, int64(len(document)), record.FileSize)
	assert.True(t, interfaces.ComputeID(document).Equal(record.Checksum))

	require.Len(t, record.AuditTrail, 1, "fresh escrow should have exactly one audit entry")
	assert.Equal(t, interfaces.ActionEscrowCreated, record.AuditTrail[0].Action)
	assert.Equal(t, -1, VerifyAuditTrail(record.AuditTrail))

	require.NotNil(t, record.Envelope)
	assert.Equal(t, cryptoutils.EnvelopeAlgorithm, record.Envelope.Algorithm)
	ciphertext, err := blobs.Fetch(context.Background(), record.Envelope.CiphertextID, interfaces.EnvelopeContent)
	require.NoError(t, err, "ciphertext body should be stored content-addressed")
	assert.Equal(t, record.Envelope.CiphertextSize, len(ciphertext))

	require.Len(t, record.Shares, 2, "custodial key should be split into exactly two shares")
	_, ok := record.ShareForRole(interfaces.RoleEmployee)
	assert.True(t, ok)
	_, ok = record.ShareForRole(interfaces.RoleEmployer)
	assert.True(t, ok)

	require.NotNil(t, record.Commitment)
	assert.NotEmpty(t, record.Commitment.Commitment)
}

func TestService_CreateRegistersSubmittedKeys(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))
	record := created.Escrow

	require.Len(t, record.Signers, 2, "both submitted public keys should be registered")
	assert.Equal(t, created.EmployeeKey.KeyID, record.Signers[interfaces.RoleEmployee].KeyID)
	assert.Equal(t, "employee-42", record.Signers[interfaces.RoleEmployee].OwnerID)
	assert.Equal(t, created.EmployerKey.KeyID, record.Signers[interfaces.RoleEmployer].KeyID)
	assert.Equal(t, "acme-corp", record.Signers[interfaces.RoleEmployer].OwnerID)

	// A fresh key pair that was never submitted at creation cannot sign,
	// so holding the create response alone does not let one actor complete
	// both attestations.
	_, outsiderPriv := newPartyKey(t, "employee-42", interfaces.RoleEmployee)
	result, err := service.Sign(&SignRequest{EscrowID: record.ID, Key: outsiderPriv})
	require.NoError(t, err)
	assert.False(t, result.Success, "unregistered key should be rejected")
	assert.Contains(t, result.Message, "registered at creation")
}

func TestService_CreateRejectsBadInput(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	employeePub, _ := newPartyKey(t, "s", interfaces.RoleEmployee)
	employerPub, _ := newPartyKey(t, "t", interfaces.RoleEmployer)

	_, err := service.Create(ctx, &CreateRequest{
		TenantID: "t", SubjectID: "s",
		DocumentType: interfaces.DocEmploymentContract,
		EmployeeKey: employeePub, EmployerKey: employerPub,
	})
	assert.ErrorIs(t, err, interfaces.ErrEmptyDocument, "empty document should be rejected")

	_, err = service.Create(ctx, &CreateRequest{
		TenantID: "t", SubjectID: "s",
		DocumentType: interfaces.DocumentType("TAX_RETURN"),
		Document:     []byte("doc"),
		EmployeeKey: employeePub, EmployerKey: employerPub,
	})
	assert.Error(t, err, "document type outside the closed set should be rejected")

	_, err = service.Create(ctx, &CreateRequest{
		DocumentType: interfaces.DocEmploymentContract,
		Document:     []byte("doc"),
		EmployeeKey: employeePub, EmployerKey: employerPub,
	})
	assert.Error(t, err, "missing tenant and subject should be rejected")

	_, err = service.Create(ctx, &CreateRequest{
		TenantID: "t", SubjectID: "s",
		DocumentType: interfaces.DocEmploymentContract,
		Document:     []byte("doc"),
		EmployeeKey: employerPub, EmployerKey: employerPub,
	})
	assert.ErrorIs(t, err, interfaces.ErrMalformedKey, "role-mismatched key should be rejected")

	_, err = service.Create(ctx, &CreateRequest{
		TenantID: "t", SubjectID: "s",
		DocumentType: interfaces.DocEmploymentContract,
		Document:     []byte("doc"),
		EmployeeKey:  employeePub,
	})
	assert.ErrorIs(t, err, interfaces.ErrMalformedKey, "missing employer key should be rejected")
}

func TestService_SigningFlow(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	signed, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	require.True(t, signed.Success, signed.Message)
	assert.Equal(t, interfaces.StatusPendingEmployerSignature, signed.Status,
		"after the employee signs, the machine waits on the employer")
	assert.Len(t, signed.Escrow.AuditTrail, 2)

	signed, err = service.Sign(&SignRequest{EscrowID: id, Key: created.EmployerKey})
	require.NoError(t, err)
	require.True(t, signed.Success, signed.Message)
	assert.Equal(t, interfaces.StatusFullySigned, signed.Status)

	record := signed.Escrow
	require.NotNil(t, record.Aggregate)
	assert.Len(t, record.Aggregate.Signatures, 2, "aggregate should hold one signature per role")
	assert.True(t, record.Aggregate.Verified, "completed aggregate should be verified")
	assert.Len(t, record.AuditTrail, 3)
	assert.Equal(t, -1, VerifyAuditTrail(record.AuditTrail))
}

func TestService_ResignReplacesPreviousSignature(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	first, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	require.True(t, second.Success)

	record := second.Escrow
	assert.Equal(t, interfaces.StatusPendingEmployerSignature, record.Status,
		"re-signing must not regress the state machine")
	assert.Len(t, record.Aggregate.Signatures, 1, "repeat signature should replace, not accumulate")
	assert.Len(t, record.AuditTrail, 3, "each signature round should still be audited")
	assert.Equal(t, interfaces.ActionSignedByEmployee, record.AuditTrail[1].Action)
	assert.Equal(t, interfaces.ActionSignedByEmployee, record.AuditTrail[2].Action)
}

func TestService_SignRejectsUnknownKey(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))

	forged := created.EmployeeKey
	forged.KeyID = "someone-elses-key"
	result, err := service.Sign(&SignRequest{EscrowID: created.Escrow.ID, Key: forged})
	require.NoError(t, err)
	assert.False(t, result.Success, "a key not registered at creation must be rejected")

	missing, err := service.Sign(&SignRequest{EscrowID: "no-such-escrow", Key: created.EmployeeKey})
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.Equal(t, "escrow not found", missing.Message)
}

func TestService_ConsentGating(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	// Missing consent is reported before the state gate, even on an
	// unsigned escrow.
	result, err := service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: false, EmployerConsent: true,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "missing consent from EMPLOYEE")

	// Unsigned escrow is never releasable, even with both consents.
	result, err = service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: true, EmployerConsent: true,
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "release of an unsigned escrow should fail")
	assert.Contains(t, result.Message, "not ready for release")

	_, err = service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	_, err = service.Sign(&SignRequest{EscrowID: id, Key: created.EmployerKey})
	require.NoError(t, err)

	result, err = service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: false, EmployerConsent: true,
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "missing employee consent should block release")
	assert.Contains(t, result.Message, "EMPLOYEE")

	result, err = service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: true, EmployerConsent: false,
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "missing employer consent should block release")

	result, err = service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: true, EmployerConsent: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Success, result.Message)
	assert.Equal(t, interfaces.StatusReleased, result.Status)
	require.NotNil(t, result.Escrow.ReleasedAt)
}

func TestService_EndToEndScenario(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	document := []byte("forty-five byte employment contract payload!!")
	require.Len(t, document, 45)

	created := createTestEscrow(t, service, document)
	id := created.Escrow.ID

	_, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	signed, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployerKey})
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusFullySigned, signed.Status)
	assert.Len(t, signed.Escrow.AuditTrail, 3)

	released, err := service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		Reason:          "contract term completed",
		EmployeeConsent: true, EmployerConsent: true,
	})
	require.NoError(t, err)
	require.True(t, released.Success, released.Message)
	assert.Len(t, released.Escrow.AuditTrail, 4)
	assert.Contains(t, released.Escrow.AuditTrail[3].Details, "contract term completed",
		"the release reason should land in the audit trail")

	employeeShare, _ := released.Escrow.ShareForRole(interfaces.RoleEmployee)
	employerShare, _ := released.Escrow.ShareForRole(interfaces.RoleEmployer)

	reconstructed, err := service.Reconstruct(ctx, &ReconstructRequest{
		EscrowID: id, ActorID: "employee-42",
		Purpose:       "wage dispute arbitration",
		EmployeeShare: employeeShare,
		EmployerShare: employerShare,
	})
	require.NoError(t, err)
	require.True(t, reconstructed.Success, reconstructed.Message)
	assert.Equal(t, interfaces.StatusReconstructed, reconstructed.Status)
	assert.Equal(t, document, reconstructed.Document, "decrypted bytes should equal the original document")
	assert.True(t, reconstructed.ChecksumMatch)
	assert.True(t, reconstructed.CommitmentVerified)
	assert.True(t, reconstructed.SignatureValid)

	record, err := service.Get(id)
	require.NoError(t, err)
	require.Len(t, record.AuditTrail, 5)
	require.NotNil(t, record.ReconstructedAt)
	assert.Contains(t, record.AuditTrail[4].Details, "purpose=wage dispute arbitration",
		"the reconstruction purpose should land in the audit trail")

	wantActions := []interfaces.AuditAction{
		interfaces.ActionEscrowCreated,
		interfaces.ActionSignedByEmployee,
		interfaces.ActionSignedByEmployer,
		interfaces.ActionEscrowReleased,
		interfaces.ActionDocumentReconstructed,
	}
	for i, want := range wantActions {
		assert.Equal(t, want, record.AuditTrail[i].Action)
	}
	assert.Equal(t, -1, VerifyAuditTrail(record.AuditTrail))
}

func TestService_ReconstructGating(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	employeeShare, _ := created.Escrow.ShareForRole(interfaces.RoleEmployee)
	employerShare, _ := created.Escrow.ShareForRole(interfaces.RoleEmployer)

	// Not released yet.
	result, err := service.Reconstruct(ctx, &ReconstructRequest{
		EscrowID: id, ActorID: "employee-42",
		EmployeeShare: employeeShare, EmployerShare: employerShare,
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "reconstruction before release should fail")

	_, err = service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	_, err = service.Sign(&SignRequest{EscrowID: id, Key: created.EmployerKey})
	require.NoError(t, err)
	_, err = service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: true, EmployerConsent: true,
	})
	require.NoError(t, err)

	// A tampered share fails against the recorded split.
	tampered := employeeShare
	tampered.Value = append([]byte(nil), employeeShare.Value...)
	tampered.Value[0] ^= 0xff
	result, err = service.Reconstruct(ctx, &ReconstructRequest{
		EscrowID: id, ActorID: "employee-42",
		EmployeeShare: tampered, EmployerShare: employerShare,
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "tampered share should be rejected")

	result, err = service.Reconstruct(ctx, &ReconstructRequest{
		EscrowID: id, ActorID: "employee-42",
		EmployeeShare: employeeShare, EmployerShare: employerShare,
	})
	require.NoError(t, err)
	assert.True(t, result.Success, result.Message)

	// Terminal state: no second reconstruction.
	result, err = service.Reconstruct(ctx, &ReconstructRequest{
		EscrowID: id, ActorID: "employee-42",
		EmployeeShare: employeeShare, EmployerShare: employerShare,
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "reconstruction from a terminal state should fail")
}

func TestService_ReconstructMissingCiphertext(t *testing.T) {
	repo := storage.NewRepository()
	ctx := context.Background()

	service := newTestServiceWith(t, repo, storage.NewMemoryBackend())
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	_, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	_, err = service.Sign(&SignRequest{EscrowID: id, Key: created.EmployerKey})
	require.NoError(t, err)
	released, err := service.Release(&ReleaseRequest{
		EscrowID: id, ActorID: "acme-corp",
		EmployeeConsent: true, EmployerConsent: true,
	})
	require.NoError(t, err)
	require.True(t, released.Success)

	// Same records, but a blob store that never received the ciphertext.
	detached := newTestServiceWith(t, repo, storage.NewMemoryBackend())

	employeeShare, _ := created.Escrow.ShareForRole(interfaces.RoleEmployee)
	employerShare, _ := created.Escrow.ShareForRole(interfaces.RoleEmployer)
	result, err := detached.Reconstruct(ctx, &ReconstructRequest{
		EscrowID: id, ActorID: "employee-42",
		EmployeeShare: employeeShare, EmployerShare: employerShare,
	})
	require.NoError(t, err, "a missing ciphertext body is an expected failure, not an error")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "missing from storage")
	assert.False(t, result.ChecksumMatch)
	assert.False(t, result.CommitmentVerified)
	assert.False(t, result.SignatureValid)

	record, err := detached.Get(id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusReleased, record.Status, "failed reconstruction must not change state")
}

func TestService_DisputeAndExpire(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	disputed, err := service.Dispute(id, "employee-42", "signature obtained under duress")
	require.NoError(t, err)
	require.True(t, disputed.Success)
	assert.Equal(t, interfaces.StatusDisputed, disputed.Status)

	// Terminal states accept no further transitions.
	again, err := service.Expire(id, "scheduler", "ttl elapsed")
	require.NoError(t, err)
	assert.False(t, again.Success)

	signResult, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)
	assert.False(t, signResult.Success, "disputed escrow should not accept signatures")

	record, err := service.Get(id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ActionEscrowDisputed, record.LastAction())

	other := createTestEscrow(t, service, []byte("another contract"))
	expired, err := service.Expire(other.Escrow.ID, "scheduler", "ttl elapsed")
	require.NoError(t, err)
	require.True(t, expired.Success)
	assert.Equal(t, interfaces.StatusExpired, expired.Status)
}

func TestService_ExportAuditTrail(t *testing.T) {
	service, blobs := newTestService(t)
	ctx := context.Background()
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	_, err := service.Sign(&SignRequest{EscrowID: id, Key: created.EmployeeKey})
	require.NoError(t, err)

	export, err := service.ExportAuditTrail(ctx, id)
	require.NoError(t, err)
	require.True(t, export.Success, export.Message)
	assert.Equal(t, 2, export.EntryCount)

	payload, err := blobs.Fetch(ctx, export.ContentID, interfaces.AuditExportContent)
	require.NoError(t, err, "export should land in the audit namespace")
	assert.Contains(t, string(payload), string(id))
	assert.Contains(t, string(payload), string(interfaces.ActionSignedByEmployee))

	missing, err := service.ExportAuditTrail(ctx, "no-such-escrow")
	require.NoError(t, err)
	assert.False(t, missing.Success)
}

func TestService_Queries(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))

	assert.Len(t, service.ListByTenant("acme-corp"), 1)
	assert.Empty(t, service.ListByTenant("other-corp"))
	assert.Len(t, service.ListBySubject("employee-42"), 1)

	_, err := service.Get("no-such-escrow")
	assert.ErrorIs(t, err, interfaces.ErrEscrowNotFound)

	got, err := service.Get(created.Escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Escrow.ID, got.ID)
}

func TestService_ConcurrentSigning(t *testing.T) {
	service, _ := newTestService(t)
	created := createTestEscrow(t, service, []byte("contract body"))
	id := created.Escrow.ID

	var wg sync.WaitGroup
	for _, key := range []interfaces.SignerPrivateKey{created.EmployeeKey, created.EmployerKey} {
		wg.Add(1)
		go func(key interfaces.SignerPrivateKey) {
			defer wg.Done()
			result, err := service.Sign(&SignRequest{EscrowID: id, Key: key})
			assert.NoError(t, err)
			assert.True(t, result.Success, result.Message)
		}(key)
	}
	wg.Wait()

	record, err := service.Get(id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusFullySigned, record.Status, "both concurrent signatures should land")
	require.NotNil(t, record.Aggregate)
	assert.Len(t, record.Aggregate.Signatures, 2)
	assert.Len(t, record.AuditTrail, 3)
}
