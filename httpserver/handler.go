package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docvault/document-escrow-backend/escrow"
	"github.com/docvault/document-escrow-backend/interfaces"
	"github.com/docvault/document-escrow-backend/metrics"
)

// maxBodySize is the maximum allowed request body size (16MB), sized for
// base64-encoded documents.
const maxBodySize = 16 * 1024 * 1024

// Handler translates HTTP requests into escrow orchestrator operations.
type Handler struct {
	service *escrow.Service
	log     *slog.Logger
}

// NewHandler creates an HTTP request handler around the orchestrator.
func NewHandler(service *escrow.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// HandleCreate places a document in escrow.
//
// URL format: POST /api/escrows
// Request body: JSON escrow.CreateRequest, document bytes base64-encoded.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req escrow.CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.DocumentType.Valid() {
		http.Error(w, "unknown document type", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" || req.SubjectID == "" {
		http.Error(w, "tenant_id and subject_id are required", http.StatusBadRequest)
		return
	}
	if len(req.Document) == 0 {
		http.Error(w, "document must not be empty", http.StatusBadRequest)
		return
	}
	if req.EmployeeKey.KeyID == "" || req.EmployerKey.KeyID == "" {
		http.Error(w, "signing keys for both parties are required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.serviceError(w, "create", err)
		return
	}

	if result.Success {
		metrics.EscrowsCreated.Inc()
	}
	h.writeResult(w, result.Success, result.Message, result)
}

// HandleSign collects one party's signature over the escrowed document.
//
// URL format: POST /api/escrows/{escrow_id}/sign
// Request body: JSON with the signing key handed out at creation.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	var req escrow.SignRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.EscrowID = interfaces.EscrowID(chi.URLParam(r, "escrow_id"))

	result, err := h.service.Sign(&req)
	if err != nil {
		h.serviceError(w, "sign", err)
		return
	}

	if result.Success {
		metrics.EscrowsSigned.Inc()
	}
	h.writeResult(w, result.Success, result.Message, result)
}

// HandleRelease releases a fully signed escrow with both parties' consent.
//
// URL format: POST /api/escrows/{escrow_id}/release
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	var req escrow.ReleaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.EscrowID = interfaces.EscrowID(chi.URLParam(r, "escrow_id"))

	result, err := h.service.Release(&req)
	if err != nil {
		h.serviceError(w, "release", err)
		return
	}

	if result.Success {
		metrics.EscrowsReleased.Inc()
	}
	h.writeResult(w, result.Success, result.Message, result)
}

// HandleReconstruct recovers the document from both parties' secret shares.
//
// URL format: POST /api/escrows/{escrow_id}/reconstruct
func (h *Handler) HandleReconstruct(w http.ResponseWriter, r *http.Request) {
	var req escrow.ReconstructRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.EscrowID = interfaces.EscrowID(chi.URLParam(r, "escrow_id"))

	result, err := h.service.Reconstruct(r.Context(), &req)
	if err != nil {
		h.serviceError(w, "reconstruct", err)
		return
	}

	if result.Success {
		metrics.EscrowsReconstructed.Inc()
	}
	h.writeResult(w, result.Success, result.Message, result)
}

// closeRequest carries the actor and reason for dispute and expiry.
type closeRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

// HandleDispute freezes an escrow pending external resolution.
//
// URL format: POST /api/escrows/{escrow_id}/dispute
func (h *Handler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Dispute(interfaces.EscrowID(chi.URLParam(r, "escrow_id")), req.ActorID, req.Reason)
	if err != nil {
		h.serviceError(w, "dispute", err)
		return
	}
	h.writeResult(w, result.Success, result.Message, result)
}

// HandleExpire retires an escrow whose retention window has passed.
//
// URL format: POST /api/escrows/{escrow_id}/expire
func (h *Handler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Expire(interfaces.EscrowID(chi.URLParam(r, "escrow_id")), req.ActorID, req.Reason)
	if err != nil {
		h.serviceError(w, "expire", err)
		return
	}
	h.writeResult(w, result.Success, result.Message, result)
}

// HandleAuditExport stores a content-addressed export of the audit trail.
//
// URL format: POST /api/escrows/{escrow_id}/audit/export
func (h *Handler) HandleAuditExport(w http.ResponseWriter, r *http.Request) {
	id := interfaces.EscrowID(chi.URLParam(r, "escrow_id"))

	result, err := h.service.ExportAuditTrail(r.Context(), id)
	if err != nil {
		h.serviceError(w, "audit export", err)
		return
	}

	h.writeResult(w, result.Success, result.Message, result)
}

// HandleGet returns a snapshot of one escrow record.
//
// URL format: GET /api/escrows/{escrow_id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := interfaces.EscrowID(chi.URLParam(r, "escrow_id"))

	record, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, interfaces.ErrEscrowNotFound) {
			http.Error(w, "escrow not found", http.StatusNotFound)
			return
		}
		h.serviceError(w, "get", err)
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// HandleListByTenant lists all escrows classified under a tenant.
//
// URL format: GET /api/tenants/{tenant_id}/escrows
func (h *Handler) HandleListByTenant(w http.ResponseWriter, r *http.Request) {
	records := h.service.ListByTenant(chi.URLParam(r, "tenant_id"))
	h.writeJSON(w, http.StatusOK, listResponse{Escrows: records, Count: len(records)})
}

// HandleListBySubject lists all escrows whose document owner is the subject.
//
// URL format: GET /api/subjects/{subject_id}/escrows
func (h *Handler) HandleListBySubject(w http.ResponseWriter, r *http.Request) {
	records := h.service.ListBySubject(chi.URLParam(r, "subject_id"))
	h.writeJSON(w, http.StatusOK, listResponse{Escrows: records, Count: len(records)})
}

type listResponse struct {
	Escrows []*interfaces.Escrow `json:"escrows"`
	Count   int                  `json:"count"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		h.log.Debug("Failed to decode request body", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeResult maps an orchestrator result onto an HTTP status: success is
// 200, an unknown record is 404, and any other expected failure is 409.
func (h *Handler) writeResult(w http.ResponseWriter, success bool, message string, v any) {
	status := http.StatusOK
	if !success {
		if message == "escrow not found" {
			status = http.StatusNotFound
		} else {
			status = http.StatusConflict
		}
	}
	h.writeJSON(w, status, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) serviceError(w http.ResponseWriter, operation string, err error) {
	metrics.OperationFailures.Inc()
	h.log.Error("Escrow operation failed", "operation", operation, "err", err)

	if errors.Is(err, interfaces.ErrEmptyDocument) || errors.Is(err, interfaces.ErrMalformedKey) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
