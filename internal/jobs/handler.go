package jobs

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/servilocal/backend/internal/ledger"
	"github.com/servilocal/backend/internal/middleware"
	"github.com/servilocal/backend/internal/models"
	"github.com/servilocal/backend/internal/services"
)

// Handler serves the job lifecycle and posting endpoints. Auth happens in
// middleware; the handler only reads the provider from context.
type Handler struct {
	svc       Service
	validator *services.Validator
	log       *slog.Logger
}

func NewHandler(svc Service, validator *services.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type pagedEnvelope struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Total  int    `json:"total"`
	Page   int    `json:"page"`
	Pages  int    `json:"pages"`
	Data   any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: "success", Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "fail", Message: message})
}

// writeError maps the service error taxonomy to HTTP statuses: not-found
// kinds to 404, credit/validation kinds to 400, everything else 500.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		writeFail(w, http.StatusNotFound, "Job not found or cannot be updated")
	case errors.Is(err, ErrPostingNotFound):
		writeFail(w, http.StatusNotFound, "Job not found or cannot be updated")
	case errors.Is(err, ledger.ErrInsufficientCredits):
		writeFail(w, http.StatusBadRequest, "Insufficient credits. You need at least 50 credits to post a job.")
	case errors.Is(err, ErrValidation):
		writeFail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "internal error"})
	}
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

// PATCH /api/v1/jobs/{id}/accept
func (h *Handler) AcceptJob(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	jobID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found or cannot be updated")
		return
	}
	job, err := h.svc.Accept(r.Context(), jobID, provider.ID)
	if err != nil {
		h.writeError(w, "accept job", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job accepted successfully", job)
}

// PATCH /api/v1/jobs/{id}/complete
func (h *Handler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	jobID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found or cannot be updated")
		return
	}
	var req struct {
		ActualCost *int `json:"actual_cost"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	job, err := h.svc.Complete(r.Context(), jobID, provider.ID, req.ActualCost)
	if err != nil {
		h.writeError(w, "complete job", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job completed successfully", job)
}

// PATCH /api/v1/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	jobID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found or cannot be updated")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	job, err := h.svc.Cancel(r.Context(), jobID, provider.ID, req.Reason)
	if err != nil {
		h.writeError(w, "cancel job", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job cancelled successfully", job)
}

// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	jobID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found")
		return
	}
	job, err := h.svc.Get(r.Context(), jobID, provider.ID)
	if err != nil {
		h.writeError(w, "get job", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", job)
}

// GET /api/v1/jobs/pending?status=&limit=&page=
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	status, page, limit := listParams(r, models.JobStatusPending)
	items, pg, err := h.svc.ListByStatus(r.Context(), provider.ID, status, page, limit)
	if err != nil {
		h.writeError(w, "list jobs", err)
		return
	}
	if items == nil {
		items = []*models.Job{}
	}
	writeJSON(w, http.StatusOK, pagedEnvelope{
		Status: "success", Count: len(items), Total: pg.Total, Page: pg.Page, Pages: pg.Pages, Data: items,
	})
}

type postJobResponse struct {
	Job              *models.ProviderJob `json:"job"`
	CreditsRemaining int                 `json:"credits_remaining"`
}

// POST /api/v1/jobs/post
func (h *Handler) PostJob(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := h.validator.ValidatePostJob(body); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	var in PostJobInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	posting, remaining, err := h.svc.Post(r.Context(), provider.ID, in)
	if err != nil {
		h.writeError(w, "post job", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Job posted successfully", postJobResponse{Job: posting, CreditsRemaining: remaining})
}

// GET /api/v1/jobs/my-posted?status=&limit=&page=
func (h *Handler) ListPostings(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	status, page, limit := listParams(r, models.PostingStatusPending)
	items, pg, err := h.svc.ListPostingsByStatus(r.Context(), provider.ID, status, page, limit)
	if err != nil {
		h.writeError(w, "list postings", err)
		return
	}
	if items == nil {
		items = []*models.ProviderJob{}
	}
	writeJSON(w, http.StatusOK, pagedEnvelope{
		Status: "success", Count: len(items), Total: pg.Total, Page: pg.Page, Pages: pg.Pages, Data: items,
	})
}

// GET /api/v1/jobs/my-posted/{id}
func (h *Handler) GetPosting(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postingID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found")
		return
	}
	posting, err := h.svc.GetPosting(r.Context(), postingID, provider.ID)
	if err != nil {
		h.writeError(w, "get posting", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", posting)
}

// PATCH /api/v1/jobs/my-posted/{id}
func (h *Handler) UpdatePosting(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postingID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found or cannot be updated")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := h.validator.ValidateUpdatePosting(body); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	var in UpdatePostingInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	posting, err := h.svc.UpdatePosting(r.Context(), postingID, provider.ID, in)
	if err != nil {
		h.writeError(w, "update posting", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job updated successfully", posting)
}

// PATCH /api/v1/jobs/my-posted/{id}/cancel
func (h *Handler) CancelPosting(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postingID, ok := pathID(r)
	if !ok {
		writeFail(w, http.StatusNotFound, "Job not found or cannot be cancelled")
		return
	}
	posting, err := h.svc.CancelPosting(r.Context(), postingID, provider.ID)
	if err != nil {
		h.writeError(w, "cancel posting", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job cancelled successfully", posting)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func listParams(r *http.Request, defaultStatus string) (status string, page, limit int) {
	q := r.URL.Query()
	status = q.Get("status")
	if status == "" {
		status = defaultStatus
	}
	page, _ = strconv.Atoi(q.Get("page"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	return status, page, limit
}
