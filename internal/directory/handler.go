package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/servilocal/backend/internal/middleware"
	"github.com/servilocal/backend/internal/models"
)

// ProviderStore is the directory's view of provider persistence.
type ProviderStore interface {
	List(ctx context.Context) ([]*models.Provider, error)
	SetAvailability(ctx context.Context, id uuid.UUID, isOnline bool) (*models.Provider, error)
}

// JobCounter supplies the pending-jobs count for the dashboard.
type JobCounter interface {
	CountByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string) (int, error)
}

// LedgerReader lists a provider's credit ledger entries.
type LedgerReader interface {
	ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.CreditEntry, error)
}

// Handler serves the provider directory: dashboard stats, availability,
// credits, and the public listing.
type Handler struct {
	providers ProviderStore
	jobs      JobCounter
	ledger    LedgerReader
	log       *slog.Logger
}

func NewHandler(providers ProviderStore, jobs JobCounter, ledger LedgerReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{providers: providers, jobs: jobs, ledger: ledger, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "fail", "message": message})
}

type dashboardStats struct {
	IsOnline         bool      `json:"is_online"`
	LastActiveAt     time.Time `json:"last_active_at"`
	EarningsToday    int       `json:"earnings_today"`
	EarningsTotal    int       `json:"earnings_total"`
	PendingJobs      int       `json:"pending_jobs_count"`
	CompletedJobs    int       `json:"completed_jobs"`
	CancelledJobs    int       `json:"cancelled_jobs"`
	CreditsAvailable int       `json:"credits_available"`
}

// GET /api/v1/dashboard/stats
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	pending, err := h.jobs.CountByProviderAndStatus(r.Context(), provider.ID, models.JobStatusPending)
	if err != nil {
		h.log.Error("dashboard pending count failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": dashboardStats{
		IsOnline:         provider.IsOnline,
		LastActiveAt:     provider.LastActiveAt,
		EarningsToday:    provider.Earnings.Today,
		EarningsTotal:    provider.Earnings.Total,
		PendingJobs:      pending,
		CompletedJobs:    provider.Stats.CompletedJobs,
		CancelledJobs:    provider.Stats.CancelledJobs,
		CreditsAvailable: provider.Credits.Available,
	}})
}

// PATCH /api/v1/availability
func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		IsOnline *bool `json:"is_online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsOnline == nil {
		writeFail(w, http.StatusBadRequest, "is_online is required")
		return
	}
	updated, err := h.providers.SetAvailability(r.Context(), provider.ID, *req.IsOnline)
	if err != nil {
		h.log.Error("update availability failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{
		"is_online":      updated.IsOnline,
		"last_active_at": updated.LastActiveAt,
	}})
}

// GET /api/v1/credits
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.ledger.ListByProviderID(r.Context(), provider.ID)
	if err != nil {
		h.log.Error("list credit ledger failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	if entries == nil {
		entries = []*models.CreditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{
		"credits": provider.Credits,
		"ledger":  entries,
	}})
}

// GET /api/v1/providers (public)
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	list, err := h.providers.List(r.Context())
	if err != nil {
		h.log.Error("list providers failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	if list == nil {
		list = []*models.Provider{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(list), "data": list})
}
