package earnings

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/servilocal/backend/internal/middleware"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// GET /api/v1/earnings/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	provider := middleware.ProviderFromCtx(r.Context())
	if provider == nil {
		http.Error(w, `{"status":"fail","message":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	summary, err := h.svc.Summary(r.Context(), provider.ID)
	if err != nil {
		h.log.Error("earnings summary failed", "error", err)
		http.Error(w, `{"status":"error","message":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": summary})
}
