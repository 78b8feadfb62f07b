package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/servilocal/backend/internal/models"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type authResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Data   struct {
		Provider *models.Provider `json:"provider"`
	} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "fail", "message": message})
}

// POST /api/v1/providers/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in SignupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	provider, token, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		// Duplicate email and field validation both map to 400.
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := authResponse{Status: "success", Token: token}
	resp.Data.Provider = provider
	writeJSON(w, http.StatusCreated, resp)
}

// POST /api/v1/providers/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "please provide email and password")
		return
	}
	provider, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeFail(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.Error("login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	resp := authResponse{Status: "success", Token: token}
	resp.Data.Provider = provider
	writeJSON(w, http.StatusOK, resp)
}
