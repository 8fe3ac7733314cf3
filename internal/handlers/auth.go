package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
	"github.com/coastwatch-systems/coastwatch/internal/middleware"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/service"
)

// AuthHandler serves registration, login and profile endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Self-service registration is always a citizen account. Elevated roles
	// come from the seeder or operator tooling, never from this endpoint.
	req.Role = models.RoleCitizen

	resp, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user.Profile())
}
