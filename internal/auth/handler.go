package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/version"
)

// Handler exposes the authentication and user-management endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an auth Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the auth surface. The login/refresh/logout/setup
// endpoints are public; user management is admin-only (checked per handler,
// authentication itself comes from the middleware).
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.handleLogout)
	mux.HandleFunc("POST /api/v1/auth/setup", h.handleSetup)
	mux.HandleFunc("GET /api/v1/auth/setup/status", h.handleSetupStatus)

	mux.HandleFunc("GET /api/v1/users", h.handleListUsers)
	mux.HandleFunc("GET /api/v1/users/{id}", h.handleGetUser)
	mux.HandleFunc("PUT /api/v1/users/{id}", h.handleUpdateUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", h.handleDeleteUser)
}

// Middleware returns the bearer-token middleware for the whole API.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return AuthMiddleware(h.service.Tokens())
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeAuthError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUserDisabled):
		// Same response for both so probing can't tell accounts apart.
		writeAuthError(w, http.StatusUnauthorized, "invalid username or password")
	case err != nil:
		h.serverError(w, "login", err)
	default:
		writeJSON(w, http.StatusOK, pair)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeAuthError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserDisabled):
		writeAuthError(w, http.StatusUnauthorized, "invalid or expired refresh token")
	case err != nil:
		h.serverError(w, "refresh", err)
	default:
		writeJSON(w, http.StatusOK, pair)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeAuthError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.serverError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeAuthError(w, http.StatusBadRequest, "username, email, and password are required")
		return
	}

	user, err := h.service.Setup(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, ErrSetupComplete):
		writeAuthError(w, http.StatusConflict, "setup already completed")
	case err != nil:
		writeAuthError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, user)
	}
}

// SetupStatusResponse reports whether first-run setup is still required.
type SetupStatusResponse struct {
	SetupRequired bool   `json:"setup_required"`
	Version       string `json:"version"`
}

func (h *Handler) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	needed, err := h.service.NeedsSetup(r.Context())
	if err != nil {
		h.serverError(w, "setup status", err)
		return
	}
	writeJSON(w, http.StatusOK, SetupStatusResponse{SetupRequired: needed, Version: version.Short()})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.serverError(w, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	user, err := h.service.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.userError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Role     string `json:"role"`
		Disabled bool   `json:"disabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	role := Role(req.Role)
	if !ValidRoles[role] {
		writeAuthError(w, http.StatusBadRequest, "invalid role: must be admin, athlete, or coach")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), r.PathValue("id"), req.Email, role, req.Disabled)
	if err != nil {
		h.userError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := h.service.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		h.userError(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin writes 401/403 and returns false unless the request carries
// admin claims.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	claims := UserFromContext(r.Context())
	if claims == nil {
		writeAuthError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if Role(claims.Role) != RoleAdmin {
		writeAuthError(w, http.StatusForbidden, "admin role required")
		return false
	}
	return true
}

// userError maps ErrUserNotFound to 404, everything else to 500.
func (h *Handler) userError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, ErrUserNotFound) {
		writeAuthError(w, http.StatusNotFound, "user not found")
		return
	}
	h.serverError(w, action, err)
}

func (h *Handler) serverError(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action+" failed", zap.Error(err))
	writeAuthError(w, http.StatusInternalServerError, action+" failed")
}

// decodeBody parses the JSON request body into v, writing a 400 and
// returning false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAuthError emits an RFC 7807 problem body for auth failures.
func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://readyrun.dev/problems/auth-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
