package ws

import (
	"net/http"
	"time"

	"github.com/readyrun/readyrun/internal/auth"
)

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, time.Hour)
}

func testUser() *auth.User {
	return &auth.User{ID: "u1", Username: "runner", Role: auth.RoleAthlete}
}

func routesOf(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}
