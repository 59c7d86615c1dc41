package handler

import (
	"net/http"

	"github.com/digioh-event-services/common/router"
)

// Register adds the auth routes to r
func (h *AuthHandler) Register(r *router.Router) {
	r.Public(http.MethodPost, "/login", h.HandleLogin)
	r.Public(http.MethodPost, "/sign-up", h.HandleSignUp)
	r.Auth(http.MethodGet, "/profile", h.HandleProfile)
}
