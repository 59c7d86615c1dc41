package handler

import (
	"net/http"

	"github.com/digioh-event-services/common/router"
)

// Register adds the event routes to r
func (h *EventHandler) Register(r *router.Router) {
	r.Auth(http.MethodGet, "/events", h.HandleGetEvents)
	r.Auth(http.MethodGet, "/events/names", h.HandleGetEventNames)
	r.Auth(http.MethodGet, "/events/{id}", h.HandleGetEvent)
	r.Auth(http.MethodGet, "/events/{id}/attribute-keys", h.HandleGetAttributeKeys)
	r.Auth(http.MethodPost, "/event", h.HandleCreateEvent)
	r.Auth(http.MethodPatch, "/event-update/{id}", h.HandleUpdateEvent)
	r.Admin(http.MethodDelete, "/event-delete/{id}", h.HandleDeleteEvent)
}
