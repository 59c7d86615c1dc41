package handler

import (
	"net/http"

	"github.com/digioh-event-services/common/router"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// Register adds the guest, scan and file routes to r
func (h *GuestHandler) Register(r *router.Router) {
	r.Public(http.MethodGet, "/guest/{code}", h.HandleGetGuestByCode)

	// Guests
	r.Auth(http.MethodGet, "/guests/event/{event_id}", h.HandleListGuests)
	r.Auth(http.MethodGet, "/guests/count-confirmation/{event_id}", h.HandleCountConfirmation)
	r.Auth(http.MethodGet, "/guests/{id}", h.HandleGetGuest)
	r.Auth(http.MethodGet, "/guests/{id}/qr", h.HandleGuestQR)
	r.Auth(http.MethodGet, "/guests/{id}/invitation", h.HandleInvitation)
	r.Auth(http.MethodPost, "/guests", h.HandleCreateGuest)
	r.Auth(http.MethodPatch, "/guests/{id}", h.HandleUpdateGuest)
	r.Auth(http.MethodDelete, "/guest/{id}", h.HandleDeleteGuest)

	// Attributes
	r.Auth(http.MethodPatch, "/attributes/{id}", h.HandleUpdateGuest)
	r.Auth(http.MethodGet, "/guests/{id}/attributes", h.HandleListAttributes)
	r.Auth(http.MethodPut, "/guests/{id}/attributes/{key}", h.HandlePutAttribute)
	r.Auth(http.MethodDelete, "/guests/{id}/attributes/{key}", h.HandleDeleteAttribute)

	// Status
	r.Auth(http.MethodPatch, "/guests/{id}/status", h.HandleUpdateStatus)
	r.Auth(http.MethodPatch, "/confirmation/{id}", h.HandleSetConfirmation)
	r.Auth(http.MethodPatch, "/attend/{id}", h.HandleSetAttendance)
	r.Auth(http.MethodPatch, "/merchandise/{id}", h.HandleSetMerchandise)
	r.Auth(http.MethodPatch, "/confirmation-by/{id}", h.HandleSetAudit(models.AuditConfirmation))
	r.Auth(http.MethodPatch, "/attendance-by/{id}", h.HandleSetAudit(models.AuditAttendance))
	r.Auth(http.MethodPatch, "/attributes-by/{id}", h.HandleSetAudit(models.AuditAttributes))
	r.Auth(http.MethodPatch, "/merchandise-by/{id}", h.HandleSetAudit(models.AuditMerchandise))
	r.Auth(http.MethodPatch, "/emailed-by/{id}", h.HandleSetAudit(models.AuditEmailSent))
	r.Auth(http.MethodPatch, "/emailed/{id}", h.HandleSetEmailed)
	r.Auth(http.MethodPatch, "/update-jumlah-orang/{id}", h.HandleSetHeadcount)

	// Scan
	r.Auth(http.MethodPost, "/checkin/{identifier}", h.HandleCheckIn)
	r.Auth(http.MethodPost, "/merchandise-scan/{identifier}", h.HandleMerchandiseScan)

	// Files
	r.Auth(http.MethodPost, "/import", h.HandleImport)
	r.Auth(http.MethodPost, "/add-guest-import", h.HandleAddGuestImport)
	r.Auth(http.MethodGet, "/download-template", h.HandleDownloadTemplate)
	r.Auth(http.MethodPost, "/export", h.HandleExport)
	r.Auth(http.MethodPost, "/export-excel", h.HandleExportCSV)
	r.Auth(http.MethodPost, "/broadcast-email", h.HandleBroadcast)
}
