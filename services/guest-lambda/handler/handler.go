package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/response"
	"github.com/digioh-event-services/services/guest-lambda/models"
	"github.com/digioh-event-services/services/guest-lambda/usecase"
)

// GuestHandler handles guest, scan and file requests
type GuestHandler struct {
	useCase *usecase.GuestUseCase
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler() *GuestHandler {
	return &GuestHandler{
		useCase: usecase.NewGuestUseCase(),
	}
}

// NewGuestHandlerWith wraps an existing use case
func NewGuestHandlerWith(uc *usecase.GuestUseCase) *GuestHandler {
	return &GuestHandler{useCase: uc}
}

// operator is the email of the authenticated user (set by the auth middleware)
func operator(request events.APIGatewayProxyRequest) string {
	return strings.TrimSpace(request.Headers["X-User-Email"])
}

func pathID(request events.APIGatewayProxyRequest, key string) (int64, error) {
	raw := request.PathParameters[key]
	if raw == "" {
		return 0, apperrors.MissingField(key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(key, "Invalid "+key)
	}
	return id, nil
}

func decodeBody(request events.APIGatewayProxyRequest, v interface{}) error {
	if strings.TrimSpace(request.Body) == "" {
		return apperrors.ValidationError("Request body is required")
	}
	if err := json.Unmarshal([]byte(request.Body), v); err != nil {
		return apperrors.ValidationError("Invalid request body").WithCause(err)
	}
	return nil
}

// ============================================================
// Lookups
// ============================================================

// HandleGetGuestByCode handles GET /api/guest/{code} (public)
func (h *GuestHandler) HandleGetGuestByCode(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	v, err := h.useCase.GuestViewByCode(ctx, request.PathParameters["code"])
	if err != nil {
		return response.Error(err)
	}
	return response.OK(v)
}

// HandleGetGuest handles GET /api/guests/{id}
// {id} is a guest id or a unique code.
func (h *GuestHandler) HandleGetGuest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	v, err := h.useCase.GetGuestView(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	return response.OK(v)
}

// HandleListGuests handles GET /api/guests/event/{event_id}
// Query: confirmation, attendance (comma separated), search, sortBy, sortOrder, page, limit
func (h *GuestHandler) HandleListGuests(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	eventID, err := pathID(request, "event_id")
	if err != nil {
		return response.Error(err)
	}

	qs := request.QueryStringParameters
	q, err := usecase.BuildListQuery(eventID, usecase.ListParams{
		Confirmation: qs["confirmation"],
		Attendance:   qs["attendance"],
		Search:       qs["search"],
		SortBy:       qs["sortBy"],
		SortOrder:    qs["sortOrder"],
		Page:         qs["page"],
		Limit:        qs["limit"],
	})
	if err != nil {
		return response.Error(err)
	}

	result, err := h.useCase.ListGuests(ctx, q)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(result)
}

// HandleCountConfirmation handles GET /api/guests/count-confirmation/{event_id}
func (h *GuestHandler) HandleCountConfirmation(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	eventID, err := pathID(request, "event_id")
	if err != nil {
		return response.Error(err)
	}
	counts, err := h.useCase.CountByConfirmation(ctx, eventID)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(counts)
}

// ============================================================
// CRUD
// ============================================================

// HandleCreateGuest handles POST /api/guests
func (h *GuestHandler) HandleCreateGuest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CreateGuestRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	v, err := h.useCase.CreateGuest(ctx, req)
	if err != nil {
		return response.Error(err)
	}
	return response.Created(v)
}

// HandleUpdateGuest handles PATCH /api/guests/{id} and PATCH /api/attributes/{id}
func (h *GuestHandler) HandleUpdateGuest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	var req models.UpdateGuestRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	v, err := h.useCase.UpdateGuest(ctx, id, req, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(v)
}

// HandleDeleteGuest handles DELETE /api/guest/{id}
func (h *GuestHandler) HandleDeleteGuest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	if err := h.useCase.DeleteGuest(ctx, id); err != nil {
		return response.Error(err)
	}
	return response.Message(http.StatusOK, "Guest deleted")
}

// ============================================================
// Status
// ============================================================

// HandleUpdateStatus handles PATCH /api/guests/{id}/status
func (h *GuestHandler) HandleUpdateStatus(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.updateStatus(ctx, request, func(req models.StatusUpdateRequest) (models.StatusUpdateRequest, error) {
		return req, nil
	})
}

// HandleSetConfirmation handles PATCH /api/confirmation/{id}
// Only "confirmation" (and "updated_by") are read from the body.
func (h *GuestHandler) HandleSetConfirmation(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.updateStatus(ctx, request, func(req models.StatusUpdateRequest) (models.StatusUpdateRequest, error) {
		if req.Confirmation == nil {
			return req, apperrors.MissingField("confirmation")
		}
		return models.StatusUpdateRequest{Confirmation: req.Confirmation, UpdatedBy: req.UpdatedBy}, nil
	})
}

// HandleSetAttendance handles PATCH /api/attend/{id}
func (h *GuestHandler) HandleSetAttendance(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.updateStatus(ctx, request, func(req models.StatusUpdateRequest) (models.StatusUpdateRequest, error) {
		if req.Attendance == nil {
			return req, apperrors.MissingField("attendance")
		}
		return models.StatusUpdateRequest{Attendance: req.Attendance, Headcount: req.Headcount, UpdatedBy: req.UpdatedBy}, nil
	})
}

// HandleSetMerchandise handles PATCH /api/merchandise/{id}
func (h *GuestHandler) HandleSetMerchandise(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.updateStatus(ctx, request, func(req models.StatusUpdateRequest) (models.StatusUpdateRequest, error) {
		if req.Merchandise == nil {
			return req, apperrors.MissingField("merchandise")
		}
		return models.StatusUpdateRequest{Merchandise: req.Merchandise, UpdatedBy: req.UpdatedBy}, nil
	})
}

func (h *GuestHandler) updateStatus(ctx context.Context, request events.APIGatewayProxyRequest, restrict func(models.StatusUpdateRequest) (models.StatusUpdateRequest, error)) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	var req models.StatusUpdateRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	if req, err = restrict(req); err != nil {
		return response.Error(err)
	}
	g, err := h.useCase.UpdateStatus(ctx, id, req, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(g)
}

// HandleSetAudit returns the handler for PATCH /api/{field}-by/{id}
func (h *GuestHandler) HandleSetAudit(field models.AuditField) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		id, err := pathID(request, "id")
		if err != nil {
			return response.Error(err)
		}
		var req models.AuditRequest
		if strings.TrimSpace(request.Body) != "" {
			if err := decodeBody(request, &req); err != nil {
				return response.Error(err)
			}
		}
		g, err := h.useCase.SetAudit(ctx, id, field, req.Value(field), operator(request))
		if err != nil {
			return response.Error(err)
		}
		return response.OK(g)
	}
}

// HandleSetEmailed handles PATCH /api/emailed/{id}
func (h *GuestHandler) HandleSetEmailed(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	var req models.EmailedRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	g, err := h.useCase.SetEmailed(ctx, id, req)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(g)
}

// HandleSetHeadcount handles PATCH /api/update-jumlah-orang/{id}
func (h *GuestHandler) HandleSetHeadcount(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	var req models.HeadcountRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	g, err := h.useCase.SetHeadcount(ctx, id, req, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(g)
}

// ============================================================
// Attributes
// ============================================================

// HandleListAttributes handles GET /api/guests/{id}/attributes
func (h *GuestHandler) HandleListAttributes(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	attrs, err := h.useCase.ListAttributes(ctx, id)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(attrs)
}

// HandlePutAttribute handles PUT /api/guests/{id}/attributes/{key}
func (h *GuestHandler) HandlePutAttribute(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	var req models.AttributeValueRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	g, err := h.useCase.PutAttribute(ctx, id, request.PathParameters["key"], req.Value, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(g)
}

// HandleDeleteAttribute handles DELETE /api/guests/{id}/attributes/{key}
func (h *GuestHandler) HandleDeleteAttribute(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := pathID(request, "id")
	if err != nil {
		return response.Error(err)
	}
	if err := h.useCase.DeleteAttribute(ctx, id, request.PathParameters["key"]); err != nil {
		return response.Error(err)
	}
	return response.Message(http.StatusOK, "Attribute deleted")
}

// ============================================================
// Scans
// ============================================================

// HandleCheckIn handles POST /api/checkin/{identifier}
// Body (optional): {"outcome": "attended"|"represented", "headcount": n}
func (h *GuestHandler) HandleCheckIn(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CheckInRequest
	if strings.TrimSpace(request.Body) != "" {
		if err := decodeBody(request, &req); err != nil {
			return response.Error(err)
		}
	}
	result, err := h.useCase.CheckIn(ctx, request.PathParameters["identifier"], req, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(result)
}

// HandleMerchandiseScan handles POST /api/merchandise-scan/{identifier}
func (h *GuestHandler) HandleMerchandiseScan(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	result, err := h.useCase.MerchandiseScan(ctx, request.PathParameters["identifier"], operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(result)
}

// ============================================================
// QR and invitation
// ============================================================

// HandleGuestQR handles GET /api/guests/{id}/qr
// Query: width, margin, dark, light
func (h *GuestHandler) HandleGuestQR(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	opts, err := usecase.QROptionsFromQuery(request.QueryStringParameters)
	if err != nil {
		return response.Error(err)
	}
	png, _, err := h.useCase.RenderGuestQR(ctx, request.PathParameters["id"], opts)
	if err != nil {
		return response.Error(err)
	}
	return response.Binary(response.ContentTypePNG, "", png)
}

// HandleInvitation handles GET /api/guests/{id}/invitation
func (h *GuestHandler) HandleInvitation(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	out, filename, err := h.useCase.InvitationPDF(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	return response.Binary(response.ContentTypePDF, filename, out)
}
