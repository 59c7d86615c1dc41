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
	"github.com/digioh-event-services/services/event-lambda/models"
	"github.com/digioh-event-services/services/event-lambda/usecase"
)

// EventHandler handles event-related requests
type EventHandler struct {
	useCase *usecase.EventUseCase
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		useCase: usecase.NewEventUseCase(),
	}
}

// NewEventHandlerWith wraps an existing use case
func NewEventHandlerWith(uc *usecase.EventUseCase) *EventHandler {
	return &EventHandler{useCase: uc}
}

func eventID(request events.APIGatewayProxyRequest) (int64, error) {
	raw := request.PathParameters["id"]
	if raw == "" {
		return 0, apperrors.MissingField("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput("id", "Invalid event id")
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

// HandleGetEvents handles GET /api/events
func (h *EventHandler) HandleGetEvents(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	list, err := h.useCase.ListEvents(ctx)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(list)
}

// HandleGetEventNames handles GET /api/events/names
func (h *EventHandler) HandleGetEventNames(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	names, err := h.useCase.ListNames(ctx)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(names)
}

// HandleGetEvent handles GET /api/events/{id}
func (h *EventHandler) HandleGetEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := eventID(request)
	if err != nil {
		return response.Error(err)
	}
	detail, err := h.useCase.GetEvent(ctx, id)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(detail)
}

// HandleGetAttributeKeys handles GET /api/events/{id}/attribute-keys
func (h *EventHandler) HandleGetAttributeKeys(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := eventID(request)
	if err != nil {
		return response.Error(err)
	}
	keys, err := h.useCase.AttributeKeys(ctx, id)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(keys)
}

// ============================================================
// Mutations - operator email and role come from the auth middleware
// ============================================================

// HandleCreateEvent handles POST /api/event
func (h *EventHandler) HandleCreateEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CreateEventRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	e, err := h.useCase.CreateEvent(ctx, req, request.Headers["X-User-Email"])
	if err != nil {
		return response.Error(err)
	}
	return response.Created(e)
}

// HandleUpdateEvent handles PATCH /api/event-update/{id}
func (h *EventHandler) HandleUpdateEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := eventID(request)
	if err != nil {
		return response.Error(err)
	}
	var req models.UpdateEventRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	e, err := h.useCase.UpdateEvent(ctx, id, req, request.Headers["X-User-Email"])
	if err != nil {
		return response.Error(err)
	}
	return response.OK(e)
}

// HandleDeleteEvent handles DELETE /api/event-delete/{id} (admin only)
func (h *EventHandler) HandleDeleteEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := eventID(request)
	if err != nil {
		return response.Error(err)
	}
	if err := h.useCase.DeleteEvent(ctx, id, request.Headers["X-User-Role"]); err != nil {
		return response.Error(err)
	}
	return response.Message(http.StatusOK, "Event deleted")
}
