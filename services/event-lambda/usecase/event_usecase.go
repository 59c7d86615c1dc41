package usecase

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/jwt"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/event-lambda/models"
	"github.com/digioh-event-services/services/event-lambda/repository"
)

// EventStore is implemented by *repository.EventRepository
type EventStore interface {
	List(ctx context.Context) ([]models.Event, error)
	ListNames(ctx context.Context) ([]models.EventName, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Stats(ctx context.Context, eventID int64) (models.EventStats, error)
	AttributeKeys(ctx context.Context, eventID int64) ([]string, error)
	Create(ctx context.Context, e models.Event) (*models.Event, error)
	Update(ctx context.Context, id int64, p models.EventPatch) (*models.Event, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// EventUseCase handles event business logic
type EventUseCase struct {
	store EventStore
	log   *logger.Logger
}

// NewEventUseCase creates a new event use case
func NewEventUseCase() *EventUseCase {
	return NewEventUseCaseWith(repository.NewEventRepository())
}

// NewEventUseCaseWith builds the use case over store
func NewEventUseCaseWith(store EventStore) *EventUseCase {
	return &EventUseCase{
		store: store,
		log:   logger.Default().With("service", "event"),
	}
}

// ListEvents - GET /api/events
func (uc *EventUseCase) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := uc.store.List(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return events, nil
}

// ListNames - GET /api/events/names
func (uc *EventUseCase) ListNames(ctx context.Context) ([]models.EventName, error) {
	names, err := uc.store.ListNames(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return names, nil
}

// ============================================================
// GetEvent - GET /api/events/{id}
// Event fields plus guest statistics
// ============================================================
func (uc *EventUseCase) GetEvent(ctx context.Context, id int64) (*models.EventDetail, error) {
	e, err := uc.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := uc.store.Stats(ctx, id)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &models.EventDetail{Event: *e, EventStats: stats, Stats: stats}, nil
}

func (uc *EventUseCase) getEvent(ctx context.Context, id int64) (*models.Event, error) {
	e, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if e == nil {
		return nil, apperrors.NotFound("Event")
	}
	return e, nil
}

// AttributeKeys - GET /api/events/{id}/attribute-keys
func (uc *EventUseCase) AttributeKeys(ctx context.Context, id int64) ([]string, error) {
	if _, err := uc.getEvent(ctx, id); err != nil {
		return nil, err
	}
	keys, err := uc.store.AttributeKeys(ctx, id)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return keys, nil
}

// ============================================================
// CreateEvent - POST /api/event
// ============================================================
func (uc *EventUseCase) CreateEvent(ctx context.Context, req models.CreateEventRequest, operator string) (*models.Event, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	start, err := ParseEventDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseEventDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	var loading *time.Time
	if strings.TrimSpace(req.LoadingDate) != "" {
		t, err := ParseEventDate("loading_date", req.LoadingDate)
		if err != nil {
			return nil, err
		}
		loading = &t
	}
	if err := ValidateEventDates(start, end, loading); err != nil {
		return nil, err
	}

	e := models.Event{
		Name:           strings.TrimSpace(req.Name),
		Company:        optional(req.Company),
		StartDate:      start,
		EndDate:        end,
		EventTime:      optional(req.EventTime),
		LoadingDate:    loading,
		Sales:          strings.TrimSpace(req.Sales),
		AccountManager: strings.TrimSpace(req.AccountManager),
		Location:       optional(req.Location),
		DiscordChannel: optional(req.DiscordChannel),
		DriveFolder:    optional(req.DriveFolder),
		LastUpdatedBy:  optional(operator),
	}
	created, err := uc.store.Create(ctx, e)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "event_created",
		Entity:   "event",
		EntityID: created.ID,
		Action:   "create",
		Success:  true,
		Metadata: map[string]interface{}{"name": created.Name},
	})
	return created, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ============================================================
// UpdateEvent - PATCH /api/event-update/{id}
// last_updated_by is set to the operator
// ============================================================
func (uc *EventUseCase) UpdateEvent(ctx context.Context, id int64, req models.UpdateEventRequest, operator string) (*models.Event, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	current, err := uc.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	p := models.EventPatch{
		Name:           trimmed(req.Name),
		Company:        trimmed(req.Company),
		EventTime:      trimmed(req.EventTime),
		Sales:          trimmed(req.Sales),
		AccountManager: trimmed(req.AccountManager),
		Location:       trimmed(req.Location),
		DiscordChannel: trimmed(req.DiscordChannel),
		DriveFolder:    trimmed(req.DriveFolder),
	}

	start, end, loading := current.StartDate, current.EndDate, current.LoadingDate
	if req.StartDate != nil {
		if start, err = ParseEventDate("start_date", *req.StartDate); err != nil {
			return nil, err
		}
		p.StartDate = &start
	}
	if req.EndDate != nil {
		if end, err = ParseEventDate("end_date", *req.EndDate); err != nil {
			return nil, err
		}
		p.EndDate = &end
	}
	if req.LoadingDate != nil {
		if strings.TrimSpace(*req.LoadingDate) == "" {
			p.ClearLoading = true
			loading = nil
		} else {
			t, err := ParseEventDate("loading_date", *req.LoadingDate)
			if err != nil {
				return nil, err
			}
			p.LoadingDate = &t
			loading = &t
		}
	}
	if err := ValidateEventDates(start, end, loading); err != nil {
		return nil, err
	}

	if by := strings.TrimSpace(operator); by != "" {
		p.LastUpdatedBy = &by
	}

	updated, err := uc.store.Update(ctx, id, p)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("Event")
	}
	return updated, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ============================================================
// DeleteEvent - DELETE /api/event-delete/{id} (admin only)
// Guests and attributes are removed with the event
// ============================================================
func (uc *EventUseCase) DeleteEvent(ctx context.Context, id int64, role string) error {
	if !strings.EqualFold(role, jwt.RoleAdmin) {
		return apperrors.AccessDenied()
	}
	ok, err := uc.store.Delete(ctx, id)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if !ok {
		return apperrors.NotFound("Event")
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "event_deleted",
		Entity:   "event",
		EntityID: id,
		Action:   "delete",
		Success:  true,
	})
	return nil
}
