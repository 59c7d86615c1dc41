package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/digioh-event-services/common/config"
	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/metrics"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/guest-lambda/checkin"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// ============================================================
// UpdateStatus - PATCH /api/guests/{id}/status
// The explicit field is expanded into a consistent pair and written
// together with the headcount in one transaction.
// ============================================================
func (uc *GuestUseCase) UpdateStatus(ctx context.Context, id int64, req models.StatusUpdateRequest, operator string) (*models.Guest, error) {
	updatedBy := firstNonEmpty(req.UpdatedBy, operator)
	w, err := checkin.Plan(req, updatedBy, config.GetConfig().HeadcountAttributeKey)
	if err != nil {
		return nil, err
	}
	return uc.applyStatus(ctx, id, w, "status_update")
}

func (uc *GuestUseCase) applyStatus(ctx context.Context, id int64, w models.StatusWrite, action string) (*models.Guest, error) {
	g, err := uc.store.ApplyStatus(ctx, id, w)
	if err != nil {
		uc.log.WithContext(ctx).LogEvent(logger.EventLog{
			Event:    "guest_status",
			Entity:   "guest",
			EntityID: id,
			Action:   action,
			Success:  false,
			Error:    err.Error(),
		})
		return nil, storeError(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("Guest")
	}

	meta := map[string]interface{}{}
	if w.Confirmation != nil {
		meta["confirmation"] = string(*w.Confirmation)
		metrics.StatusTransition(string(checkin.FieldConfirmation), string(*w.Confirmation))
	}
	if w.Attendance != nil {
		meta["attendance"] = string(*w.Attendance)
		metrics.StatusTransition(string(checkin.FieldAttendance), string(*w.Attendance))
	}
	if w.Merchandise != nil {
		meta["merchandise"] = string(*w.Merchandise)
		metrics.StatusTransition("merchandise", string(*w.Merchandise))
	}
	if w.Headcount != nil {
		meta["headcount"] = *w.Headcount
	}
	if w.UpdatedBy != "" {
		meta["updated_by"] = w.UpdatedBy
	}
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "guest_status",
		Entity:   "guest",
		EntityID: id,
		Action:   action,
		Success:  true,
		Metadata: meta,
	})
	return g, nil
}

// ============================================================
// CheckIn - POST /api/checkin/{identifier}
// Resolves the scanned identifier and records attendance. The outcome
// defaults to attended and the headcount to 1.
// ============================================================
func (uc *GuestUseCase) CheckIn(ctx context.Context, scanned string, req models.CheckInRequest, operator string) (*models.CheckInResponse, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	g, err := uc.ResolveGuest(ctx, ExtractIdentifier(scanned))
	if err != nil {
		return nil, err
	}

	outcome := models.AttendanceAttended
	if req.Outcome != "" {
		a, ok := models.ParseAttendance(req.Outcome)
		if !ok || !checkin.RecordsHeadcount(a) {
			return nil, apperrors.InvalidInput("outcome", "outcome must be 'attended' or 'represented'")
		}
		outcome = a
	}
	headcount := 1
	if req.Headcount != nil {
		headcount = *req.Headcount
	}

	attendance := string(outcome)
	w, err := checkin.Plan(models.StatusUpdateRequest{
		Attendance: &attendance,
		Headcount:  &headcount,
	}, operator, config.GetConfig().HeadcountAttributeKey)
	if err != nil {
		return nil, err
	}

	already := g.Attendance == outcome
	updated, err := uc.applyStatus(ctx, g.ID, w, "checkin")
	if err != nil {
		return nil, err
	}
	metrics.CheckIn(attendance)

	msg := "Guest checked in"
	if outcome == models.AttendanceRepresented {
		msg = "Guest checked in as represented"
	}
	if already {
		msg += " (already recorded)"
	}
	return &models.CheckInResponse{
		Guest:   updated,
		Outcome: attendance,
		Message: msg,
	}, nil
}

// MerchandiseScan - POST /api/merchandise-scan/{identifier}
func (uc *GuestUseCase) MerchandiseScan(ctx context.Context, scanned, operator string) (*models.CheckInResponse, error) {
	g, err := uc.ResolveGuest(ctx, ExtractIdentifier(scanned))
	if err != nil {
		return nil, err
	}

	received := models.MerchandiseReceived
	already := g.Merchandise == received
	updated, err := uc.applyStatus(ctx, g.ID, models.StatusWrite{
		Merchandise: &received,
		UpdatedBy:   strings.TrimSpace(operator),
	}, "merchandise_scan")
	if err != nil {
		return nil, err
	}

	msg := "Merchandise received"
	if already {
		msg = "Merchandise already received"
	}
	return &models.CheckInResponse{
		Guest:   updated,
		Outcome: string(received),
		Message: msg,
	}, nil
}

// ============================================================
// Audit and flag setters
// ============================================================

// SetAudit - PATCH /api/{confirmation|attendance|attributes|merchandise}-by/{id}
func (uc *GuestUseCase) SetAudit(ctx context.Context, id int64, field models.AuditField, value, operator string) (*models.Guest, error) {
	if !field.Valid() {
		return nil, apperrors.InvalidInput("field", "unknown audit field")
	}
	value = firstNonEmpty(value, operator)
	if value == "" {
		return nil, apperrors.MissingField(string(field))
	}
	ok, err := uc.store.SetAuditField(ctx, id, field, value)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, apperrors.NotFound("Guest")
	}
	return uc.getGuest(ctx, id)
}

// SetEmailed - PATCH /api/emailed/{id}
func (uc *GuestUseCase) SetEmailed(ctx context.Context, id int64, req models.EmailedRequest) (*models.Guest, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	ok, err := uc.store.SetEmailed(ctx, id, *req.Emailed, "")
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, apperrors.NotFound("Guest")
	}
	return uc.getGuest(ctx, id)
}

// SetHeadcount - PATCH /api/update-jumlah-orang/{id}
func (uc *GuestUseCase) SetHeadcount(ctx context.Context, id int64, req models.HeadcountRequest, operator string) (*models.Guest, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	key := config.GetConfig().HeadcountAttributeKey
	return uc.writeAttributes(ctx, id, map[string]string{key: strconv.Itoa(req.JumlahOrang)}, operator)
}

// ============================================================
// Attributes
// ============================================================

// ListAttributes - GET /api/guests/{id}/attributes
func (uc *GuestUseCase) ListAttributes(ctx context.Context, id int64) ([]models.Attribute, error) {
	if _, err := uc.getGuest(ctx, id); err != nil {
		return nil, err
	}
	attrs, err := uc.store.ListAttributes(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return attrs, nil
}

// PutAttribute - PUT /api/guests/{id}/attributes/{key}
func (uc *GuestUseCase) PutAttribute(ctx context.Context, id int64, key, value, operator string) (*models.Guest, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.MissingField("attribute_key")
	}
	return uc.writeAttributes(ctx, id, map[string]string{key: strings.TrimSpace(value)}, operator)
}

// DeleteAttribute - DELETE /api/guests/{id}/attributes/{key}
func (uc *GuestUseCase) DeleteAttribute(ctx context.Context, id int64, key string) error {
	ok, err := uc.store.DeleteAttribute(ctx, id, strings.TrimSpace(key))
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return apperrors.NotFound("Attribute")
	}
	return nil
}

// AttributeKeys returns the attribute keys used in an event
func (uc *GuestUseCase) AttributeKeys(ctx context.Context, eventID int64) ([]string, error) {
	keys, err := uc.store.AttributeKeys(ctx, eventID)
	if err != nil {
		return nil, storeError(err)
	}
	return keys, nil
}

// writeAttributes upserts attrs and stamps attributes_updated_by in one transaction
func (uc *GuestUseCase) writeAttributes(ctx context.Context, id int64, attrs map[string]string, operator string) (*models.Guest, error) {
	var patch models.GuestPatch
	if by := strings.TrimSpace(operator); by != "" {
		patch.AttributesUpdatedBy = &by
	}
	g, err := uc.store.Update(ctx, id, patch, attrs)
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("Guest")
	}
	return g, nil
}
