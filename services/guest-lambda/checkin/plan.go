package checkin

import (
	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// Plan validates a status update and returns the write to apply.
// Exactly one of confirmation/attendance may be set; merchandise is
// independent. A headcount is kept only when the resulting attendance
// is attended or represented.
func Plan(req models.StatusUpdateRequest, operator, headcountKey string) (models.StatusWrite, error) {
	var w models.StatusWrite

	if req.Confirmation == nil && req.Attendance == nil && req.Merchandise == nil {
		return w, apperrors.ValidationError("one of confirmation, attendance or merchandise is required")
	}
	if req.Confirmation != nil && req.Attendance != nil {
		return w, apperrors.ValidationError("set either confirmation or attendance, not both")
	}
	if req.Headcount != nil && *req.Headcount < 1 {
		return w, apperrors.InvalidInput("headcount", "headcount must be at least 1")
	}

	var pair *Pair
	switch {
	case req.Confirmation != nil:
		p, err := Derive(FieldConfirmation, *req.Confirmation)
		if err != nil {
			return w, err
		}
		pair = &p
	case req.Attendance != nil:
		p, err := Derive(FieldAttendance, *req.Attendance)
		if err != nil {
			return w, err
		}
		pair = &p
	}

	if pair != nil {
		w.Confirmation = &pair.Confirmation
		w.Attendance = &pair.Attendance
		if req.Headcount != nil && RecordsHeadcount(pair.Attendance) {
			n := *req.Headcount
			w.Headcount = &n
			w.HeadcountKey = headcountKey
		}
	} else if req.Headcount != nil {
		return w, apperrors.InvalidInput("headcount", "headcount requires an attendance or confirmation change")
	}

	if req.Merchandise != nil {
		m, ok := models.ParseMerchandise(*req.Merchandise)
		if !ok {
			return w, apperrors.InvalidInput("merchandise", "merchandise must be 'received' or 'not received'")
		}
		w.Merchandise = &m
	}

	w.UpdatedBy = operator
	return w, nil
}
