// Package checkin derives the (confirmation, attendance) pair that a single
// explicit status change implies, and plans the write that applies it.
package checkin

import (
	"strings"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// Field is the status a request sets explicitly
type Field string

const (
	FieldConfirmation Field = "confirmation"
	FieldAttendance   Field = "attendance"
)

// Pair is a consistent status pair
type Pair struct {
	Confirmation models.Confirmation
	Attendance   models.Attendance
}

var byConfirmation = map[models.Confirmation]Pair{
	models.ConfirmationConfirmed:     {models.ConfirmationConfirmed, models.AttendanceAttended},
	models.ConfirmationRepresented:   {models.ConfirmationRepresented, models.AttendanceRepresented},
	models.ConfirmationToBeConfirmed: {models.ConfirmationToBeConfirmed, models.AttendanceDidNotAttend},
	models.ConfirmationCancelled:     {models.ConfirmationCancelled, models.AttendanceDidNotAttend},
}

var byAttendance = map[models.Attendance]Pair{
	models.AttendanceAttended:     {models.ConfirmationConfirmed, models.AttendanceAttended},
	models.AttendanceRepresented:  {models.ConfirmationRepresented, models.AttendanceRepresented},
	models.AttendanceDidNotAttend: {models.ConfirmationToBeConfirmed, models.AttendanceDidNotAttend},
}

// FromConfirmation returns the pair implied by setting confirmation
func FromConfirmation(c models.Confirmation) (Pair, bool) {
	p, ok := byConfirmation[c]
	return p, ok
}

// FromAttendance returns the pair implied by setting attendance
func FromAttendance(a models.Attendance) (Pair, bool) {
	p, ok := byAttendance[a]
	return p, ok
}

// Derive parses value for field and returns the implied pair
func Derive(field Field, value string) (Pair, error) {
	switch field {
	case FieldConfirmation:
		c, ok := models.ParseConfirmation(value)
		if !ok {
			return Pair{}, invalidValue(field, value)
		}
		p, _ := FromConfirmation(c)
		return p, nil
	case FieldAttendance:
		a, ok := models.ParseAttendance(value)
		if !ok {
			return Pair{}, invalidValue(field, value)
		}
		p, _ := FromAttendance(a)
		return p, nil
	}
	return Pair{}, apperrors.ValidationError("unknown status field").WithField("field", string(field))
}

// RecordsHeadcount reports whether a headcount is kept for this attendance
func RecordsHeadcount(a models.Attendance) bool {
	return a == models.AttendanceAttended || a == models.AttendanceRepresented
}

// Consistent reports whether the pair is one the table can produce
func Consistent(c models.Confirmation, a models.Attendance) bool {
	p, ok := byConfirmation[c]
	if ok && p.Attendance == a {
		return true
	}
	p, ok = byAttendance[a]
	return ok && p.Confirmation == c
}

func invalidValue(field Field, value string) *apperrors.AppError {
	allowed := make([]string, 0, 4)
	if field == FieldConfirmation {
		for _, c := range models.Confirmations {
			allowed = append(allowed, string(c))
		}
	} else {
		for _, a := range models.Attendances {
			allowed = append(allowed, string(a))
		}
	}
	return apperrors.InvalidInput(string(field),
		"invalid "+string(field)+" '"+value+"', expected one of: "+strings.Join(allowed, ", "))
}
