package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/digioh-event-services/services/guest-lambda/models"
)

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const guestColumns = `
	g.id, g.event_id, g.unique_code, g.username, g.email, g.phone_num, g.instansi,
	g.registration_type, g.confirmation, g.attendance, g.merchandise, g.emailed,
	g.confirmation_updated_by, g.attendance_updated_by, g.attributes_updated_by,
	g.merchandise_updated_by, g.email_sent_by, g.created_at, g.updated_at`

func scanGuest(row rowScanner) (*models.Guest, error) {
	var (
		g                models.Guest
		uniqueCode       sql.NullString
		email            sql.NullString
		phone            sql.NullString
		instansi         sql.NullString
		confirmationBy   sql.NullString
		attendanceBy     sql.NullString
		attributesBy     sql.NullString
		merchandiseBy    sql.NullString
		emailSentBy      sql.NullString
		registrationType string
		confirmation     string
		attendance       string
		merchandise      string
	)

	err := row.Scan(
		&g.ID,
		&g.EventID,
		&uniqueCode,
		&g.Username,
		&email,
		&phone,
		&instansi,
		&registrationType,
		&confirmation,
		&attendance,
		&merchandise,
		&g.Emailed,
		&confirmationBy,
		&attendanceBy,
		&attributesBy,
		&merchandiseBy,
		&emailSentBy,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.UniqueCode = stringPtr(uniqueCode)
	g.Email = stringPtr(email)
	g.PhoneNum = stringPtr(phone)
	g.Instansi = stringPtr(instansi)
	g.ConfirmationUpdatedBy = stringPtr(confirmationBy)
	g.AttendanceUpdatedBy = stringPtr(attendanceBy)
	g.AttributesUpdatedBy = stringPtr(attributesBy)
	g.MerchandiseUpdatedBy = stringPtr(merchandiseBy)
	g.EmailSentBy = stringPtr(emailSentBy)
	g.RegistrationType = models.RegistrationType(registrationType)
	g.Confirmation = models.Confirmation(confirmation)
	g.Attendance = models.Attendance(attendance)
	g.Merchandise = models.Merchandise(merchandise)
	g.Attributes = map[string]string{}

	return &g, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// escapeLike escapes LIKE wildcards so search text matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
