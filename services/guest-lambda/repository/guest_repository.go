package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// lockTxAttempts bounds reruns of a row-locking transaction after a deadlock
const lockTxAttempts = 3

var (
	// ErrDuplicateCode is returned when unique_code is already taken
	ErrDuplicateCode = errors.New("unique code already in use")
	// ErrEventNotFound is returned when a guest references a missing event
	ErrEventNotFound = errors.New("event not found")
)

type GuestRepository struct {
	db *sql.DB
}

func NewGuestRepository() *GuestRepository {
	return &GuestRepository{
		db: db.GetDB(),
	}
}

// NewGuestRepositoryWithDB binds the repository to conn
func NewGuestRepositoryWithDB(conn *sql.DB) *GuestRepository {
	return &GuestRepository{db: conn}
}

// ============================================================
// Create - insert a guest and its attributes in one transaction
// ============================================================
func (r *GuestRepository) Create(ctx context.Context, g models.NewGuest) (*models.Guest, error) {
	var id int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		id, err = insertGuest(ctx, tx, g)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func insertGuest(ctx context.Context, ex execer, g models.NewGuest) (int64, error) {
	regType := g.RegistrationType
	if regType == "" {
		regType = models.RegistrationRSVP
	}
	confirmation := g.Confirmation
	if confirmation == "" {
		confirmation = models.ConfirmationToBeConfirmed
	}
	attendance := g.Attendance
	if attendance == "" {
		attendance = models.AttendanceDidNotAttend
	}

	query := `
		INSERT INTO guests (event_id, unique_code, username, email, phone_num, instansi,
			registration_type, confirmation, attendance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := ex.ExecContext(ctx, query,
		g.EventID,
		nullIfEmpty(g.UniqueCode),
		g.Username,
		nullString(g.Email),
		nullString(g.PhoneNum),
		nullString(g.Instansi),
		string(regType),
		string(confirmation),
		string(attendance),
	)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return 0, ErrDuplicateCode
		}
		if db.IsForeignKeyViolation(err) {
			return 0, ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to insert guest: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read guest id: %w", err)
	}

	for key, value := range g.Attributes {
		if err := upsertAttribute(ctx, ex, g.EventID, id, key, value); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// ============================================================
// Lookups - nil, nil when the guest does not exist
// ============================================================

func (r *GuestRepository) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	return r.getOne(ctx, "g.id = ?", id)
}

func (r *GuestRepository) GetByUniqueCode(ctx context.Context, code string) (*models.Guest, error) {
	return r.getOne(ctx, "g.unique_code = ?", code)
}

func (r *GuestRepository) getOne(ctx context.Context, cond string, arg interface{}) (*models.Guest, error) {
	query := "SELECT " + guestColumns + " FROM guests g WHERE " + cond + " LIMIT 1"
	g, err := scanGuest(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}

	attrs, err := r.ListAttributesForGuests(ctx, []int64{g.ID})
	if err != nil {
		return nil, err
	}
	if m, ok := attrs[g.ID]; ok {
		g.Attributes = m
	}
	return g, nil
}

// ============================================================
// List - filtered, searched, sorted and paginated guests of an event
// ============================================================
func (r *GuestRepository) List(ctx context.Context, q models.ListQuery) ([]models.Guest, int, error) {
	whereConditions := []string{"g.event_id = ?"}
	args := []interface{}{q.EventID}

	if len(q.Confirmations) > 0 {
		whereConditions = append(whereConditions, "g.confirmation IN ("+placeholders(len(q.Confirmations))+")")
		for _, c := range q.Confirmations {
			args = append(args, string(c))
		}
	}
	if len(q.Attendances) > 0 {
		whereConditions = append(whereConditions, "g.attendance IN ("+placeholders(len(q.Attendances))+")")
		for _, a := range q.Attendances {
			args = append(args, string(a))
		}
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		whereConditions = append(whereConditions, "(LOWER(g.username) LIKE ? OR LOWER(g.email) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	whereClause := strings.Join(whereConditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM guests g WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count guests: %w", err)
	}
	if total == 0 {
		return []models.Guest{}, 0, nil
	}

	sortColumn, ok := models.SortColumns[q.SortBy]
	if !ok {
		sortColumn = "g.id"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	orderBy := sortColumn + " " + direction
	if sortColumn != "g.id" {
		orderBy += ", g.id ASC"
	}

	query := "SELECT " + guestColumns + " FROM guests g WHERE " + whereClause +
		" ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	pageArgs := append(append([]interface{}{}, args...), q.Limit, q.Offset())

	guests, err := r.queryGuests(ctx, r.db, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return guests, total, nil
}

// ListForExport returns every guest of an event, optionally narrowed to ids, ordered by id
func (r *GuestRepository) ListForExport(ctx context.Context, eventID int64, ids []int64) ([]models.Guest, error) {
	query := "SELECT " + guestColumns + " FROM guests g WHERE g.event_id = ?"
	args := []interface{}{eventID}
	if len(ids) > 0 {
		query += " AND g.id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += " ORDER BY g.id ASC"
	return r.queryGuests(ctx, r.db, query, args...)
}

func (r *GuestRepository) queryGuests(ctx context.Context, q querier, query string, args ...interface{}) ([]models.Guest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	guests := []models.Guest{}
	ids := []int64{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, *g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guests: %w", err)
	}

	if len(ids) == 0 {
		return guests, nil
	}
	attrs, err := r.ListAttributesForGuests(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range guests {
		if m, ok := attrs[guests[i].ID]; ok {
			guests[i].Attributes = m
		}
	}
	return guests, nil
}

// ============================================================
// Update - partial identity update plus attribute upserts
// ============================================================
func (r *GuestRepository) Update(ctx context.Context, id int64, patch models.GuestPatch, attrs map[string]string) (*models.Guest, error) {
	found := true
	err := db.WithRetryTx(ctx, r.db, lockTxAttempts, func(tx *sql.Tx) error {
		found = true
		var eventID int64
		err := tx.QueryRowContext(ctx, "SELECT event_id FROM guests WHERE id = ? FOR UPDATE", id).Scan(&eventID)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock guest: %w", err)
		}

		if !patch.Empty() {
			sets := []string{}
			args := []interface{}{}
			if patch.Username != nil {
				sets = append(sets, "username = ?")
				args = append(args, *patch.Username)
			}
			if patch.Email != nil {
				sets = append(sets, "email = ?")
				args = append(args, nullIfEmpty(*patch.Email))
			}
			if patch.PhoneNum != nil {
				sets = append(sets, "phone_num = ?")
				args = append(args, nullIfEmpty(*patch.PhoneNum))
			}
			if patch.Instansi != nil {
				sets = append(sets, "instansi = ?")
				args = append(args, nullIfEmpty(*patch.Instansi))
			}
			if patch.RegistrationType != nil {
				sets = append(sets, "registration_type = ?")
				args = append(args, string(*patch.RegistrationType))
			}
			if patch.AttributesUpdatedBy != nil {
				sets = append(sets, "attributes_updated_by = ?")
				args = append(args, *patch.AttributesUpdatedBy)
			}
			args = append(args, id)
			query := "UPDATE guests SET " + strings.Join(sets, ", ") + " WHERE id = ?"
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to update guest: %w", err)
			}
		}

		for key, value := range attrs {
			if err := upsertAttribute(ctx, tx, eventID, id, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Delete removes a guest; attributes go with it through the foreign key
func (r *GuestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM guests WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete guest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ============================================================
// CountByConfirmation - per-status totals of an event
// ============================================================
func (r *GuestRepository) CountByConfirmation(ctx context.Context, eventID int64) (models.ConfirmationCounts, error) {
	var counts models.ConfirmationCounts

	rows, err := r.db.QueryContext(ctx,
		"SELECT confirmation, COUNT(*) FROM guests WHERE event_id = ? GROUP BY confirmation", eventID)
	if err != nil {
		return counts, fmt.Errorf("failed to count guests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("failed to scan count: %w", err)
		}
		counts.Add(models.Confirmation(status), n)
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}

// ============================================================
// ApplyStatus - write a derived status change atomically.
// The guest row is locked so concurrent scans serialize, and the
// headcount attribute commits together with the status pair.
// ============================================================
func (r *GuestRepository) ApplyStatus(ctx context.Context, id int64, w models.StatusWrite) (*models.Guest, error) {
	found := true
	err := db.WithRetryTx(ctx, r.db, lockTxAttempts, func(tx *sql.Tx) error {
		found = true
		var eventID int64
		err := tx.QueryRowContext(ctx, "SELECT event_id FROM guests WHERE id = ? FOR UPDATE", id).Scan(&eventID)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock guest: %w", err)
		}

		sets := []string{}
		args := []interface{}{}
		if w.Confirmation != nil {
			sets = append(sets, "confirmation = ?")
			args = append(args, string(*w.Confirmation))
			if w.UpdatedBy != "" {
				sets = append(sets, "confirmation_updated_by = ?")
				args = append(args, w.UpdatedBy)
			}
		}
		if w.Attendance != nil {
			sets = append(sets, "attendance = ?")
			args = append(args, string(*w.Attendance))
			if w.UpdatedBy != "" {
				sets = append(sets, "attendance_updated_by = ?")
				args = append(args, w.UpdatedBy)
			}
		}
		if w.Merchandise != nil {
			sets = append(sets, "merchandise = ?")
			args = append(args, string(*w.Merchandise))
			if w.UpdatedBy != "" {
				sets = append(sets, "merchandise_updated_by = ?")
				args = append(args, w.UpdatedBy)
			}
		}
		if len(sets) > 0 {
			args = append(args, id)
			query := "UPDATE guests SET " + strings.Join(sets, ", ") + " WHERE id = ?"
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to update guest status: %w", err)
			}
		}

		if w.Headcount != nil {
			if err := upsertAttribute(ctx, tx, eventID, id, w.HeadcountKey, strconv.Itoa(*w.Headcount)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// SetAuditField records who last changed a status group
func (r *GuestRepository) SetAuditField(ctx context.Context, id int64, field models.AuditField, value string) (bool, error) {
	if !field.Valid() {
		return false, fmt.Errorf("unknown audit field %q", field)
	}
	query := "UPDATE guests SET " + string(field) + " = ? WHERE id = ?"
	return r.execFound(ctx, id, query, nullIfEmpty(value), id)
}

// SetEmailed marks the invitation as sent, optionally recording the sender
func (r *GuestRepository) SetEmailed(ctx context.Context, id int64, emailed bool, sentBy string) (bool, error) {
	if sentBy == "" {
		return r.execFound(ctx, id, "UPDATE guests SET emailed = ? WHERE id = ?", emailed, id)
	}
	return r.execFound(ctx, id, "UPDATE guests SET emailed = ?, email_sent_by = ? WHERE id = ?", emailed, sentBy, id)
}

// execFound runs an UPDATE and reports whether the guest exists. MySQL reports
// zero affected rows for a no-op update, so a miss is confirmed with a lookup.
func (r *GuestRepository) execFound(ctx context.Context, id int64, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update guest: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM guests WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check guest: %w", err)
	}
	return true, nil
}
