package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/services/event-lambda/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository() *EventRepository {
	return &EventRepository{
		db: db.GetDB(),
	}
}

// NewEventRepositoryWithDB binds the repository to conn
func NewEventRepositoryWithDB(conn *sql.DB) *EventRepository {
	return &EventRepository{db: conn}
}

const eventColumns = `
	id, name, company, start_date, end_date, event_time, loading_date, sales,
	account_manager, location, discord_channel, drive_folder, last_updated_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var company, eventTime, location, discord, drive, lastUpdatedBy sql.NullString
	var loading sql.NullTime

	err := row.Scan(
		&e.ID, &e.Name, &company, &e.StartDate, &e.EndDate, &eventTime, &loading, &e.Sales,
		&e.AccountManager, &location, &discord, &drive, &lastUpdatedBy,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Company = stringPtr(company)
	e.EventTime = stringPtr(eventTime)
	e.Location = stringPtr(location)
	e.DiscordChannel = stringPtr(discord)
	e.DriveFolder = stringPtr(drive)
	e.LastUpdatedBy = stringPtr(lastUpdatedBy)
	if loading.Valid {
		t := loading.Time
		e.LoadingDate = &t
	}
	return &e, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// ============================================================
// Reads - nil, nil when the event does not exist
// ============================================================

// List returns every event, most recent start first
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events ORDER BY start_date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// ListNames returns id and name of every event, alphabetically
func (r *EventRepository) ListNames(ctx context.Context) ([]models.EventName, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM events ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query event names: %w", err)
	}
	defer rows.Close()

	names := []models.EventName{}
	for rows.Next() {
		var n models.EventName
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan event name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event names: %w", err)
	}
	return names, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// Stats counts the event's guests by confirmation
func (r *EventRepository) Stats(ctx context.Context, eventID int64) (models.EventStats, error) {
	var stats models.EventStats

	rows, err := r.db.QueryContext(ctx,
		"SELECT confirmation, COUNT(*) FROM guests WHERE event_id = ? GROUP BY confirmation", eventID)
	if err != nil {
		return stats, fmt.Errorf("failed to count guests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("failed to scan count: %w", err)
		}
		stats.Add(status, n)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return stats, nil
}

// AttributeKeys lists the distinct attribute keys used by the event's guests
func (r *EventRepository) AttributeKeys(ctx context.Context, eventID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT attribute_key FROM attributes WHERE event_id = ? ORDER BY attribute_key", eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan attribute key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attribute keys: %w", err)
	}
	return keys, nil
}

// ============================================================
// Writes
// ============================================================

// Create inserts an event and returns it
func (r *EventRepository) Create(ctx context.Context, e models.Event) (*models.Event, error) {
	query := `
		INSERT INTO events (name, company, start_date, end_date, event_time, loading_date,
			sales, account_manager, location, discord_channel, drive_folder, last_updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		e.Name,
		nullPtr(e.Company),
		e.StartDate,
		e.EndDate,
		nullPtr(e.EventTime),
		nullTime(e.LoadingDate),
		e.Sales,
		e.AccountManager,
		nullPtr(e.Location),
		nullPtr(e.DiscordChannel),
		nullPtr(e.DriveFolder),
		nullPtr(e.LastUpdatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read event id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func nullPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return nullIfEmpty(*s)
}

// Update applies a partial update; nil, nil when the event does not exist
func (r *EventRepository) Update(ctx context.Context, id int64, p models.EventPatch) (*models.Event, error) {
	sets := []string{}
	args := []interface{}{}
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Company != nil {
		set("company", nullIfEmpty(*p.Company))
	}
	if p.StartDate != nil {
		set("start_date", *p.StartDate)
	}
	if p.EndDate != nil {
		set("end_date", *p.EndDate)
	}
	if p.EventTime != nil {
		set("event_time", nullIfEmpty(*p.EventTime))
	}
	if p.ClearLoading {
		set("loading_date", nil)
	} else if p.LoadingDate != nil {
		set("loading_date", *p.LoadingDate)
	}
	if p.Sales != nil {
		set("sales", *p.Sales)
	}
	if p.AccountManager != nil {
		set("account_manager", *p.AccountManager)
	}
	if p.Location != nil {
		set("location", nullIfEmpty(*p.Location))
	}
	if p.DiscordChannel != nil {
		set("discord_channel", nullIfEmpty(*p.DiscordChannel))
	}
	if p.DriveFolder != nil {
		set("drive_folder", nullIfEmpty(*p.DriveFolder))
	}
	if p.LastUpdatedBy != nil {
		set("last_updated_by", *p.LastUpdatedBy)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE events SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("failed to update event: %w", err)
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event; guests and attributes cascade
func (r *EventRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
