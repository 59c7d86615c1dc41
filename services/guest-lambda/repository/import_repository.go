package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// GetEventInfo returns nil, nil when the event does not exist
func (r *GuestRepository) GetEventInfo(ctx context.Context, eventID int64) (*models.EventInfo, error) {
	return r.getEvent(ctx, "id = ?", eventID)
}

// FindEventByNameAndSales locates the event an import workbook refers to
func (r *GuestRepository) FindEventByNameAndSales(ctx context.Context, name, sales string) (*models.EventInfo, error) {
	return r.getEvent(ctx, "name = ? AND sales = ?", name, sales)
}

func (r *GuestRepository) getEvent(ctx context.Context, cond string, args ...interface{}) (*models.EventInfo, error) {
	query := `
		SELECT id, name, company, start_date, end_date, event_time, location, sales
		FROM events
		WHERE ` + cond + `
		ORDER BY id DESC
		LIMIT 1
	`
	var (
		e         models.EventInfo
		company   sql.NullString
		eventTime sql.NullString
		location  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&e.ID,
		&e.Name,
		&company,
		&e.StartDate,
		&e.EndDate,
		&eventTime,
		&location,
		&e.Sales,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	e.Company = stringPtr(company)
	e.EventTime = stringPtr(eventTime)
	e.Location = stringPtr(location)
	return &e, nil
}

// ImportEvent creates an event and all of its guests in one transaction
func (r *GuestRepository) ImportEvent(ctx context.Context, ev models.ImportedEvent, guests []models.NewGuest) (int64, error) {
	var eventID int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (name, company, start_date, end_date, event_time, loading_date,
				sales, account_manager, location, discord_channel, drive_folder, last_updated_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		var loading interface{}
		if ev.LoadingDate != nil {
			loading = *ev.LoadingDate
		}
		res, err := tx.ExecContext(ctx, query,
			ev.Name,
			nullIfEmpty(ev.Company),
			ev.StartDate,
			ev.EndDate,
			nullIfEmpty(ev.EventTime),
			loading,
			ev.Sales,
			ev.AccountManager,
			nullIfEmpty(ev.Location),
			nullIfEmpty(ev.DiscordChannel),
			nullIfEmpty(ev.DriveFolder),
			nullIfEmpty(ev.CreatedBy),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		eventID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read event id: %w", err)
		}

		return insertGuests(ctx, tx, eventID, guests)
	})
	if err != nil {
		return 0, err
	}
	return eventID, nil
}

// ImportGuests adds guests to an existing event in one transaction
func (r *GuestRepository) ImportGuests(ctx context.Context, eventID int64, guests []models.NewGuest) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertGuests(ctx, tx, eventID, guests)
	})
}

func insertGuests(ctx context.Context, tx *sql.Tx, eventID int64, guests []models.NewGuest) error {
	for i := range guests {
		g := guests[i]
		g.EventID = eventID
		if _, err := insertGuest(ctx, tx, g); err != nil {
			if errors.Is(err, ErrDuplicateCode) || errors.Is(err, ErrEventNotFound) {
				return err
			}
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}
