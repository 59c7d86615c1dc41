package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/digioh-event-services/services/event-lambda/models"
)

var eventCols = []string{
	"id", "name", "company", "start_date", "end_date", "event_time", "loading_date", "sales",
	"account_manager", "location", "discord_channel", "drive_folder", "last_updated_by",
	"created_at", "updated_at",
}

var (
	day1 = time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 11, 4, 0, 0, 0, 0, time.UTC)
)

func eventRow(rows *sqlmock.Rows, id int64, name string) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "PT Maju", day1, day2, "09:00", nil, "Rina",
		"Dewi", "Jakarta", nil, nil, "ops@example.com",
		day1, day1,
	)
}

func newMock(t *testing.T) (*EventRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		conn.Close()
	})
	return NewEventRepositoryWithDB(conn), mock
}

func TestGetByID(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(eventRow(sqlmock.NewRows(eventCols), 3, "Launch"))

	e, err := repo.GetByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e == nil || e.Name != "Launch" {
		t.Fatalf("event = %+v", e)
	}
	if e.Company == nil || *e.Company != "PT Maju" {
		t.Errorf("company = %v", e.Company)
	}
	if e.LoadingDate != nil || e.DiscordChannel != nil {
		t.Errorf("NULL columns should scan to nil: %+v", e)
	}
	if !e.EndDate.Equal(day2) {
		t.Errorf("end date = %v", e.EndDate)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(eventCols))

	e, err := repo.GetByID(context.Background(), 9)
	if err != nil || e != nil {
		t.Fatalf("GetByID = %v, %v; want nil, nil", e, err)
	}
}

func TestStats(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM guests WHERE event_id = ? GROUP BY confirmation")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"confirmation", "count"}).
			AddRow("confirmed", 4).
			AddRow("to be confirmed", 2).
			AddRow("cancelled", 1))

	stats, err := repo.Stats(context.Background(), 3)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := models.EventStats{Invitation: 7, Confirmed: 4, ToBeConfirmed: 2, Cancelled: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestCreate(t *testing.T) {
	repo, mock := newMock(t)
	company := "PT Maju"
	by := "ops@example.com"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs("Launch", company, day1, day2, nil, nil, "Rina", "Dewi", nil, nil, nil, by).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(eventRow(sqlmock.NewRows(eventCols), 3, "Launch"))

	e, err := repo.Create(context.Background(), models.Event{
		Name:           "Launch",
		Company:        &company,
		StartDate:      day1,
		EndDate:        day2,
		Sales:          "Rina",
		AccountManager: "Dewi",
		LastUpdatedBy:  &by,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID != 3 {
		t.Errorf("id = %d", e.ID)
	}
}

func TestUpdate(t *testing.T) {
	t.Run("sets only given columns", func(t *testing.T) {
		repo, mock := newMock(t)
		name := "Launch Day"
		by := "admin@example.com"

		mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET name = ?, loading_date = ?, last_updated_by = ? WHERE id = ?")).
			WithArgs(name, nil, by, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
			WithArgs(int64(3)).
			WillReturnRows(eventRow(sqlmock.NewRows(eventCols), 3, name))

		e, err := repo.Update(context.Background(), 3, models.EventPatch{Name: &name, ClearLoading: true, LastUpdatedBy: &by})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if e.Name != name {
			t.Errorf("name = %q", e.Name)
		}
	})

	t.Run("empty patch only reads", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(eventCols))

		e, err := repo.Update(context.Background(), 3, models.EventPatch{})
		if err != nil || e != nil {
			t.Fatalf("Update = %v, %v", e, err)
		}
	})
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"deleted", 1, true},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).
				WithArgs(int64(5)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.Delete(context.Background(), 5)
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Delete = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestAttributeKeys(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT attribute_key FROM attributes WHERE event_id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"attribute_key"}).AddRow("Jabatan").AddRow("Jumlah Orang"))

	keys, err := repo.AttributeKeys(context.Background(), 3)
	if err != nil {
		t.Fatalf("AttributeKeys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "Jabatan" {
		t.Errorf("keys = %v", keys)
	}
}
