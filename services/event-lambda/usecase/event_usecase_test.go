package usecase

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/services/event-lambda/models"
)

// fakeEventStore keeps events and per-event guest confirmations in memory
type fakeEventStore struct {
	events        map[int64]models.Event
	confirmations map[int64][]string
	attrKeys      map[int64][]string
	nextID        int64
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events:        map[int64]models.Event{},
		confirmations: map[int64][]string{},
		attrKeys:      map[int64][]string{},
		nextID:        1,
	}
}

func (s *fakeEventStore) List(ctx context.Context) ([]models.Event, error) {
	out := []models.Event{}
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeEventStore) ListNames(ctx context.Context) ([]models.EventName, error) {
	out := []models.EventName{}
	for _, e := range s.events {
		out = append(out, models.EventName{ID: e.ID, Name: e.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *fakeEventStore) Stats(ctx context.Context, eventID int64) (models.EventStats, error) {
	var stats models.EventStats
	for _, c := range s.confirmations[eventID] {
		stats.Add(c, 1)
	}
	return stats, nil
}

func (s *fakeEventStore) AttributeKeys(ctx context.Context, eventID int64) ([]string, error) {
	return append([]string{}, s.attrKeys[eventID]...), nil
}

func (s *fakeEventStore) Create(ctx context.Context, e models.Event) (*models.Event, error) {
	e.ID = s.nextID
	s.nextID++
	s.events[e.ID] = e
	return &e, nil
}

func (s *fakeEventStore) Update(ctx context.Context, id int64, p models.EventPatch) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.ClearLoading {
		e.LoadingDate = nil
	} else if p.LoadingDate != nil {
		e.LoadingDate = p.LoadingDate
	}
	if p.Sales != nil {
		e.Sales = *p.Sales
	}
	if p.LastUpdatedBy != nil {
		e.LastUpdatedBy = p.LastUpdatedBy
	}
	s.events[id] = e
	return &e, nil
}

func (s *fakeEventStore) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := s.events[id]; !ok {
		return false, nil
	}
	delete(s.events, id)
	delete(s.confirmations, id)
	return true, nil
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("error %v is not an AppError", err)
	}
	return appErr.HTTPStatus
}

func validCreate() models.CreateEventRequest {
	return models.CreateEventRequest{
		Name:           "Product Launch",
		Company:        "PT Maju",
		StartDate:      "2026-11-03",
		EndDate:        "2026-11-04",
		LoadingDate:    "2026-11-02",
		Sales:          "Rina",
		AccountManager: "Dewi",
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("stores parsed dates and operator", func(t *testing.T) {
		uc := NewEventUseCaseWith(newFakeEventStore())
		e, err := uc.CreateEvent(ctx, validCreate(), "ops@example.com")
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		if !e.StartDate.Equal(time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("start = %v", e.StartDate)
		}
		if e.LoadingDate == nil || e.LoadingDate.Day() != 2 {
			t.Errorf("loading = %v", e.LoadingDate)
		}
		if e.LastUpdatedBy == nil || *e.LastUpdatedBy != "ops@example.com" {
			t.Errorf("last_updated_by = %v", e.LastUpdatedBy)
		}
		if e.Location != nil {
			t.Errorf("empty location should be nil, got %q", *e.Location)
		}
	})

	tests := []struct {
		name   string
		mutate func(*models.CreateEventRequest)
	}{
		{"missing name", func(r *models.CreateEventRequest) { r.Name = "" }},
		{"missing sales", func(r *models.CreateEventRequest) { r.Sales = "" }},
		{"missing account manager", func(r *models.CreateEventRequest) { r.AccountManager = "" }},
		{"bad start date", func(r *models.CreateEventRequest) { r.StartDate = "soon" }},
		{"end before start", func(r *models.CreateEventRequest) { r.EndDate = "2026-11-01" }},
		{"loading after end", func(r *models.CreateEventRequest) { r.LoadingDate = "2026-11-05" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeEventStore()
			uc := NewEventUseCaseWith(store)
			req := validCreate()
			tt.mutate(&req)

			_, err := uc.CreateEvent(ctx, req, "ops@example.com")
			if err == nil {
				t.Fatal("CreateEvent succeeded")
			}
			if got := statusOf(t, err); got != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", got)
			}
			if len(store.events) != 0 {
				t.Errorf("rejected event was stored")
			}
		})
	}
}

func TestGetEventStats(t *testing.T) {
	ctx := context.Background()
	store := newFakeEventStore()
	uc := NewEventUseCaseWith(store)
	e, err := uc.CreateEvent(ctx, validCreate(), "")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	store.confirmations[e.ID] = []string{"confirmed", "confirmed", "represented", "to be confirmed", "cancelled"}

	detail, err := uc.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	want := models.EventStats{Invitation: 5, Confirmed: 2, Represented: 1, ToBeConfirmed: 1, Cancelled: 1}
	if detail.EventStats != want || detail.Stats != want {
		t.Errorf("stats = %+v / %+v, want %+v", detail.EventStats, detail.Stats, want)
	}
	if detail.Name != "Product Launch" {
		t.Errorf("name = %q", detail.Name)
	}

	if _, err := uc.GetEvent(ctx, 99); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("missing event: %v", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	str := func(s string) *string { return &s }

	setup := func(t *testing.T) (*EventUseCase, int64) {
		t.Helper()
		uc := NewEventUseCaseWith(newFakeEventStore())
		e, err := uc.CreateEvent(ctx, validCreate(), "ops@example.com")
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		return uc, e.ID
	}

	t.Run("partial update records operator", func(t *testing.T) {
		uc, id := setup(t)
		e, err := uc.UpdateEvent(ctx, id, models.UpdateEventRequest{Name: str(" Launch Day ")}, "admin@example.com")
		if err != nil {
			t.Fatalf("UpdateEvent: %v", err)
		}
		if e.Name != "Launch Day" {
			t.Errorf("name = %q", e.Name)
		}
		if e.Sales != "Rina" {
			t.Errorf("untouched sales changed to %q", e.Sales)
		}
		if *e.LastUpdatedBy != "admin@example.com" {
			t.Errorf("last_updated_by = %q", *e.LastUpdatedBy)
		}
	})

	t.Run("empty loading date clears it", func(t *testing.T) {
		uc, id := setup(t)
		e, err := uc.UpdateEvent(ctx, id, models.UpdateEventRequest{LoadingDate: str("")}, "admin@example.com")
		if err != nil {
			t.Fatalf("UpdateEvent: %v", err)
		}
		if e.LoadingDate != nil {
			t.Errorf("loading = %v, want nil", e.LoadingDate)
		}
	})

	t.Run("new end date checked against stored start", func(t *testing.T) {
		uc, id := setup(t)
		_, err := uc.UpdateEvent(ctx, id, models.UpdateEventRequest{EndDate: str("2026-11-01")}, "admin@example.com")
		if statusOf(t, err) != http.StatusBadRequest {
			t.Errorf("err = %v, want 400", err)
		}
	})

	t.Run("missing event", func(t *testing.T) {
		uc, _ := setup(t)
		_, err := uc.UpdateEvent(ctx, 42, models.UpdateEventRequest{Name: str("x")}, "admin@example.com")
		if statusOf(t, err) != http.StatusNotFound {
			t.Errorf("err = %v, want 404", err)
		}
	})
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		role   string
		id     int64
		status int
	}{
		{"admin", "admin", 1, 0},
		{"admin any case", "Admin", 1, 0},
		{"user denied", "user", 1, http.StatusForbidden},
		{"no role denied", "", 1, http.StatusForbidden},
		{"missing event", "admin", 7, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeEventStore()
			uc := NewEventUseCaseWith(store)
			if _, err := uc.CreateEvent(ctx, validCreate(), ""); err != nil {
				t.Fatalf("CreateEvent: %v", err)
			}

			err := uc.DeleteEvent(ctx, tt.id, tt.role)
			if tt.status == 0 {
				if err != nil {
					t.Fatalf("DeleteEvent: %v", err)
				}
				if len(store.events) != 0 {
					t.Error("event still stored")
				}
				return
			}
			if got := statusOf(t, err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
			if tt.status == http.StatusForbidden && len(store.events) != 1 {
				t.Error("denied delete removed the event")
			}
		})
	}
}

func TestAttributeKeys(t *testing.T) {
	ctx := context.Background()
	store := newFakeEventStore()
	uc := NewEventUseCaseWith(store)
	e, _ := uc.CreateEvent(ctx, validCreate(), "")
	store.attrKeys[e.ID] = []string{"Jabatan", "Jumlah Orang"}

	keys, err := uc.AttributeKeys(ctx, e.ID)
	if err != nil {
		t.Fatalf("AttributeKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %v", keys)
	}
	if _, err := uc.AttributeKeys(ctx, 99); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("missing event: %v", err)
	}
}
