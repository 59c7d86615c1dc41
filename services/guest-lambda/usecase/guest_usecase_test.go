package usecase

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"testing"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

const testBaseURL = "https://rsvp.example.com/"

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

func newTestUseCase() (*GuestUseCase, *fakeStore, *fakeMailer) {
	store := newFakeStore()
	mailer := &fakeMailer{fail: map[string]bool{}}
	return NewGuestUseCaseWith(store, mailer, nil, testBaseURL), store, mailer
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return http.StatusOK
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr.HTTPStatus
}

func TestResolveGuest(t *testing.T) {
	uc, store, _ := newTestUseCase()
	ayu := store.seed(models.Guest{ID: 1, UniqueCode: strPtr("aZ3kP9qL"), Username: "Ayu"})
	legacy := store.seed(models.Guest{ID: 2, Username: "Legacy"})
	numeric := store.seed(models.Guest{ID: 3, UniqueCode: strPtr("12345678"), Username: "Numeric"})

	tests := []struct {
		name       string
		identifier string
		wantID     int64
		wantStatus int
	}{
		{"By code", "aZ3kP9qL", ayu.ID, http.StatusOK},
		{"By id", "1", ayu.ID, http.StatusOK},
		{"Legacy guest by id", "2", legacy.ID, http.StatusOK},
		{"Numeric code falls back to code lookup", "12345678", numeric.ID, http.StatusOK},
		{"Whitespace trimmed", "  aZ3kP9qL ", ayu.ID, http.StatusOK},
		{"Unknown code", "zzzzzzzz", 0, http.StatusNotFound},
		{"Unknown id", "999", 0, http.StatusNotFound},
		{"Code lookup is exact", "az3kp9ql", 0, http.StatusNotFound},
		{"Empty", "   ", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := uc.ResolveGuest(context.Background(), tt.identifier)
			if got := statusOf(t, err); got != tt.wantStatus {
				t.Fatalf("status = %d, want %d (err %v)", got, tt.wantStatus, err)
			}
			if tt.wantStatus == http.StatusOK && g.ID != tt.wantID {
				t.Errorf("resolved guest %d, want %d", g.ID, tt.wantID)
			}
		})
	}
}

func TestGetGuestByCodeIgnoresIDs(t *testing.T) {
	uc, store, _ := newTestUseCase()
	store.seed(models.Guest{ID: 1, UniqueCode: strPtr("aZ3kP9qL")})

	if _, err := uc.GetGuestByCode(context.Background(), "1"); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("expected 404 for id on code-only lookup, got %v", err)
	}
	if g, err := uc.GetGuestByCode(context.Background(), "aZ3kP9qL"); err != nil || g.ID != 1 {
		t.Errorf("GetGuestByCode = %v, %v", g, err)
	}
}

func TestCreateGuest(t *testing.T) {
	tests := []struct {
		name         string
		req          models.CreateGuestRequest
		collide      int
		seedCode     string
		wantStatus   int
		wantCalls    int
		wantConf     models.Confirmation
		wantAttend   models.Attendance
		wantPhone    string
		wantCode     string
		wantAttrKeys int
	}{
		{
			name:       "Generated code",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", Email: "ayu@example.com"},
			wantStatus: http.StatusOK, wantCalls: 1,
			wantConf: models.ConfirmationToBeConfirmed, wantAttend: models.AttendanceDidNotAttend,
		},
		{
			name:       "Collisions are retried with fresh codes",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu"},
			collide:    2,
			wantStatus: http.StatusOK, wantCalls: 3,
			wantConf: models.ConfirmationToBeConfirmed, wantAttend: models.AttendanceDidNotAttend,
		},
		{
			name:       "Retries are bounded",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu"},
			collide:    50,
			wantStatus: http.StatusConflict, wantCalls: 5,
		},
		{
			name:       "Supplied code is kept",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", UniqueCode: "Qw3rTy12"},
			wantStatus: http.StatusOK, wantCalls: 1, wantCode: "Qw3rTy12",
			wantConf: models.ConfirmationToBeConfirmed, wantAttend: models.AttendanceDidNotAttend,
		},
		{
			name:       "Supplied duplicate code is not retried",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", UniqueCode: "aZ3kP9qL"},
			seedCode:   "aZ3kP9qL",
			wantStatus: http.StatusConflict, wantCalls: 1,
		},
		{
			name:       "Supplied code must be 8 alphanumerics",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", UniqueCode: "abc-123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Supplied code must contain a letter",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", UniqueCode: "12345678"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Confirmation implies attendance",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", Confirmation: "confirmed"},
			wantStatus: http.StatusOK, wantCalls: 1,
			wantConf: models.ConfirmationConfirmed, wantAttend: models.AttendanceAttended,
		},
		{
			name:       "Underscore spelling accepted",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", Attendance: "did_not_attend"},
			wantStatus: http.StatusOK, wantCalls: 1,
			wantConf: models.ConfirmationToBeConfirmed, wantAttend: models.AttendanceDidNotAttend,
		},
		{
			name:       "Inconsistent pair rejected",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", Confirmation: "confirmed", Attendance: "did not attend"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Phone normalized",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", PhoneNum: "+1 650-253-0000"},
			wantStatus: http.StatusOK, wantCalls: 1, wantPhone: "+16502530000",
			wantConf: models.ConfirmationToBeConfirmed, wantAttend: models.AttendanceDidNotAttend,
		},
		{
			name: "Attributes stored with trimmed keys",
			req: models.CreateGuestRequest{EventID: 1, Username: "Ayu",
				Attributes: map[string]string{" Jabatan ": "Manager", "": "dropped"}},
			wantStatus: http.StatusOK, wantCalls: 1, wantAttrKeys: 1,
			wantConf: models.ConfirmationToBeConfirmed, wantAttend: models.AttendanceDidNotAttend,
		},
		{
			name:       "Missing event",
			req:        models.CreateGuestRequest{EventID: 404, Username: "Ayu"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Missing username",
			req:        models.CreateGuestRequest{EventID: 1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Bad email",
			req:        models.CreateGuestRequest{EventID: 1, Username: "Ayu", Email: "not-an-email"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, store, _ := newTestUseCase()
			if tt.seedCode != "" {
				store.seed(models.Guest{ID: 100, UniqueCode: strPtr(tt.seedCode)})
			}
			store.collide = tt.collide

			v, err := uc.CreateGuest(context.Background(), tt.req)
			if got := statusOf(t, err); got != tt.wantStatus {
				t.Fatalf("status = %d, want %d (err %v)", got, tt.wantStatus, err)
			}
			if store.createCalls != tt.wantCalls {
				t.Errorf("create calls = %d, want %d", store.createCalls, tt.wantCalls)
			}
			if err != nil {
				return
			}

			code := v.Code()
			if !codePattern.MatchString(code) {
				t.Errorf("code %q does not match [A-Za-z0-9]{8}", code)
			}
			if tt.wantCode != "" && code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if v.Confirmation != tt.wantConf || v.Attendance != tt.wantAttend {
				t.Errorf("status = %q/%q, want %q/%q", v.Confirmation, v.Attendance, tt.wantConf, tt.wantAttend)
			}
			if tt.wantPhone != "" && (v.PhoneNum == nil || *v.PhoneNum != tt.wantPhone) {
				t.Errorf("phone = %v, want %q", v.PhoneNum, tt.wantPhone)
			}
			if len(v.Attributes) != tt.wantAttrKeys {
				t.Errorf("attributes = %v", v.Attributes)
			}
			if v.QRContent != "https://rsvp.example.com/guest/"+code {
				t.Errorf("qrContent = %q", v.QRContent)
			}
			if !strings.HasPrefix(v.QRCode, "data:image/png;base64,") {
				t.Errorf("qrCode is not a PNG data URI: %.40q", v.QRCode)
			}
		})
	}
}

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name       string
		params     ListParams
		wantStatus int
		check      func(t *testing.T, q models.ListQuery)
	}{
		{
			name:       "Defaults",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q models.ListQuery) {
				if q.Page != 1 || q.Limit != 10 || q.SortBy != "id" || q.SortDesc {
					t.Errorf("defaults = %+v", q)
				}
			},
		},
		{
			name:       "Filters and paging",
			params:     ListParams{Confirmation: "confirmed, represented", Attendance: "did_not_attend", Page: "2", Limit: "10", SortBy: "username", SortOrder: "DESC"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q models.ListQuery) {
				if len(q.Confirmations) != 2 || q.Confirmations[1] != models.ConfirmationRepresented {
					t.Errorf("confirmations = %v", q.Confirmations)
				}
				if len(q.Attendances) != 1 || q.Attendances[0] != models.AttendanceDidNotAttend {
					t.Errorf("attendances = %v", q.Attendances)
				}
				if q.Page != 2 || q.Offset() != 10 || q.SortBy != "username" || !q.SortDesc {
					t.Errorf("query = %+v", q)
				}
			},
		},
		{
			name:       "Limit capped",
			params:     ListParams{Limit: "500"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, q models.ListQuery) {
				if q.Limit != 100 {
					t.Errorf("limit = %d, want 100", q.Limit)
				}
			},
		},
		{name: "Unknown sort column", params: ListParams{SortBy: "password"}, wantStatus: http.StatusBadRequest},
		{name: "Bad sort order", params: ListParams{SortOrder: "sideways"}, wantStatus: http.StatusBadRequest},
		{name: "Zero page", params: ListParams{Page: "0"}, wantStatus: http.StatusBadRequest},
		{name: "Non-numeric limit", params: ListParams{Limit: "ten"}, wantStatus: http.StatusBadRequest},
		{name: "Unknown confirmation", params: ListParams{Confirmation: "confirmed,maybe"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := BuildListQuery(1, tt.params)
			if got := statusOf(t, err); got != tt.wantStatus {
				t.Fatalf("status = %d, want %d (err %v)", got, tt.wantStatus, err)
			}
			if tt.check != nil {
				tt.check(t, q)
			}
		})
	}
}

func TestListGuestsFiltersAndPaginates(t *testing.T) {
	uc, store, _ := newTestUseCase()
	statuses := []models.Confirmation{
		models.ConfirmationConfirmed,
		models.ConfirmationRepresented,
		models.ConfirmationToBeConfirmed,
		models.ConfirmationCancelled,
	}
	for i := 1; i <= 40; i++ {
		store.seed(models.Guest{ID: int64(i), Username: "Guest", Confirmation: statuses[i%4]})
	}

	q, err := BuildListQuery(1, ListParams{Confirmation: "confirmed,represented", Page: "2", Limit: "10"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := uc.ListGuests(context.Background(), q)
	if err != nil {
		t.Fatalf("ListGuests: %v", err)
	}

	if len(resp.Guests) > 10 {
		t.Fatalf("page has %d guests", len(resp.Guests))
	}
	var prev int64
	for _, g := range resp.Guests {
		if g.Confirmation != models.ConfirmationConfirmed && g.Confirmation != models.ConfirmationRepresented {
			t.Errorf("guest %d has confirmation %q", g.ID, g.Confirmation)
		}
		if g.ID <= prev {
			t.Errorf("guests not sorted by id: %d after %d", g.ID, prev)
		}
		prev = g.ID
		if g.QRContent != strconv.FormatInt(g.ID, 10) {
			t.Errorf("legacy guest %d has qrContent %q", g.ID, g.QRContent)
		}
	}
	want := models.Pagination{Page: 2, Limit: 10, Total: 20, TotalPages: 2}
	if resp.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", resp.Pagination, want)
	}
}

func TestListGuestsEmpty(t *testing.T) {
	uc, _, _ := newTestUseCase()
	q, _ := BuildListQuery(1, ListParams{})
	resp, err := uc.ListGuests(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Guests == nil || len(resp.Guests) != 0 || resp.Pagination.TotalPages != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUpdateGuest(t *testing.T) {
	uc, store, _ := newTestUseCase()
	store.seed(models.Guest{ID: 1, UniqueCode: strPtr("aZ3kP9qL"), Username: "Ayu"})

	name := "Ayu Lestari"
	rt := "ots"
	v, err := uc.UpdateGuest(context.Background(), 1, models.UpdateGuestRequest{
		Username:         &name,
		RegistrationType: &rt,
		Attributes:       map[string]string{"Jabatan": "Director"},
	}, "ops@example.com")
	if err != nil {
		t.Fatalf("UpdateGuest: %v", err)
	}
	if v.Username != name || v.RegistrationType != models.RegistrationOTS {
		t.Errorf("guest = %+v", v.Guest)
	}
	if v.Attributes["Jabatan"] != "Director" {
		t.Errorf("attributes = %v", v.Attributes)
	}
	if v.AttributesUpdatedBy == nil || *v.AttributesUpdatedBy != "ops@example.com" {
		t.Errorf("attributes_updated_by = %v", v.AttributesUpdatedBy)
	}
	if v.QRContent != "https://rsvp.example.com/guest/aZ3kP9qL" {
		t.Errorf("qrContent = %q", v.QRContent)
	}

	if _, err := uc.UpdateGuest(context.Background(), 1, models.UpdateGuestRequest{}, ""); statusOf(t, err) != http.StatusBadRequest {
		t.Errorf("empty update: %v", err)
	}
	if _, err := uc.UpdateGuest(context.Background(), 99, models.UpdateGuestRequest{Username: &name}, ""); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("missing guest: %v", err)
	}
}

func TestDeleteGuest(t *testing.T) {
	uc, store, _ := newTestUseCase()
	store.seed(models.Guest{ID: 1})

	if err := uc.DeleteGuest(context.Background(), 1); err != nil {
		t.Fatalf("DeleteGuest: %v", err)
	}
	if err := uc.DeleteGuest(context.Background(), 1); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("second delete: %v", err)
	}
}

func TestCountByConfirmation(t *testing.T) {
	uc, store, _ := newTestUseCase()
	store.seed(models.Guest{ID: 1, Confirmation: models.ConfirmationConfirmed})
	store.seed(models.Guest{ID: 2, Confirmation: models.ConfirmationConfirmed})
	store.seed(models.Guest{ID: 3, Confirmation: models.ConfirmationCancelled})

	c, err := uc.CountByConfirmation(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if c.Confirmed != 2 || c.Cancelled != 1 || c.Invitation != 3 {
		t.Errorf("counts = %+v", c)
	}
}
