package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/digioh-event-services/common/email"
	"github.com/digioh-event-services/services/guest-lambda/models"
	"github.com/digioh-event-services/services/guest-lambda/repository"
)

// fakeStore is an in-memory GuestStore
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	guests map[int64]*models.Guest
	events map[int64]*models.EventInfo

	// collide makes the next n inserts fail with a duplicate code
	collide     int
	createCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID: 1,
		guests: map[int64]*models.Guest{},
		events: map[int64]*models.EventInfo{
			1: {ID: 1, Name: "Digital Summit", Sales: "Rina", StartDate: time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func clone(g *models.Guest) *models.Guest {
	c := *g
	c.Attributes = make(map[string]string, len(g.Attributes))
	for k, v := range g.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

func strPtr(s string) *string { return &s }

// seed inserts a guest directly, bypassing validation
func (s *fakeStore) seed(g models.Guest) *models.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		g.ID = s.nextID
	}
	if g.ID >= s.nextID {
		s.nextID = g.ID + 1
	}
	if g.EventID == 0 {
		g.EventID = 1
	}
	if g.Confirmation == "" {
		g.Confirmation = models.ConfirmationToBeConfirmed
	}
	if g.Attendance == "" {
		g.Attendance = models.AttendanceDidNotAttend
	}
	if g.Merchandise == "" {
		g.Merchandise = models.MerchandiseNotReceived
	}
	if g.Attributes == nil {
		g.Attributes = map[string]string{}
	}
	s.guests[g.ID] = clone(&g)
	return clone(&g)
}

func (s *fakeStore) codeTaken(code string) bool {
	for _, g := range s.guests {
		if g.Code() == code {
			return true
		}
	}
	return false
}

func (s *fakeStore) insert(ng models.NewGuest) (*models.Guest, error) {
	s.createCalls++
	if s.collide > 0 {
		s.collide--
		return nil, repository.ErrDuplicateCode
	}
	if ng.UniqueCode != "" && s.codeTaken(ng.UniqueCode) {
		return nil, repository.ErrDuplicateCode
	}
	if _, ok := s.events[ng.EventID]; !ok {
		return nil, repository.ErrEventNotFound
	}
	g := &models.Guest{
		ID:               s.nextID,
		EventID:          ng.EventID,
		Username:         ng.Username,
		Email:            ng.Email,
		PhoneNum:         ng.PhoneNum,
		Instansi:         ng.Instansi,
		RegistrationType: ng.RegistrationType,
		Confirmation:     ng.Confirmation,
		Attendance:       ng.Attendance,
		Merchandise:      models.MerchandiseNotReceived,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
		Attributes:       map[string]string{},
	}
	if ng.UniqueCode != "" {
		g.UniqueCode = strPtr(ng.UniqueCode)
	}
	for k, v := range ng.Attributes {
		g.Attributes[k] = v
	}
	s.nextID++
	s.guests[g.ID] = g
	return clone(g), nil
}

func (s *fakeStore) Create(ctx context.Context, ng models.NewGuest) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ng)
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.guests[id]; ok {
		return clone(g), nil
	}
	return nil, nil
}

func (s *fakeStore) GetByUniqueCode(ctx context.Context, code string) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if g.Code() == code {
			return clone(g), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) sortedGuests(eventID int64) []*models.Guest {
	var out []*models.Guest
	for _, g := range s.guests {
		if g.EventID == eventID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeStore) List(ctx context.Context, q models.ListQuery) ([]models.Guest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Guest
	for _, g := range s.sortedGuests(q.EventID) {
		if len(q.Confirmations) > 0 && !containsConfirmation(q.Confirmations, g.Confirmation) {
			continue
		}
		if len(q.Attendances) > 0 && !containsAttendance(q.Attendances, g.Attendance) {
			continue
		}
		if q.Search != "" {
			needle := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(g.Username), needle) &&
				!strings.Contains(strings.ToLower(deref(g.Email)), needle) {
				continue
			}
		}
		matched = append(matched, *clone(g))
	}
	if q.SortDesc {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func containsConfirmation(set []models.Confirmation, c models.Confirmation) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}

func containsAttendance(set []models.Attendance, a models.Attendance) bool {
	for _, v := range set {
		if v == a {
			return true
		}
	}
	return false
}

func (s *fakeStore) ListForExport(ctx context.Context, eventID int64, ids []int64) ([]models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []models.Guest{}
	for _, g := range s.sortedGuests(eventID) {
		if len(ids) == 0 || want[g.ID] {
			out = append(out, *clone(g))
		}
	}
	return out, nil
}

func (s *fakeStore) Update(ctx context.Context, id int64, p models.GuestPatch, attrs map[string]string) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return nil, nil
	}
	if p.Username != nil {
		g.Username = *p.Username
	}
	if p.Email != nil {
		g.Email = p.Email
	}
	if p.PhoneNum != nil {
		g.PhoneNum = p.PhoneNum
	}
	if p.Instansi != nil {
		g.Instansi = p.Instansi
	}
	if p.RegistrationType != nil {
		g.RegistrationType = *p.RegistrationType
	}
	if p.AttributesUpdatedBy != nil {
		g.AttributesUpdatedBy = p.AttributesUpdatedBy
	}
	for k, v := range attrs {
		g.Attributes[k] = v
	}
	return clone(g), nil
}

func (s *fakeStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[id]; !ok {
		return false, nil
	}
	delete(s.guests, id)
	return true, nil
}

func (s *fakeStore) CountByConfirmation(ctx context.Context, eventID int64) (models.ConfirmationCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c models.ConfirmationCounts
	for _, g := range s.sortedGuests(eventID) {
		c.Add(g.Confirmation, 1)
	}
	return c, nil
}

func (s *fakeStore) ApplyStatus(ctx context.Context, id int64, w models.StatusWrite) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return nil, nil
	}
	by := w.UpdatedBy
	if w.Confirmation != nil {
		g.Confirmation = *w.Confirmation
		if by != "" {
			g.ConfirmationUpdatedBy = strPtr(by)
		}
	}
	if w.Attendance != nil {
		g.Attendance = *w.Attendance
		if by != "" {
			g.AttendanceUpdatedBy = strPtr(by)
		}
	}
	if w.Merchandise != nil {
		g.Merchandise = *w.Merchandise
		if by != "" {
			g.MerchandiseUpdatedBy = strPtr(by)
		}
	}
	if w.Headcount != nil {
		g.Attributes[w.HeadcountKey] = strconv.Itoa(*w.Headcount)
	}
	return clone(g), nil
}

func (s *fakeStore) SetAuditField(ctx context.Context, id int64, field models.AuditField, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return false, nil
	}
	v := strPtr(value)
	switch field {
	case models.AuditConfirmation:
		g.ConfirmationUpdatedBy = v
	case models.AuditAttendance:
		g.AttendanceUpdatedBy = v
	case models.AuditAttributes:
		g.AttributesUpdatedBy = v
	case models.AuditMerchandise:
		g.MerchandiseUpdatedBy = v
	case models.AuditEmailSent:
		g.EmailSentBy = v
	}
	return true, nil
}

func (s *fakeStore) SetEmailed(ctx context.Context, id int64, emailed bool, sentBy string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return false, nil
	}
	g.Emailed = emailed
	if sentBy != "" {
		g.EmailSentBy = strPtr(sentBy)
	}
	return true, nil
}

func (s *fakeStore) ListAttributes(ctx context.Context, guestID int64) ([]models.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Attribute{}
	g, ok := s.guests[guestID]
	if !ok {
		return out, nil
	}
	for i, k := range sortedKeys(g.Attributes) {
		out = append(out, models.Attribute{ID: int64(i + 1), EventID: g.EventID, GuestID: g.ID, Key: k, Value: g.Attributes[k]})
	}
	return out, nil
}

func (s *fakeStore) DeleteAttribute(ctx context.Context, guestID int64, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[guestID]
	if !ok {
		return false, nil
	}
	if _, ok := g.Attributes[key]; !ok {
		return false, nil
	}
	delete(g.Attributes, key)
	return true, nil
}

func (s *fakeStore) AttributeKeys(ctx context.Context, eventID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var guests []models.Guest
	for _, g := range s.sortedGuests(eventID) {
		guests = append(guests, *g)
	}
	return nonNil(attributeUnion(guests)), nil
}

func (s *fakeStore) GetEventInfo(ctx context.Context, eventID int64) (*models.EventInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[eventID]; ok {
		c := *e
		return &c, nil
	}
	return nil, nil
}

func (s *fakeStore) FindEventByNameAndSales(ctx context.Context, name, sales string) (*models.EventInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Name == name && e.Sales == sales {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ImportEvent(ctx context.Context, ev models.ImportedEvent, guests []models.NewGuest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkBatch(guests); err != nil {
		return 0, err
	}
	id := int64(len(s.events) + 1)
	for {
		if _, ok := s.events[id]; !ok {
			break
		}
		id++
	}
	s.events[id] = &models.EventInfo{ID: id, Name: ev.Name, Sales: ev.Sales, StartDate: ev.StartDate, EndDate: ev.EndDate}
	return id, s.insertBatch(id, guests)
}

func (s *fakeStore) ImportGuests(ctx context.Context, eventID int64, guests []models.NewGuest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkBatch(guests); err != nil {
		return err
	}
	return s.insertBatch(eventID, guests)
}

// checkBatch fails the whole batch up front, like a rolled back transaction
func (s *fakeStore) checkBatch(guests []models.NewGuest) error {
	if s.collide > 0 {
		s.collide--
		s.createCalls++
		return repository.ErrDuplicateCode
	}
	seen := map[string]bool{}
	for _, g := range guests {
		if seen[g.UniqueCode] || s.codeTaken(g.UniqueCode) {
			return repository.ErrDuplicateCode
		}
		seen[g.UniqueCode] = true
	}
	return nil
}

func (s *fakeStore) insertBatch(eventID int64, guests []models.NewGuest) error {
	for _, ng := range guests {
		ng.EventID = eventID
		if ng.Confirmation == "" {
			ng.Confirmation = models.ConfirmationToBeConfirmed
		}
		if ng.Attendance == "" {
			ng.Attendance = models.AttendanceDidNotAttend
		}
		if _, err := s.insert(ng); err != nil {
			return err
		}
	}
	return nil
}

var errSMTP = errors.New("smtp unavailable")

// fakeMailer records invitations instead of sending them
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.InvitationEmailData
	fail map[string]bool
}

func (m *fakeMailer) SendInvitationEmail(data email.InvitationEmailData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[data.To] {
		return errSMTP
	}
	m.sent = append(m.sent, data)
	return nil
}
