package usecase

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/email"
	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/metrics"
	"github.com/digioh-event-services/common/uniquecode"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/guest-lambda/checkin"
	"github.com/digioh-event-services/services/guest-lambda/models"
	"github.com/digioh-event-services/services/guest-lambda/repository"
)

// GuestStore is the persistence the guest workflows need.
// *repository.GuestRepository implements it.
type GuestStore interface {
	Create(ctx context.Context, g models.NewGuest) (*models.Guest, error)
	GetByID(ctx context.Context, id int64) (*models.Guest, error)
	GetByUniqueCode(ctx context.Context, code string) (*models.Guest, error)
	List(ctx context.Context, q models.ListQuery) ([]models.Guest, int, error)
	ListForExport(ctx context.Context, eventID int64, ids []int64) ([]models.Guest, error)
	Update(ctx context.Context, id int64, patch models.GuestPatch, attrs map[string]string) (*models.Guest, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountByConfirmation(ctx context.Context, eventID int64) (models.ConfirmationCounts, error)
	ApplyStatus(ctx context.Context, id int64, w models.StatusWrite) (*models.Guest, error)
	SetAuditField(ctx context.Context, id int64, field models.AuditField, value string) (bool, error)
	SetEmailed(ctx context.Context, id int64, emailed bool, sentBy string) (bool, error)

	ListAttributes(ctx context.Context, guestID int64) ([]models.Attribute, error)
	DeleteAttribute(ctx context.Context, guestID int64, key string) (bool, error)
	AttributeKeys(ctx context.Context, eventID int64) ([]string, error)

	GetEventInfo(ctx context.Context, eventID int64) (*models.EventInfo, error)
	FindEventByNameAndSales(ctx context.Context, name, sales string) (*models.EventInfo, error)
	ImportEvent(ctx context.Context, ev models.ImportedEvent, guests []models.NewGuest) (int64, error)
	ImportGuests(ctx context.Context, eventID int64, guests []models.NewGuest) error
}

// Mailer sends one invitation email
type Mailer interface {
	SendInvitationEmail(data email.InvitationEmailData) error
}

// GuestUseCase handles guest business logic
type GuestUseCase struct {
	store   GuestStore
	mailer  Mailer
	codes   *uniquecode.Generator
	baseURL string
	log     *logger.Logger
}

// NewGuestUseCase wires the MySQL repository, SMTP mailer and crypto/rand codes
func NewGuestUseCase() *GuestUseCase {
	return NewGuestUseCaseWith(
		repository.NewGuestRepository(),
		email.NewEmailService(nil),
		uniquecode.New(nil),
		config.FromEnv().BaseURL,
	)
}

// NewGuestUseCaseWith builds a use case over explicit dependencies
func NewGuestUseCaseWith(store GuestStore, mailer Mailer, codes *uniquecode.Generator, baseURL string) *GuestUseCase {
	if codes == nil {
		codes = uniquecode.New(nil)
	}
	return &GuestUseCase{
		store:   store,
		mailer:  mailer,
		codes:   codes,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.Default().With("service", "guest"),
	}
}

// BaseURL is the prefix of QR payloads
func (uc *GuestUseCase) BaseURL() string {
	return uc.baseURL
}

// storeError maps repository errors onto the AppError taxonomy
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return apperrors.NotFound("Event")
	case errors.Is(err, repository.ErrDuplicateCode):
		return apperrors.Conflict("unique code already in use")
	}
	return apperrors.DatabaseError(err)
}

// ============================================================
// ResolveGuest - identifier to guest.
// A positive decimal identifier is tried as the surrogate id first,
// then every identifier is tried as an exact unique code.
// ============================================================
func (uc *GuestUseCase) ResolveGuest(ctx context.Context, identifier string) (*models.Guest, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.MissingField("identifier")
	}

	if id, ok := parsePositiveID(identifier); ok {
		g, err := uc.store.GetByID(ctx, id)
		if err != nil {
			return nil, storeError(err)
		}
		if g != nil {
			return g, nil
		}
	}

	g, err := uc.store.GetByUniqueCode(ctx, identifier)
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("Guest")
	}
	return g, nil
}

// GetGuestByCode looks a guest up by unique code only
func (uc *GuestUseCase) GetGuestByCode(ctx context.Context, code string) (*models.Guest, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.MissingField("unique_code")
	}
	g, err := uc.store.GetByUniqueCode(ctx, code)
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("Guest")
	}
	return g, nil
}

func (uc *GuestUseCase) getGuest(ctx context.Context, id int64) (*models.Guest, error) {
	g, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("Guest")
	}
	return g, nil
}

func parsePositiveID(s string) (int64, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ============================================================
// CreateGuest - POST /api/guests
// ============================================================
func (uc *GuestUseCase) CreateGuest(ctx context.Context, req models.CreateGuestRequest) (*models.GuestView, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	ng := models.NewGuest{
		EventID:    req.EventID,
		Username:   strings.TrimSpace(req.Username),
		Attributes: cleanAttributes(req.Attributes),
	}
	if ng.Username == "" {
		return nil, apperrors.MissingField("username")
	}
	if e := strings.TrimSpace(req.Email); e != "" {
		ng.Email = &e
	}
	if req.PhoneNum != "" {
		phone, err := validator.NormalizePhone(req.PhoneNum)
		if err != nil {
			return nil, err
		}
		ng.PhoneNum = &phone
	}
	if inst := strings.TrimSpace(req.Instansi); inst != "" {
		ng.Instansi = &inst
	}

	regType, ok := models.ParseRegistrationType(req.RegistrationType)
	if !ok {
		return nil, apperrors.InvalidInput("registration_type", "registration_type must be 'rsvp' or 'ots'")
	}
	ng.RegistrationType = regType

	pair, err := initialStatus(req.Confirmation, req.Attendance)
	if err != nil {
		return nil, err
	}
	ng.Confirmation = pair.Confirmation
	ng.Attendance = pair.Attendance

	event, err := uc.store.GetEventInfo(ctx, req.EventID)
	if err != nil {
		return nil, storeError(err)
	}
	if event == nil {
		return nil, apperrors.NotFound("Event")
	}

	var guest *models.Guest
	if code := strings.TrimSpace(req.UniqueCode); code != "" {
		if !uniquecode.Valid(code, uniquecode.DefaultLength) {
			return nil, apperrors.InvalidInput("unique_code", "unique_code must be 8 letters or digits with at least one letter")
		}
		ng.UniqueCode = code
		guest, err = uc.store.Create(ctx, ng)
		if err != nil {
			return nil, storeError(err)
		}
	} else {
		err = uc.withFreshCodes(ctx, func(ctx context.Context, next func() (string, error)) error {
			code, err := next()
			if err != nil {
				return err
			}
			ng.UniqueCode = code
			guest, err = uc.store.Create(ctx, ng)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "guest_created",
		Entity:   "guest",
		EntityID: guest.ID,
		Action:   "create",
		Success:  true,
		Metadata: map[string]interface{}{"event_id": guest.EventID},
	})
	return uc.view(guest, true)
}

// initialStatus turns the optional create-time statuses into a consistent pair
func initialStatus(confirmation, attendance string) (checkin.Pair, error) {
	def := checkin.Pair{Confirmation: models.ConfirmationToBeConfirmed, Attendance: models.AttendanceDidNotAttend}
	confirmation = strings.TrimSpace(confirmation)
	attendance = strings.TrimSpace(attendance)

	switch {
	case confirmation == "" && attendance == "":
		return def, nil
	case attendance == "":
		return checkin.Derive(checkin.FieldConfirmation, confirmation)
	case confirmation == "":
		return checkin.Derive(checkin.FieldAttendance, attendance)
	}

	c, ok := models.ParseConfirmation(confirmation)
	if !ok {
		_, err := checkin.Derive(checkin.FieldConfirmation, confirmation)
		return def, err
	}
	a, ok := models.ParseAttendance(attendance)
	if !ok {
		_, err := checkin.Derive(checkin.FieldAttendance, attendance)
		return def, err
	}
	if !checkin.Consistent(c, a) {
		return def, apperrors.ValidationError("confirmation '" + string(c) + "' does not match attendance '" + string(a) + "'")
	}
	return checkin.Pair{Confirmation: c, Attendance: a}, nil
}

func cleanAttributes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// withFreshCodes runs fn until it stops failing with a duplicate code.
// fn draws codes through next; each attempt regenerates them.
func (uc *GuestUseCase) withFreshCodes(ctx context.Context, fn func(ctx context.Context, next func() (string, error)) error) error {
	cfg := config.GetConfig()
	attempts := cfg.CodeInsertAttempts
	if attempts < 1 {
		attempts = 1
	}
	next := func() (string, error) {
		return uc.codes.Generate(cfg.CodeLength)
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx, next)
		if errors.Is(err, repository.ErrDuplicateCode) {
			metrics.CodeCollision()
			uc.log.WithContext(ctx).Warn("unique code collision, regenerating")
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, repository.ErrDuplicateCode) {
		return apperrors.Conflict("could not allocate a unique guest code")
	}
	return storeError(err)
}

// ============================================================
// ListGuests - GET /api/guests/event/{event_id}
// ============================================================

// ListParams are the raw query parameters of a guest listing
type ListParams struct {
	Confirmation string
	Attendance   string
	Search       string
	SortBy       string
	SortOrder    string
	Page         string
	Limit        string
}

// BuildListQuery validates raw list parameters
func BuildListQuery(eventID int64, p ListParams) (models.ListQuery, error) {
	cfg := config.GetConfig()
	q := models.ListQuery{
		EventID: eventID,
		Search:  strings.TrimSpace(p.Search),
		SortBy:  "id",
		Page:    1,
		Limit:   cfg.DefaultPageSize,
	}
	if eventID <= 0 {
		return q, apperrors.InvalidInput("event_id", "event_id must be a positive integer")
	}

	for _, part := range splitCSV(p.Confirmation) {
		c, ok := models.ParseConfirmation(part)
		if !ok {
			_, err := checkin.Derive(checkin.FieldConfirmation, part)
			return q, err
		}
		q.Confirmations = append(q.Confirmations, c)
	}
	for _, part := range splitCSV(p.Attendance) {
		a, ok := models.ParseAttendance(part)
		if !ok {
			_, err := checkin.Derive(checkin.FieldAttendance, part)
			return q, err
		}
		q.Attendances = append(q.Attendances, a)
	}

	if s := strings.TrimSpace(p.SortBy); s != "" {
		if _, ok := models.SortColumns[s]; !ok {
			return q, apperrors.InvalidInput("sortBy", "unsupported sortBy '"+s+"'")
		}
		q.SortBy = s
	}
	switch strings.ToLower(strings.TrimSpace(p.SortOrder)) {
	case "", "asc":
	case "desc":
		q.SortDesc = true
	default:
		return q, apperrors.InvalidInput("sortOrder", "sortOrder must be 'asc' or 'desc'")
	}

	if p.Page != "" {
		n, err := strconv.Atoi(p.Page)
		if err != nil || n < 1 {
			return q, apperrors.InvalidInput("page", "page must be a positive integer")
		}
		q.Page = n
	}
	if p.Limit != "" {
		n, err := strconv.Atoi(p.Limit)
		if err != nil || n < 1 {
			return q, apperrors.InvalidInput("limit", "limit must be a positive integer")
		}
		q.Limit = n
	}
	if q.Limit > cfg.MaxPageSize {
		q.Limit = cfg.MaxPageSize
	}
	return q, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (uc *GuestUseCase) ListGuests(ctx context.Context, q models.ListQuery) (*models.GuestListResponse, error) {
	guests, total, err := uc.store.List(ctx, q)
	if err != nil {
		return nil, storeError(err)
	}

	views := make([]models.GuestView, 0, len(guests))
	for i := range guests {
		v, err := uc.view(&guests[i], true)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}

	totalPages := 0
	if q.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(q.Limit)))
	}
	return &models.GuestListResponse{
		Guests: views,
		Pagination: models.Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// CountByConfirmation - GET /api/guests/count-confirmation/{event_id}
func (uc *GuestUseCase) CountByConfirmation(ctx context.Context, eventID int64) (models.ConfirmationCounts, error) {
	counts, err := uc.store.CountByConfirmation(ctx, eventID)
	if err != nil {
		return counts, storeError(err)
	}
	return counts, nil
}

// ============================================================
// UpdateGuest - PATCH /api/guests/{id}
// ============================================================
func (uc *GuestUseCase) UpdateGuest(ctx context.Context, id int64, req models.UpdateGuestRequest, operator string) (*models.GuestView, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var patch models.GuestPatch
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			return nil, apperrors.InvalidInput("username", "username cannot be empty")
		}
		patch.Username = &name
	}
	if req.Email != nil {
		e := strings.TrimSpace(*req.Email)
		patch.Email = &e
	}
	if req.PhoneNum != nil {
		phone := strings.TrimSpace(*req.PhoneNum)
		if phone != "" {
			normalized, err := validator.NormalizePhone(phone)
			if err != nil {
				return nil, err
			}
			phone = normalized
		}
		patch.PhoneNum = &phone
	}
	if req.Instansi != nil {
		inst := strings.TrimSpace(*req.Instansi)
		patch.Instansi = &inst
	}
	if req.RegistrationType != nil {
		rt, ok := models.ParseRegistrationType(*req.RegistrationType)
		if !ok {
			return nil, apperrors.InvalidInput("registration_type", "registration_type must be 'rsvp' or 'ots'")
		}
		patch.RegistrationType = &rt
	}

	attrs := cleanAttributes(req.Attributes)
	if patch.Empty() && len(attrs) == 0 {
		return nil, apperrors.ValidationError("nothing to update")
	}
	if len(attrs) > 0 {
		if by := firstNonEmpty(req.UpdatedBy, operator); by != "" {
			patch.AttributesUpdatedBy = &by
		}
	}

	g, err := uc.store.Update(ctx, id, patch, attrs)
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("Guest")
	}
	return uc.view(g, false)
}

// DeleteGuest - DELETE /api/guest/{id}
func (uc *GuestUseCase) DeleteGuest(ctx context.Context, id int64) error {
	ok, err := uc.store.Delete(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return apperrors.NotFound("Guest")
	}
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "guest_deleted",
		Entity:   "guest",
		EntityID: id,
		Action:   "delete",
		Success:  true,
	})
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
