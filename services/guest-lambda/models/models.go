package models

import (
	"strings"
	"time"

	"github.com/digioh-event-services/common/validator"
)

func init() {
	validator.RegisterEnum("registration_type", string(RegistrationRSVP), string(RegistrationOTS))
	validator.RegisterEnum("scan_outcome", string(AttendanceAttended), string(AttendanceRepresented))
}

// ============================================================
// Status enums
// Wire values match the stored ENUM literals, spaces included.
// ============================================================

type Confirmation string

const (
	ConfirmationConfirmed     Confirmation = "confirmed"
	ConfirmationRepresented   Confirmation = "represented"
	ConfirmationToBeConfirmed Confirmation = "to be confirmed"
	ConfirmationCancelled     Confirmation = "cancelled"
)

// Confirmations lists every confirmation value in display order
var Confirmations = []Confirmation{
	ConfirmationConfirmed,
	ConfirmationRepresented,
	ConfirmationToBeConfirmed,
	ConfirmationCancelled,
}

type Attendance string

const (
	AttendanceAttended     Attendance = "attended"
	AttendanceRepresented  Attendance = "represented"
	AttendanceDidNotAttend Attendance = "did not attend"
)

var Attendances = []Attendance{
	AttendanceAttended,
	AttendanceRepresented,
	AttendanceDidNotAttend,
}

type Merchandise string

const (
	MerchandiseReceived    Merchandise = "received"
	MerchandiseNotReceived Merchandise = "not received"
)

type RegistrationType string

const (
	RegistrationRSVP RegistrationType = "rsvp"
	RegistrationOTS  RegistrationType = "ots"
)

// normalizeEnum lowercases, trims and turns "to_be_confirmed" into "to be confirmed"
func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func ParseConfirmation(s string) (Confirmation, bool) {
	v := Confirmation(normalizeEnum(s))
	for _, c := range Confirmations {
		if c == v {
			return v, true
		}
	}
	return "", false
}

func ParseAttendance(s string) (Attendance, bool) {
	v := Attendance(normalizeEnum(s))
	for _, a := range Attendances {
		if a == v {
			return v, true
		}
	}
	return "", false
}

func ParseMerchandise(s string) (Merchandise, bool) {
	switch v := Merchandise(normalizeEnum(s)); v {
	case MerchandiseReceived, MerchandiseNotReceived:
		return v, true
	}
	return "", false
}

func ParseRegistrationType(s string) (RegistrationType, bool) {
	switch v := RegistrationType(normalizeEnum(s)); v {
	case RegistrationRSVP, RegistrationOTS:
		return v, true
	case "":
		return RegistrationRSVP, true
	}
	return "", false
}

// ============================================================
// Entities
// ============================================================

// Guest is one invitee of one event
type Guest struct {
	ID                    int64             `json:"id"`
	EventID               int64             `json:"event_id"`
	UniqueCode            *string           `json:"unique_code"`
	Username              string            `json:"username"`
	Email                 *string           `json:"email"`
	PhoneNum              *string           `json:"phoneNum"`
	Instansi              *string           `json:"instansi"`
	RegistrationType      RegistrationType  `json:"registration_type"`
	Confirmation          Confirmation      `json:"confirmation"`
	Attendance            Attendance        `json:"attendance"`
	Merchandise           Merchandise       `json:"merchandise"`
	Emailed               bool              `json:"emailed"`
	ConfirmationUpdatedBy *string           `json:"confirmation_updated_by"`
	AttendanceUpdatedBy   *string           `json:"attendance_updated_by"`
	AttributesUpdatedBy   *string           `json:"attributes_updated_by"`
	MerchandiseUpdatedBy  *string           `json:"merchandise_updated_by"`
	EmailSentBy           *string           `json:"email_sent_by"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
	Attributes            map[string]string `json:"attributes"`
}

// Code returns the unique code or "" for legacy rows
func (g *Guest) Code() string {
	if g.UniqueCode == nil {
		return ""
	}
	return *g.UniqueCode
}

// Attribute is one free-form key/value of a guest
type Attribute struct {
	ID      int64  `json:"id"`
	EventID int64  `json:"event_id"`
	GuestID int64  `json:"guest_id"`
	Key     string `json:"attribute_key"`
	Value   string `json:"attribute_value"`
}

// NewGuest is what the store needs to insert a guest
type NewGuest struct {
	EventID          int64
	UniqueCode       string
	Username         string
	Email            *string
	PhoneNum         *string
	Instansi         *string
	RegistrationType RegistrationType
	Confirmation     Confirmation
	Attendance       Attendance
	Attributes       map[string]string
}

// GuestPatch holds the identity fields a partial update may change
type GuestPatch struct {
	Username            *string
	Email               *string
	PhoneNum            *string
	Instansi            *string
	RegistrationType    *RegistrationType
	AttributesUpdatedBy *string
}

// Empty reports whether the patch changes no column
func (p GuestPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PhoneNum == nil &&
		p.Instansi == nil && p.RegistrationType == nil && p.AttributesUpdatedBy == nil
}

// StatusWrite is a derived, consistent status change applied in one transaction
type StatusWrite struct {
	Confirmation *Confirmation
	Attendance   *Attendance
	Merchandise  *Merchandise
	// Headcount is upserted as an attribute when non-nil
	Headcount    *int
	HeadcountKey string
	UpdatedBy    string
}

// AuditField names a guest "updated by" column
type AuditField string

const (
	AuditConfirmation AuditField = "confirmation_updated_by"
	AuditAttendance   AuditField = "attendance_updated_by"
	AuditAttributes   AuditField = "attributes_updated_by"
	AuditMerchandise  AuditField = "merchandise_updated_by"
	AuditEmailSent    AuditField = "email_sent_by"
)

// Valid guards the column name before it reaches SQL
func (f AuditField) Valid() bool {
	switch f {
	case AuditConfirmation, AuditAttendance, AuditAttributes, AuditMerchandise, AuditEmailSent:
		return true
	}
	return false
}

// ============================================================
// Queries
// ============================================================

// SortColumns maps accepted sortBy values to columns
var SortColumns = map[string]string{
	"id":           "g.id",
	"username":     "g.username",
	"email":        "g.email",
	"instansi":     "g.instansi",
	"confirmation": "g.confirmation",
	"attendance":   "g.attendance",
	"merchandise":  "g.merchandise",
	"createdAt":    "g.created_at",
	"updatedAt":    "g.updated_at",
}

// ListQuery filters and pages the guests of one event
type ListQuery struct {
	EventID       int64
	Confirmations []Confirmation
	Attendances   []Attendance
	Search        string
	SortBy        string
	SortDesc      bool
	Page          int
	Limit         int
}

// Offset of the first row of Page
func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Pagination mirrors the list response envelope
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ConfirmationCounts is the per-status breakdown of an event's guests
type ConfirmationCounts struct {
	Confirmed     int `json:"confirmed"`
	Represented   int `json:"represented"`
	ToBeConfirmed int `json:"to be confirmed"`
	Cancelled     int `json:"cancelled"`
	Invitation    int `json:"invitation"`
}

// Add counts n guests with status c
func (c *ConfirmationCounts) Add(status Confirmation, n int) {
	switch status {
	case ConfirmationConfirmed:
		c.Confirmed += n
	case ConfirmationRepresented:
		c.Represented += n
	case ConfirmationToBeConfirmed:
		c.ToBeConfirmed += n
	case ConfirmationCancelled:
		c.Cancelled += n
	}
	c.Invitation += n
}

// ============================================================
// Event data used by guest workflows
// ============================================================

// EventInfo is the part of an event shown on invitations and used by imports
type EventInfo struct {
	ID        int64
	Name      string
	Company   *string
	StartDate time.Time
	EndDate   time.Time
	EventTime *string
	Location  *string
	Sales     string
}

// ImportedEvent is an event read from the header block of an import workbook
type ImportedEvent struct {
	Name           string
	Company        string
	Sales          string
	AccountManager string
	StartDate      time.Time
	EndDate        time.Time
	EventTime      string
	Location       string
	DiscordChannel string
	DriveFolder    string
	LoadingDate    *time.Time
	CreatedBy      string
}
