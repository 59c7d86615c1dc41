package models

// ============================================================
// Request DTOs
// ============================================================

type CreateGuestRequest struct {
	EventID          int64             `json:"event_id" validate:"required,min=1"`
	Username         string            `json:"username" validate:"required,max=255"`
	Email            string            `json:"email" validate:"omitempty,email"`
	PhoneNum         string            `json:"phoneNum" validate:"omitempty,phone"`
	Instansi         string            `json:"instansi" validate:"max=255"`
	RegistrationType string            `json:"registration_type" validate:"omitempty,registration_type"`
	Confirmation     string            `json:"confirmation"`
	Attendance       string            `json:"attendance"`
	UniqueCode       string            `json:"unique_code"`
	Attributes       map[string]string `json:"attributes"`
}

type UpdateGuestRequest struct {
	Username         *string           `json:"username" validate:"omitempty,min=1,max=255"`
	Email            *string           `json:"email" validate:"omitempty,email"`
	PhoneNum         *string           `json:"phoneNum" validate:"omitempty,phone"`
	Instansi         *string           `json:"instansi" validate:"omitempty,max=255"`
	RegistrationType *string           `json:"registration_type" validate:"omitempty,registration_type"`
	Attributes       map[string]string `json:"attributes"`
	UpdatedBy        string            `json:"attributes_updated_by"`
}

// StatusUpdateRequest sets confirmation or attendance (not both) and/or merchandise
type StatusUpdateRequest struct {
	Confirmation *string `json:"confirmation"`
	Attendance   *string `json:"attendance"`
	Merchandise  *string `json:"merchandise"`
	Headcount    *int    `json:"headcount"`
	UpdatedBy    string  `json:"updated_by"`
}

// CheckInRequest is the operator's choice after a scan
type CheckInRequest struct {
	Outcome   string `json:"outcome" validate:"omitempty,scan_outcome"`
	Headcount *int   `json:"headcount"`
}

// AuditRequest accepts any of the "updated by" body keys used by the dashboard
type AuditRequest struct {
	ConfirmationUpdatedBy string `json:"confirmation_updated_by"`
	AttendanceUpdatedBy   string `json:"attendance_updated_by"`
	AttributesUpdatedBy   string `json:"attributes_updated_by"`
	MerchandiseUpdatedBy  string `json:"merchandise_updated_by"`
	EmailSentBy           string `json:"email_sent_by"`
}

// Value picks the body value for field
func (r AuditRequest) Value(field AuditField) string {
	switch field {
	case AuditConfirmation:
		return r.ConfirmationUpdatedBy
	case AuditAttendance:
		return r.AttendanceUpdatedBy
	case AuditAttributes:
		return r.AttributesUpdatedBy
	case AuditMerchandise:
		return r.MerchandiseUpdatedBy
	case AuditEmailSent:
		return r.EmailSentBy
	}
	return ""
}

type EmailedRequest struct {
	Emailed *bool `json:"emailed" validate:"required"`
}

type HeadcountRequest struct {
	JumlahOrang int `json:"jumlahOrang" validate:"required,min=1"`
}

type AttributeValueRequest struct {
	Value string `json:"attribute_value"`
}

// ExportRequest selects the guests of one event, optionally narrowed to ids
type ExportRequest struct {
	EventID  int64   `json:"event_id" validate:"required,min=1"`
	GuestIDs []int64 `json:"guest_ids"`
}

// BroadcastRequest pairs emails[i], message[i] and guests[i]
type BroadcastRequest struct {
	Subject string   `json:"subject" validate:"required"`
	Message []string `json:"message" validate:"required,min=1"`
	Emails  []string `json:"emails" validate:"required,min=1,dive,email"`
	Guests  []int64  `json:"guests" validate:"required,min=1"`
}

// ============================================================
// Response DTOs
// ============================================================

// GuestView is a guest with its QR payload and rendered image
type GuestView struct {
	Guest
	QRContent string `json:"qrContent"`
	QRCode    string `json:"qrCode,omitempty"`
}

type GuestListResponse struct {
	Guests     []GuestView `json:"guests"`
	Pagination Pagination  `json:"pagination"`
}

type CheckInResponse struct {
	Guest   *Guest `json:"guest"`
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

type BroadcastResult struct {
	Sent   int      `json:"sent"`
	Failed []string `json:"failed,omitempty"`
}

type ImportResult struct {
	EventID        int64    `json:"event_id"`
	EventName      string   `json:"event_name"`
	GuestsImported int      `json:"guests_imported"`
	AttributeKeys  []string `json:"attribute_keys"`
}
