package models

import (
	"time"
)

// Event represents an event in the system
// Maps to MySQL table: events
type Event struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Company        *string    `json:"company"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	EventTime      *string    `json:"event_time"`
	LoadingDate    *time.Time `json:"loading_date"`
	Sales          string     `json:"sales"`
	AccountManager string     `json:"account_manager"`
	Location       *string    `json:"location"`
	DiscordChannel *string    `json:"discord_channel"`
	DriveFolder    *string    `json:"drive_folder"`
	LastUpdatedBy  *string    `json:"last_updated_by"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// EventName is the id/name pair used by dropdowns
type EventName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EventStats counts the guests of an event by confirmation
type EventStats struct {
	Invitation    int `json:"invitation"`
	Confirmed     int `json:"confirmed"`
	Represented   int `json:"represented"`
	ToBeConfirmed int `json:"to be confirmed"`
	Cancelled     int `json:"cancelled"`
}

// Add counts n guests with the given confirmation
func (s *EventStats) Add(confirmation string, n int) {
	switch confirmation {
	case "confirmed":
		s.Confirmed += n
	case "represented":
		s.Represented += n
	case "to be confirmed":
		s.ToBeConfirmed += n
	case "cancelled":
		s.Cancelled += n
	}
	s.Invitation += n
}

// EventDetail is an event with its guest statistics.
// The counts appear both at the top level and under "stats".
type EventDetail struct {
	Event
	EventStats
	Stats EventStats `json:"stats"`
}

// EventPatch holds the columns a partial update changes
type EventPatch struct {
	Name           *string
	Company        *string
	StartDate      *time.Time
	EndDate        *time.Time
	EventTime      *string
	LoadingDate    *time.Time
	ClearLoading   bool
	Sales          *string
	AccountManager *string
	Location       *string
	DiscordChannel *string
	DriveFolder    *string
	LastUpdatedBy  *string
}

// ============================================================
// Request DTOs
// ============================================================

// CreateEventRequest - POST /api/event
// Dates accept "2006-01-02", RFC3339 or "2006-01-02 15:04:05".
type CreateEventRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Company        string `json:"company" validate:"max=255"`
	StartDate      string `json:"start_date" validate:"required"`
	EndDate        string `json:"end_date" validate:"required"`
	EventTime      string `json:"event_time" validate:"max=100"`
	LoadingDate    string `json:"loading_date"`
	Sales          string `json:"sales" validate:"required,max=255"`
	AccountManager string `json:"account_manager" validate:"required,max=255"`
	Location       string `json:"location" validate:"max=255"`
	DiscordChannel string `json:"discord_channel" validate:"max=255"`
	DriveFolder    string `json:"drive_folder" validate:"max=255"`
}

// UpdateEventRequest - PATCH /api/event-update/{id}; nil fields are left alone.
// An empty loading_date clears it.
type UpdateEventRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	Company        *string `json:"company" validate:"omitempty,max=255"`
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	EventTime      *string `json:"event_time" validate:"omitempty,max=100"`
	LoadingDate    *string `json:"loading_date"`
	Sales          *string `json:"sales" validate:"omitempty,min=1,max=255"`
	AccountManager *string `json:"account_manager" validate:"omitempty,min=1,max=255"`
	Location       *string `json:"location" validate:"omitempty,max=255"`
	DiscordChannel *string `json:"discord_channel" validate:"omitempty,max=255"`
	DriveFolder    *string `json:"drive_folder" validate:"omitempty,max=255"`
}
