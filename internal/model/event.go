package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingMode decides whether a booking request holds seats immediately.
type BookingMode string

const (
	BookingModeInstant BookingMode = "INSTANT"
	BookingModeManual  BookingMode = "MANUAL"
)

func (m BookingMode) IsValid() bool {
	switch m {
	case BookingModeInstant, BookingModeManual:
		return true
	}
	return false
}

type EventStatus string

const (
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event is a dining experience with a fixed seat capacity.
// SpotsLeft is only ever changed through the capacity ledger.
type Event struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	HostID       string      `json:"host_id" db:"host_id"`
	Title        string      `json:"title" db:"title"`
	Capacity     int         `json:"capacity" db:"capacity"`
	SpotsLeft    int         `json:"spots_left" db:"spots_left"`
	TicketPrice  int64       `json:"ticket_price" db:"ticket_price"`
	Currency     string      `json:"currency" db:"currency"`
	BookingMode  BookingMode `json:"booking_mode" db:"booking_mode"`
	Status       EventStatus `json:"status" db:"status"`
	StartsAt     time.Time   `json:"starts_at" db:"starts_at"`
	CancelledAt  *time.Time  `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason *string     `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether seats can still be reserved.
func (e *Event) IsOpen() bool {
	return e.Status == EventStatusPublished
}

// HasConcluded reports whether the event start time has passed at now.
func (e *Event) HasConcluded(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

// PublishEventRequest 建立活動請求
type PublishEventRequest struct {
	HostID      string      `json:"host_id" binding:"required"`
	Title       string      `json:"title" binding:"required"`
	Capacity    int         `json:"capacity" binding:"required,min=1"`
	TicketPrice int64       `json:"ticket_price" binding:"min=0"`
	Currency    string      `json:"currency"`
	BookingMode BookingMode `json:"booking_mode" binding:"required,oneof=INSTANT MANUAL"`
	StartsAt    time.Time   `json:"starts_at" binding:"required"`
}

// SeatRelease describes one release applied by the capacity ledger.
// It is the payload of the seat-released signal consumed by the waitlist.
type SeatRelease struct {
	EventID     uuid.UUID `json:"event_id"`
	Seats       int       `json:"seats"`
	SpotsBefore int       `json:"spots_before"`
	SpotsAfter  int       `json:"spots_after"`
	Capacity    int       `json:"capacity"`
	// Clamped is set when the release would have pushed SpotsLeft above Capacity.
	Clamped    bool      `json:"clamped"`
	ReleasedAt time.Time `json:"released_at"`
}

// Freed is the number of seats that actually became available.
func (r *SeatRelease) Freed() int {
	return r.SpotsAfter - r.SpotsBefore
}

// Reopened reports whether the release took a sold out event back to having seats.
func (r *SeatRelease) Reopened() bool {
	return r.SpotsBefore == 0 && r.SpotsAfter > 0
}
