package model

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "WAITING"
	WaitlistStatusOffered   WaitlistStatus = "OFFERED"
	WaitlistStatusClaimed   WaitlistStatus = "CLAIMED"
	WaitlistStatusExpired   WaitlistStatus = "EXPIRED"
	WaitlistStatusWithdrawn WaitlistStatus = "WITHDRAWN"
)

func (s WaitlistStatus) IsValid() bool {
	switch s {
	case WaitlistStatusWaiting, WaitlistStatusOffered, WaitlistStatusClaimed,
		WaitlistStatusExpired, WaitlistStatusWithdrawn:
		return true
	}
	return false
}

// IsOpen reports whether the entry still competes for seats.
func (s WaitlistStatus) IsOpen() bool {
	return s == WaitlistStatusWaiting || s == WaitlistStatusOffered
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s WaitlistStatus) CanTransitionTo(target WaitlistStatus) bool {
	switch s {
	case WaitlistStatusWaiting:
		return target == WaitlistStatusOffered || target == WaitlistStatusWithdrawn
	case WaitlistStatusOffered:
		switch target {
		case WaitlistStatusClaimed, WaitlistStatusExpired, WaitlistStatusWithdrawn, WaitlistStatusWaiting:
			return true
		}
	}
	return false
}

type Contact struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty" validate:"max=200"`
	Phone string `json:"phone,omitempty" validate:"max=32"`
}

// WaitlistEntry is one guest waiting for seats of a sold out event.
//
// OfferedAt and OfferExpiresAt are always set while the entry is OFFERED and
// cleared when an offer is reverted to WAITING. Seq breaks ties between equal
// JoinedAt values so the FIFO order is total.
type WaitlistEntry struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	EventID        uuid.UUID      `json:"event_id" db:"event_id"`
	GuestID        string         `json:"guest_id,omitempty" db:"guest_id"`
	Contact        Contact        `json:"contact"`
	TicketsWanted  int            `json:"tickets_wanted" db:"tickets_wanted"`
	Status         WaitlistStatus `json:"status" db:"status"`
	JoinedAt       time.Time      `json:"joined_at" db:"joined_at"`
	Seq            int64          `json:"-" db:"seq"`
	OfferCount     int            `json:"offer_count" db:"offer_count"`
	OfferedAt      *time.Time     `json:"offered_at,omitempty" db:"offered_at"`
	OfferExpiresAt *time.Time     `json:"offer_expires_at,omitempty" db:"offer_expires_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
	BookingID      *uuid.UUID     `json:"booking_id,omitempty" db:"booking_id"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`

	// Position is the 1-based FIFO rank among WAITING entries, 0 otherwise.
	Position int `json:"position" db:"-"`
}

// OfferLive reports whether the entry holds an offer that has not expired at now.
// An offer expires at OfferExpiresAt itself.
func (w *WaitlistEntry) OfferLive(now time.Time) bool {
	return w.Status == WaitlistStatusOffered && w.OfferExpiresAt != nil && now.Before(*w.OfferExpiresAt)
}

// WaitlistChange is one status change applied atomically with its timestamps.
type WaitlistChange struct {
	To             WaitlistStatus
	At             time.Time
	OfferExpiresAt *time.Time
	BookingID      *uuid.UUID
}

// ApplyChange writes change onto w. Callers must already have checked
// w.Status.CanTransitionTo(change.To).
func (w *WaitlistEntry) ApplyChange(change WaitlistChange) {
	w.Status = change.To
	w.UpdatedAt = change.At
	at := change.At
	switch change.To {
	case WaitlistStatusOffered:
		w.OfferedAt = &at
		w.OfferExpiresAt = change.OfferExpiresAt
		w.OfferCount++
	case WaitlistStatusWaiting:
		w.OfferedAt = nil
		w.OfferExpiresAt = nil
	case WaitlistStatusClaimed:
		w.ResolvedAt = &at
		w.BookingID = change.BookingID
	case WaitlistStatusExpired, WaitlistStatusWithdrawn:
		w.ResolvedAt = &at
	}
}

// JoinWaitlistRequest 加入候補請求
type JoinWaitlistRequest struct {
	EventID       uuid.UUID `json:"-"`
	GuestID       string    `json:"guest_id"`
	Contact       Contact   `json:"contact"`
	TicketsWanted int       `json:"tickets_wanted" binding:"required,min=1"`
}

// OfferNotice is handed to the notification capability when an entry is promoted.
type OfferNotice struct {
	EntryID       uuid.UUID
	EventID       uuid.UUID
	EventTitle    string
	Contact       Contact
	TicketsWanted int
	ExpiresAt     time.Time
}
