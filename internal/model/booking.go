package model

import (
	"fmt"
	"time"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
)

// BookingStatus 訂位狀態類型
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusApproved  BookingStatus = "APPROVED"
	BookingStatusDeclined  BookingStatus = "DECLINED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

// IsValid 驗證狀態是否有效
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusDeclined,
		BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further action is accepted.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// HoldsSeats reports whether a booking in this status consumes event capacity.
func (s BookingStatus) HoldsSeats() bool {
	switch s {
	case BookingStatusApproved, BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

type BookingAction string

const (
	BookingActionApprove  BookingAction = "approve"
	BookingActionDecline  BookingAction = "decline"
	BookingActionCancel   BookingAction = "cancel"
	BookingActionComplete BookingAction = "complete"
	BookingActionNoShow   BookingAction = "noShow"
)

func (a BookingAction) IsValid() bool {
	switch a {
	case BookingActionApprove, BookingActionDecline, BookingActionCancel,
		BookingActionComplete, BookingActionNoShow:
		return true
	}
	return false
}

// Next returns the status reached by applying action to s, or
// ErrInvalidTransition when the pair is not in the transition table.
func (s BookingStatus) Next(action BookingAction) (BookingStatus, error) {
	switch s {
	case BookingStatusPending:
		switch action {
		case BookingActionApprove:
			return BookingStatusApproved, nil
		case BookingActionDecline:
			return BookingStatusDeclined, nil
		case BookingActionCancel:
			return BookingStatusCancelled, nil
		}
	case BookingStatusApproved:
		switch action {
		case BookingActionCancel:
			return BookingStatusCancelled, nil
		case BookingActionComplete:
			return BookingStatusCompleted, nil
		case BookingActionNoShow:
			return BookingStatusNoShow, nil
		}
	}
	return s, fmt.Errorf("%w: %s from %s", apperrors.ErrInvalidTransition, action, s)
}

// BookingSource records how the booking entered the system.
type BookingSource string

const (
	BookingSourceDirect   BookingSource = "DIRECT"
	BookingSourceWaitlist BookingSource = "WAITLIST"
)

// Booking 訂位模型
//
// ApprovedAt is set exactly when the booking has been APPROVED (it is kept
// after a later cancel/complete), CancelledAt exactly when it is CANCELLED.
// Both are written in the same statement that changes Status.
type Booking struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	EventID      uuid.UUID     `json:"event_id" db:"event_id"`
	GuestID      string        `json:"guest_id" db:"guest_id"`
	TicketCount  int           `json:"ticket_count" db:"ticket_count"`
	Status       BookingStatus `json:"status" db:"status"`
	Source       BookingSource `json:"source" db:"source"`
	TotalPrice   int64         `json:"total_price" db:"total_price"`
	PlatformFee  int64         `json:"platform_fee" db:"platform_fee"`
	FeeRateBps   int           `json:"fee_rate_bps" db:"fee_rate_bps"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
	ApprovedAt   *time.Time    `json:"approved_at,omitempty" db:"approved_at"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason *string       `json:"cancel_reason,omitempty" db:"cancel_reason"`
}

// BookingChange is one status change applied atomically with its timestamps.
type BookingChange struct {
	To     BookingStatus
	At     time.Time
	Reason *string
}

// ApplyChange writes change onto b. Callers must already have checked the
// transition is legal for b.Status.
func (b *Booking) ApplyChange(change BookingChange) {
	b.Status = change.To
	b.UpdatedAt = change.At
	switch change.To {
	case BookingStatusApproved:
		at := change.At
		b.ApprovedAt = &at
	case BookingStatusCancelled:
		at := change.At
		b.CancelledAt = &at
		b.CancelReason = change.Reason
	case BookingStatusDeclined:
		b.CancelReason = change.Reason
	}
}

// CreateBookingRequest 建立訂位請求
type CreateBookingRequest struct {
	EventID     uuid.UUID `json:"event_id" binding:"required"`
	GuestID     string    `json:"guest_id" binding:"required"`
	TicketCount int       `json:"ticket_count" binding:"required,min=1"`
}

// TransitionBookingRequest 訂位狀態轉換請求
type TransitionBookingRequest struct {
	Action BookingAction `json:"action" binding:"required,oneof=approve decline cancel complete noShow"`
	Reason *string       `json:"reason"`
}
