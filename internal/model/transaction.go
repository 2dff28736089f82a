package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeCharge TransactionType = "CHARGE"
	TransactionTypeRefund TransactionType = "REFUND"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is an append-only record of one charge or refund attempt.
// Only the PENDING -> COMPLETED|FAILED settlement is ever written after insert.
type Transaction struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	BookingID   uuid.UUID         `json:"booking_id" db:"booking_id"`
	Type        TransactionType   `json:"type" db:"type"`
	Amount      int64             `json:"amount" db:"amount"`
	Status      TransactionStatus `json:"status" db:"status"`
	Reference   *string           `json:"reference,omitempty" db:"reference"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
}

// Revenue sums settled money movement for one event. Amounts are minor currency units.
type Revenue struct {
	EventID      uuid.UUID `json:"event_id"`
	Currency     string    `json:"currency"`
	Charged      int64     `json:"charged"`
	Refunded     int64     `json:"refunded"`
	Net          int64     `json:"net"`
	PlatformFees int64     `json:"platform_fees"`
	NetDisplay   string    `json:"net_display"`
}
