// Package payment is the boundary to the payment provider. Gateway calls are
// made outside any lock or unit of work.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDeclined is returned when the provider refuses a charge or refund.
var ErrDeclined = errors.New("payment declined")

type ChargeRequest struct {
	BookingID      uuid.UUID
	GuestID        string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

type RefundRequest struct {
	BookingID       uuid.UUID
	ChargeReference string
	Amount          int64
	Currency        string
	IdempotencyKey  string
}

// Receipt is the provider's acknowledgement of a settled movement.
type Receipt struct {
	Reference   string
	ProcessedAt time.Time
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)
	Refund(ctx context.Context, req RefundRequest) (*Receipt, error)
}
