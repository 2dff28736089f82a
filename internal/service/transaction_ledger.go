package service

import (
	"context"
	"fmt"

	"go-gin-supper-club/internal/fee"
	"go-gin-supper-club/internal/metrics"
	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionLedger is the append-only record of money movement per booking.
type TransactionLedger interface {
	RecordCharge(ctx context.Context, bookingID uuid.UUID, amount int64) (*model.Transaction, error)
	RecordRefund(ctx context.Context, bookingID uuid.UUID, amount int64) (*model.Transaction, error)
	// Settle records the terminal outcome of a PENDING transaction.
	Settle(ctx context.Context, id uuid.UUID, status model.TransactionStatus, reference *string) (*model.Transaction, error)
	CompletedCharge(ctx context.Context, bookingID uuid.UUID) (*model.Transaction, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error)
	Revenue(ctx context.Context, eventID uuid.UUID) (*model.Revenue, error)
}

type TransactionLedgerImpl struct {
	transactions repository.TransactionRepository
	events       repository.EventRepository
	now          Clock
}

func NewTransactionLedger(transactions repository.TransactionRepository, events repository.EventRepository, clock Clock) TransactionLedger {
	return &TransactionLedgerImpl{
		transactions: transactions,
		events:       events,
		now:          clock.orSystem(),
	}
}

func (l *TransactionLedgerImpl) RecordCharge(ctx context.Context, bookingID uuid.UUID, amount int64) (*model.Transaction, error) {
	return l.record(ctx, bookingID, model.TransactionTypeCharge, amount)
}

func (l *TransactionLedgerImpl) RecordRefund(ctx context.Context, bookingID uuid.UUID, amount int64) (*model.Transaction, error) {
	return l.record(ctx, bookingID, model.TransactionTypeRefund, amount)
}

func (l *TransactionLedgerImpl) record(ctx context.Context, bookingID uuid.UUID, txnType model.TransactionType, amount int64) (*model.Transaction, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative %s amount %d", apperrors.ErrInvalidArgument, txnType, amount)
	}
	return l.transactions.Append(ctx, &model.Transaction{
		ID:        uuid.New(),
		BookingID: bookingID,
		Type:      txnType,
		Amount:    amount,
		Status:    model.TransactionStatusPending,
		CreatedAt: l.now(),
	})
}

func (l *TransactionLedgerImpl) Settle(ctx context.Context, id uuid.UUID, status model.TransactionStatus, reference *string) (*model.Transaction, error) {
	txn, err := l.transactions.Settle(ctx, id, status, reference, l.now())
	if err != nil {
		return nil, err
	}
	metrics.Payments.WithLabelValues(string(txn.Type), string(txn.Status)).Inc()
	logger.WithComponent("ledger").Info("transaction settled",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("booking_id", txn.BookingID.String()),
		zap.String("type", string(txn.Type)),
		zap.String("status", string(txn.Status)),
		zap.Int64("amount", txn.Amount),
	)
	return txn, nil
}

func (l *TransactionLedgerImpl) CompletedCharge(ctx context.Context, bookingID uuid.UUID) (*model.Transaction, error) {
	return l.transactions.FindCompletedCharge(ctx, bookingID)
}

func (l *TransactionLedgerImpl) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error) {
	return l.transactions.ListByBookingID(ctx, bookingID)
}

func (l *TransactionLedgerImpl) Revenue(ctx context.Context, eventID uuid.UUID) (*model.Revenue, error) {
	event, err := l.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	totals, err := l.transactions.RevenueByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	net := totals.Charged - totals.Refunded
	return &model.Revenue{
		EventID:      eventID,
		Currency:     event.Currency,
		Charged:      totals.Charged,
		Refunded:     totals.Refunded,
		Net:          net,
		PlatformFees: totals.PlatformFees,
		NetDisplay:   fee.Format(net),
	}, nil
}
