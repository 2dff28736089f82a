package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
)

type TransactionRepository struct {
	store *Store
}

func NewTransactionRepository(store *Store) repository.TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) Append(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	defer r.store.lock(ctx)()

	if _, ok := r.store.data.bookings[txn.BookingID]; !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	if _, ok := r.store.data.transactions[txn.ID]; ok {
		return nil, fmt.Errorf("failed to append transaction: duplicate id %s", txn.ID)
	}
	r.store.data.transactions[txn.ID] = *txn
	created := *txn
	return &created, nil
}

func (r *TransactionRepository) Settle(ctx context.Context, id uuid.UUID, status model.TransactionStatus, reference *string, at time.Time) (*model.Transaction, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot settle to %s", apperrors.ErrInvalidArgument, status)
	}

	defer r.store.lock(ctx)()

	txn, ok := r.store.data.transactions[id]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	if txn.Status != model.TransactionStatusPending {
		return nil, fmt.Errorf("%w: transaction already settled", apperrors.ErrInvalidTransition)
	}
	txn.Status = status
	if reference != nil {
		txn.Reference = reference
	}
	txn.ProcessedAt = &at
	r.store.data.transactions[id] = txn
	return &txn, nil
}

func (r *TransactionRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error) {
	defer r.store.lock(ctx)()

	txns := make([]*model.Transaction, 0)
	for _, txn := range r.store.data.transactions {
		if txn.BookingID == bookingID {
			txns = append(txns, &txn)
		}
	}
	slices.SortFunc(txns, func(a, b *model.Transaction) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return txns, nil
}

func (r *TransactionRepository) FindCompletedCharge(ctx context.Context, bookingID uuid.UUID) (*model.Transaction, error) {
	defer r.store.lock(ctx)()

	var found *model.Transaction
	for _, txn := range r.store.data.transactions {
		if txn.BookingID != bookingID || txn.Type != model.TransactionTypeCharge || txn.Status != model.TransactionStatusCompleted {
			continue
		}
		if found == nil || txn.CreatedAt.After(found.CreatedAt) {
			found = &txn
		}
	}
	if found == nil {
		return nil, apperrors.ErrTransactionNotFound
	}
	return found, nil
}

func (r *TransactionRepository) RevenueByEventID(ctx context.Context, eventID uuid.UUID) (*repository.RevenueTotals, error) {
	defer r.store.lock(ctx)()

	totals := &repository.RevenueTotals{}
	for _, txn := range r.store.data.transactions {
		b, ok := r.store.data.bookings[txn.BookingID]
		if !ok || b.EventID != eventID || txn.Status != model.TransactionStatusCompleted {
			continue
		}
		switch txn.Type {
		case model.TransactionTypeCharge:
			totals.Charged += txn.Amount
		case model.TransactionTypeRefund:
			totals.Refunded += txn.Amount
		}
	}
	for _, b := range r.store.data.bookings {
		if b.EventID == eventID && b.Status.HoldsSeats() {
			totals.PlatformFees += b.PlatformFee
		}
	}
	return totals, nil
}
