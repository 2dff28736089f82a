package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-supper-club/internal/model"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevenueTotals are the raw sums behind model.Revenue.
type RevenueTotals struct {
	Charged      int64
	Refunded     int64
	PlatformFees int64
}

// TransactionRepository is append-only: the only update is settling a PENDING row.
type TransactionRepository interface {
	Append(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	// Settle moves a PENDING transaction to COMPLETED or FAILED.
	Settle(ctx context.Context, id uuid.UUID, status model.TransactionStatus, reference *string, at time.Time) (*model.Transaction, error)
	ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error)
	// FindCompletedCharge returns the settled charge of a booking.
	FindCompletedCharge(ctx context.Context, bookingID uuid.UUID) (*model.Transaction, error)
	RevenueByEventID(ctx context.Context, eventID uuid.UUID) (*RevenueTotals, error)
}

type TransactionRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &TransactionRepositoryImpl{
		pool: pool,
	}
}

const transactionColumns = `id, booking_id, type, amount, status, reference, created_at, processed_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var txn model.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.BookingID,
		&txn.Type,
		&txn.Amount,
		&txn.Status,
		&txn.Reference,
		&txn.CreatedAt,
		&txn.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepositoryImpl) Append(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	query := `
		INSERT INTO transactions (id, booking_id, type, amount, status, reference, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + transactionColumns

	created, err := scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query,
		txn.ID, txn.BookingID, txn.Type, txn.Amount, txn.Status, txn.Reference, txn.CreatedAt, txn.ProcessedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	return created, nil
}

func (r *TransactionRepositoryImpl) Settle(ctx context.Context, id uuid.UUID, status model.TransactionStatus, reference *string, at time.Time) (*model.Transaction, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot settle to %s", apperrors.ErrInvalidArgument, status)
	}

	query := `
		UPDATE transactions
		SET status = $1, reference = COALESCE($2, reference), processed_at = $3
		WHERE id = $4 AND status = 'PENDING'
		RETURNING ` + transactionColumns

	txn, err := scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, status, reference, at, id))
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to settle transaction: %w", err)
	}

	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrTransactionNotFound
	}
	return nil, fmt.Errorf("%w: transaction already settled", apperrors.ErrInvalidTransition)
}

func (r *TransactionRepositoryImpl) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE booking_id = $1 ORDER BY created_at, id`

	rows, err := conn(ctx, r.pool).Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*model.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *TransactionRepositoryImpl) FindCompletedCharge(ctx context.Context, bookingID uuid.UUID) (*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE booking_id = $1 AND type = 'CHARGE' AND status = 'COMPLETED'
		ORDER BY created_at DESC
		LIMIT 1
	`

	txn, err := scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

func (r *TransactionRepositoryImpl) RevenueByEventID(ctx context.Context, eventID uuid.UUID) (*RevenueTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'CHARGE' AND t.status = 'COMPLETED'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'REFUND' AND t.status = 'COMPLETED'), 0),
			(SELECT COALESCE(SUM(b2.platform_fee), 0) FROM bookings b2
				WHERE b2.event_id = $1 AND b2.status IN ('APPROVED', 'COMPLETED', 'NO_SHOW'))
		FROM transactions t
		JOIN bookings b ON b.id = t.booking_id
		WHERE b.event_id = $1
	`

	var totals RevenueTotals
	err := conn(ctx, r.pool).QueryRow(ctx, query, eventID).Scan(
		&totals.Charged,
		&totals.Refunded,
		&totals.PlatformFees,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	return &totals, nil
}
