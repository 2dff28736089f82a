package repository

import (
	"context"
	"errors"
	"fmt"

	"go-gin-supper-club/internal/model"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// ListByEventID returns bookings of an event in creation order; an empty
	// statuses slice means every status.
	ListByEventID(ctx context.Context, eventID uuid.UUID, statuses ...model.BookingStatus) ([]*model.Booking, error)
	// Transition applies change only while the booking is still in from.
	// It returns ErrInvalidTransition when another writer got there first.
	Transition(ctx context.Context, id uuid.UUID, from model.BookingStatus, change model.BookingChange) (*model.Booking, error)
}

type BookingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &BookingRepositoryImpl{
		pool: pool,
	}
}

const bookingColumns = `id, event_id, guest_id, ticket_count, status, source, total_price,
		platform_fee, fee_rate_bps, created_at, updated_at, approved_at, cancelled_at, cancel_reason`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.EventID,
		&booking.GuestID,
		&booking.TicketCount,
		&booking.Status,
		&booking.Source,
		&booking.TotalPrice,
		&booking.PlatformFee,
		&booking.FeeRateBps,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.ApprovedAt,
		&booking.CancelledAt,
		&booking.CancelReason,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepositoryImpl) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	query := `
		INSERT INTO bookings (
			id, event_id, guest_id, ticket_count, status, source, total_price,
			platform_fee, fee_rate_bps, created_at, updated_at, approved_at, cancelled_at, cancel_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + bookingColumns

	created, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query,
		booking.ID, booking.EventID, booking.GuestID, booking.TicketCount, booking.Status,
		booking.Source, booking.TotalPrice, booking.PlatformFee, booking.FeeRateBps,
		booking.CreatedAt, booking.UpdatedAt, booking.ApprovedAt, booking.CancelledAt, booking.CancelReason,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return created, nil
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (r *BookingRepositoryImpl) ListByEventID(ctx context.Context, eventID uuid.UUID, statuses ...model.BookingStatus) ([]*model.Booking, error) {
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE event_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at, id
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, eventID, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, from model.BookingStatus, change model.BookingChange) (*model.Booking, error) {
	// status and its timestamps move in one statement
	query := `
		UPDATE bookings
		SET status = $1,
			updated_at = $2,
			approved_at = CASE WHEN $1::text = 'APPROVED' THEN $2::timestamptz ELSE approved_at END,
			cancelled_at = CASE WHEN $1::text = 'CANCELLED' THEN $2::timestamptz ELSE cancelled_at END,
			cancel_reason = CASE WHEN $1::text IN ('CANCELLED', 'DECLINED') THEN $3::text ELSE cancel_reason END
		WHERE id = $4 AND status = $5
		RETURNING ` + bookingColumns

	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query,
		string(change.To), change.At, change.Reason, id, string(from),
	))
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition booking: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: booking is %s, expected %s", apperrors.ErrInvalidTransition, current.Status, from)
}
