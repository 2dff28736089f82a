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

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// ReserveSeats decrements spots_left by n in one conditional update.
	// It fails with ErrCapacityExceeded, ErrEventClosed or ErrEventNotFound.
	ReserveSeats(ctx context.Context, id uuid.UUID, n int, at time.Time) (*model.Event, error)
	// ReleaseSeats increments spots_left by n, clamped to capacity.
	ReleaseSeats(ctx context.Context, id uuid.UUID, n int, at time.Time) (*model.SeatRelease, error)
	// Cancel moves a PUBLISHED event to CANCELLED; ErrInvalidTransition otherwise.
	Cancel(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (*model.Event, error)
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

const eventColumns = `id, host_id, title, capacity, spots_left, ticket_price, currency,
		booking_mode, status, starts_at, cancelled_at, cancel_reason, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.HostID,
		&event.Title,
		&event.Capacity,
		&event.SpotsLeft,
		&event.TicketPrice,
		&event.Currency,
		&event.BookingMode,
		&event.Status,
		&event.StartsAt,
		&event.CancelledAt,
		&event.CancelReason,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			id, host_id, title, capacity, spots_left, ticket_price, currency,
			booking_mode, status, starts_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + eventColumns

	created, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query,
		event.ID, event.HostID, event.Title, event.Capacity, event.SpotsLeft,
		event.TicketPrice, event.Currency, event.BookingMode, event.Status,
		event.StartsAt, event.CreatedAt, event.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY starts_at, id`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *EventRepositoryImpl) ReserveSeats(ctx context.Context, id uuid.UUID, n int, at time.Time) (*model.Event, error) {
	query := `
		UPDATE events
		SET spots_left = spots_left - $1, updated_at = $2
		WHERE id = $3 AND status = 'PUBLISHED' AND spots_left >= $1
		RETURNING ` + eventColumns

	event, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, n, at, id))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve seats: %w", err)
	}

	// nothing matched: tell the caller why
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, apperrors.ErrEventClosed
	}
	return nil, apperrors.ErrCapacityExceeded
}

func (r *EventRepositoryImpl) ReleaseSeats(ctx context.Context, id uuid.UUID, n int, at time.Time) (*model.SeatRelease, error) {
	query := `
		WITH prev AS (
			SELECT id, spots_left FROM events WHERE id = $2 FOR UPDATE
		)
		UPDATE events e
		SET spots_left = LEAST(e.capacity, e.spots_left + $1), updated_at = $3
		FROM prev
		WHERE e.id = prev.id
		RETURNING prev.spots_left, e.spots_left, e.capacity
	`

	release := model.SeatRelease{EventID: id, Seats: n, ReleasedAt: at}
	err := conn(ctx, r.pool).QueryRow(ctx, query, n, id, at).Scan(
		&release.SpotsBefore,
		&release.SpotsAfter,
		&release.Capacity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to release seats: %w", err)
	}
	release.Clamped = release.SpotsBefore+n > release.Capacity
	return &release, nil
}

func (r *EventRepositoryImpl) Cancel(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (*model.Event, error) {
	query := `
		UPDATE events
		SET status = 'CANCELLED', cancelled_at = $1, cancel_reason = $2, updated_at = $1
		WHERE id = $3 AND status = 'PUBLISHED'
		RETURNING ` + eventColumns

	event, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, at, reason, id))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: event already cancelled", apperrors.ErrInvalidTransition)
}
