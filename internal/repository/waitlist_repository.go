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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type WaitlistRepository interface {
	// Create fails with ErrAlreadyOnWaitlist when the contact already holds an
	// open entry for the event.
	Create(ctx context.Context, entry *model.WaitlistEntry) (*model.WaitlistEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error)
	// ListByEventID returns entries in FIFO order with Position filled in.
	ListByEventID(ctx context.Context, eventID uuid.UUID, statuses ...model.WaitlistStatus) ([]*model.WaitlistEntry, error)
	// ListWaiting returns the WAITING entries of an event in FIFO order.
	ListWaiting(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error)
	// SumLiveOffers totals TicketsWanted over OFFERED entries not yet expired at now.
	SumLiveOffers(ctx context.Context, eventID uuid.UUID, now time.Time) (int, error)
	// Transition applies change only while the entry is still in from.
	Transition(ctx context.Context, id uuid.UUID, from model.WaitlistStatus, change model.WaitlistChange) (*model.WaitlistEntry, error)
	// ExpireDue moves every OFFERED entry with offer_expires_at <= now to EXPIRED
	// and returns the entries it moved. A nil eventID means every event.
	ExpireDue(ctx context.Context, eventID *uuid.UUID, now time.Time) ([]*model.WaitlistEntry, error)
	// EventsWithWaiting lists the published events that have WAITING entries.
	EventsWithWaiting(ctx context.Context) ([]uuid.UUID, error)
	// WithdrawOpen moves every WAITING or OFFERED entry of an event to WITHDRAWN.
	WithdrawOpen(ctx context.Context, eventID uuid.UUID, at time.Time) ([]*model.WaitlistEntry, error)
}

type WaitlistRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewWaitlistRepository(pool *pgxpool.Pool) WaitlistRepository {
	return &WaitlistRepositoryImpl{
		pool: pool,
	}
}

const waitlistColumns = `w.id, w.event_id, w.guest_id, w.contact_email, w.contact_name, w.contact_phone,
		w.tickets_wanted, w.status, w.joined_at, w.seq, w.offer_count, w.offered_at,
		w.offer_expires_at, w.resolved_at, w.booking_id, w.updated_at`

// waitlistPosition is the 1-based FIFO rank of w among WAITING entries.
const waitlistPosition = `
		CASE WHEN w.status = 'WAITING' THEN (
			SELECT COUNT(*) + 1 FROM waitlist_entries o
			WHERE o.event_id = w.event_id AND o.status = 'WAITING'
				AND (o.joined_at, o.seq) < (w.joined_at, w.seq)
		) ELSE 0 END`

func scanWaitlistEntry(row pgx.Row, withPosition bool) (*model.WaitlistEntry, error) {
	var entry model.WaitlistEntry
	dest := []any{
		&entry.ID,
		&entry.EventID,
		&entry.GuestID,
		&entry.Contact.Email,
		&entry.Contact.Name,
		&entry.Contact.Phone,
		&entry.TicketsWanted,
		&entry.Status,
		&entry.JoinedAt,
		&entry.Seq,
		&entry.OfferCount,
		&entry.OfferedAt,
		&entry.OfferExpiresAt,
		&entry.ResolvedAt,
		&entry.BookingID,
		&entry.UpdatedAt,
	}
	if withPosition {
		dest = append(dest, &entry.Position)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &entry, nil
}

func collectWaitlistEntries(rows pgx.Rows, withPosition bool) ([]*model.WaitlistEntry, error) {
	defer rows.Close()

	entries := make([]*model.WaitlistEntry, 0)
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows, withPosition)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *WaitlistRepositoryImpl) Create(ctx context.Context, entry *model.WaitlistEntry) (*model.WaitlistEntry, error) {
	query := `
		INSERT INTO waitlist_entries AS w (
			id, event_id, guest_id, contact_email, contact_name, contact_phone,
			tickets_wanted, status, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + waitlistColumns

	created, err := scanWaitlistEntry(conn(ctx, r.pool).QueryRow(ctx, query,
		entry.ID, entry.EventID, entry.GuestID, entry.Contact.Email, entry.Contact.Name,
		entry.Contact.Phone, entry.TicketsWanted, entry.Status, entry.JoinedAt, entry.UpdatedAt,
	), false)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperrors.ErrAlreadyOnWaitlist
		}
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return created, nil
}

func (r *WaitlistRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `, ` + waitlistPosition + ` FROM waitlist_entries w WHERE w.id = $1`

	entry, err := scanWaitlistEntry(conn(ctx, r.pool).QueryRow(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWaitlistEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *WaitlistRepositoryImpl) ListByEventID(ctx context.Context, eventID uuid.UUID, statuses ...model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}

	query := `
		SELECT ` + waitlistColumns + `, ` + waitlistPosition + `
		FROM waitlist_entries w
		WHERE w.event_id = $1 AND (cardinality($2::text[]) = 0 OR w.status = ANY($2::text[]))
		ORDER BY w.joined_at, w.seq
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, eventID, filter)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows, true)
}

func (r *WaitlistRepositoryImpl) ListWaiting(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries w
		WHERE w.event_id = $1 AND w.status = 'WAITING'
		ORDER BY w.joined_at, w.seq
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows, false)
}

func (r *WaitlistRepositoryImpl) SumLiveOffers(ctx context.Context, eventID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(tickets_wanted), 0)
		FROM waitlist_entries
		WHERE event_id = $1 AND status = 'OFFERED' AND offer_expires_at > $2
	`

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, query, eventID, now).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum live offers: %w", err)
	}
	return total, nil
}

func (r *WaitlistRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, from model.WaitlistStatus, change model.WaitlistChange) (*model.WaitlistEntry, error) {
	if !from.CanTransitionTo(change.To) {
		return nil, fmt.Errorf("%w: waitlist %s to %s", apperrors.ErrInvalidTransition, from, change.To)
	}

	query := `
		UPDATE waitlist_entries w
		SET status = $1,
			updated_at = $2,
			offered_at = CASE
				WHEN $1::text = 'OFFERED' THEN $2::timestamptz
				WHEN $1::text = 'WAITING' THEN NULL
				ELSE offered_at END,
			offer_expires_at = CASE
				WHEN $1::text = 'OFFERED' THEN $3::timestamptz
				WHEN $1::text = 'WAITING' THEN NULL
				ELSE offer_expires_at END,
			offer_count = CASE WHEN $1::text = 'OFFERED' THEN offer_count + 1 ELSE offer_count END,
			resolved_at = CASE WHEN $1::text IN ('CLAIMED', 'EXPIRED', 'WITHDRAWN') THEN $2::timestamptz ELSE resolved_at END,
			booking_id = CASE WHEN $1::text = 'CLAIMED' THEN $4::uuid ELSE booking_id END
		WHERE w.id = $5 AND w.status = $6
		RETURNING ` + waitlistColumns

	entry, err := scanWaitlistEntry(conn(ctx, r.pool).QueryRow(ctx, query,
		string(change.To), change.At, change.OfferExpiresAt, change.BookingID, id, string(from),
	), false)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition waitlist entry: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: waitlist entry is %s, expected %s", apperrors.ErrInvalidTransition, current.Status, from)
}

func (r *WaitlistRepositoryImpl) ExpireDue(ctx context.Context, eventID *uuid.UUID, now time.Time) ([]*model.WaitlistEntry, error) {
	query := `
		UPDATE waitlist_entries w
		SET status = 'EXPIRED', resolved_at = $1, updated_at = $1
		WHERE w.status = 'OFFERED' AND w.offer_expires_at <= $1
			AND ($2::uuid IS NULL OR w.event_id = $2::uuid)
		RETURNING ` + waitlistColumns

	rows, err := conn(ctx, r.pool).Query(ctx, query, now, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to expire offers: %w", err)
	}
	return collectWaitlistEntries(rows, false)
}

func (r *WaitlistRepositoryImpl) EventsWithWaiting(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT w.event_id
		FROM waitlist_entries w
		JOIN events e ON e.id = w.event_id
		WHERE w.status = 'WAITING' AND e.status = 'PUBLISHED'
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *WaitlistRepositoryImpl) WithdrawOpen(ctx context.Context, eventID uuid.UUID, at time.Time) ([]*model.WaitlistEntry, error) {
	query := `
		UPDATE waitlist_entries w
		SET status = 'WITHDRAWN', resolved_at = $1, updated_at = $1
		WHERE w.event_id = $2 AND w.status IN ('WAITING', 'OFFERED')
		RETURNING ` + waitlistColumns

	rows, err := conn(ctx, r.pool).Query(ctx, query, at, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw waitlist: %w", err)
	}
	return collectWaitlistEntries(rows, false)
}
