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

type EventRepository struct {
	store *Store
}

func NewEventRepository(store *Store) repository.EventRepository {
	return &EventRepository{store: store}
}

func (r *EventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	defer r.store.lock(ctx)()

	if _, ok := r.store.data.events[event.ID]; ok {
		return nil, fmt.Errorf("failed to create event: duplicate id %s", event.ID)
	}
	r.store.data.events[event.ID] = *event
	created := *event
	return &created, nil
}

func (r *EventRepository) List(ctx context.Context) ([]*model.Event, error) {
	defer r.store.lock(ctx)()

	events := make([]*model.Event, 0, len(r.store.data.events))
	for _, e := range r.store.data.events {
		events = append(events, &e)
	}
	slices.SortFunc(events, func(a, b *model.Event) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return events, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	defer r.store.lock(ctx)()

	e, ok := r.store.data.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return &e, nil
}

func (r *EventRepository) ReserveSeats(ctx context.Context, id uuid.UUID, n int, at time.Time) (*model.Event, error) {
	defer r.store.lock(ctx)()

	e, ok := r.store.data.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if !e.IsOpen() {
		return nil, apperrors.ErrEventClosed
	}
	if e.SpotsLeft < n {
		return nil, apperrors.ErrCapacityExceeded
	}
	e.SpotsLeft -= n
	e.UpdatedAt = at
	r.store.data.events[id] = e
	return &e, nil
}

func (r *EventRepository) ReleaseSeats(ctx context.Context, id uuid.UUID, n int, at time.Time) (*model.SeatRelease, error) {
	defer r.store.lock(ctx)()

	e, ok := r.store.data.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	release := &model.SeatRelease{
		EventID:     id,
		Seats:       n,
		SpotsBefore: e.SpotsLeft,
		Capacity:    e.Capacity,
		ReleasedAt:  at,
	}
	e.SpotsLeft = min(e.Capacity, e.SpotsLeft+n)
	e.UpdatedAt = at
	r.store.data.events[id] = e

	release.SpotsAfter = e.SpotsLeft
	release.Clamped = release.SpotsBefore+n > e.Capacity
	return release, nil
}

func (r *EventRepository) Cancel(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (*model.Event, error) {
	defer r.store.lock(ctx)()

	e, ok := r.store.data.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if e.Status != model.EventStatusPublished {
		return nil, fmt.Errorf("%w: event already cancelled", apperrors.ErrInvalidTransition)
	}
	e.Status = model.EventStatusCancelled
	e.CancelledAt = &at
	e.CancelReason = reason
	e.UpdatedAt = at
	r.store.data.events[id] = e
	return &e, nil
}
