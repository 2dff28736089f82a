package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
)

type BookingRepository struct {
	store *Store
}

func NewBookingRepository(store *Store) repository.BookingRepository {
	return &BookingRepository{store: store}
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	defer r.store.lock(ctx)()

	if _, ok := r.store.data.events[booking.EventID]; !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if _, ok := r.store.data.bookings[booking.ID]; ok {
		return nil, fmt.Errorf("failed to create booking: duplicate id %s", booking.ID)
	}
	r.store.data.bookings[booking.ID] = *booking
	created := *booking
	return &created, nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	defer r.store.lock(ctx)()

	b, ok := r.store.data.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	return &b, nil
}

func (r *BookingRepository) ListByEventID(ctx context.Context, eventID uuid.UUID, statuses ...model.BookingStatus) ([]*model.Booking, error) {
	defer r.store.lock(ctx)()

	bookings := make([]*model.Booking, 0)
	for _, b := range r.store.data.bookings {
		if b.EventID != eventID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, b.Status) {
			continue
		}
		bookings = append(bookings, &b)
	}
	slices.SortFunc(bookings, func(a, b *model.Booking) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return bookings, nil
}

func (r *BookingRepository) Transition(ctx context.Context, id uuid.UUID, from model.BookingStatus, change model.BookingChange) (*model.Booking, error) {
	defer r.store.lock(ctx)()

	b, ok := r.store.data.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	if b.Status != from {
		return nil, fmt.Errorf("%w: booking is %s, expected %s", apperrors.ErrInvalidTransition, b.Status, from)
	}
	b.ApplyChange(change)
	r.store.data.bookings[id] = b
	return &b, nil
}
