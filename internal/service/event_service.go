package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultCurrency      = "USD"
	eventCancelledReason = "event cancelled"
)

type EventService interface {
	List(ctx context.Context) ([]*model.Event, error)
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	// Publish 建立活動，spots left 從 capacity 開始
	Publish(ctx context.Context, req model.PublishEventRequest) (*model.Event, error)
	// Cancel closes the event, cancels every live booking through the booking
	// state machine and withdraws the waitlist.
	Cancel(ctx context.Context, eventID uuid.UUID, reason *string) (*model.Event, error)
	Revenue(ctx context.Context, eventID uuid.UUID) (*model.Revenue, error)
}

type EventServiceImpl struct {
	repo     repository.EventRepository
	bookings BookingService
	waitlist WaitlistService
	ledger   TransactionLedger
	now      Clock
}

func NewEventService(
	repo repository.EventRepository,
	bookings BookingService,
	waitlist WaitlistService,
	ledger TransactionLedger,
	clock Clock,
) EventService {
	return &EventServiceImpl{
		repo:     repo,
		bookings: bookings,
		waitlist: waitlist,
		ledger:   ledger,
		now:      clock.orSystem(),
	}
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	return s.repo.FindByID(ctx, eventID)
}

func (s *EventServiceImpl) Publish(ctx context.Context, req model.PublishEventRequest) (*model.Event, error) {
	switch {
	case req.HostID == "" || req.Title == "":
		return nil, fmt.Errorf("%w: host id and title are required", apperrors.ErrInvalidArgument)
	case req.Capacity < 1:
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", apperrors.ErrInvalidArgument, req.Capacity)
	case req.TicketPrice < 0:
		return nil, fmt.Errorf("%w: negative ticket price %d", apperrors.ErrInvalidArgument, req.TicketPrice)
	case !req.BookingMode.IsValid():
		return nil, fmt.Errorf("%w: unknown booking mode %q", apperrors.ErrInvalidArgument, req.BookingMode)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.now()
	event, err := s.repo.Create(ctx, &model.Event{
		ID:          uuid.New(),
		HostID:      req.HostID,
		Title:       req.Title,
		Capacity:    req.Capacity,
		SpotsLeft:   req.Capacity,
		TicketPrice: req.TicketPrice,
		Currency:    currency,
		BookingMode: req.BookingMode,
		Status:      model.EventStatusPublished,
		StartsAt:    req.StartsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("event").Info("event published",
		zap.String("event_id", event.ID.String()),
		zap.Int("capacity", event.Capacity),
		zap.String("booking_mode", string(event.BookingMode)),
	)
	return event, nil
}

func (s *EventServiceImpl) Cancel(ctx context.Context, eventID uuid.UUID, reason *string) (*model.Event, error) {
	event, err := s.repo.Cancel(ctx, eventID, reason, s.now())
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("event").With(zap.String("event_id", eventID.String()))
	log.Info("event cancelled")

	live, err := s.bookings.ListByEvent(ctx, eventID, model.BookingStatusPending, model.BookingStatusApproved)
	if err != nil {
		return nil, err
	}

	cancelReason := eventCancelledReason
	if reason != nil && *reason != "" {
		cancelReason = *reason
	}

	var errs []error
	for _, booking := range live {
		_, err := s.bookings.Transition(ctx, booking.ID, model.TransitionBookingRequest{
			Action: model.BookingActionCancel,
			Reason: &cancelReason,
		})
		// a booking that moved on by itself is already out of the event
		if err != nil && !errors.Is(err, apperrors.ErrInvalidTransition) {
			errs = append(errs, fmt.Errorf("cancel booking %s: %w", booking.ID, err))
		}
	}

	withdrawn, err := s.waitlist.WithdrawAll(ctx, eventID)
	if err != nil {
		errs = append(errs, fmt.Errorf("withdraw waitlist: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("event cancellation incomplete", zap.Error(err))
		return event, err
	}
	log.Info("event cancellation completed", zap.Int("bookings", len(live)), zap.Int("waitlist_withdrawn", withdrawn))
	return event, nil
}

func (s *EventServiceImpl) Revenue(ctx context.Context, eventID uuid.UUID) (*model.Revenue, error) {
	return s.ledger.Revenue(ctx, eventID)
}
