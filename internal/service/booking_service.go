package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go-gin-supper-club/internal/fee"
	"go-gin-supper-club/internal/metrics"
	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/payment"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const paymentFailedReason = "payment failed"

type BookingService interface {
	// 建立訂位：MANUAL 活動只建立 PENDING，INSTANT 活動立即保留座位並扣款
	Create(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error)
	// Admit reserves seats, captures payment and approves in one flow,
	// regardless of the event's booking mode. Waitlist claims go through it.
	Admit(ctx context.Context, eventID uuid.UUID, guestID string, ticketCount int, source model.BookingSource) (*model.Booking, error)
	Transition(ctx context.Context, id uuid.UUID, req model.TransitionBookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, statuses ...model.BookingStatus) ([]*model.Booking, error)
	ListTransactions(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error)
	// SetFeeRate changes the rate captured by bookings created from now on.
	SetFeeRate(bps int) error
}

type BookingServiceImpl struct {
	transactor repository.Transactor
	events     repository.EventRepository
	bookings   repository.BookingRepository
	capacity   CapacityLedger
	ledger     TransactionLedger
	gateway    payment.Gateway
	feeRate    atomic.Int64
	now        Clock
}

func NewBookingService(
	transactor repository.Transactor,
	eventRepository repository.EventRepository,
	bookingRepository repository.BookingRepository,
	capacity CapacityLedger,
	ledger TransactionLedger,
	gateway payment.Gateway,
	feeRateBps int,
	clock Clock,
) BookingService {
	s := &BookingServiceImpl{
		transactor: transactor,
		events:     eventRepository,
		bookings:   bookingRepository,
		capacity:   capacity,
		ledger:     ledger,
		gateway:    gateway,
		now:        clock.orSystem(),
	}
	s.feeRate.Store(int64(feeRateBps))
	return s
}

func (s *BookingServiceImpl) SetFeeRate(bps int) error {
	if bps < 0 || bps > fee.BasisPointsPerUnit {
		return fmt.Errorf("%w: fee rate %d bps out of range", apperrors.ErrInvalidArgument, bps)
	}
	s.feeRate.Store(int64(bps))
	return nil
}

func (s *BookingServiceImpl) newBooking(event *model.Event, guestID string, ticketCount int, source model.BookingSource) (*model.Booking, error) {
	breakdown, err := fee.Compute(event.TicketPrice, ticketCount, int(s.feeRate.Load()))
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &model.Booking{
		ID:          uuid.New(),
		EventID:     event.ID,
		GuestID:     guestID,
		TicketCount: ticketCount,
		Status:      model.BookingStatusPending,
		Source:      source,
		TotalPrice:  breakdown.TotalPrice,
		PlatformFee: breakdown.PlatformFee,
		FeeRateBps:  breakdown.RateBps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func validateBookingInput(guestID string, ticketCount int) error {
	if guestID == "" {
		return fmt.Errorf("%w: guest id is required", apperrors.ErrInvalidArgument)
	}
	if ticketCount < 1 {
		return fmt.Errorf("%w: ticket count must be at least 1, got %d", apperrors.ErrInvalidArgument, ticketCount)
	}
	return nil
}

func (s *BookingServiceImpl) Create(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	if err := validateBookingInput(req.GuestID, req.TicketCount); err != nil {
		return nil, err
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOpen() {
		return nil, apperrors.ErrEventClosed
	}

	if event.BookingMode == model.BookingModeInstant {
		return s.Admit(ctx, event.ID, req.GuestID, req.TicketCount, model.BookingSourceDirect)
	}

	// MANUAL：不保留座位，只擋掉已經不可能成立的請求
	if req.TicketCount > event.SpotsLeft {
		logger.WithComponent("booking").Warn("manual booking rejected, not enough spots",
			zap.String("event_id", event.ID.String()), zap.Int("tickets", req.TicketCount), zap.Int("spots_left", event.SpotsLeft))
		return nil, apperrors.ErrCapacityExceeded
	}

	booking, err := s.newBooking(event, req.GuestID, req.TicketCount, model.BookingSourceDirect)
	if err != nil {
		return nil, err
	}
	created, err := s.bookings.Create(ctx, booking)
	if err != nil {
		return nil, err
	}
	s.transitioned(created)
	return created, nil
}

func (s *BookingServiceImpl) Admit(ctx context.Context, eventID uuid.UUID, guestID string, ticketCount int, source model.BookingSource) (*model.Booking, error) {
	if err := validateBookingInput(guestID, ticketCount); err != nil {
		return nil, err
	}

	var (
		event   *model.Event
		booking *model.Booking
	)
	// 座位與 PENDING 訂位在同一個交易內寫入
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if event, err = s.events.FindByID(ctx, eventID); err != nil {
			return err
		}
		if _, err = s.capacity.Reserve(ctx, eventID, ticketCount); err != nil {
			return err
		}
		pending, err := s.newBooking(event, guestID, ticketCount, source)
		if err != nil {
			return err
		}
		booking, err = s.bookings.Create(ctx, pending)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(booking)

	// 扣款在交易提交之後進行
	charge, err := s.capture(ctx, event, booking)
	if err != nil {
		s.declineUnpaid(ctx, booking)
		return nil, err
	}

	approved, err := s.bookings.Transition(ctx, booking.ID, model.BookingStatusPending, model.BookingChange{
		To: model.BookingStatusApproved,
		At: s.now(),
	})
	if err != nil {
		logger.WithComponent("booking").Warn("booking changed while payment was captured, rolling back",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		s.compensate(ctx, event, booking, charge)
		return nil, err
	}
	s.transitioned(approved)
	return approved, nil
}

func (s *BookingServiceImpl) Transition(ctx context.Context, id uuid.UUID, req model.TransitionBookingRequest) (*model.Booking, error) {
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidArgument, req.Action)
	}

	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := booking.Status.Next(req.Action)
	if err != nil {
		logger.WithComponent("booking").Warn("transition rejected",
			zap.String("booking_id", id.String()), zap.String("status", string(booking.Status)),
			zap.String("action", string(req.Action)))
		return nil, err
	}
	event, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case model.BookingActionApprove:
		return s.approve(ctx, event, booking)
	case model.BookingActionDecline:
		if err := reviewable(event, booking); err != nil {
			return nil, err
		}
		return s.move(ctx, booking, model.BookingChange{To: next, At: s.now(), Reason: req.Reason})
	case model.BookingActionCancel:
		return s.cancel(ctx, event, booking, req.Reason)
	default:
		// complete / noShow
		if !event.HasConcluded(s.now()) {
			return nil, fmt.Errorf("%w: event has not concluded", apperrors.ErrInvalidTransition)
		}
		return s.move(ctx, booking, model.BookingChange{To: next, At: s.now()})
	}
}

// reviewable reports whether the host decides on the booking. Only direct
// requests for MANUAL events wait for review; every other PENDING booking is
// an admission still in flight.
func reviewable(event *model.Event, booking *model.Booking) error {
	if event.BookingMode != model.BookingModeManual || booking.Source != model.BookingSourceDirect {
		return fmt.Errorf("%w: booking is not awaiting host review", apperrors.ErrInvalidTransition)
	}
	return nil
}

func (s *BookingServiceImpl) approve(ctx context.Context, event *model.Event, booking *model.Booking) (*model.Booking, error) {
	if err := reviewable(event, booking); err != nil {
		return nil, err
	}

	if _, err := s.capacity.Reserve(ctx, event.ID, booking.TicketCount); err != nil {
		// 座位已被其他訂位取走：訂位維持 PENDING，由 host 決定是否拒絕
		logger.WithComponent("booking").Warn("approve failed",
			zap.String("booking_id", booking.ID.String()), zap.String("event_id", event.ID.String()), zap.Error(err))
		return nil, err
	}

	charge, err := s.capture(ctx, event, booking)
	if err != nil {
		s.releaseSeats(ctx, booking)
		return nil, err
	}

	approved, err := s.bookings.Transition(ctx, booking.ID, model.BookingStatusPending, model.BookingChange{
		To: model.BookingStatusApproved,
		At: s.now(),
	})
	if err != nil {
		s.compensate(ctx, event, booking, charge)
		return nil, err
	}
	s.transitioned(approved)
	return approved, nil
}

func (s *BookingServiceImpl) cancel(ctx context.Context, event *model.Event, booking *model.Booking, reason *string) (*model.Booking, error) {
	change := model.BookingChange{To: model.BookingStatusCancelled, At: s.now(), Reason: reason}
	if booking.Status == model.BookingStatusPending {
		return s.move(ctx, booking, change)
	}

	var cancelled *model.Booking
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		cancelled, err = s.bookings.Transition(ctx, booking.ID, model.BookingStatusApproved, change)
		if err != nil {
			return err
		}
		_, err = s.capacity.Release(ctx, booking.EventID, booking.TicketCount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(cancelled)

	charge, err := s.ledger.CompletedCharge(ctx, booking.ID)
	switch {
	case errors.Is(err, apperrors.ErrTransactionNotFound):
	case err != nil:
		logger.WithComponent("booking").Error("lookup charge for refund failed",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
	default:
		s.refund(ctx, event, booking, charge)
	}
	return cancelled, nil
}

// move applies a transition that has no seat or payment effect.
func (s *BookingServiceImpl) move(ctx context.Context, booking *model.Booking, change model.BookingChange) (*model.Booking, error) {
	updated, err := s.bookings.Transition(ctx, booking.ID, booking.Status, change)
	if err != nil {
		return nil, err
	}
	s.transitioned(updated)
	return updated, nil
}

// capture records a CHARGE, calls the gateway and settles the outcome. The
// returned transaction is the settled charge.
func (s *BookingServiceImpl) capture(ctx context.Context, event *model.Event, booking *model.Booking) (*model.Transaction, error) {
	log := logger.WithComponent("booking").With(
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("amount", booking.TotalPrice),
	)

	txn, err := s.ledger.RecordCharge(ctx, booking.ID, booking.TotalPrice)
	if err != nil {
		return nil, err
	}

	receipt, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		BookingID:      booking.ID,
		GuestID:        booking.GuestID,
		Amount:         booking.TotalPrice,
		Currency:       event.Currency,
		IdempotencyKey: "charge:" + txn.ID.String(),
	})
	if err != nil {
		log.Warn("charge failed", zap.Error(err))
		if _, serr := s.ledger.Settle(context.WithoutCancel(ctx), txn.ID, model.TransactionStatusFailed, nil); serr != nil {
			log.Error("settle failed charge", zap.Error(serr))
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPaymentFailed, err)
	}

	reference := receipt.Reference
	settled, err := s.ledger.Settle(context.WithoutCancel(ctx), txn.ID, model.TransactionStatusCompleted, &reference)
	if err != nil {
		// the money moved; keep going and leave the row for reconciliation
		log.Error("settle completed charge", zap.String("reference", reference), zap.Error(err))
		txn.Reference = &reference
		return txn, nil
	}
	return settled, nil
}

func (s *BookingServiceImpl) refund(ctx context.Context, event *model.Event, booking *model.Booking, charge *model.Transaction) {
	if charge == nil || charge.Amount == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logger.WithComponent("booking").With(
		zap.String("booking_id", booking.ID.String()),
		zap.String("charge_id", charge.ID.String()),
		zap.Int64("amount", charge.Amount),
	)

	txn, err := s.ledger.RecordRefund(ctx, booking.ID, charge.Amount)
	if err != nil {
		log.Error("record refund", zap.Error(err))
		return
	}

	var chargeReference string
	if charge.Reference != nil {
		chargeReference = *charge.Reference
	}
	receipt, err := s.gateway.Refund(ctx, payment.RefundRequest{
		BookingID:       booking.ID,
		ChargeReference: chargeReference,
		Amount:          charge.Amount,
		Currency:        event.Currency,
		IdempotencyKey:  "refund:" + txn.ID.String(),
	})
	if err != nil {
		log.Error("refund failed", zap.Error(err))
		if _, serr := s.ledger.Settle(ctx, txn.ID, model.TransactionStatusFailed, nil); serr != nil {
			log.Error("settle failed refund", zap.Error(serr))
		}
		return
	}

	reference := receipt.Reference
	if _, err := s.ledger.Settle(ctx, txn.ID, model.TransactionStatusCompleted, &reference); err != nil {
		log.Error("settle completed refund", zap.String("reference", reference), zap.Error(err))
	}
}

// declineUnpaid ends an admission whose charge failed: the booking is
// DECLINED and its seats go back in one unit of work.
func (s *BookingServiceImpl) declineUnpaid(ctx context.Context, booking *model.Booking) {
	ctx = context.WithoutCancel(ctx)
	reason := paymentFailedReason
	var declined *model.Booking

	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		declined, err = s.bookings.Transition(ctx, booking.ID, model.BookingStatusPending, model.BookingChange{
			To:     model.BookingStatusDeclined,
			At:     s.now(),
			Reason: &reason,
		})
		if err != nil && !errors.Is(err, apperrors.ErrInvalidTransition) {
			return err
		}
		_, err = s.capacity.Release(ctx, booking.EventID, booking.TicketCount)
		return err
	})
	if err != nil {
		logger.WithComponent("booking").Error("compensation after failed payment",
			zap.String("booking_id", booking.ID.String()), zap.Int("seats", booking.TicketCount), zap.Error(err))
		return
	}
	if declined != nil {
		s.transitioned(declined)
	}
}

func (s *BookingServiceImpl) releaseSeats(ctx context.Context, booking *model.Booking) {
	if _, err := s.capacity.Release(context.WithoutCancel(ctx), booking.EventID, booking.TicketCount); err != nil {
		logger.WithComponent("booking").Error("release seats after failed approval",
			zap.String("booking_id", booking.ID.String()), zap.Int("seats", booking.TicketCount), zap.Error(err))
	}
}

// compensate undoes a paid attempt that lost the race to approve.
func (s *BookingServiceImpl) compensate(ctx context.Context, event *model.Event, booking *model.Booking, charge *model.Transaction) {
	s.releaseSeats(ctx, booking)
	s.refund(ctx, event, booking, charge)
}

func (s *BookingServiceImpl) transitioned(booking *model.Booking) {
	metrics.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()
	logger.WithComponent("booking").Info("booking transitioned",
		zap.String("booking_id", booking.ID.String()),
		zap.String("event_id", booking.EventID.String()),
		zap.String("status", string(booking.Status)),
		zap.Int("tickets", booking.TicketCount),
	)
}

func (s *BookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return s.bookings.FindByID(ctx, id)
}

func (s *BookingServiceImpl) ListByEvent(ctx context.Context, eventID uuid.UUID, statuses ...model.BookingStatus) ([]*model.Booking, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.bookings.ListByEventID(ctx, eventID, statuses...)
}

func (s *BookingServiceImpl) ListTransactions(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error) {
	if _, err := s.bookings.FindByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.ledger.ListByBooking(ctx, bookingID)
}
