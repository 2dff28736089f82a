package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-supper-club/config"
	"go-gin-supper-club/internal/lock"
	"go-gin-supper-club/internal/metrics"
	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/notify"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const offerRevokedReason = "waitlist offer no longer valid"

type WaitlistService interface {
	// 加入候補，回傳含目前 FIFO 位置的 entry
	Join(ctx context.Context, req model.JoinWaitlistRequest) (*model.WaitlistEntry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, statuses ...model.WaitlistStatus) ([]*model.WaitlistEntry, error)
	// Claim turns a live offer into an approved booking. Claims of the same
	// entry run one at a time.
	Claim(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	Withdraw(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error)
	// Promote offers the event's unoffered seats to WAITING entries in FIFO
	// order, skipping entries that do not fit. It returns the new offers.
	Promote(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error)
	// Sweep expires every overdue offer and re-runs promotion where needed.
	Sweep(ctx context.Context) (int, error)
	WithdrawAll(ctx context.Context, eventID uuid.UUID) (int, error)
}

type WaitlistServiceImpl struct {
	events      repository.EventRepository
	waitlist    repository.WaitlistRepository
	bookings    BookingService
	locker      lock.Locker
	notifier    notify.Notifier
	validate    *validator.Validate
	offerWindow time.Duration
	lockTTL     time.Duration
	now         Clock
}

func NewWaitlistService(
	eventRepository repository.EventRepository,
	waitlistRepository repository.WaitlistRepository,
	bookingService BookingService,
	locker lock.Locker,
	notifier notify.Notifier,
	cfg config.BookingConfig,
	clock Clock,
) WaitlistService {
	return &WaitlistServiceImpl{
		events:      eventRepository,
		waitlist:    waitlistRepository,
		bookings:    bookingService,
		locker:      locker,
		notifier:    notifier,
		validate:    validator.New(),
		offerWindow: cfg.OfferWindow,
		lockTTL:     cfg.PromotionLockTTL,
		now:         clock.orSystem(),
	}
}

func promoteLockKey(eventID uuid.UUID) string {
	return "waitlist:promote:" + eventID.String()
}

func claimLockKey(entryID uuid.UUID) string {
	return "waitlist:claim:" + entryID.String()
}

func (s *WaitlistServiceImpl) Join(ctx context.Context, req model.JoinWaitlistRequest) (*model.WaitlistEntry, error) {
	if err := s.validate.Struct(req.Contact); err != nil {
		return nil, fmt.Errorf("%w: contact: %v", apperrors.ErrInvalidArgument, err)
	}
	if req.TicketsWanted < 1 {
		return nil, fmt.Errorf("%w: tickets wanted must be at least 1, got %d", apperrors.ErrInvalidArgument, req.TicketsWanted)
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOpen() {
		return nil, apperrors.ErrEventClosed
	}
	if req.TicketsWanted > event.Capacity {
		return nil, fmt.Errorf("%w: %d tickets wanted, event capacity is %d", apperrors.ErrInvalidArgument, req.TicketsWanted, event.Capacity)
	}

	now := s.now()
	created, err := s.waitlist.Create(ctx, &model.WaitlistEntry{
		ID:            uuid.New(),
		EventID:       event.ID,
		GuestID:       req.GuestID,
		Contact:       req.Contact,
		TicketsWanted: req.TicketsWanted,
		Status:        model.WaitlistStatusWaiting,
		JoinedAt:      now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyOnWaitlist) {
			logger.WithComponent("waitlist").Warn("duplicate waitlist join", zap.String("event_id", event.ID.String()))
		}
		return nil, err
	}
	s.transitioned(created)

	// 有尚未提供給他人的空位時立即發出 offer
	s.promoteQuietly(ctx, event.ID)
	return s.waitlist.FindByID(ctx, created.ID)
}

func (s *WaitlistServiceImpl) GetEntry(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	return s.waitlist.FindByID(ctx, id)
}

func (s *WaitlistServiceImpl) ListByEvent(ctx context.Context, eventID uuid.UUID, statuses ...model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.waitlist.ListByEventID(ctx, eventID, statuses...)
}

func (s *WaitlistServiceImpl) Claim(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	// 同一個 entry 同時只允許一個 claim 進行，重複的請求排隊等待
	acquireCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	lease, err := s.locker.Acquire(acquireCtx, claimLockKey(id), s.lockTTL)
	cancel()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			logger.WithComponent("waitlist").Warn("release claim lock",
				zap.String("entry_id", id.String()), zap.Error(rerr))
		}
	}()

	return s.claimLocked(ctx, id)
}

func (s *WaitlistServiceImpl) claimLocked(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	entry, err := s.waitlist.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("waitlist").With(
		zap.String("entry_id", id.String()),
		zap.String("event_id", entry.EventID.String()),
	)

	switch entry.Status {
	case model.WaitlistStatusOffered:
	case model.WaitlistStatusExpired:
		log.Warn("claim after expiry")
		return nil, apperrors.ErrOfferExpired
	default:
		return nil, fmt.Errorf("%w: entry is %s", apperrors.ErrInvalidTransition, entry.Status)
	}

	// 一律以牆上時間判斷，不依賴 sweeper 是否已執行
	now := s.now()
	if !entry.OfferLive(now) {
		log.Warn("claim after expiry", zap.Timep("offer_expires_at", entry.OfferExpiresAt))
		s.expire(ctx, entry, now)
		s.promoteQuietly(ctx, entry.EventID)
		return nil, apperrors.ErrOfferExpired
	}

	guestID := entry.GuestID
	if guestID == "" {
		guestID = entry.Contact.Email
	}
	booking, err := s.bookings.Admit(ctx, entry.EventID, guestID, entry.TicketsWanted, model.BookingSourceWaitlist)
	if err != nil {
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			log.Warn("claim lost the seats, back to waiting")
			s.revert(ctx, entry)
			s.promoteQuietly(ctx, entry.EventID)
		}
		// PaymentFailed leaves the offer open until it expires
		return nil, err
	}

	claimed, err := s.waitlist.Transition(ctx, id, model.WaitlistStatusOffered, model.WaitlistChange{
		To:        model.WaitlistStatusClaimed,
		At:        s.now(),
		BookingID: &booking.ID,
	})
	if err != nil {
		log.Warn("offer resolved while claiming, cancelling booking",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		reason := offerRevokedReason
		if _, cerr := s.bookings.Transition(context.WithoutCancel(ctx), booking.ID, model.TransitionBookingRequest{
			Action: model.BookingActionCancel,
			Reason: &reason,
		}); cerr != nil {
			log.Error("cancel booking of revoked offer", zap.String("booking_id", booking.ID.String()), zap.Error(cerr))
		}
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			return nil, s.offerGone(ctx, id)
		}
		return nil, err
	}
	s.transitioned(claimed)
	return booking, nil
}

// offerGone explains why an offer stopped being OFFERED during a claim.
func (s *WaitlistServiceImpl) offerGone(ctx context.Context, id uuid.UUID) error {
	current, err := s.waitlist.FindByID(context.WithoutCancel(ctx), id)
	if err != nil {
		return err
	}
	if current.Status == model.WaitlistStatusExpired {
		return apperrors.ErrOfferExpired
	}
	return fmt.Errorf("%w: entry is %s", apperrors.ErrInvalidTransition, current.Status)
}

func (s *WaitlistServiceImpl) Withdraw(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	entry, err := s.waitlist.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.Status.IsOpen() {
		return nil, fmt.Errorf("%w: entry is %s", apperrors.ErrInvalidTransition, entry.Status)
	}

	withdrawn, err := s.waitlist.Transition(ctx, id, entry.Status, model.WaitlistChange{
		To: model.WaitlistStatusWithdrawn,
		At: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(withdrawn)

	// 放棄 offer：座位交給下一位
	if entry.Status == model.WaitlistStatusOffered {
		s.promoteQuietly(ctx, entry.EventID)
	}
	return withdrawn, nil
}

func (s *WaitlistServiceImpl) Promote(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	start := time.Now()
	defer func() {
		metrics.PromotionDuration.Observe(time.Since(start).Seconds())
	}()

	acquireCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	lease, err := s.locker.Acquire(acquireCtx, promoteLockKey(eventID), s.lockTTL)
	cancel()
	if err != nil {
		return nil, err
	}

	event, offered, err := s.promoteLocked(ctx, eventID)
	if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
		logger.WithComponent("waitlist").Warn("release promotion lock",
			zap.String("event_id", eventID.String()), zap.Error(rerr))
	}

	// 通知在鎖外進行，失敗不影響 offer
	for _, entry := range offered {
		s.notify(ctx, event, entry)
	}
	return offered, err
}

func (s *WaitlistServiceImpl) promoteLocked(ctx context.Context, eventID uuid.UUID) (*model.Event, []*model.WaitlistEntry, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if !event.IsOpen() {
		return event, nil, nil
	}

	now := s.now()
	expired, err := s.waitlist.ExpireDue(ctx, &eventID, now)
	if err != nil {
		return event, nil, err
	}
	s.expired(expired)

	live, err := s.waitlist.SumLiveOffers(ctx, eventID, now)
	if err != nil {
		return event, nil, err
	}
	budget := event.SpotsLeft - live
	if budget <= 0 {
		return event, nil, nil
	}

	waiting, err := s.waitlist.ListWaiting(ctx, eventID)
	if err != nil {
		return event, nil, err
	}

	var offered []*model.WaitlistEntry
	for _, entry := range waiting {
		if budget <= 0 {
			break
		}
		// 放不下的 entry 保留原位，等更大的釋放
		if entry.TicketsWanted > budget {
			continue
		}

		expiresAt := now.Add(s.offerWindow)
		updated, err := s.waitlist.Transition(ctx, entry.ID, model.WaitlistStatusWaiting, model.WaitlistChange{
			To:             model.WaitlistStatusOffered,
			At:             now,
			OfferExpiresAt: &expiresAt,
		})
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			// withdrawn meanwhile
			continue
		}
		if err != nil {
			return event, offered, err
		}
		budget -= entry.TicketsWanted
		s.transitioned(updated)
		offered = append(offered, updated)
	}
	return event, offered, nil
}

func (s *WaitlistServiceImpl) Sweep(ctx context.Context) (int, error) {
	expired, err := s.waitlist.ExpireDue(ctx, nil, s.now())
	if err != nil {
		return 0, err
	}
	s.expired(expired)

	waiting, err := s.waitlist.EventsWithWaiting(ctx)
	if err != nil {
		return len(expired), err
	}

	seen := make(map[uuid.UUID]struct{})
	var eventIDs []uuid.UUID
	for _, entry := range expired {
		if _, ok := seen[entry.EventID]; !ok {
			seen[entry.EventID] = struct{}{}
			eventIDs = append(eventIDs, entry.EventID)
		}
	}
	for _, id := range waiting {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			eventIDs = append(eventIDs, id)
		}
	}

	var errs []error
	for _, id := range eventIDs {
		if _, err := s.Promote(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("promote event %s: %w", id, err))
		}
	}
	return len(expired), errors.Join(errs...)
}

func (s *WaitlistServiceImpl) WithdrawAll(ctx context.Context, eventID uuid.UUID) (int, error) {
	withdrawn, err := s.waitlist.WithdrawOpen(ctx, eventID, s.now())
	if err != nil {
		return 0, err
	}
	for _, entry := range withdrawn {
		s.transitioned(entry)
	}
	return len(withdrawn), nil
}

// expire moves a single overdue offer to EXPIRED. Losing the race to the
// sweeper is fine.
func (s *WaitlistServiceImpl) expire(ctx context.Context, entry *model.WaitlistEntry, now time.Time) {
	expired, err := s.waitlist.Transition(ctx, entry.ID, model.WaitlistStatusOffered, model.WaitlistChange{
		To: model.WaitlistStatusExpired,
		At: now,
	})
	switch {
	case err == nil:
		s.transitioned(expired)
	case errors.Is(err, apperrors.ErrInvalidTransition):
	default:
		logger.WithComponent("waitlist").Error("expire offer",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
	}
}

func (s *WaitlistServiceImpl) revert(ctx context.Context, entry *model.WaitlistEntry) {
	reverted, err := s.waitlist.Transition(context.WithoutCancel(ctx), entry.ID, model.WaitlistStatusOffered, model.WaitlistChange{
		To: model.WaitlistStatusWaiting,
		At: s.now(),
	})
	if err != nil {
		logger.WithComponent("waitlist").Warn("revert offer to waiting",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
		return
	}
	s.transitioned(reverted)
}

func (s *WaitlistServiceImpl) promoteQuietly(ctx context.Context, eventID uuid.UUID) {
	if _, err := s.Promote(context.WithoutCancel(ctx), eventID); err != nil {
		logger.WithComponent("waitlist").Warn("promotion failed, sweeper will retry",
			zap.String("event_id", eventID.String()), zap.Error(err))
	}
}

func (s *WaitlistServiceImpl) notify(ctx context.Context, event *model.Event, entry *model.WaitlistEntry) {
	if entry.OfferExpiresAt == nil {
		return
	}
	err := s.notifier.NotifyOffer(ctx, model.OfferNotice{
		EntryID:       entry.ID,
		EventID:       entry.EventID,
		EventTitle:    event.Title,
		Contact:       entry.Contact,
		TicketsWanted: entry.TicketsWanted,
		ExpiresAt:     *entry.OfferExpiresAt,
	})
	if err != nil {
		logger.WithComponent("waitlist").Warn("offer notification failed",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
	}
}

func (s *WaitlistServiceImpl) expired(entries []*model.WaitlistEntry) {
	for _, entry := range entries {
		s.transitioned(entry)
	}
}

func (s *WaitlistServiceImpl) transitioned(entry *model.WaitlistEntry) {
	metrics.WaitlistTransitions.WithLabelValues(string(entry.Status)).Inc()
	fields := []zap.Field{
		zap.String("entry_id", entry.ID.String()),
		zap.String("event_id", entry.EventID.String()),
		zap.String("status", string(entry.Status)),
		zap.Int("tickets_wanted", entry.TicketsWanted),
	}
	if entry.OfferExpiresAt != nil && entry.Status == model.WaitlistStatusOffered {
		fields = append(fields, zap.Time("offer_expires_at", *entry.OfferExpiresAt))
	}
	logger.WithComponent("waitlist").Info("waitlist entry transitioned", fields...)
}
