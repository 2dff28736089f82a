package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-gin-supper-club/config"
	"go-gin-supper-club/internal/lock"
	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/payment"
	"go-gin-supper-club/internal/queue"
	"go-gin-supper-club/internal/repository"
	"go-gin-supper-club/internal/repository/memory"
	"go-gin-supper-club/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubGateway approves every call unless decline is set.
type stubGateway struct {
	mu      sync.Mutex
	decline bool
	park    *parkedCharge
	charges []payment.ChargeRequest
	refunds []payment.RefundRequest
}

// parkedCharge holds one Charge call until resume is closed.
type parkedCharge struct {
	entered chan struct{}
	resume  chan struct{}
}

// ParkNextCharge makes the next Charge call block. entered is closed once the
// call is inside the gateway; closing resume lets it finish.
func (g *stubGateway) ParkNextCharge() (entered <-chan struct{}, resume chan<- struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.park = &parkedCharge{entered: make(chan struct{}), resume: make(chan struct{})}
	return g.park.entered, g.park.resume
}

func (g *stubGateway) SetDecline(decline bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decline = decline
}

func (g *stubGateway) Charge(_ context.Context, req payment.ChargeRequest) (*payment.Receipt, error) {
	g.mu.Lock()
	park := g.park
	g.park = nil
	g.mu.Unlock()
	if park != nil {
		close(park.entered)
		<-park.resume
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decline {
		return nil, payment.ErrDeclined
	}
	g.charges = append(g.charges, req)
	return &payment.Receipt{Reference: fmt.Sprintf("ch_%d", len(g.charges)), ProcessedAt: baseTime}, nil
}

func (g *stubGateway) Refund(_ context.Context, req payment.RefundRequest) (*payment.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, req)
	return &payment.Receipt{Reference: fmt.Sprintf("re_%d", len(g.refunds)), ProcessedAt: baseTime}, nil
}

func (g *stubGateway) Charges() []payment.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.ChargeRequest(nil), g.charges...)
}

func (g *stubGateway) Refunds() []payment.RefundRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.RefundRequest(nil), g.refunds...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []model.OfferNotice
}

func (n *recordingNotifier) NotifyOffer(_ context.Context, notice model.OfferNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) Notices() []model.OfferNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.OfferNotice(nil), n.notices...)
}

type harness struct {
	clock    *fakeClock
	events   repository.EventRepository
	releases queue.ReleaseQueue
	gateway  *stubGateway
	notifier *recordingNotifier
	cfg      config.BookingConfig

	capacity service.CapacityLedger
	ledger   service.TransactionLedger
	bookings service.BookingService
	waitlist service.WaitlistService
	eventSvc service.EventService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	h := &harness{
		clock:    &fakeClock{now: baseTime},
		events:   memory.NewEventRepository(store),
		releases: queue.NewReleaseQueue(1024),
		gateway:  &stubGateway{},
		notifier: &recordingNotifier{},
		cfg:      config.LoadTestConfig().Booking,
	}
	clock := service.Clock(h.clock.Now)

	bookingRepo := memory.NewBookingRepository(store)
	waitlistRepo := memory.NewWaitlistRepository(store)
	transactionRepo := memory.NewTransactionRepository(store)

	h.capacity = service.NewCapacityLedger(h.events, h.releases, clock)
	h.ledger = service.NewTransactionLedger(transactionRepo, h.events, clock)
	h.bookings = service.NewBookingService(store.Transactor(), h.events, bookingRepo, h.capacity, h.ledger,
		h.gateway, h.cfg.FeeRateBasisPoints, clock)
	h.waitlist = service.NewWaitlistService(h.events, waitlistRepo, h.bookings, lock.NewMemoryLocker(),
		h.notifier, h.cfg, clock)
	h.eventSvc = service.NewEventService(h.events, h.bookings, h.waitlist, h.ledger, clock)
	return h
}

func (h *harness) publish(t *testing.T, capacity int, mode model.BookingMode) *model.Event {
	t.Helper()
	event, err := h.eventSvc.Publish(context.Background(), model.PublishEventRequest{
		HostID:      "host-1",
		Title:       "Harvest Supper",
		Capacity:    capacity,
		TicketPrice: 5000,
		Currency:    "usd",
		BookingMode: mode,
		StartsAt:    baseTime.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return event
}

func (h *harness) book(t *testing.T, eventID uuid.UUID, guest string, tickets int) *model.Booking {
	t.Helper()
	booking, err := h.bookings.Create(context.Background(), model.CreateBookingRequest{
		EventID:     eventID,
		GuestID:     guest,
		TicketCount: tickets,
	})
	require.NoError(t, err)
	return booking
}

func (h *harness) approve(t *testing.T, bookingID uuid.UUID) *model.Booking {
	t.Helper()
	booking, err := h.bookings.Transition(context.Background(), bookingID, model.TransitionBookingRequest{
		Action: model.BookingActionApprove,
	})
	require.NoError(t, err)
	return booking
}

func (h *harness) join(t *testing.T, eventID uuid.UUID, email string, tickets int) *model.WaitlistEntry {
	t.Helper()
	entry, err := h.waitlist.Join(context.Background(), model.JoinWaitlistRequest{
		EventID:       eventID,
		Contact:       model.Contact{Email: email, Name: "Guest"},
		TicketsWanted: tickets,
	})
	require.NoError(t, err)
	return entry
}

func (h *harness) spotsLeft(t *testing.T, eventID uuid.UUID) int {
	t.Helper()
	event, err := h.events.FindByID(context.Background(), eventID)
	require.NoError(t, err)
	return event.SpotsLeft
}

func (h *harness) entry(t *testing.T, id uuid.UUID) *model.WaitlistEntry {
	t.Helper()
	entry, err := h.waitlist.GetEntry(context.Background(), id)
	require.NoError(t, err)
	return entry
}

// soldOut fills the event with approved INSTANT bookings of one ticket each.
func (h *harness) soldOut(t *testing.T, capacity int) (*model.Event, []*model.Booking) {
	t.Helper()
	event := h.publish(t, capacity, model.BookingModeInstant)
	var bookings []*model.Booking
	for i := 0; i < capacity; i++ {
		bookings = append(bookings, h.book(t, event.ID, fmt.Sprintf("guest-%d", i), 1))
	}
	require.Zero(t, h.spotsLeft(t, event.ID))
	return event, bookings
}

func receiveRelease(t *testing.T, ch <-chan queue.Delivery) queue.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "release channel closed")
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for seat release signal")
	}
	return queue.Delivery{}
}

// offerFreedSeats frees every seat of a sold out event and offers them to the waitlist.
func (h *harness) offerFreedSeats(t *testing.T, eventID uuid.UUID, bookings []*model.Booking) {
	t.Helper()
	for _, booking := range bookings {
		h.cancel(t, booking.ID)
	}
	_, err := h.waitlist.Promote(context.Background(), eventID)
	require.NoError(t, err)
}

func (h *harness) cancel(t *testing.T, bookingID uuid.UUID) *model.Booking {
	t.Helper()
	booking, err := h.bookings.Transition(context.Background(), bookingID, model.TransitionBookingRequest{
		Action: model.BookingActionCancel,
	})
	require.NoError(t, err)
	return booking
}
