package service_test

import (
	"context"
	"testing"

	"go-gin-supper-club/internal/model"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService_Publish(t *testing.T) {
	h := newHarness(t)
	event := h.publish(t, 6, model.BookingModeManual)

	assert.Equal(t, 6, event.SpotsLeft)
	assert.Equal(t, model.EventStatusPublished, event.Status)
	assert.Equal(t, "USD", event.Currency)

	events, err := h.eventSvc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventService_PublishRejects(t *testing.T) {
	h := newHarness(t)
	valid := model.PublishEventRequest{
		HostID: "host-1", Title: "Supper", Capacity: 2, TicketPrice: 100,
		BookingMode: model.BookingModeInstant, StartsAt: baseTime,
	}

	tests := []struct {
		name   string
		mutate func(*model.PublishEventRequest)
	}{
		{name: "zero capacity", mutate: func(r *model.PublishEventRequest) { r.Capacity = 0 }},
		{name: "negative price", mutate: func(r *model.PublishEventRequest) { r.TicketPrice = -1 }},
		{name: "unknown mode", mutate: func(r *model.PublishEventRequest) { r.BookingMode = "LOTTERY" }},
		{name: "missing title", mutate: func(r *model.PublishEventRequest) { r.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := h.eventSvc.Publish(context.Background(), req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		})
	}
}

func TestEventService_CancelUnwindsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	event := h.publish(t, 3, model.BookingModeManual)
	pending := h.book(t, event.ID, "guest-1", 1)
	approved := h.approve(t, h.book(t, event.ID, "guest-2", 2).ID)
	require.Equal(t, 1, h.spotsLeft(t, event.ID))
	waiting := h.join(t, event.ID, "ada@example.com", 3)

	reason := "chef is ill"
	cancelled, err := h.eventSvc.Cancel(ctx, event.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	got, err := h.bookings.GetBooking(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	got, err = h.bookings.GetBooking(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	assert.Equal(t, reason, *got.CancelReason)

	assert.Equal(t, 3, h.spotsLeft(t, event.ID))
	assert.Len(t, h.gateway.Refunds(), 1)
	assert.Equal(t, model.WaitlistStatusWithdrawn, h.entry(t, waiting.ID).Status)

	_, err = h.eventSvc.Cancel(ctx, event.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = h.bookings.Create(ctx, model.CreateBookingRequest{EventID: event.ID, GuestID: "late", TicketCount: 1})
	assert.ErrorIs(t, err, apperrors.ErrEventClosed)

	revenue, err := h.eventSvc.Revenue(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), revenue.Charged)
	assert.Equal(t, int64(10000), revenue.Refunded)
	assert.Zero(t, revenue.PlatformFees)
}

func TestEventService_Revenue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	event := h.publish(t, 4, model.BookingModeInstant)
	h.book(t, event.ID, "guest-1", 2)
	h.book(t, event.ID, "guest-2", 1)

	revenue, err := h.eventSvc.Revenue(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", revenue.Currency)
	assert.Equal(t, int64(15000), revenue.Charged)
	assert.Zero(t, revenue.Refunded)
	assert.Equal(t, int64(15000), revenue.Net)
	assert.Equal(t, int64(1500), revenue.PlatformFees)
	assert.Equal(t, "150.00", revenue.NetDisplay)
}
