package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go-gin-supper-club/internal/mocks/services"
	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/queue"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startWorker(t *testing.T, w PromotionWorker) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return cancel, done
}

func TestPromotionWorker_PromotesReleasedEvent(t *testing.T) {
	q := queue.NewReleaseQueue(10)
	waitlist := services.NewWaitlistServiceMock()
	eventID := uuid.New()

	called := make(chan uuid.UUID, 1)
	waitlist.On("Promote", mock.Anything, eventID).
		Run(func(args mock.Arguments) { called <- args.Get(1).(uuid.UUID) }).
		Return([]*model.WaitlistEntry{{ID: uuid.New()}}, nil).Once()

	cancel, done := startWorker(t, NewPromotionWorker(waitlist, q))
	require.NoError(t, q.PublishRelease(context.Background(), &model.SeatRelease{EventID: eventID, Seats: 1, SpotsAfter: 1}))

	select {
	case got := <-called:
		assert.Equal(t, eventID, got)
	case <-time.After(time.Second):
		t.Fatal("worker did not promote in time")
	}

	cancel()
	assert.NoError(t, <-done)
	waitlist.AssertExpectations(t)
}

func TestPromotionWorker_RequeuesOnError(t *testing.T) {
	q := queue.NewReleaseQueue(10)
	waitlist := services.NewWaitlistServiceMock()
	eventID := uuid.New()

	succeeded := make(chan struct{})
	waitlist.On("Promote", mock.Anything, eventID).Return(nil, apperrors.ErrLockTimeout).Once()
	waitlist.On("Promote", mock.Anything, eventID).
		Run(func(mock.Arguments) { close(succeeded) }).
		Return(nil, nil).Once()

	cancel, done := startWorker(t, NewPromotionWorker(waitlist, q))
	require.NoError(t, q.PublishRelease(context.Background(), &model.SeatRelease{EventID: eventID, Seats: 2}))

	select {
	case <-succeeded:
	case <-time.After(time.Second):
		t.Fatal("release was not redelivered")
	}

	cancel()
	<-done
	waitlist.AssertNumberOfCalls(t, "Promote", 2)
}

func TestPromotionWorker_DropsUnknownEvent(t *testing.T) {
	q := queue.NewReleaseQueue(10)
	waitlist := services.NewWaitlistServiceMock()
	unknown, known := uuid.New(), uuid.New()

	processed := make(chan struct{})
	waitlist.On("Promote", mock.Anything, unknown).Return(nil, apperrors.ErrEventNotFound).Once()
	waitlist.On("Promote", mock.Anything, known).
		Run(func(mock.Arguments) { close(processed) }).
		Return(nil, nil).Once()

	cancel, done := startWorker(t, NewPromotionWorker(waitlist, q))
	require.NoError(t, q.PublishRelease(context.Background(), &model.SeatRelease{EventID: unknown, Seats: 1}))
	require.NoError(t, q.PublishRelease(context.Background(), &model.SeatRelease{EventID: known, Seats: 1}))

	select {
	case <-processed:
	case <-time.After(time.Second):
		t.Fatal("second release was not processed")
	}

	cancel()
	<-done
	waitlist.AssertNumberOfCalls(t, "Promote", 2)
}

func TestExpirySweeper_RunsUntilCancelled(t *testing.T) {
	waitlist := services.NewWaitlistServiceMock()

	var calls atomic.Int32
	waitlist.On("Sweep", mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewExpirySweeper(waitlist, 5*time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestExpirySweeper_SweepOnceSurvivesError(t *testing.T) {
	waitlist := services.NewWaitlistServiceMock()
	waitlist.On("Sweep", mock.Anything).Return(0, errors.New("db down")).Once()

	NewExpirySweeper(waitlist, time.Minute).SweepOnce(context.Background())
	waitlist.AssertExpectations(t)
}
