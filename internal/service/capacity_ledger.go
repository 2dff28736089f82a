package service

import (
	"context"
	"fmt"

	"go-gin-supper-club/internal/metrics"
	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/queue"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CapacityLedger is the only writer of an event's spots left.
type CapacityLedger interface {
	// Reserve takes n seats in one conditional update or fails with
	// ErrCapacityExceeded / ErrEventClosed without changing anything.
	Reserve(ctx context.Context, eventID uuid.UUID, n int) (*model.Event, error)
	// Release gives n seats back, clamped to capacity, and announces the
	// release to the waitlist once the surrounding unit of work commits.
	Release(ctx context.Context, eventID uuid.UUID, n int) (*model.SeatRelease, error)
}

type CapacityLedgerImpl struct {
	events   repository.EventRepository
	releases queue.ReleaseQueue
	now      Clock
}

func NewCapacityLedger(events repository.EventRepository, releases queue.ReleaseQueue, clock Clock) CapacityLedger {
	return &CapacityLedgerImpl{
		events:   events,
		releases: releases,
		now:      clock.orSystem(),
	}
}

func (l *CapacityLedgerImpl) Reserve(ctx context.Context, eventID uuid.UUID, n int) (*model.Event, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: reserve %d seats", apperrors.ErrInvalidArgument, n)
	}

	event, err := l.events.ReserveSeats(ctx, eventID, n, l.now())
	metrics.ObserveSeatOperation("reserve", err)
	if err != nil {
		if apperrors.IsConflict(err) {
			logger.WithComponent("capacity").Warn("reserve rejected",
				zap.String("event_id", eventID.String()), zap.Int("seats", n), zap.Error(err))
		}
		return nil, err
	}

	logger.WithComponent("capacity").Debug("seats reserved",
		zap.String("event_id", eventID.String()), zap.Int("seats", n), zap.Int("spots_left", event.SpotsLeft))
	return event, nil
}

func (l *CapacityLedgerImpl) Release(ctx context.Context, eventID uuid.UUID, n int) (*model.SeatRelease, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: release %d seats", apperrors.ErrInvalidArgument, n)
	}

	release, err := l.events.ReleaseSeats(ctx, eventID, n, l.now())
	metrics.ObserveSeatOperation("release", err)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("capacity").With(
		zap.String("event_id", eventID.String()),
		zap.Int("seats", n),
		zap.Int("spots_before", release.SpotsBefore),
		zap.Int("spots_after", release.SpotsAfter),
	)
	if release.Clamped {
		metrics.ClampedReleases.Inc()
		log.Error("release exceeded capacity, clamped", zap.Int("capacity", release.Capacity))
	} else {
		log.Debug("seats released")
	}

	signalCtx := context.WithoutCancel(ctx)
	repository.AfterCommit(ctx, func() {
		l.announce(signalCtx, release)
	})
	return release, nil
}

// announce publishes the seat-released signal. A dropped signal is picked up
// by the next expiry sweep.
func (l *CapacityLedgerImpl) announce(ctx context.Context, release *model.SeatRelease) {
	if err := l.releases.PublishRelease(ctx, release); err != nil {
		metrics.ReleaseSignals.WithLabelValues("dropped").Inc()
		logger.WithComponent("capacity").Warn("seat release signal dropped",
			zap.String("event_id", release.EventID.String()), zap.Error(err))
		return
	}
	metrics.ReleaseSignals.WithLabelValues("published").Inc()
}
