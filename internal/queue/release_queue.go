package queue

import (
	"context"

	"go-gin-supper-club/internal/model"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"go.uber.org/zap"
)

type Delivery struct {
	Data *model.SeatRelease
	Ack  func()
	Nack func(requeue bool)
}

// ReleaseQueue carries seat-released signals from the capacity ledger to the
// waitlist promoters. Delivery is at least once; a lost signal is recovered by
// the expiry sweeper.
type ReleaseQueue interface {
	// 發送釋放座位訊號到隊列
	PublishRelease(ctx context.Context, release *model.SeatRelease) error
	// 訂閱釋放座位訊號
	SubscribeReleases(ctx context.Context) (<-chan Delivery, error)
}

type ReleaseQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.SeatRelease
}

func NewReleaseQueue(bufferSize int) ReleaseQueue {
	return &ReleaseQueueImpl{
		ch: make(chan *model.SeatRelease, bufferSize),
	}
}

// PublishRelease never blocks the caller; a full buffer returns ErrQueueFull.
func (q *ReleaseQueueImpl) PublishRelease(ctx context.Context, release *model.SeatRelease) error {
	select {
	case q.ch <- release:
		return nil
	default:
		return apperrors.ErrQueueFull
	}
}

func (q *ReleaseQueueImpl) SubscribeReleases(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case release, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: release,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						if err := q.PublishRelease(ctx, release); err != nil {
							logger.WithComponent("mq").Warn("requeue dropped, sweeper will recover",
								zap.String("event_id", release.EventID.String()), zap.Error(err))
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
