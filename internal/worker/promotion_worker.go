package worker

import (
	"context"
	"errors"

	"go-gin-supper-club/internal/queue"
	"go-gin-supper-club/internal/service"
	apperrors "go-gin-supper-club/pkg/app_errors"
	"go-gin-supper-club/pkg/logger"

	"go.uber.org/zap"
)

type PromotionWorker interface {
	// 訂閱釋放座位隊列，直到 ctx 結束
	Run(ctx context.Context) error
}

type PromotionWorkerImpl struct {
	waitlist service.WaitlistService
	queue    queue.ReleaseQueue
}

func NewPromotionWorker(waitlist service.WaitlistService, queue queue.ReleaseQueue) PromotionWorker {
	return &PromotionWorkerImpl{
		waitlist: waitlist,
		queue:    queue,
	}
}

func (w *PromotionWorkerImpl) Run(ctx context.Context) error {
	msgs, err := w.queue.SubscribeReleases(ctx)
	if err != nil {
		return err
	}

	for msg := range msgs {
		release := msg.Data
		log := logger.WithComponent("worker").With(
			zap.String("event_id", release.EventID.String()),
			zap.Int("seats", release.Seats),
		)

		offered, err := w.waitlist.Promote(ctx, release.EventID)
		switch {
		case err == nil:
			log.Debug("release processed", zap.Int("offers", len(offered)))
			msg.Ack()
		case errors.Is(err, apperrors.ErrEventNotFound):
			log.Warn("release for unknown event dropped")
			msg.Nack(false)
		default:
			// 暫時性錯誤（資料庫、鎖逾時）：重新排隊
			log.Warn("promotion failed, requeue", zap.Error(err))
			msg.Nack(true)
		}
	}
	return nil
}
