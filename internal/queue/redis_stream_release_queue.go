package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "seats:released:stream"
	ConsumerGroupName  = "waitlist-promoters"
	ConsumerNamePrefix = "promoter"

	releaseField = "release"
	batchSize    = 10
)

// RedisStreamReleaseQueueConfig tunes redelivery. Zero fields keep the defaults.
type RedisStreamReleaseQueueConfig struct {
	ClaimMinIdleTime   time.Duration // 未 ack 的釋放訊號閒置多久後由其他 promoter 接手
	MaxRetryCount      int           // 投遞次數上限，超過就丟棄，交給 sweeper 補救
	ReadGroupBlockTime time.Duration
	MaxLen             int64 // stream 近似長度上限
}

func (c RedisStreamReleaseQueueConfig) withDefaults() RedisStreamReleaseQueueConfig {
	if c.ClaimMinIdleTime <= 0 {
		c.ClaimMinIdleTime = 5 * time.Second
	}
	if c.MaxRetryCount <= 0 {
		c.MaxRetryCount = 5
	}
	if c.ReadGroupBlockTime <= 0 {
		c.ReadGroupBlockTime = 2 * time.Second
	}
	if c.MaxLen <= 0 {
		c.MaxLen = 10000
	}
	return c
}

// RedisStreamReleaseQueueImpl fans seat releases out to every promoter
// process through one consumer group, so each release is promoted once.
type RedisStreamReleaseQueueImpl struct {
	client   *redis.Client
	consumer string
	cfg      RedisStreamReleaseQueueConfig
}

// NewRedisStreamReleaseQueue joins the promoter consumer group, creating the
// stream on first use. consumerID names this process in the group; empty
// picks a random one. config may be nil.
func NewRedisStreamReleaseQueue(ctx context.Context, client *redis.Client, consumerID string, config *RedisStreamReleaseQueueConfig) (ReleaseQueue, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	var cfg RedisStreamReleaseQueueConfig
	if config != nil {
		cfg = *config
	}

	q := &RedisStreamReleaseQueueImpl{
		client:   client,
		consumer: ConsumerNamePrefix + ":" + consumerID,
		cfg:      cfg.withDefaults(),
	}
	err := client.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamReleaseQueueImpl) PublishRelease(ctx context.Context, release *model.SeatRelease) error {
	payload, err := json.Marshal(release)
	if err != nil {
		return fmt.Errorf("marshal release: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: q.cfg.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{releaseField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish seat release for event %s: %w", release.EventID, err)
	}
	return nil
}

// SubscribeReleases delivers new releases and, on a ClaimMinIdleTime tick,
// releases another promoter left unacknowledged. The channel closes when ctx
// is done.
func (q *RedisStreamReleaseQueueImpl) SubscribeReleases(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	reclaimed := make(chan struct{})
	go func() {
		defer close(reclaimed)
		q.reclaimStale(ctx, out)
	}()
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			q.consumeNew(ctx, out)
		}
		<-reclaimed
	}()
	return out, nil
}

func (q *RedisStreamReleaseQueueImpl) consumeNew(ctx context.Context, out chan<- Delivery) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroupName,
		Consumer: q.consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    batchSize,
		Block:    q.cfg.ReadGroupBlockTime,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return
	case err != nil:
		logger.WithComponent("mq").Error("read seat releases", zap.Error(err))
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return
	}

	for _, stream := range streams {
		if !q.emit(ctx, out, stream.Messages, false) {
			return
		}
	}
}

// reclaimStale takes over pending releases whose promoter crashed or asked
// for a retry with Nack(true).
func (q *RedisStreamReleaseQueueImpl) reclaimStale(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	cursor := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamKey,
			Group:    ConsumerGroupName,
			Consumer: q.consumer,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Count:    batchSize,
			Start:    cursor,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.WithComponent("mq").Error("reclaim stale seat releases", zap.Error(err))
			continue
		}
		cursor = next
		if cursor == "" {
			cursor = "0-0"
		}
		if !q.emit(ctx, out, msgs, true) {
			return
		}
	}
}

// emit hands msgs to the promoter. It reports false once ctx is done.
func (q *RedisStreamReleaseQueueImpl) emit(ctx context.Context, out chan<- Delivery, msgs []redis.XMessage, redelivered bool) bool {
	for _, msg := range msgs {
		if redelivered && q.exhausted(ctx, msg.ID) {
			continue
		}
		release, err := decodeRelease(msg)
		if err != nil {
			logger.WithComponent("mq").Warn("dropping malformed seat release", zap.String("message_id", msg.ID), zap.Error(err))
			q.ack(ctx, msg.ID)
			continue
		}
		select {
		case out <- q.delivery(ctx, msg.ID, release):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// exhausted acks and skips a release delivered MaxRetryCount times already.
// The expiry sweeper re-runs promotion for that event later.
func (q *RedisStreamReleaseQueueImpl) exhausted(ctx context.Context, id string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamKey,
		Group:  ConsumerGroupName,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.WithComponent("mq").Warn("read delivery count", zap.String("message_id", id), zap.Error(err))
		return false
	}
	if len(pending) == 0 || int(pending[0].RetryCount) < q.cfg.MaxRetryCount {
		return false
	}
	logger.WithComponent("mq").Warn("seat release gave up after retries, sweeper will recover",
		zap.String("message_id", id), zap.Int64("deliveries", pending[0].RetryCount))
	q.ack(ctx, id)
	return true
}

func decodeRelease(msg redis.XMessage) (*model.SeatRelease, error) {
	payload, ok := msg.Values[releaseField].(string)
	if !ok {
		return nil, fmt.Errorf("missing %q field", releaseField)
	}
	var release model.SeatRelease
	if err := json.Unmarshal([]byte(payload), &release); err != nil {
		return nil, err
	}
	return &release, nil
}

func (q *RedisStreamReleaseQueueImpl) delivery(ctx context.Context, id string, release *model.SeatRelease) Delivery {
	return Delivery{
		Data: release,
		Ack:  func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if !requeue {
				q.ack(ctx, id)
				return
			}
			// 保留在 PEL，閒置 ClaimMinIdleTime 後由 reclaimStale 重新投遞
			logger.WithComponent("mq").Info("seat release requeued",
				zap.String("message_id", id),
				zap.String("event_id", release.EventID.String()),
				zap.Duration("retry_after", q.cfg.ClaimMinIdleTime))
		},
	}
}

func (q *RedisStreamReleaseQueueImpl) ack(ctx context.Context, id string) {
	if err := q.client.XAck(context.WithoutCancel(ctx), StreamKey, ConsumerGroupName, id).Err(); err != nil {
		logger.WithComponent("mq").Error("ack seat release", zap.String("message_id", id), zap.Error(err))
	}
}
