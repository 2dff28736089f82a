package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/queue"
	"go-gin-supper-club/internal/testutil"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelease() *model.SeatRelease {
	return &model.SeatRelease{
		EventID:     uuid.New(),
		Seats:       2,
		SpotsBefore: 0,
		SpotsAfter:  2,
		Capacity:    8,
		ReleasedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch <-chan queue.Delivery) queue.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "channel closed")
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for delivery")
	}
	return queue.Delivery{}
}

// --- memory ---

func TestReleaseQueue_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewReleaseQueue(4)
	release := newRelease()
	require.NoError(t, q.PublishRelease(ctx, release))

	ch, err := q.SubscribeReleases(ctx)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, release.EventID, d.Data.EventID)
	d.Ack()

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestReleaseQueue_FullBufferDoesNotBlock(t *testing.T) {
	q := queue.NewReleaseQueue(1)
	ctx := context.Background()

	require.NoError(t, q.PublishRelease(ctx, newRelease()))
	err := q.PublishRelease(ctx, newRelease())
	assert.ErrorIs(t, err, apperrors.ErrQueueFull)
}

func TestReleaseQueue_NackRequeueRedelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewReleaseQueue(4)
	release := newRelease()
	require.NoError(t, q.PublishRelease(ctx, release))

	ch, err := q.SubscribeReleases(ctx)
	require.NoError(t, err)

	receive(t, ch).Nack(true)
	again := receive(t, ch)
	assert.Equal(t, release.EventID, again.Data.EventID)
	again.Nack(false)
}

// --- redis, mocked ---

func TestNewRedisStreamReleaseQueue_GroupExists(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectXGroupCreateMkStream(queue.StreamKey, queue.ConsumerGroupName, "0").
		SetErr(errors.New("BUSYGROUP Consumer Group name already exists"))

	q, err := queue.NewRedisStreamReleaseQueue(context.Background(), db, "c1", nil)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisStreamReleaseQueue_GroupError(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectXGroupCreateMkStream(queue.StreamKey, queue.ConsumerGroupName, "0").
		SetErr(errors.New("READONLY You can't write against a read only replica"))

	_, err := queue.NewRedisStreamReleaseQueue(context.Background(), db, "c1", nil)
	assert.Error(t, err)
}

func TestRedisStreamReleaseQueue_PublishRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()
	release := newRelease()
	payload, err := json.Marshal(release)
	require.NoError(t, err)

	mock.ExpectXGroupCreateMkStream(queue.StreamKey, queue.ConsumerGroupName, "0").SetVal("OK")
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: queue.StreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"release": string(payload)},
	}).SetVal("1-0")

	q, err := queue.NewRedisStreamReleaseQueue(ctx, db, "c1", nil)
	require.NoError(t, err)
	require.NoError(t, q.PublishRelease(ctx, release))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStreamReleaseQueue_PublishReleaseHonoursMaxLen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()
	release := newRelease()
	payload, err := json.Marshal(release)
	require.NoError(t, err)

	mock.ExpectXGroupCreateMkStream(queue.StreamKey, queue.ConsumerGroupName, "0").SetVal("OK")
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: queue.StreamKey,
		MaxLen: 500,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"release": string(payload)},
	}).SetErr(errors.New("OOM command not allowed"))

	q, err := queue.NewRedisStreamReleaseQueue(ctx, db, "", &queue.RedisStreamReleaseQueueConfig{MaxLen: 500})
	require.NoError(t, err)

	err = q.PublishRelease(ctx, release)
	require.Error(t, err)
	assert.Contains(t, err.Error(), release.EventID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- redis, live ---

func TestRedisStreamReleaseQueue_DeliverAndAck(t *testing.T) {
	rdb := testutil.Redis(t)
	ctx := context.Background()

	q, err := queue.NewRedisStreamReleaseQueue(ctx, rdb, "deliver-test", nil)
	require.NoError(t, err)

	release := newRelease()
	require.NoError(t, q.PublishRelease(ctx, release))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ch, err := q.SubscribeReleases(subCtx)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, release.EventID, d.Data.EventID)
	assert.Equal(t, release.Seats, d.Data.Seats)
	d.Ack()

	pending, err := rdb.XPending(ctx, queue.StreamKey, queue.ConsumerGroupName).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestRedisStreamReleaseQueue_NackRequeueRedelivers(t *testing.T) {
	rdb := testutil.Redis(t)
	ctx := context.Background()

	q, err := queue.NewRedisStreamReleaseQueue(ctx, rdb, "requeue-test", &queue.RedisStreamReleaseQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	release := newRelease()
	require.NoError(t, q.PublishRelease(ctx, release))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ch, err := q.SubscribeReleases(subCtx)
	require.NoError(t, err)

	receive(t, ch).Nack(true)
	again := receive(t, ch)
	assert.Equal(t, release.EventID, again.Data.EventID)
	again.Ack()
}
