package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const deadListMax = 1000

// RedisQueue keeps pending events in a list, parked retries in a sorted set
// scored by due time and exhausted events in a capped dead list. Dequeued
// events sit in a processing list until acknowledged.
type RedisQueue struct {
	client     *redis.Client
	pending    string
	processing string
	delayed    string
	dead       string
}

func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "notify"
	}
	return &RedisQueue{
		client:     client,
		pending:    prefix + ":pending",
		processing: prefix + ":processing",
		delayed:    prefix + ":delayed",
		dead:       prefix + ":dead",
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.pending, b).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Event, error) {
	raw, err := q.client.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// Unreadable payloads would be redelivered forever.
		q.client.LRem(ctx, q.processing, 1, raw)
		return nil, fmt.Errorf("decode event: %w", err)
	}
	e.raw = raw
	return &e, nil
}

func (q *RedisQueue) Ack(ctx context.Context, e Event) error {
	if e.raw == "" {
		return nil
	}
	return q.client.LRem(ctx, q.processing, 1, e.raw).Err()
}

// Recover moves events left in the processing list by a crashed worker back
// to pending. Call it once at startup, before any worker runs.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.pending, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

func (q *RedisQueue) Retry(ctx context.Context, e Event, at time.Time) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.delayed, redis.Z{Score: float64(at.Unix()), Member: string(b)}).Err()
}

// PromoteDue moves every parked event due at or before now back to pending.
// ZRem decides ownership, so concurrent promoters never duplicate an event.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, member := range due {
		removed, err := q.client.ZRem(ctx, q.delayed, member).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.pending, member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.dead, b)
	pipe.LTrim(ctx, q.dead, 0, deadListMax-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Close is a no-op; the client belongs to the caller.
func (q *RedisQueue) Close() error { return nil }
