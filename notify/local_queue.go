package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrQueueFull = errors.New("notification queue is full")

type parked struct {
	event Event
	at    time.Time
}

// LocalQueue is an in-process Queue used when no Redis address is configured.
// Events do not survive a restart.
type LocalQueue struct {
	pending chan Event

	mu      sync.Mutex
	delayed []parked
	dead    []Event
}

func NewLocalQueue(size int) *LocalQueue {
	if size <= 0 {
		size = 1024
	}
	return &LocalQueue{pending: make(chan Event, size)}
}

func (q *LocalQueue) Enqueue(ctx context.Context, e Event) error {
	select {
	case q.pending <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) Dequeue(ctx context.Context, wait time.Duration) (*Event, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case e := <-q.pending:
		return &e, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *LocalQueue) Retry(ctx context.Context, e Event, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delayed = append(q.delayed, parked{event: e, at: at})
	return nil
}

func (q *LocalQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	moved := 0
	kept := q.delayed[:0]
	for _, p := range q.delayed {
		if p.at.After(now) {
			kept = append(kept, p)
			continue
		}
		select {
		case q.pending <- p.event:
			moved++
		default:
			kept = append(kept, p)
		}
	}
	q.delayed = kept
	return moved, nil
}

func (q *LocalQueue) DeadLetter(ctx context.Context, e Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, e)
	if len(q.dead) > deadListMax {
		q.dead = q.dead[len(q.dead)-deadListMax:]
	}
	return nil
}

// Dead returns a copy of the dead-letter list.
func (q *LocalQueue) Dead() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Event(nil), q.dead...)
}

// Parked reports how many events wait for a retry.
func (q *LocalQueue) Parked() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.delayed)
}

// Ack is a no-op; local events are lost on restart anyway.
func (q *LocalQueue) Ack(ctx context.Context, e Event) error { return nil }

func (q *LocalQueue) Close() error { return nil }
