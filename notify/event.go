// Package notify delivers appointment notifications out of band. Services
// enqueue events; a Worker renders and sends them, retrying with backoff and
// moving events that keep failing to a dead-letter list.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/hospital-booking/models"
)

type Kind string

const (
	KindBookingConfirmation Kind = "booking_confirmation"
	KindAdminAlert          Kind = "admin_alert"
	KindStatusUpdate        Kind = "status_update"
	KindReminder            Kind = "reminder"
)

type Event struct {
	ID            string                   `json:"id"`
	Kind          Kind                     `json:"kind"`
	AppointmentID string                   `json:"appointmentId"`
	Status        models.AppointmentStatus `json:"status,omitempty"`
	Attempts      int                      `json:"attempts"`
	LastError     string                   `json:"lastError,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`

	// raw is the payload as dequeued, used to acknowledge it.
	raw string
}

func NewEvent(kind Kind, appointmentID string, status models.AppointmentStatus) Event {
	return Event{
		ID:            uuid.NewString(),
		Kind:          kind,
		AppointmentID: appointmentID,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
}

// Queue is the transport between request handlers and the Worker.
type Queue interface {
	Enqueue(ctx context.Context, e Event) error
	// Dequeue blocks up to wait for the next event. It returns nil, nil when
	// nothing arrived in time.
	Dequeue(ctx context.Context, wait time.Duration) (*Event, error)
	// Retry parks e until at; PromoteDue moves parked events back to pending.
	Retry(ctx context.Context, e Event, at time.Time) error
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	DeadLetter(ctx context.Context, e Event) error
	// Ack releases a dequeued event once it was delivered, parked or
	// dead-lettered. Unacknowledged events are redelivered after a restart.
	Ack(ctx context.Context, e Event) error
	Close() error
}

const (
	backoffBase = 30 * time.Second
	backoffCap  = 30 * time.Minute
)

// Backoff returns the delay before retry number attempt (1-based).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
