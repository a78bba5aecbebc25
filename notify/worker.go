package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/store"
)

// errDrop marks events that can never be delivered and must not be retried.
var errDrop = errors.New("event dropped")

// Lookup resolves the records an event refers to.
type Lookup interface {
	AppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
}

type WorkerConfig struct {
	Hospital    string
	AdminEmail  string
	MaxAttempts int
	SendTimeout time.Duration
	PollWait    time.Duration
}

type Worker struct {
	queue  Queue
	lookup Lookup
	mailer Mailer
	texter Texter
	cfg    WorkerConfig
	now    func() time.Time
}

// NewWorker builds a worker. texter may be nil to disable SMS.
func NewWorker(q Queue, lookup Lookup, mailer Mailer, texter Texter, cfg WorkerConfig) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = 5 * time.Second
	}
	if cfg.Hospital == "" {
		cfg.Hospital = "MediCare Hospital"
	}
	return &Worker{queue: q, lookup: lookup, mailer: mailer, texter: texter, cfg: cfg, now: time.Now}
}

// Run consumes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Println("notify: worker started")
	for {
		if ctx.Err() != nil {
			log.Println("notify: worker stopped")
			return
		}
		e, err := w.queue.Dequeue(ctx, w.cfg.PollWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("notify: dequeue: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if e == nil {
			continue
		}
		w.Handle(ctx, *e)
	}
}

// parkTimeout bounds queue writes after a send, including during shutdown.
const parkTimeout = 5 * time.Second

// Handle delivers one event, parking it for a retry or dead-lettering it on
// failure, then acknowledges it.
func (w *Worker) Handle(ctx context.Context, e Event) {
	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	err := w.deliver(sendCtx, e)
	cancel()

	// A cancelled ctx must not lose the event between dequeue and park.
	qctx, qcancel := context.WithTimeout(context.WithoutCancel(ctx), parkTimeout)
	defer qcancel()

	if w.settle(qctx, e, err) {
		if aerr := w.queue.Ack(qctx, e); aerr != nil {
			log.Printf("notify: ack %s: %v", e.ID, aerr)
		}
	}
}

// settle records the outcome of a delivery. It reports false when the event
// could not be parked or dead-lettered and must stay unacknowledged.
func (w *Worker) settle(ctx context.Context, e Event, err error) bool {
	switch {
	case err == nil:
		log.Printf("notify: sent %s for appointment %s", e.Kind, e.AppointmentID)
		return true
	case errors.Is(err, errDrop):
		log.Printf("notify: dropping %s for appointment %s: %v", e.Kind, e.AppointmentID, err)
		return true
	}

	failed := e
	failed.Attempts++
	failed.LastError = err.Error()
	if failed.Attempts >= w.cfg.MaxAttempts {
		log.Printf("notify: %s for appointment %s failed %d times, moving to dead letter: %v", e.Kind, e.AppointmentID, failed.Attempts, err)
		if derr := w.queue.DeadLetter(ctx, failed); derr != nil {
			log.Printf("notify: dead letter: %v", derr)
			return false
		}
		return true
	}

	at := w.now().Add(Backoff(failed.Attempts))
	log.Printf("notify: %s for appointment %s failed (attempt %d), retry at %s: %v", e.Kind, e.AppointmentID, failed.Attempts, at.Format(time.RFC3339), err)
	if rerr := w.queue.Retry(ctx, failed, at); rerr != nil {
		log.Printf("notify: park retry: %v", rerr)
		return false
	}
	return true
}

func (w *Worker) deliver(ctx context.Context, e Event) error {
	a, err := w.lookup.AppointmentByID(ctx, e.AppointmentID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: appointment not found", errDrop)
	}
	if err != nil {
		return err
	}
	patient, err := w.lookup.UserByID(ctx, a.PatientID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: patient not found", errDrop)
	}
	if err != nil {
		return err
	}
	doctor, err := w.lookup.UserByID(ctx, a.DoctorID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: doctor not found", errDrop)
	}
	if err != nil {
		return err
	}

	data := newMessageData(w.cfg.Hospital, a, patient, doctor)
	to := patient.Email
	var attachments []Attachment

	switch e.Kind {
	case KindBookingConfirmation:
		slip, err := AppointmentSlip(data)
		if err != nil {
			return err
		}
		attachments = append(attachments, Attachment{Name: "appointment-" + a.ID + ".pdf", Data: slip})
	case KindAdminAlert:
		if w.cfg.AdminEmail == "" {
			return fmt.Errorf("%w: no admin address configured", errDrop)
		}
		to = w.cfg.AdminEmail
	case KindStatusUpdate:
		msg, ok := statusMessages[e.Status]
		if !ok {
			return fmt.Errorf("%w: no message for status %q", errDrop, e.Status)
		}
		data.StatusMessage = msg
		data.Status = strings.ToUpper(string(e.Status))
	case KindReminder:
		if a.Status != models.StatusScheduled {
			return fmt.Errorf("%w: appointment is %s", errDrop, a.Status)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", errDrop, e.Kind)
	}

	subject, html, err := Render(e.Kind, data)
	if err != nil {
		return fmt.Errorf("%w: %v", errDrop, err)
	}
	if err := w.mailer.Send(ctx, Email{To: to, Subject: subject, HTML: html, Attachments: attachments}); err != nil {
		return err
	}

	// SMS is best effort; a failed text must not resend the email.
	if w.texter != nil && e.Kind != KindAdminAlert && patient.Phone != "" {
		if err := w.texter.Text(ctx, patient.Phone, smsBody(e.Kind, data)); err != nil {
			log.Printf("notify: sms for appointment %s: %v", a.ID, err)
		}
	}
	return nil
}
