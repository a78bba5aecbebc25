package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/notify"
	"github.com/meinhoongagan/hospital-booking/utils"
)

// Promoter moves retry events whose backoff has elapsed back onto the queue.
type Promoter interface {
	PromoteDue(ctx context.Context, now time.Time) (int, error)
}

// Upcoming lists scheduled appointments on a given day.
type Upcoming interface {
	Upcoming(ctx context.Context, day time.Time) ([]models.Appointment, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, e notify.Event) error
}

// Scheduler runs the periodic notification jobs.
type Scheduler struct {
	c        *cron.Cron
	queue    Promoter
	upcoming Upcoming
	out      Enqueuer
	now      func() time.Time
}

func NewScheduler(queue Promoter, upcoming Upcoming, out Enqueuer) *Scheduler {
	return &Scheduler{
		c:        cron.New(),
		queue:    queue,
		upcoming: upcoming,
		out:      out,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the scheduler. reminderSpec is a
// standard five field cron expression.
func (s *Scheduler) Start(reminderSpec string) error {
	if _, err := s.c.AddFunc("* * * * *", s.promote); err != nil {
		return fmt.Errorf("add promote job: %w", err)
	}
	if reminderSpec != "" {
		if _, err := s.c.AddFunc(reminderSpec, s.remind); err != nil {
			return fmt.Errorf("add reminder job %q: %w", reminderSpec, err)
		}
	}
	s.c.Start()
	log.Printf("cron: scheduler started, reminders on %q", reminderSpec)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
	log.Println("cron: scheduler stopped")
}

func (s *Scheduler) promote() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.queue.PromoteDue(ctx, s.now())
	if err != nil {
		log.Printf("cron: promote retries: %v", err)
		return
	}
	if n > 0 {
		log.Printf("cron: promoted %d retry events", n)
	}
}

func (s *Scheduler) remind() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.SendReminders(ctx); err != nil {
		log.Printf("cron: reminders: %v", err)
	}
}

// SendReminders enqueues a reminder for every appointment scheduled tomorrow
// and returns how many were queued.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	tomorrow := utils.DayOf(s.now()).AddDate(0, 0, 1)
	list, err := s.upcoming.Upcoming(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("list appointments for %s: %w", tomorrow.Format(utils.DateLayout), err)
	}

	sent := 0
	for _, a := range list {
		if err := s.out.Enqueue(ctx, notify.NewEvent(notify.KindReminder, a.ID, a.Status)); err != nil {
			log.Printf("cron: enqueue reminder for appointment %s: %v", a.ID, err)
			continue
		}
		sent++
	}
	log.Printf("cron: queued %d reminders for %s", sent, tomorrow.Format(utils.DateLayout))
	return sent, nil
}
