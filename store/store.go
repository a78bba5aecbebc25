// Package store persists users and appointments. Every implementation enforces
// that at most one appointment per (doctor, date, time) is in the scheduled
// status; callers treat ErrSlotTaken as the authoritative conflict signal.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/meinhoongagan/hospital-booking/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrSlotTaken      = errors.New("slot already has a scheduled appointment")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserFilter struct {
	Role  models.Role
	Page  int
	Limit int
}

// Offset returns the number of rows to skip for the filter's page.
func (f UserFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
	Date      *time.Time
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	ListDoctors(ctx context.Context) ([]models.User, error)
	UserStats(ctx context.Context) (*models.UserStats, error)
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
	AppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	// ListAppointments returns matches ordered by date then time.
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error)
	// SlotTaken reports whether a scheduled appointment other than excludeID
	// holds the slot.
	SlotTaken(ctx context.Context, doctorID string, date time.Time, slot, excludeID string) (bool, error)
	AppointmentStats(ctx context.Context, doctorID string, today time.Time) (*models.AppointmentStats, error)
}

type Store interface {
	UserStore
	AppointmentStore
	Ping(ctx context.Context) error
	Close() error
}

func emptyStats() *models.AppointmentStats {
	return &models.AppointmentStats{ByStatus: map[models.AppointmentStatus]int64{}}
}
