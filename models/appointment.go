package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether s ends the lifecycle.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeEmergency    AppointmentType = "emergency"
	TypeRoutine      AppointmentType = "routine"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeRoutine:
		return true
	}
	return false
}

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions holds the allowed moves out of each status. Staying in the
// same status is always accepted as a no-op.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: nil,
	StatusCancelled: nil,
	StatusNoShow:    nil,
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to AppointmentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              string            `json:"id" gorm:"type:uuid;primaryKey" bson:"_id"`
	PatientID       string            `json:"patientId" gorm:"type:uuid;index;not null" bson:"patientId"`
	Patient         *PatientSummary   `json:"patient,omitempty" gorm:"-" bson:"-"`
	DoctorID        string            `json:"doctorId" gorm:"type:uuid;index;not null" bson:"doctorId"`
	Doctor          *DoctorSummary    `json:"doctor,omitempty" gorm:"-" bson:"-"`
	Date            time.Time         `json:"date" gorm:"type:date;index;not null" bson:"date"`
	Time            string            `json:"time" gorm:"not null" bson:"time"`
	Status          AppointmentStatus `json:"status" gorm:"index;not null" bson:"status"`
	Symptoms        string            `json:"symptoms" bson:"symptoms"`
	Notes           string            `json:"notes" bson:"notes"`
	Department      string            `json:"department" gorm:"not null" bson:"department"`
	AppointmentType AppointmentType   `json:"appointmentType" bson:"appointmentType"`
	IsActive        bool              `json:"isActive" bson:"isActive"`
	CreatedAt       time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	a.applyDefaults()
	return nil
}

func (a *Appointment) applyDefaults() {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.AppointmentType == "" {
		a.AppointmentType = TypeConsultation
	}
}

// Prepare fills status and type defaults for stores that do not run gorm hooks.
func (a *Appointment) Prepare() {
	a.applyDefaults()
}

// UpdateStatus moves the appointment to newStatus following the transition
// table. It reports whether the status actually changed.
func (a *Appointment) UpdateStatus(newStatus AppointmentStatus) (bool, error) {
	if !CanTransition(a.Status, newStatus) {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, newStatus)
	}
	changed := a.Status != newStatus
	a.Status = newStatus
	return changed, nil
}

// SameSlot reports whether a is booked for doctorID on date at slot.
func (a *Appointment) SameSlot(doctorID string, date time.Time, slot string) bool {
	return a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == slot
}

type AppointmentStats struct {
	Total    int64                       `json:"total"`
	Today    int64                       `json:"today"`
	ByStatus map[AppointmentStatus]int64 `json:"byStatus"`
}
