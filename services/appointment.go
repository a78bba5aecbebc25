package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/notify"
	"github.com/meinhoongagan/hospital-booking/store"
	"github.com/meinhoongagan/hospital-booking/utils"
)

const (
	msgInvalidDoctor = "Invalid doctor selected"
	msgSlotTaken     = "This time slot is already booked"
	msgNotFound      = "Appointment not found"
	msgAccessDenied  = "Access denied"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Notifier accepts notification events for asynchronous delivery.
type Notifier interface {
	Enqueue(ctx context.Context, e notify.Event) error
}

type AppointmentService struct {
	store    store.Store
	notifier Notifier
	today    func() time.Time
}

func NewAppointmentService(s store.Store, n Notifier) *AppointmentService {
	return &AppointmentService{store: s, notifier: n, today: utils.Today}
}

type BookInput struct {
	DoctorID        string                 `json:"doctorId" validate:"required"`
	Date            string                 `json:"date" validate:"required"`
	Time            string                 `json:"time" validate:"required"`
	Symptoms        string                 `json:"symptoms" validate:"max=1000"`
	Department      string                 `json:"department"`
	AppointmentType models.AppointmentType `json:"appointmentType"`
}

type ListInput struct {
	Status string
	Date   string
}

type StatusInput struct {
	Status models.AppointmentStatus `json:"status" validate:"required"`
	Notes  *string                  `json:"notes"`
}

type UpdateInput struct {
	Date            *string                 `json:"date"`
	Time            *string                 `json:"time"`
	Symptoms        *string                 `json:"symptoms"`
	AppointmentType *models.AppointmentType `json:"appointmentType"`
}

// Book creates a scheduled appointment for the calling patient and queues the
// confirmation and admin alert.
func (s *AppointmentService) Book(ctx context.Context, actor Actor, in BookInput) (*models.Appointment, error) {
	if actor.Role != models.RolePatient {
		return nil, fail(ErrAccessDenied, "Only patients can book appointments")
	}
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.Time = strings.TrimSpace(in.Time)
	if in.DoctorID == "" || in.Date == "" || in.Time == "" {
		return nil, fail(ErrInvalidInput, "Doctor, date and time are required")
	}
	date, err := utils.ParseDate(in.Date)
	if err != nil {
		return nil, fail(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
	}
	if in.AppointmentType != "" && !in.AppointmentType.Valid() {
		return nil, fail(ErrInvalidInput, "Invalid appointment type")
	}

	doctor, err := s.store.UserByID(ctx, in.DoctorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrInvalidDoctor, msgInvalidDoctor)
	}
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Role != models.RoleDoctor || !doctor.IsActive {
		return nil, fail(ErrInvalidDoctor, msgInvalidDoctor)
	}

	taken, err := s.store.SlotTaken(ctx, doctor.ID, date, in.Time, "")
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return nil, fail(ErrSlotConflict, msgSlotTaken)
	}

	a := &models.Appointment{
		ID:              uuid.NewString(),
		PatientID:       actor.ID,
		DoctorID:        doctor.ID,
		Date:            date,
		Time:            in.Time,
		Status:          models.StatusScheduled,
		Symptoms:        strings.TrimSpace(in.Symptoms),
		Department:      in.Department,
		AppointmentType: in.AppointmentType,
		IsActive:        true,
	}
	if a.Department == "" {
		a.Department = doctor.Department
	}
	a.Prepare()

	if err := s.store.CreateAppointment(ctx, a); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return nil, fail(ErrSlotConflict, msgSlotTaken)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := s.joinOne(ctx, a); err != nil {
		return nil, err
	}
	s.enqueue(ctx, notify.NewEvent(notify.KindBookingConfirmation, a.ID, a.Status))
	s.enqueue(ctx, notify.NewEvent(notify.KindAdminAlert, a.ID, a.Status))
	return a, nil
}

// List returns the appointments visible to actor ordered by date then time.
func (s *AppointmentService) List(ctx context.Context, actor Actor, in ListInput) ([]models.Appointment, error) {
	var f store.AppointmentFilter
	switch actor.Role {
	case models.RolePatient:
		f.PatientID = actor.ID
	case models.RoleDoctor:
		f.DoctorID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}

	if in.Status != "" {
		st := models.AppointmentStatus(in.Status)
		if !st.Valid() {
			return nil, fail(ErrInvalidInput, "Invalid status")
		}
		f.Status = st
	}
	if in.Date != "" {
		d, err := utils.ParseDate(in.Date)
		if err != nil {
			return nil, fail(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
		}
		f.Date = &d
	}

	list, err := s.store.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Appointment{}
	}
	if err := s.join(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns one appointment. Records the actor may not see are reported as
// missing.
func (s *AppointmentService) Get(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, a) {
		return nil, fail(ErrNotFound, msgNotFound)
	}
	if err := s.joinOne(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus moves an appointment through its lifecycle. Doctors may only
// touch their own appointments.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id string, in StatusInput) (*models.Appointment, error) {
	if !in.Status.Valid() {
		return nil, fail(ErrInvalidInput, "Invalid status")
	}
	if actor.Role != models.RoleDoctor && !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleDoctor && a.DoctorID != actor.ID {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}

	changed, err := a.UpdateStatus(in.Status)
	if err != nil {
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("Cannot change status from %s to %s", a.Status, in.Status))
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	if changed && a.Status.Terminal() {
		s.enqueue(ctx, notify.NewEvent(notify.KindStatusUpdate, a.ID, a.Status))
	}
	if err := s.joinOne(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update edits the patient-editable fields. Moving a scheduled appointment to
// another date or time is checked against the slot like a new booking.
func (s *AppointmentService) Update(ctx context.Context, actor Actor, id string, in UpdateInput) (*models.Appointment, error) {
	if actor.Role != models.RolePatient && !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RolePatient && a.PatientID != actor.ID {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}

	oldDate, oldTime := a.Date, a.Time
	if in.Date != nil {
		d, err := utils.ParseDate(*in.Date)
		if err != nil {
			return nil, fail(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
		}
		a.Date = d
	}
	if in.Time != nil {
		t := strings.TrimSpace(*in.Time)
		if t == "" {
			return nil, fail(ErrInvalidInput, "Time cannot be empty")
		}
		a.Time = t
	}
	if in.Symptoms != nil {
		a.Symptoms = strings.TrimSpace(*in.Symptoms)
	}
	if in.AppointmentType != nil {
		if !in.AppointmentType.Valid() {
			return nil, fail(ErrInvalidInput, "Invalid appointment type")
		}
		a.AppointmentType = *in.AppointmentType
	}

	moved := !a.Date.Equal(oldDate) || a.Time != oldTime
	if moved && a.Status == models.StatusScheduled {
		taken, err := s.store.SlotTaken(ctx, a.DoctorID, a.Date, a.Time, a.ID)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return nil, fail(ErrSlotConflict, msgSlotTaken)
		}
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	if err := s.joinOne(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Cancel cancels an appointment on behalf of its patient or an admin.
// Cancelling an already cancelled appointment succeeds without side effects.
func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	if actor.Role != models.RolePatient && !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RolePatient && a.PatientID != actor.ID {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}

	changed, err := a.UpdateStatus(models.StatusCancelled)
	if err != nil {
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("Cannot cancel a %s appointment", a.Status))
	}
	if !changed {
		return a, nil
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	s.enqueue(ctx, notify.NewEvent(notify.KindStatusUpdate, a.ID, a.Status))
	return a, nil
}

// Stats aggregates appointments for admins (all) and doctors (own). ByStatus
// only carries statuses that occur.
func (s *AppointmentService) Stats(ctx context.Context, actor Actor) (*models.AppointmentStats, error) {
	var doctorID string
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDoctor:
		doctorID = actor.ID
	default:
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	stats, err := s.store.AppointmentStats(ctx, doctorID, s.today())
	if err != nil {
		return nil, fmt.Errorf("appointment stats: %w", err)
	}
	return stats, nil
}

// Upcoming lists scheduled appointments on day. Used by the reminder job.
func (s *AppointmentService) Upcoming(ctx context.Context, day time.Time) ([]models.Appointment, error) {
	return s.store.ListAppointments(ctx, store.AppointmentFilter{Status: models.StatusScheduled, Date: &day})
}

func canView(actor Actor, a *models.Appointment) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RolePatient:
		return a.PatientID == actor.ID
	case models.RoleDoctor:
		return a.DoctorID == actor.ID
	}
	return false
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	a, err := s.store.AppointmentByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

func (s *AppointmentService) save(ctx context.Context, a *models.Appointment) error {
	err := s.store.UpdateAppointment(ctx, a)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrSlotTaken):
		return fail(ErrSlotConflict, msgSlotTaken)
	case errors.Is(err, store.ErrNotFound):
		return fail(ErrNotFound, msgNotFound)
	}
	return fmt.Errorf("update appointment: %w", err)
}

func (s *AppointmentService) enqueue(ctx context.Context, e notify.Event) {
	if s.notifier == nil {
		return
	}
	// The request may finish before the queue write; do not let its
	// cancellation drop the event.
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.Enqueue(qctx, e); err != nil {
		log.Printf("services: enqueue %s for appointment %s: %v", e.Kind, e.AppointmentID, err)
	}
}

func (s *AppointmentService) joinOne(ctx context.Context, a *models.Appointment) error {
	list := []models.Appointment{*a}
	if err := s.join(ctx, list); err != nil {
		return err
	}
	a.Patient, a.Doctor = list[0].Patient, list[0].Doctor
	return nil
}

// join attaches patient and doctor summaries with a single user lookup.
func (s *AppointmentService) join(ctx context.Context, list []models.Appointment) error {
	if len(list) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, a := range list {
		for _, id := range []string{a.PatientID, a.DoctorID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("join users: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range list {
		if u, ok := byID[list[i].PatientID]; ok {
			list[i].Patient = u.PatientSummary()
		}
		if u, ok := byID[list[i].DoctorID]; ok {
			list[i].Doctor = u.DoctorSummary()
		}
	}
	return nil
}
