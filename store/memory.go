package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meinhoongagan/hospital-booking/models"
)

// Memory keeps everything in process. Used for local development and tests.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]models.User
	appointments map[string]models.Appointment
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]models.User),
		appointments: make(map[string]models.Appointment),
	}
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	m.mu.RLock()
	var matched []models.User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		matched = append(matched, u)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := f.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}

func (m *Memory) ListDoctors(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.User
	for _, u := range m.users {
		if u.Role == models.RoleDoctor && u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UserStats(ctx context.Context) (*models.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &models.UserStats{}
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		stats.TotalUsers++
		switch u.Role {
		case models.RoleDoctor:
			stats.TotalDoctors++
		case models.RolePatient:
			stats.TotalPatients++
		case models.RoleAdmin:
			stats.TotalAdmins++
		}
	}
	return stats, nil
}

// slotHeldLocked must be called with m.mu held.
func (m *Memory) slotHeldLocked(doctorID string, date time.Time, slot, excludeID string) bool {
	for id, a := range m.appointments {
		if id == excludeID || a.Status != models.StatusScheduled {
			continue
		}
		if a.SameSlot(doctorID, date, slot) {
			return true
		}
	}
	return false
}

func (m *Memory) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	a.Prepare()
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status == models.StatusScheduled && m.slotHeldLocked(a.DoctorID, a.Date, a.Time, a.ID) {
		return ErrSlotTaken
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	stored := *a
	stored.Patient, stored.Doctor = nil, nil
	m.appointments[a.ID] = stored
	return nil
}

func (m *Memory) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrNotFound
	}
	if a.Status == models.StatusScheduled && m.slotHeldLocked(a.DoctorID, a.Date, a.Time, a.ID) {
		return ErrSlotTaken
	}
	a.UpdatedAt = time.Now()
	stored := *a
	stored.Patient, stored.Doctor = nil, nil
	m.appointments[a.ID] = stored
	return nil
}

func (m *Memory) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	m.mu.RLock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		out = append(out, a)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (m *Memory) SlotTaken(ctx context.Context, doctorID string, date time.Time, slot, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slotHeldLocked(doctorID, date, slot, excludeID), nil
}

func (m *Memory) AppointmentStats(ctx context.Context, doctorID string, today time.Time) (*models.AppointmentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := emptyStats()
	for _, a := range m.appointments {
		if doctorID != "" && a.DoctorID != doctorID {
			continue
		}
		stats.Total++
		stats.ByStatus[a.Status]++
		if a.Date.Equal(today) {
			stats.Today++
		}
	}
	return stats, nil
}
