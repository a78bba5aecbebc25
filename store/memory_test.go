package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/hospital-booking/models"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newAppointment(patientID, doctorID string, date time.Time, slot string) *models.Appointment {
	return &models.Appointment{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		DoctorID:   doctorID,
		Date:       date,
		Time:       slot,
		Department: "Cardiology",
		IsActive:   true,
	}
}

func TestMemoryConcurrentBooking(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	doctorID := uuid.NewString()
	date := day("2024-06-01")

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.CreateAppointment(ctx, newAppointment(uuid.NewString(), doctorID, date, "09:00"))
		}()
	}
	wg.Wait()
	close(results)

	var ok, taken int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || taken != n-1 {
		t.Fatalf("got %d successes and %d conflicts, want 1 and %d", ok, taken, n-1)
	}

	list, _ := m.ListAppointments(ctx, AppointmentFilter{DoctorID: doctorID})
	if len(list) != 1 {
		t.Fatalf("stored %d appointments, want 1", len(list))
	}
}

func TestMemorySlotFreedByCancellation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	doctorID := uuid.NewString()
	date := day("2024-06-01")

	first := newAppointment(uuid.NewString(), doctorID, date, "10:00")
	if err := m.CreateAppointment(ctx, first); err != nil {
		t.Fatal(err)
	}
	first.Status = models.StatusCancelled
	if err := m.UpdateAppointment(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := newAppointment(uuid.NewString(), doctorID, date, "10:00")
	if err := m.CreateAppointment(ctx, second); err != nil {
		t.Fatalf("slot should be free after cancellation: %v", err)
	}

	// Reviving the cancelled one would produce a second scheduled appointment.
	first.Status = models.StatusScheduled
	if err := m.UpdateAppointment(ctx, first); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestMemoryRescheduleExcludesSelf(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	doctorID := uuid.NewString()
	a := newAppointment(uuid.NewString(), doctorID, day("2024-06-01"), "09:00")
	if err := m.CreateAppointment(ctx, a); err != nil {
		t.Fatal(err)
	}

	a.Symptoms = "headache"
	if err := m.UpdateAppointment(ctx, a); err != nil {
		t.Fatalf("updating in place should not conflict with itself: %v", err)
	}
	taken, _ := m.SlotTaken(ctx, doctorID, a.Date, "09:00", a.ID)
	if taken {
		t.Error("SlotTaken should ignore the excluded appointment")
	}
}

func TestMemoryListAppointments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p1, p2 := uuid.NewString(), uuid.NewString()
	d1, d2 := uuid.NewString(), uuid.NewString()

	fixtures := []*models.Appointment{
		newAppointment(p1, d1, day("2024-06-02"), "09:00"),
		newAppointment(p1, d2, day("2024-06-01"), "11:00"),
		newAppointment(p2, d1, day("2024-06-01"), "10:00"),
		newAppointment(p2, d2, day("2024-06-01"), "09:30"),
	}
	for _, a := range fixtures {
		if err := m.CreateAppointment(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter AppointmentFilter
		want   int
	}{
		{"all", AppointmentFilter{}, 4},
		{"patient", AppointmentFilter{PatientID: p1}, 2},
		{"doctor", AppointmentFilter{DoctorID: d1}, 2},
		{"patient and doctor", AppointmentFilter{PatientID: p2, DoctorID: d2}, 1},
		{"status", AppointmentFilter{Status: models.StatusCompleted}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ListAppointments(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := m.ListAppointments(ctx, AppointmentFilter{})
	order := []string{"2024-06-01 09:30", "2024-06-01 10:00", "2024-06-01 11:00", "2024-06-02 09:00"}
	for i, a := range all {
		if got := a.Date.Format("2006-01-02") + " " + a.Time; got != order[i] {
			t.Errorf("position %d: got %s, want %s", i, got, order[i])
		}
	}
}

func TestMemoryAppointmentStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	doctorID := uuid.NewString()
	today := day("2024-06-01")

	statuses := []models.AppointmentStatus{
		models.StatusScheduled, models.StatusScheduled, models.StatusScheduled,
		models.StatusCompleted, models.StatusCompleted,
		models.StatusCancelled,
	}
	for i, s := range statuses {
		a := newAppointment(uuid.NewString(), doctorID, today, fmt.Sprintf("%02d:00", 9+i))
		a.Status = s
		if err := m.CreateAppointment(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	// Another doctor's appointment only shows in the global view.
	if err := m.CreateAppointment(ctx, newAppointment(uuid.NewString(), uuid.NewString(), day("2024-06-03"), "09:00")); err != nil {
		t.Fatal(err)
	}

	stats, err := m.AppointmentStats(ctx, doctorID, today)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 6 || stats.Today != 6 {
		t.Errorf("total=%d today=%d, want 6 and 6", stats.Total, stats.Today)
	}
	want := map[models.AppointmentStatus]int64{
		models.StatusScheduled: 3,
		models.StatusCompleted: 2,
		models.StatusCancelled: 1,
	}
	for s, n := range want {
		if stats.ByStatus[s] != n {
			t.Errorf("byStatus[%s] = %d, want %d", s, stats.ByStatus[s], n)
		}
	}

	global, _ := m.AppointmentStats(ctx, "", today)
	if global.Total != 7 || global.Today != 6 {
		t.Errorf("global total=%d today=%d, want 7 and 6", global.Total, global.Today)
	}
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		role := models.RolePatient
		if i%4 == 0 {
			role = models.RoleDoctor
		}
		u := &models.User{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("user %02d", i),
			Email:     fmt.Sprintf("user%02d@example.com", i),
			Role:      role,
			IsActive:  i != 8,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := m.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	dup := &models.User{ID: uuid.NewString(), Email: "USER00@example.com", Role: models.RolePatient}
	if err := m.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	page, total, err := m.ListUsers(ctx, UserFilter{Page: 2, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if total != 12 || len(page) != 5 {
		t.Fatalf("total=%d len=%d, want 12 and 5", total, len(page))
	}
	if page[0].Name != "user 06" {
		t.Errorf("page 2 should start with user 06 (newest first), got %s", page[0].Name)
	}

	last, _, _ := m.ListUsers(ctx, UserFilter{Page: 3, Limit: 5})
	if len(last) != 2 {
		t.Errorf("last page has %d users, want 2", len(last))
	}

	doctors, _ := m.ListDoctors(ctx)
	if len(doctors) != 2 {
		t.Errorf("got %d active doctors, want 2", len(doctors))
	}

	found, err := m.UserByEmail(ctx, "User03@Example.com")
	if err != nil || found.Name != "user 03" {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}

	stats, _ := m.UserStats(ctx)
	if stats.TotalUsers != 11 || stats.TotalDoctors != 2 || stats.TotalPatients != 9 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
