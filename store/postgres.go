package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/meinhoongagan/hospital-booking/db"
	"github.com/meinhoongagan/hospital-booking/models"
)

const uniqueViolation = "23505"

// Postgres is the gorm-backed store. The slot index created by db.Migrate is
// what ultimately rejects a double booking.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(gdb *gorm.DB) *Postgres {
	return &Postgres{db: gdb}
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == db.ScheduledSlotIndex {
			return ErrSlotTaken
		}
		if strings.Contains(pgErr.ConstraintName, "email") {
			return ErrDuplicateEmail
		}
	}
	return err
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	return translate(p.db.WithContext(ctx).Create(u).Error)
}

func (p *Postgres) UpdateUser(ctx context.Context, u *models.User) error {
	res := p.db.WithContext(ctx).Model(u).Select("*").Omit("created_at").Updates(u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := p.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := p.db.WithContext(ctx).First(&u, "lower(email) = lower(?)", email).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (p *Postgres) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := p.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, translate(err)
}

func (p *Postgres) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	query := func() *gorm.DB {
		q := p.db.WithContext(ctx).Model(&models.User{})
		if f.Role != "" {
			q = q.Where("role = ?", f.Role)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	q := query().Order("created_at desc").Offset(f.Offset())
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (p *Postgres) ListDoctors(ctx context.Context) ([]models.User, error) {
	var doctors []models.User
	err := p.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleDoctor, true).
		Order("name asc").
		Find(&doctors).Error
	return doctors, err
}

func (p *Postgres) UserStats(ctx context.Context) (*models.UserStats, error) {
	var rows []struct {
		Role  models.Role
		Count int64
	}
	err := p.db.WithContext(ctx).Model(&models.User{}).
		Select("role, count(*) as count").
		Where("is_active = ?", true).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{}
	for _, r := range rows {
		stats.TotalUsers += r.Count
		switch r.Role {
		case models.RoleDoctor:
			stats.TotalDoctors = r.Count
		case models.RolePatient:
			stats.TotalPatients = r.Count
		case models.RoleAdmin:
			stats.TotalAdmins = r.Count
		}
	}
	return stats, nil
}

func scheduledSlot(tx *gorm.DB, doctorID string, date time.Time, slot, excludeID string) *gorm.DB {
	q := tx.Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND time = ? AND status = ?", doctorID, date, slot, models.StatusScheduled)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q
}

func (p *Postgres) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := scheduledSlot(tx, a.DoctorID, a.Date, a.Time, "").Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlotTaken
		}
		return tx.Create(a).Error
	})
	return translate(err)
}

func (p *Postgres) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	res := p.db.WithContext(ctx).Model(a).Select("*").Omit("created_at").Updates(a)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := p.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (p *Postgres) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	q := p.db.WithContext(ctx).Model(&models.Appointment{})
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != nil {
		q = q.Where("date = ?", *f.Date)
	}

	var out []models.Appointment
	if err := q.Order("date asc").Order("time asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

func (p *Postgres) SlotTaken(ctx context.Context, doctorID string, date time.Time, slot, excludeID string) (bool, error) {
	var n int64
	err := scheduledSlot(p.db.WithContext(ctx), doctorID, date, slot, excludeID).Count(&n).Error
	return n > 0, err
}

func (p *Postgres) AppointmentStats(ctx context.Context, doctorID string, today time.Time) (*models.AppointmentStats, error) {
	scope := func() *gorm.DB {
		q := p.db.WithContext(ctx).Model(&models.Appointment{})
		if doctorID != "" {
			q = q.Where("doctor_id = ?", doctorID)
		}
		return q
	}

	var rows []struct {
		Status models.AppointmentStatus
		Count  int64
	}
	if err := scope().Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := emptyStats()
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}
	if err := scope().Where("date = ?", today).Count(&stats.Today).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
