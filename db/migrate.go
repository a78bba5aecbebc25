package db

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/meinhoongagan/hospital-booking/models"
)

// ScheduledSlotIndex guarantees one scheduled appointment per doctor, date and time.
const ScheduledSlotIndex = "idx_appointments_scheduled_slot"

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Appointment{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	err := gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + ScheduledSlotIndex + `
		ON appointments (doctor_id, date, time)
		WHERE status = 'scheduled'`).Error
	if err != nil {
		return fmt.Errorf("create slot index: %w", err)
	}

	log.Println("migrations applied")
	return nil
}
