package database

import (
	"github.com/chachabrian/carbid-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Bid{},
		&models.Booking{},
		&models.OutboxEvent{},
	)
	if err != nil {
		return err
	}

	// Catalog and directory tables belong to other services. Create them only
	// for local setups where they are missing.
	for _, m := range []interface{}{&models.Vehicle{}, &models.User{}} {
		if !db.Migrator().HasTable(m) {
			if err := db.AutoMigrate(m); err != nil {
				return err
			}
		}
	}

	constraints := []struct {
		table, name, check string
	}{
		{"bids", "bids_status_check", "status IN ('pending','accepted','rejected','expired','converted')"},
		{"bids", "bids_dates_check", "booking_end_date >= booking_start_date"},
		{"bids", "bids_amount_check", "bid_amount > 0"},
		{"bookings", "bookings_status_check", "status IN ('pending','confirmed','in_progress','completed','cancelled')"},
		{"bookings", "bookings_payment_status_check", "payment_status IN ('pending','paid')"},
		{"bookings", "bookings_odometer_check", "final_odometer_reading IS NULL OR final_odometer_reading >= initial_odometer_reading"},
	}
	for _, c := range constraints {
		if err := db.Exec(`ALTER TABLE ` + c.table + ` DROP CONSTRAINT IF EXISTS ` + c.name).Error; err != nil {
			return err
		}
		if err := db.Exec(`ALTER TABLE ` + c.table + ` ADD CONSTRAINT ` + c.name + ` CHECK (` + c.check + `)`).Error; err != nil {
			return err
		}
	}

	return nil
}
