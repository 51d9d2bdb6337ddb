package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the storage-level guards that AutoMigrate cannot express.
// Every statement is idempotent.
func MigrateConstraints(db *gorm.DB) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,

		// Second line of defence behind the row-locked overlap check: two holding
		// reservations on one space can never cover the same instant.
		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
				ALTER TABLE reservations
				ADD CONSTRAINT reservations_no_overlap
				EXCLUDE USING gist (
					space_id WITH =,
					tstzrange(start_time, end_time, '[)') WITH &&
				) WHERE (status IN ('pending_payment', 'active', 'in_progress'));
			END IF;
		END $$`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_overlap
		ON reservations (space_id, start_time, end_time, status)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_hold_expiry
		ON reservations (payment_hold_expiry) WHERE status = 'pending_payment'`,

		`CREATE INDEX IF NOT EXISTS idx_tickets_active_expiry
		ON tickets (expires_at) WHERE status = 'active'`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_window_check') THEN
				ALTER TABLE reservations
				ADD CONSTRAINT reservations_window_check CHECK (end_time > start_time);
			END IF;
		END $$`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
