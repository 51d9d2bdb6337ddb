package database

import (
	"parkly/internal/cars"
	"parkly/internal/payments"
	"parkly/internal/reservations"
	"parkly/internal/spaces"
	"parkly/internal/tickets"
	"parkly/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(
		&users.User{},
		&users.Settings{},
		&spaces.ParkingSpace{},
		&cars.Car{},
		&reservations.Reservation{},
		&payments.Payment{},
		&tickets.Ticket{},
	)
}
