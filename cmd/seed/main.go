package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"parkly/internal/shared/config"
	"parkly/internal/shared/database"
	"parkly/internal/spaces"
	"parkly/internal/users"
	"parkly/pkg/cache"
	"parkly/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

type Seeder struct {
	db     *database.DB
	spaces spaces.Service
}

func main() {
	clean := flag.Bool("clean", false, "truncate every table before seeding")
	password := flag.String("password", "qwerty", "password for the seeded accounts")
	flag.Parse()

	fmt.Println("Starting Parkly database seeder...")

	cfg := config.Load()
	log.SetFlags(0)
	appLogger := logger.New()

	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:     db,
		spaces: spaces.NewService(spaces.NewRepository(db.GetPostgreSQL()), cache.NewService(db.GetRedisClient(), appLogger), cfg.Redis.AvailabilityTTL, appLogger),
	}

	if *clean {
		fmt.Println("\nCleaning database...")
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
	}

	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(context.Background(), *password); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("Seeding completed.")
}

// CleanDatabase truncates every table in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"tickets",
		"payments",
		"reservations",
		"cars",
		"parking_spaces",
		"user_settings",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return tx.Commit().Error
}

// SeedAll creates the space inventory and the operator accounts. Re-running it changes nothing.
func (s *Seeder) SeedAll(ctx context.Context, password string) error {
	result, err := s.spaces.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed spaces: %w", err)
	}
	fmt.Printf("  Spaces: %d created, %d total\n", result.Created, result.Total)

	if err := s.SeedUsers(ctx, password); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	return nil
}

// SeedUsers creates an admin and a gate scanner account
func (s *Seeder) SeedUsers(ctx context.Context, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	accounts := []users.User{
		{FirstName: "Parkly", LastName: "Admin", Email: "admin@parkly.local", Role: users.RoleAdmin},
		{FirstName: "Gate", LastName: "Scanner", Email: "scanner@parkly.local", Role: users.RoleScanner},
	}
	for i := range accounts {
		accounts[i].ID = uuid.New()
		accounts[i].Password = string(hashed)
	}

	res := s.db.PostgreSQL.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&accounts)
	if res.Error != nil {
		return res.Error
	}
	fmt.Printf("  Users: %d created (admin@parkly.local, scanner@parkly.local)\n", res.RowsAffected)
	return nil
}
