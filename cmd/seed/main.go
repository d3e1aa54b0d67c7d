package main

import (
	"context"
	"errors"
	"log"

	"hostelcare/internal/config"
	"hostelcare/internal/database"
	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/conversation"
	"hostelcare/internal/domain/notification"
	"hostelcare/internal/domain/user"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type account struct {
	email    string
	name     string
	role     user.Role
	password string
}

var accounts = []account{
	{"warden@hostel.local", "Dana Warden", user.RoleWarden, "warden123"},
	{"plumber@hostel.local", "Timur Plumber", user.RoleStaff, "staff123"},
	{"electrician@hostel.local", "Erlan Electrician", user.RoleStaff, "staff123"},
	{"asel@hostel.local", "Asel Student", user.RoleStudent, "student123"},
	{"bekzat@hostel.local", "Bekzat Student", user.RoleStudent, "student123"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db,
		&user.User{},
		&complaint.Complaint{},
		&conversation.Entry{},
		&notification.Notification{},
	); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	ctx := context.Background()
	repo := user.NewRepository(db)

	log.Println("Creating accounts...")
	for _, a := range accounts {
		hash, err := user.HashPassword(a.password)
		if err != nil {
			log.Fatal("hash password:", err)
		}

		err = repo.Create(ctx, &user.User{
			ID:           uuid.NewString(),
			Email:        a.email,
			PasswordHash: hash,
			Name:         a.name,
			Role:         a.role,
		})
		switch {
		case errors.Is(err, user.ErrEmailAlreadyExists):
			log.Printf("skip %s (exists)", a.email)
		case err != nil:
			log.Fatalf("create %s: %v", a.email, err)
		default:
			log.Printf("%s created: %s / %s", a.role, a.email, a.password)
		}
	}

	log.Println("Seed complete")
}
