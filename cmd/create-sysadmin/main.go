// Command create-sysadmin seeds a global sys_admin account. Run once after
// the database is migrated:
//
//	create-sysadmin -email admin@example.com -name "Platform Admin"
//
// The password is read from the SYSADMIN_PASSWORD environment variable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/educore/educore/internal/config"
	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/domain"
	"github.com/educore/educore/pkg/repository"
)

func main() {
	email := flag.String("email", "", "sys_admin email address")
	fullName := flag.String("name", "System Administrator", "sys_admin full name")
	flag.Parse()

	if err := run(*email, *fullName); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(email, fullName string) error {
	_ = godotenv.Load()

	if email == "" {
		return errors.New("-email is required")
	}
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}

	password := os.Getenv("SYSADMIN_PASSWORD")
	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("SYSADMIN_PASSWORD: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        auth.NormalizeEmail(email),
		FullName:     fullName,
		PasswordHash: hash,
		Role:         domain.RoleSysAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUsersRepository(db)
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return fmt.Errorf("an account with email %s already exists", user.Email)
		}
		return err
	}

	fmt.Printf("created sys_admin %s (%s)\n", user.Email, user.ID)
	return nil
}
