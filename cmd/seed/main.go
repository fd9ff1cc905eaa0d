package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-user-registry/config"
	"github.com/oksasatya/go-user-registry/internal/application"
	"github.com/oksasatya/go-user-registry/internal/container"
	"github.com/oksasatya/go-user-registry/pkg/helpers"
	"github.com/oksasatya/go-user-registry/pkg/validation"
)

// seed creates a demo user through the same rules the API applies.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	name := flag.String("name", "Usuario Demo", "user name")
	email := flag.String("email", "demo@example.com", "user email")
	password := flag.String("password", "password123", "user password")
	birth := flag.String("birth-date", "1990-01-01", "birth date (YYYY-MM-DD)")
	phone := flag.String("phone", "(11) 91234-5678", "phone, empty for none")
	flag.Parse()

	birthDate, err := validation.ParseBirthDate(*birth)
	if err != nil {
		log.Fatalf("invalid birth date: %v", err)
	}
	if !validation.ValidPhone(*phone) {
		log.Fatalf("invalid phone %q, use (XX) XXXXX-XXXX", *phone)
	}

	ctx := context.Background()
	c, err := container.New(ctx, cfg, helpers.NewLogger(cfg.AppName, cfg.Env))
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer c.Close()

	u, err := c.Users.Create(ctx, application.CreateInput{
		Name:      *name,
		Email:     *email,
		Password:  *password,
		BirthDate: birthDate,
		Phone:     *phone,
	})
	if errors.Is(err, application.ErrDuplicateEmail) {
		fmt.Printf("user %s already exists, nothing to do\n", *email)
		return
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%d email=%s name=%s password=%s\n", u.ID, u.Email, u.Name, *password)
}
