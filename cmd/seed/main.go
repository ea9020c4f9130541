// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"nutriflow/auth/internal/config"
	"nutriflow/auth/internal/db"
	policydomain "nutriflow/auth/internal/policy/domain"
	policyrepo "nutriflow/auth/internal/policy/repository"
	"nutriflow/auth/internal/security"
	userdomain "nutriflow/auth/internal/user/domain"
	userrepo "nutriflow/auth/internal/user/repository"
)

// defaultRegoPolicy matches the built-in account-access policy in
// internal/policy/engine/opa_evaluator.go.
const defaultRegoPolicy = `package nutriflow.account_access

default allow = false
default reason = "account access denied"

allow if {
	input.user.status == "active"
}

reason = "account disabled" if {
	input.user.status == "disabled"
}
`

const (
	devUserEmail   = "dev@example.com"
	devPassword    = "password123"
	disabledEmail  = "disabled@example.com"
	seedPolicyName = "account-access-default"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	if err := users.Create(ctx, &userdomain.User{
		ID:           uuid.New().String(),
		Email:        devUserEmail,
		Name:         "Dev User",
		PasswordHash: passwordHash,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil && !errors.Is(err, userrepo.ErrDuplicateEmail) {
		log.Fatalf("create dev user: %v", err)
	}

	// A disabled account for exercising the 403 path.
	if err := users.Create(ctx, &userdomain.User{
		ID:           uuid.New().String(),
		Email:        disabledEmail,
		Name:         "Disabled User",
		PasswordHash: passwordHash,
		Status:       userdomain.UserStatusDisabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil && !errors.Is(err, userrepo.ErrDuplicateEmail) {
		log.Fatalf("create disabled user: %v", err)
	}

	if err := policies.Create(ctx, &policydomain.Policy{
		ID:        uuid.New().String(),
		Name:      seedPolicyName,
		Rules:     defaultRegoPolicy,
		Enabled:   true,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create policy: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devUserEmail, devPassword)
	fmt.Printf("Disabled login (policy 403): %s / %s\n", disabledEmail, devPassword)
}
