package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"foodflow-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedAccount is a user created at bootstrap
type SeedAccount struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// DemoAccounts has one login per role for local development
var DemoAccounts = []SeedAccount{
	{Email: "customer@foodflow.com", Password: "customer123", Name: "Demo Customer", Role: models.RoleCustomer},
	{Email: "restaurant@foodflow.com", Password: "restaurant123", Name: "Demo Restaurant", Role: models.RoleRestaurantAdmin},
	{Email: "rider@foodflow.com", Password: "rider123", Name: "Demo Rider", Role: models.RoleDelivery},
	{Email: "admin@foodflow.com", Password: "admin123", Name: "Admin User", Role: models.RoleSuperadmin},
}

// EnsureUser creates the account unless the email is taken
// Returns true when a new row was inserted
func EnsureUser(ctx context.Context, db *sqlx.DB, account SeedAccount) (bool, error) {
	if !models.IsValidRole(account.Role) {
		return false, fmt.Errorf("invalid role %q", account.Role)
	}

	email := strings.ToLower(strings.TrimSpace(account.Email))
	existing, err := GetUserByEmail(ctx, db, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Password: string(hashed),
		Name:     account.Name,
		Role:     account.Role,
	}
	if err := CreateUser(ctx, db, user); err != nil {
		return false, err
	}
	return true, nil
}

// SeedUsers creates the demo accounts on an empty users table
func SeedUsers(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")
	for _, account := range DemoAccounts {
		if _, err := EnsureUser(ctx, db, account); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s) / %s", account.Email, account.Role, account.Password)
	}

	log.Println("✓ Successfully seeded test users")
	return nil
}
