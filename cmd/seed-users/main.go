package main

import (
	"context"
	"log"
	"os"

	"foodflow-backend/internal/database"

	"github.com/joho/godotenv"
)

// Usage:
//
//	seed-users                                  # demo account for every role
//	seed-users <email> <password> <name> <role> # one account
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	accounts := database.DemoAccounts
	switch len(os.Args) {
	case 1:
	case 5:
		accounts = []database.SeedAccount{{
			Email:    os.Args[1],
			Password: os.Args[2],
			Name:     os.Args[3],
			Role:     os.Args[4],
		}}
	default:
		log.Fatal("usage: seed-users [<email> <password> <name> <role>]")
	}

	ctx := context.Background()
	for _, account := range accounts {
		created, err := database.EnsureUser(ctx, db, account)
		if err != nil {
			log.Printf("❌ Failed to create user %s: %v", account.Email, err)
			continue
		}
		if !created {
			log.Printf("⚠️  User already exists: %s", account.Email)
			continue
		}
		log.Printf("✅ Created %s user: %s", account.Role, account.Email)
	}
}
