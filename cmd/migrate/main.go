package main

import (
	"fmt"
	"log"
	"os"

	"foodflow-backend/internal/database"

	"github.com/joho/godotenv"
)

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

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	var result struct {
		Users             int `db:"users"`
		CartSnapshots     int `db:"cart_snapshots"`
		TrackingSnapshots int `db:"tracking_snapshots"`
		DeliveryLocations int `db:"delivery_locations"`
		OpenDeliveries    int `db:"open_deliveries"`
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM cart_snapshots) AS cart_snapshots,
			(SELECT COUNT(*) FROM tracking_snapshots) AS tracking_snapshots,
			(SELECT COUNT(*) FROM delivery_locations) AS delivery_locations,
			(SELECT COUNT(*) FROM delivery_assignments WHERE completed_at IS NULL) AS open_deliveries
	`
	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:                   %d\n", result.Users)
	fmt.Printf("Cart snapshots:          %d\n", result.CartSnapshots)
	fmt.Printf("Tracking snapshots:      %d\n", result.TrackingSnapshots)
	fmt.Printf("Delivery locations:      %d\n", result.DeliveryLocations)
	fmt.Printf("Open deliveries:         %d\n", result.OpenDeliveries)
	fmt.Println("============================================================")
}
