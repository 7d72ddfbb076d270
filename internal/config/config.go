// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"foodflow-backend/internal/cart"
	"foodflow-backend/internal/tracking"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Snapshot backends
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds every setting of the server
type Config struct {
	Port            string `env:"PORT" envDefault:"8080"`
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL"`
	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"postgres"`
	JWTSecret       string `env:"APP_JWT_SECRET"`

	FirebaseCredentialsBase64 string `env:"FIREBASE_CREDENTIALS_BASE64"`
	FirebaseCredentialsFile   string `env:"FIREBASE_CREDENTIALS_FILE" envDefault:"./firebase-service-account.json"`

	DeliveryFee    string `env:"CART_DELIVERY_FEE" envDefault:"30"`
	ServiceFeeRate string `env:"CART_SERVICE_FEE_RATE" envDefault:"0.02"`
	TaxRate        string `env:"CART_TAX_RATE" envDefault:"0.05"`
	Currency       string `env:"CURRENCY" envDefault:"BDT"`
	Locale         string `env:"LOCALE" envDefault:"en-BD"`

	LedgerTTL           time.Duration `env:"TRACKING_LEDGER_TTL" envDefault:"2h"`
	LedgerMaxEntries    int           `env:"TRACKING_LEDGER_MAX_ENTRIES" envDefault:"1000"`
	RouteMinDeltaMeters float64       `env:"TRACKING_ROUTE_MIN_DELTA_METERS" envDefault:"5"`
	RejectStale         bool          `env:"TRACKING_REJECT_STALE" envDefault:"true"`

	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

// Load reads an optional .env file, then parses the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	return Parse()
}

// Parse reads the process environment into a Config and validates it
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and backend consistency
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("APP_JWT_SECRET environment variable is required")
	}

	switch c.SnapshotBackend {
	case BackendPostgres:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when SNAPSHOT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q (want postgres or redis)", c.SnapshotBackend)
	}

	// Users, push tokens and delivery locations always live in Postgres
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	if c.SessionSweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}

	if _, err := c.CartFees(); err != nil {
		return err
	}
	return nil
}

// CartFees parses the fee settings
func (c *Config) CartFees() (cart.Fees, error) {
	deliveryFee, err := decimal.NewFromString(c.DeliveryFee)
	if err != nil {
		return cart.Fees{}, fmt.Errorf("invalid CART_DELIVERY_FEE %q: %w", c.DeliveryFee, err)
	}
	serviceFeeRate, err := decimal.NewFromString(c.ServiceFeeRate)
	if err != nil {
		return cart.Fees{}, fmt.Errorf("invalid CART_SERVICE_FEE_RATE %q: %w", c.ServiceFeeRate, err)
	}
	taxRate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return cart.Fees{}, fmt.Errorf("invalid CART_TAX_RATE %q: %w", c.TaxRate, err)
	}
	if deliveryFee.IsNegative() || serviceFeeRate.IsNegative() || taxRate.IsNegative() {
		return cart.Fees{}, errors.New("cart fees must not be negative")
	}

	return cart.Fees{
		DeliveryFee:    deliveryFee,
		ServiceFeeRate: serviceFeeRate,
		TaxRate:        taxRate,
	}, nil
}

// TrackerOptions turns the tracking settings into aggregator options
func (c *Config) TrackerOptions() []tracking.Option {
	var folder tracking.RouteFolder = tracking.AppendFolder{}
	if c.RouteMinDeltaMeters > 0 {
		folder = tracking.DeltaFolder{MinDistanceMeters: c.RouteMinDeltaMeters}
	}

	return []tracking.Option{
		tracking.WithLedgerTTL(c.LedgerTTL),
		tracking.WithLedgerMaxEntries(c.LedgerMaxEntries),
		tracking.WithRouteFolder(folder),
		tracking.WithStaleRejection(c.RejectStale),
	}
}
