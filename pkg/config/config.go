package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds server settings read from the environment.
type Config struct {
	DatabaseURL        string `env:"ECONEMPIRE_DATABASE_URL" envDefault:"sqlite://econempire.db"`
	SQLiteMigrations   string `env:"ECONEMPIRE_SQLITE_MIGRATIONS" envDefault:"./migrations/sqlite"`
	PostgresMigrations string `env:"ECONEMPIRE_POSTGRES_MIGRATIONS" envDefault:"./migrations/postgres"`
	FirebaseProjectID  string `env:"ECONEMPIRE_FIREBASE_PROJECT_ID"`
	FirebaseAPIKey     string `env:"ECONEMPIRE_FIREBASE_API_KEY"`
	JWTSecret          string `env:"ECONEMPIRE_JWT_SECRET"`
	JWTIssuer          string `env:"ECONEMPIRE_JWT_ISSUER" envDefault:"econempire"`

	WSTLSCertFile  string `env:"ECONEMPIRE_WS_TLS_CERT_FILE"`
	WSTLSKeyFile   string `env:"ECONEMPIRE_WS_TLS_KEY_FILE"`
	APITLSCertFile string `env:"ECONEMPIRE_API_TLS_CERT_FILE"`
	APITLSKeyFile  string `env:"ECONEMPIRE_API_TLS_KEY_FILE"`
	AllowOrigin    string `env:"ECONEMPIRE_ALLOW_ORIGIN" envDefault:"*"`

	GameLoopInterval  time.Duration `env:"ECONEMPIRE_GAME_LOOP_INTERVAL" envDefault:"50ms"`
	HeartbeatInterval time.Duration `env:"ECONEMPIRE_HEARTBEAT_INTERVAL" envDefault:"10s"`
	HeartbeatTimeout  time.Duration `env:"ECONEMPIRE_HEARTBEAT_TIMEOUT" envDefault:"5s"`
	// CountryReleaseAfter releases the country of a player that has been
	// offline for longer than this. Zero keeps countries until restart.
	CountryReleaseAfter time.Duration `env:"ECONEMPIRE_COUNTRY_RELEASE_AFTER" envDefault:"0s"`

	PersistenceMaxTries uint          `env:"ECONEMPIRE_PERSISTENCE_MAX_TRIES" envDefault:"3"`
	PersistenceBackoff  time.Duration `env:"ECONEMPIRE_PERSISTENCE_BACKOFF" envDefault:"100ms"`

	CommandRateLimit float64 `env:"ECONEMPIRE_COMMAND_RATE_LIMIT" envDefault:"20"`
	CommandBurst     int     `env:"ECONEMPIRE_COMMAND_BURST" envDefault:"40"`

	// Seed for country assignment and baseline generation. Zero seeds from the clock.
	Seed uint64 `env:"ECONEMPIRE_SEED" envDefault:"0"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for settings that cannot work together.
func (c *Config) Validate() error {
	if c.FirebaseProjectID == "" && c.JWTSecret == "" {
		return fmt.Errorf("one of ECONEMPIRE_FIREBASE_PROJECT_ID or ECONEMPIRE_JWT_SECRET must be set")
	}
	if c.GameLoopInterval <= 0 {
		return fmt.Errorf("game loop interval must be positive, got %s", c.GameLoopInterval)
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat interval and timeout must be positive")
	}
	if c.CountryReleaseAfter < 0 {
		return fmt.Errorf("country release duration cannot be negative")
	}
	if c.PersistenceMaxTries == 0 {
		return fmt.Errorf("persistence max tries must be at least 1")
	}
	if (c.WSTLSCertFile == "") != (c.WSTLSKeyFile == "") {
		return fmt.Errorf("both websocket TLS cert and key files must be set")
	}
	if (c.APITLSCertFile == "") != (c.APITLSKeyFile == "") {
		return fmt.Errorf("both api TLS cert and key files must be set")
	}
	return nil
}
