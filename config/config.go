package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                        string
	MongoURI                    string
	DBName                      string
	UseTransactions             bool
	RedisAddr                   string
	RedisPass                   string
	ListingCacheTTL             time.Duration
	JWTKey                      string
	JWTTTL                      time.Duration
	EncryptionKey               string
	ReconcileInterval           time.Duration
	AllowResubmitAfterRejection bool
	AllowedOrigins              []string
}

// LoadEnv reads a .env file when one is present. Deployed environments
// usually have none.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      os.Getenv("MONGOURI"),
		DBName:        getEnv("DB", "rentals"),
		RedisAddr:     os.Getenv("REDIS_ADD"),
		RedisPass:     os.Getenv("REDIS_PASS"),
		JWTKey:        os.Getenv("JWT_KEY"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
	}

	var errs []error
	if cfg.MongoURI == "" {
		errs = append(errs, errors.New("MONGOURI not set in environment"))
	}
	if cfg.JWTKey == "" {
		errs = append(errs, errors.New("JWT_KEY not set in environment"))
	}
	// A generated fallback key would make stored id numbers unreadable after a restart.
	if cfg.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY not set in environment"))
	}

	var err error
	if cfg.UseTransactions, err = getBool("MONGO_TRANSACTIONS", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.AllowResubmitAfterRejection, err = getBool("ALLOW_RESUBMIT_AFTER_REJECTION", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.ListingCacheTTL, err = getDuration("LISTING_CACHE_TTL", 10*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", time.Hour); err != nil {
		errs = append(errs, err)
	}

	cfg.AllowedOrigins = parseOrigins(getEnv("CORS_ORIGINS", "*"))

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// ReconcileEnabled reports whether the like reconciler should run. With
// transactions on, likes and favorites cannot drift.
func (c *Config) ReconcileEnabled() bool {
	return !c.UseTransactions && c.ReconcileInterval > 0
}

// LoadDatabase reads only the database settings, for tools that need a
// connection and nothing else.
func LoadDatabase() (uri, dbName string, err error) {
	uri = os.Getenv("MONGOURI")
	if uri == "" {
		return "", "", errors.New("MONGOURI not set in environment")
	}
	return uri, getEnv("DB", "rentals"), nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return v, nil
}

func parseOrigins(csv string) []string {
	var origins []string
	for _, part := range strings.Split(csv, ",") {
		if o := strings.TrimSpace(part); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
