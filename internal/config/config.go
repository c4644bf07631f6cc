package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hotelengine/internal/pkg/clock"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultPort               = "8080"
	defaultDatabaseURL        = "file:hotel.db?_pragma=foreign_keys(1)"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultJWTTTL             = "24h"
	defaultLogLevel           = "info"
	defaultSlowQuery          = "200ms"
	defaultCheckInCutoffHour  = "14"
	defaultMinNights          = "1"
	defaultMaxNights          = "30"
	defaultMaxAdvanceDays     = "365"
	defaultSameDayCutoffHour  = "22"
	defaultNoShowSweepSpec    = "30 2 * * *"
	defaultDiscountExpirySpec = "@hourly"
)

// Admin-cancel room handling. force_available frees every room; preserve_maintenance keeps
// rooms flagged for maintenance.
const (
	AdminCancelForceAvailable      = "force_available"
	AdminCancelPreserveMaintenance = "preserve_maintenance"
)

type StayRules struct {
	MinNights                int
	MaxNights                int
	MaxAdvanceDays           int
	SameDayBookingCutoffHour int
}

type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	LogLevel           logrus.Level
	SlowQueryThreshold time.Duration
	CORSAllowedOrigins []string

	VenueTimezone     string
	CheckInCutoffHour int
	CheckInBypass     bool
	Stay              StayRules

	AdminCancelRoomPolicy string
	NoShowSweepSpec       string
	DiscountExpirySpec    string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.VenueTimezone = strings.TrimSpace(getEnv("VENUE_TIMEZONE", clock.DefaultTimezone))
	cfg.AdminCancelRoomPolicy = strings.ToLower(strings.TrimSpace(getEnv("ADMIN_CANCEL_ROOM_POLICY", AdminCancelForceAvailable)))
	cfg.NoShowSweepSpec = strings.TrimSpace(getEnv("NO_SHOW_SWEEP_SPEC", defaultNoShowSweepSpec))
	cfg.DiscountExpirySpec = strings.TrimSpace(getEnv("DISCOUNT_EXPIRY_SPEC", defaultDiscountExpirySpec))
	cfg.CheckInBypass = parseBoolEnv("CHECKIN_CUTOFF_BYPASS", "false")

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.SlowQueryThreshold, err = parseDurationEnv("DB_SLOW_QUERY", defaultSlowQuery); err != nil {
		return nil, err
	}

	ints := []struct {
		name, fallback string
		dst            *int
	}{
		{"CHECKIN_CUTOFF_HOUR", defaultCheckInCutoffHour, &cfg.CheckInCutoffHour},
		{"MIN_NIGHTS", defaultMinNights, &cfg.Stay.MinNights},
		{"MAX_NIGHTS", defaultMaxNights, &cfg.Stay.MaxNights},
		{"MAX_ADVANCE_DAYS", defaultMaxAdvanceDays, &cfg.Stay.MaxAdvanceDays},
		{"SAME_DAY_BOOKING_CUTOFF_HOUR", defaultSameDayCutoffHour, &cfg.Stay.SameDayBookingCutoffHour},
	}
	for _, v := range ints {
		if *v.dst, err = parseIntEnv(v.name, v.fallback); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ClockPolicy returns the check-in cutoff policy for this environment.
func (c *Config) ClockPolicy() clock.Policy {
	if c.CheckInBypass && !isProdLike(c.AppEnv) {
		return clock.Permissive
	}
	return clock.Strict
}

func (c *Config) Venue() (clock.Venue, error) {
	return clock.NewVenue(c.VenueTimezone, c.CheckInCutoffHour)
}

func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.CheckInCutoffHour < 0 || cfg.CheckInCutoffHour > 23 {
		return fmt.Errorf("CHECKIN_CUTOFF_HOUR must be within 0..23")
	}
	if cfg.Stay.SameDayBookingCutoffHour < 0 || cfg.Stay.SameDayBookingCutoffHour > 24 {
		return fmt.Errorf("SAME_DAY_BOOKING_CUTOFF_HOUR must be within 0..24")
	}
	if cfg.Stay.MinNights < 1 {
		return fmt.Errorf("MIN_NIGHTS must be >= 1")
	}
	if cfg.Stay.MaxNights < cfg.Stay.MinNights {
		return fmt.Errorf("MAX_NIGHTS must be >= MIN_NIGHTS")
	}
	if cfg.Stay.MaxAdvanceDays < 0 {
		return fmt.Errorf("MAX_ADVANCE_DAYS must be >= 0")
	}
	if _, err := clock.NewVenue(cfg.VenueTimezone, cfg.CheckInCutoffHour); err != nil {
		return fmt.Errorf("invalid VENUE_TIMEZONE %q: %w", cfg.VenueTimezone, err)
	}
	switch cfg.AdminCancelRoomPolicy {
	case AdminCancelForceAvailable, AdminCancelPreserveMaintenance:
	default:
		return fmt.Errorf("ADMIN_CANCEL_ROOM_POLICY must be one of: %s, %s", AdminCancelForceAvailable, AdminCancelPreserveMaintenance)
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.CheckInBypass {
			return fmt.Errorf("in prod/release CHECKIN_CUTOFF_BYPASS must be false")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
