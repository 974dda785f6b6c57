package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/circle-time/internal/application"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	// Sweep cadence for the auto-release/reminder loop.
	SweepInterval time.Duration

	// Organisation-wide booking policy knobs.
	CheckinWindowMinutes    int
	AutoReleaseMinutes      int
	MaxExtensions           int
	ExtensionIncrementMin   int
	MaxRecurringOccurrences int
	PseudonymizeAfterDays   int

	// Outbound notification settings; all optional. Email delivery is
	// enabled only when an API key is present, event publishing only when a
	// broker URL is present.
	MailerSendAPIKey string
	MailFromName     string
	MailFromEmail    string
	AMQPURL          string
}

const (
	minWindowMinutes = 5
	maxWindowMinutes = 60
)

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for every optional field while validating
// ranges, and reports all missing or invalid entries in one error so a
// misconfigured deployment fails with a complete picture.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:                8080,
		SQLiteDSN:               "file:circletime.db?_pragma=foreign_keys(1)",
		SweepInterval:           60 * time.Second,
		CheckinWindowMinutes:    15,
		AutoReleaseMinutes:      15,
		MaxExtensions:           4,
		ExtensionIncrementMin:   15,
		MaxRecurringOccurrences: 52,
		PseudonymizeAfterDays:   30,
		MailFromName:            "Circle Time",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CIRCLETIME_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CIRCLETIME_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CIRCLETIME_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if intervalValue := strings.TrimSpace(os.Getenv("CIRCLETIME_SWEEP_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "CIRCLETIME_SWEEP_INTERVAL")
		} else {
			cfg.SweepInterval = interval
		}
	}

	if value := strings.TrimSpace(os.Getenv("CIRCLETIME_CHECKIN_WINDOW_MINUTES")); value != "" {
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < minWindowMinutes || minutes > maxWindowMinutes {
			invalid = append(invalid, "CIRCLETIME_CHECKIN_WINDOW_MINUTES")
		} else {
			cfg.CheckinWindowMinutes = minutes
		}
	}

	if value := strings.TrimSpace(os.Getenv("CIRCLETIME_AUTO_RELEASE_MINUTES")); value != "" {
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < minWindowMinutes || minutes > maxWindowMinutes {
			invalid = append(invalid, "CIRCLETIME_AUTO_RELEASE_MINUTES")
		} else {
			cfg.AutoReleaseMinutes = minutes
		}
	}

	if value := strings.TrimSpace(os.Getenv("CIRCLETIME_MAX_EXTENSIONS")); value != "" {
		count, err := strconv.Atoi(value)
		if err != nil || count < 0 {
			invalid = append(invalid, "CIRCLETIME_MAX_EXTENSIONS")
		} else {
			cfg.MaxExtensions = count
		}
	}

	if value := strings.TrimSpace(os.Getenv("CIRCLETIME_EXTENSION_INCREMENT_MINUTES")); value != "" {
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes <= 0 {
			invalid = append(invalid, "CIRCLETIME_EXTENSION_INCREMENT_MINUTES")
		} else {
			cfg.ExtensionIncrementMin = minutes
		}
	}

	if value := strings.TrimSpace(os.Getenv("CIRCLETIME_MAX_RECURRING_OCCURRENCES")); value != "" {
		count, err := strconv.Atoi(value)
		if err != nil || count <= 0 {
			invalid = append(invalid, "CIRCLETIME_MAX_RECURRING_OCCURRENCES")
		} else {
			cfg.MaxRecurringOccurrences = count
		}
	}

	if value := strings.TrimSpace(os.Getenv("CIRCLETIME_PSEUDONYMIZE_AFTER_DAYS")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			invalid = append(invalid, "CIRCLETIME_PSEUDONYMIZE_AFTER_DAYS")
		} else {
			cfg.PseudonymizeAfterDays = days
		}
	}

	cfg.MailerSendAPIKey = strings.TrimSpace(os.Getenv("CIRCLETIME_MAILERSEND_API_KEY"))
	if name := strings.TrimSpace(os.Getenv("CIRCLETIME_MAIL_FROM_NAME")); name != "" {
		cfg.MailFromName = name
	}
	cfg.MailFromEmail = strings.TrimSpace(os.Getenv("CIRCLETIME_MAIL_FROM_EMAIL"))
	if cfg.MailerSendAPIKey != "" && cfg.MailFromEmail == "" {
		invalid = append(invalid, "CIRCLETIME_MAIL_FROM_EMAIL")
	}

	cfg.AMQPURL = strings.TrimSpace(os.Getenv("CIRCLETIME_AMQP_URL"))

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// BookingPolicy converts the configured minutes and days into the policy
// value object the services consume.
func (c Config) BookingPolicy() application.BookingPolicy {
	policy := application.DefaultBookingPolicy()
	policy.CheckinWindow = time.Duration(c.CheckinWindowMinutes) * time.Minute
	policy.AutoReleaseAfter = time.Duration(c.AutoReleaseMinutes) * time.Minute
	policy.MaxExtensions = c.MaxExtensions
	policy.ExtensionIncrement = time.Duration(c.ExtensionIncrementMin) * time.Minute
	policy.MaxRecurringOccurrences = c.MaxRecurringOccurrences
	policy.PseudonymizeAfter = time.Duration(c.PseudonymizeAfterDays) * 24 * time.Hour
	return policy
}
