package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Data layout
	DataDir    string
	ReportDir  string
	AuthDBPath string

	// Report access
	ReportPassword  string
	ReportPasswords map[string]string // per-report overrides
	SessionTTL      time.Duration

	// API
	APIKey string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	RefreshInterval time.Duration

	// Mirror (optional)
	MirrorSpreadsheetID string
	MirrorSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataDir:    getEnv("DATA_DIR", "./data/tables"),
		ReportDir:  getEnv("REPORT_DIR", "./data/reports"),
		AuthDBPath: getEnv("AUTH_DB_PATH", "./data/auth.db"),

		ReportPassword:  getEnv("REPORT_PASSWORD", ""),
		ReportPasswords: parseOverrides(getEnv("REPORT_PASSWORDS", "")),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),

		APIKey: getEnv("API_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_refresh"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),

		MirrorSpreadsheetID: getEnv("MIRROR_SPREADSHEET_ID", ""),
		MirrorSheetName:     getEnv("MIRROR_SHEET_NAME", "Ledger"),
	}

	return cfg
}

// parseOverrides reads "id=password" pairs separated by commas, for example
// "2024-01=winter,2024_annual=yearly".
func parseOverrides(raw string) map[string]string {
	overrides := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, password, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		overrides[strings.TrimSpace(id)] = password
	}
	return overrides
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate directory layout
	for _, dir := range []struct{ name, path string }{
		{"data directory", c.DataDir},
		{"report directory", c.ReportDir},
	} {
		if dir.path == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", dir.name))
			continue
		}
		if _, err := os.Stat(dir.path); os.IsNotExist(err) {
			if err := os.MkdirAll(dir.path, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create %s '%s': %v", dir.name, dir.path, err))
			}
		}
	}

	if c.AuthDBPath == "" {
		errors = append(errors, "auth database path cannot be empty")
	} else {
		dir := filepath.Dir(c.AuthDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create auth database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate report access configuration
	if c.ReportPassword == "" && len(c.ReportPasswords) == 0 {
		errors = append(errors, "report password required: set REPORT_PASSWORD or REPORT_PASSWORDS")
	}
	for id, password := range c.ReportPasswords {
		if id == "" || password == "" {
			errors = append(errors, "REPORT_PASSWORDS entries must be 'id=password' with both sides non-empty")
			break
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate worker configuration
	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	// Validate mirror configuration
	if c.MirrorSpreadsheetID != "" && c.MirrorSheetName == "" {
		errors = append(errors, "mirror sheet name cannot be empty when a spreadsheet ID is provided")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
