package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens

	AccessSecret  string // Required: signing secret for access tokens
	RefreshSecret string // Required: signing secret for refresh tokens
	MFASecret     string // Required: signing secret for MFA challenge tokens
	ResetSecret   string // Required: signing secret for password reset tokens

	DatabaseFile    string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile      string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	FrontendBaseURL string // Optional: base URL for links in emails (default: http://localhost:3000)
	SecureCookies   bool   // Optional: mark the refresh cookie Secure (default: true outside dev)

	MailAPIEndpoint string // Optional: transactional mail API endpoint; unset logs mail instead
	MailAPIKey      string // Optional: API key for the mail endpoint
	MailFrom        string // Optional: From address on outgoing mail

	OwnerEmail    string // Optional: seed a super-admin owner account with this email
	OwnerName     string // Optional: display name for the seeded owner
	OwnerPassword string // Optional: initial password for the seeded owner

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer: getEnvOrDefault("AUTH_ISSUER", "skillbase-auth"),

		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),
		MFASecret:     os.Getenv("AUTH_MFA_SECRET"),
		ResetSecret:   os.Getenv("AUTH_RESET_SECRET"),

		DatabaseFile:    getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:      getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		FrontendBaseURL: getEnvOrDefault("FRONTEND_BASE_URL", "http://localhost:3000"),

		MailAPIEndpoint: os.Getenv("MAIL_API_ENDPOINT"),
		MailAPIKey:      os.Getenv("MAIL_API_KEY"),
		MailFrom:        getEnvOrDefault("MAIL_FROM", "no-reply@skillbase.dev"),

		OwnerEmail:    os.Getenv("OWNER_EMAIL"),
		OwnerName:     getEnvOrDefault("OWNER_NAME", "Platform Owner"),
		OwnerPassword: os.Getenv("OWNER_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Dev runs over plain HTTP where Secure cookies would never reach the
	// server; everywhere else they are mandatory.
	cfg.SecureCookies = getEnvOrDefault("SECURE_COOKIES", "") == "true" || cfg.Env != "dev"

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept duration strings ("1h", "30m", "90s") or plain integer minutes.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
