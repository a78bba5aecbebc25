package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   string

	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	RedisPass   string

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail    string
	SMTPHost      string
	SMTPPort      int
	EmailUser     string
	EmailPass     string
	EmailFromName string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	NotifyMaxAttempts int
	ReminderSpec      string

	SeedDefaults      bool
	SeedAdminEmail    string
	SeedAdminPassword string

	CORSOrigins string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Relying on environment variables.")
	}
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:              env("APP_ENV", "development"),
		Port:                env("PORT", "8000"),
		StoreDriver:         strings.ToLower(env("STORE_DRIVER", "postgres")),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             env("MONGO_DB", "hospital"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPass:           os.Getenv("REDIS_PASSWORD"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TokenTTL:            envDuration("TOKEN_TTL", 24*time.Hour),
		AdminEmail:          os.Getenv("ADMIN_EMAIL"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            envInt("SMTP_PORT", 587),
		EmailUser:           os.Getenv("EMAIL_USER"),
		EmailPass:           os.Getenv("EMAIL_PASS"),
		EmailFromName:       env("EMAIL_FROM_NAME", "MediCare Hospital"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:          os.Getenv("TWILIO_FROM"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    env("CLOUDINARY_FOLDER", "doctors"),
		NotifyMaxAttempts:   envInt("NOTIFY_MAX_ATTEMPTS", 5),
		ReminderSpec:        env("REMINDER_SPEC", "0 18 * * *"),
		SeedDefaults:        envBool("SEED_DEFAULTS", false),
		SeedAdminEmail:      env("SEED_ADMIN_EMAIL", "admin@hospital.com"),
		SeedAdminPassword:   env("SEED_ADMIN_PASSWORD", "admin123"),
		CORSOrigins:         env("CORS_ORIGINS", "*"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	case "mongo":
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGO_URI is required for the mongo store")
		}
	case "memory":
	default:
		return nil, errors.New("STORE_DRIVER must be postgres, mongo or memory")
	}
	if cfg.NotifyMaxAttempts < 1 {
		cfg.NotifyMaxAttempts = 1
	}
	return cfg, nil
}

// EmailEnabled reports whether SMTP credentials are configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailUser != ""
}

func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
