package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// One-time codes
	OTCLength int
	OTCExpiry time.Duration

	// SMTP delivery
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string
	// AllowMockConfirm lets a caller finalize a purchase without gateway
	// proof. Development/staging only; must stay false in production.
	AllowMockConfirm bool

	// Google Sign-In
	GoogleClientID string

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "echotune_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "5h"), 5*time.Hour),

		OTCLength: parseInt(getEnv("OTC_LENGTH", "4"), 4),
		OTCExpiry: parseDuration(getEnv("OTC_EXPIRY", "10m"), 10*time.Minute),

		SMTPHost: getEnv("EMAIL_HOST", "smtp.gmail.com"),
		SMTPPort: parseInt(getEnv("EMAIL_PORT", "587"), 587),
		SMTPUser: getEnv("EMAIL_USER", ""),
		SMTPPass: getEnv("EMAIL_PASS", ""),
		MailFrom: getEnv("EMAIL_FROM", "noreply@echotune.app"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		AllowMockConfirm:    parseBool(getEnv("PAYMENTS_ALLOW_MOCK_CONFIRM", "false")),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
