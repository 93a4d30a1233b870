package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the portal, read from the environment.
type Config struct {
	Env      string
	Port     string
	GinMode  string
	LogLevel string

	DB       DBConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Mail     MailConfig
	Workflow WorkflowConfig

	CORSOrigins []string
	BaseURL     string

	LoginRatePerSecond int
	LoginRateBurst     int
}

type DBConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

type MailConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	QueueSize  int
}

type WorkflowConfig struct {
	StrictAuthorization bool
}

// Load reads configs/.env when present and then the process environment.
func Load() *Config {
	_ = godotenv.Load("configs/.env")

	return &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB: DBConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			Name:       getEnv("DB_NAME", "postgres"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "ideaportal.db"),
		},
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			TokenTTL: getDuration("JWT_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "ideas@localhost"),
			Timeout:  getDuration("SMTP_TIMEOUT", 10*time.Second),
		},
		Mail: MailConfig{
			Workers:    getInt("MAIL_WORKERS", 2),
			MaxRetries: getInt("MAIL_MAX_RETRIES", 3),
			RetryDelay: getDuration("MAIL_RETRY_DELAY", 2*time.Second),
			QueueSize:  getInt("MAIL_QUEUE_SIZE", 256),
		},
		Workflow: WorkflowConfig{
			StrictAuthorization: getBool("WORKFLOW_STRICT_AUTHORIZATION", true),
		},
		CORSOrigins:        getList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		BaseURL:            getEnv("PORTAL_BASE_URL", "http://localhost:5173"),
		LoginRatePerSecond: getInt("LOGIN_RATE_PER_SECOND", 1),
		LoginRateBurst:     getInt("LOGIN_RATE_BURST", 5),
	}
}

// DSN builds the postgres connection string
func (c DBConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}

// IsRelease reports whether gin runs in release mode
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
