package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Auth       AuthConfig
	Classifier ClassifierConfig
	Retention  RetentionConfig
	Alert      AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// ClassifierConfig holds the suspicion-heuristic thresholds and windows.
type ClassifierConfig struct {
	FailureWindow    time.Duration // lookback for the failed-attempt count
	FailureThreshold int           // failures (including the new one) that trip the flag
	RapidWindow      time.Duration // lookback for the most-recent-attempt query
	RapidGap         time.Duration // attempts closer together than this are rapid
}

type RetentionConfig struct {
	Window        time.Duration // maximum age of an attempt record
	SweepInterval time.Duration
}

type AlertConfig struct {
	Enabled         bool
	AWSRegion       string
	FromAddress     string
	SecurityAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "authtrail"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:   jwtSecret,
			TokenExpiry: getEnvAsDuration("TOKEN_EXPIRY", 24*time.Hour),
		},
		Classifier: ClassifierConfig{
			FailureWindow:    getEnvAsDuration("CLASSIFIER_FAILURE_WINDOW", 60*time.Minute),
			FailureThreshold: getEnvAsInt("CLASSIFIER_FAILURE_THRESHOLD", 5),
			RapidWindow:      getEnvAsDuration("CLASSIFIER_RAPID_WINDOW", 60*time.Second),
			RapidGap:         getEnvAsDuration("CLASSIFIER_RAPID_GAP", 10*time.Second),
		},
		Retention: RetentionConfig{
			Window:        getEnvAsDuration("RETENTION_WINDOW", 90*24*time.Hour),
			SweepInterval: getEnvAsDuration("RETENTION_SWEEP_INTERVAL", 1*time.Hour),
		},
		Alert: AlertConfig{
			Enabled:         getEnvAsBool("ALERT_ENABLED", false),
			AWSRegion:       getEnv("ALERT_AWS_REGION", "us-east-1"),
			FromAddress:     getEnv("ALERT_FROM_ADDRESS", ""),
			SecurityAddress: getEnv("ALERT_SECURITY_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Classifier.FailureThreshold < 1 {
		return nil, fmt.Errorf("CLASSIFIER_FAILURE_THRESHOLD must be at least 1")
	}

	if cfg.Alert.Enabled && (cfg.Alert.FromAddress == "" || cfg.Alert.SecurityAddress == "") {
		return nil, fmt.Errorf("ALERT_FROM_ADDRESS and ALERT_SECURITY_ADDRESS are required when alerts are enabled")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
