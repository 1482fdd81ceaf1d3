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
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Devices  DeviceConfig
	Geo      GeoConfig
	Events   EventsConfig
	Email    EmailConfig
	Cleanup  CleanupConfig
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
	MigrateOnStart    bool
}

type ServerConfig struct {
	Port               string
	Env                string
	LogLevel           string
	TrustedProxies     []string
	FingerprintHeader  string
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

type AuthConfig struct {
	ServiceJWTSecret string
}

// DeviceConfig controls how devices are matched and how often logins are recorded
type DeviceConfig struct {
	MatchingAttributes   []string
	LoginThrottleMinutes int
	LoginColumn          string
}

type GeoConfig struct {
	CityDBPath    string
	ASNDBPath     string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type EventsConfig struct {
	KafkaBrokers     []string
	KafkaTopicPrefix string
}

type EmailConfig struct {
	NotifyNewDevice bool
	AWSRegion       string
	FromAddress     string
}

type CleanupConfig struct {
	LoginRetention time.Duration
	Interval       time.Duration
}

// DefaultMatchingAttributes is used when DEVICE_MATCHING_ATTRIBUTES is unset
var DefaultMatchingAttributes = []string{"platform", "platform_version", "browser", "browser_version", "fingerprint"}

// lockoutColumns are the user columns a lockout payload may be resolved against
var lockoutColumns = map[string]bool{"id": true, "email": true, "name": true}

func Load() (*Config, error) {
	_ = godotenv.Load()

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
			MigrateOnStart:    getEnvAsBool("MIGRATE_ON_START", true),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			Env:                env,
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			TrustedProxies:     getEnvAsList("TRUSTED_PROXIES", nil),
			FingerprintHeader:  getEnv("FINGERPRINT_HEADER", "X-Session-Fingerprint"),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			ServiceJWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
		},
		Devices: DeviceConfig{
			MatchingAttributes:   getEnvAsList("DEVICE_MATCHING_ATTRIBUTES", DefaultMatchingAttributes),
			LoginThrottleMinutes: getEnvAsInt("LOGIN_THROTTLE_MINUTES", 0),
			LoginColumn:          strings.ToLower(getEnv("LOGIN_COLUMN", "email")),
		},
		Geo: GeoConfig{
			CityDBPath:    getEnv("GEOIP_CITY_DB", ""),
			ASNDBPath:     getEnv("GEOIP_ASN_DB", ""),
			CacheTTL:      getEnvAsDuration("GEO_CACHE_TTL", 24*time.Hour),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Events: EventsConfig{
			KafkaBrokers:     getEnvAsList("KAFKA_BROKERS", nil),
			KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "authtrail."),
		},
		Email: EmailConfig{
			NotifyNewDevice: getEnvAsBool("NOTIFY_NEW_DEVICE", false),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			FromAddress:     getEnv("EMAIL_FROM", ""),
		},
		Cleanup: CleanupConfig{
			LoginRetention: getEnvAsDuration("LOGIN_RETENTION", 0),
			Interval:       getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and value ranges
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	if c.Auth.ServiceJWTSecret == "" {
		return fmt.Errorf("SERVICE_JWT_SECRET is required")
	}
	if err := validateJWTSecret(c.Auth.ServiceJWTSecret, c.Server.Env); err != nil {
		return err
	}

	if c.Devices.LoginThrottleMinutes < 0 {
		return fmt.Errorf("LOGIN_THROTTLE_MINUTES must not be negative (got %d)", c.Devices.LoginThrottleMinutes)
	}

	if !lockoutColumns[c.Devices.LoginColumn] {
		return fmt.Errorf("LOGIN_COLUMN must be one of id, email, name (got %q)", c.Devices.LoginColumn)
	}

	if c.Email.NotifyNewDevice && c.Email.FromAddress == "" {
		return fmt.Errorf("EMAIL_FROM is required when NOTIFY_NEW_DEVICE is enabled")
	}

	if c.Cleanup.LoginRetention < 0 {
		return fmt.Errorf("LOGIN_RETENTION must not be negative")
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for the service token secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SERVICE_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SERVICE_JWT_SECRET cannot be a common weak value")
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

// getEnvAsList splits a comma-separated value, dropping blanks. A variable that is set
// but empty yields an empty, non-nil list.
func getEnvAsList(key string, defaultVal []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
