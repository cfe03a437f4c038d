package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMySQL    = "mysql"
	DriverSupabase = "supabase"
	DriverMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Port         string
	Origin       string
	Environment  string
	LogLevel     string
	JWTSecret    string
	StoreDriver  string
	Database     DatabaseConfig
	Supabase     SupabaseConfig
	Memory       MemoryConfig
	Redis        RedisConfig
	Cancellation CancellationConfig
	Notifier     NotifierConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	Name        string
	DSN         string
	AutoMigrate bool
}

// SupabaseConfig holds the PostgREST endpoint of the appointments table
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	Table          string
}

// MemoryConfig configures the in-memory store
type MemoryConfig struct {
	SeedFile string
}

// RedisConfig configures the shared change feed. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	Channel  string
}

// CancellationConfig holds the cancellation policy
type CancellationConfig struct {
	LeadHours float64
	Reason    string
}

// NotifierConfig holds the cancellation webhook settings. An empty URL
// disables notifications.
type NotifierConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "portal"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}
	dbConfig.AutoMigrate = autoMigrate

	driver := strings.ToLower(getEnv("STORE_DRIVER", DriverMySQL))
	switch driver {
	case DriverMySQL, DriverSupabase, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", driver)
	}

	supabaseConfig := SupabaseConfig{
		URL:            getEnv("SUPABASE_URL", ""),
		ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		Table:          getEnv("SUPABASE_TABLE", "appointments"),
	}
	if driver == DriverSupabase && (supabaseConfig.URL == "" || supabaseConfig.ServiceRoleKey == "") {
		return nil, fmt.Errorf("STORE_DRIVER=supabase requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
	}

	leadHours, err := strconv.ParseFloat(getEnv("CANCELLATION_LEAD_HOURS", "12"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CANCELLATION_LEAD_HOURS: %w", err)
	}
	if math.IsNaN(leadHours) || math.IsInf(leadHours, 0) {
		return nil, fmt.Errorf("invalid CANCELLATION_LEAD_HOURS: must be a finite number, got %v", leadHours)
	}
	if leadHours <= 0 {
		return nil, fmt.Errorf("invalid CANCELLATION_LEAD_HOURS: must be positive, got %v", leadHours)
	}

	notifyTimeout, err := time.ParseDuration(getEnv("NOTIFIER_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFIER_TIMEOUT: %w", err)
	}

	return &Config{
		Port:        getEnv("PORT", "3001"),
		Origin:      getEnv("ORIGIN", "http://localhost:4200"),
		Environment: getEnv("NODE_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		JWTSecret:   getEnv("JWT_SECRET", "default_jwt_secret"),
		StoreDriver: driver,
		Database:    dbConfig,
		Supabase:    supabaseConfig,
		Memory: MemoryConfig{
			SeedFile: getEnv("MEMORY_SEED_FILE", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			Channel:  getEnv("REDIS_CHANNEL", "appointments:changes"),
		},
		Cancellation: CancellationConfig{
			LeadHours: leadHours,
			Reason:    getEnv("CANCELLATION_REASON", "User cancelled via dashboard"),
		},
		Notifier: NotifierConfig{
			URL:     getEnv("NOTIFIER_URL", ""),
			Secret:  getEnv("NOTIFIER_SECRET", ""),
			Timeout: notifyTimeout,
		},
	}, nil
}

// IsDevelopment reports whether NODE_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
