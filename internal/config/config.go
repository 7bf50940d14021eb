package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Engine    EngineConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration. An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers          []string
	EventsTopic      string
	PerformanceTopic string
	GroupID          string
}

// Enabled reports whether any broker is configured
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig holds the shared quote cache configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	QuoteCacheTTL time.Duration
}

// ProvidersConfig holds external data source configuration
type ProvidersConfig struct {
	ReferenceURL      string
	ReferenceRowsPath string
	SearchBaseURL     string
	QuoteBaseURL      string
	RatesURL          string
	Timeout           time.Duration
	RatePerSecond     float64
}

// EngineConfig holds valuation settings
type EngineConfig struct {
	ReportingCurrency string
	StaticRates       string
	LookupDebounce    time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after loading a .env
// file when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "portfolio"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:          getEnvAsList("KAFKA_BROKERS", "localhost:9092"),
			EventsTopic:      getEnv("KAFKA_EVENTS_TOPIC", "portfolio-events"),
			PerformanceTopic: getEnv("KAFKA_PERFORMANCE_TOPIC", "portfolio-performance"),
			GroupID:          getEnv("KAFKA_GROUP_ID", "portfolio-service"),
		},
		Redis: RedisConfig{
			Addr:          os.Getenv("REDIS_ADDR"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            getEnvAsInt("REDIS_DB", 0),
			QuoteCacheTTL: getEnvAsDuration("QUOTE_CACHE_TTL", 15*time.Minute),
		},
		Providers: ProvidersConfig{
			ReferenceURL:      os.Getenv("REFERENCE_URL"),
			ReferenceRowsPath: getEnv("REFERENCE_ROWS_PATH", "$.rows"),
			SearchBaseURL:     getEnv("SEARCH_BASE_URL", "https://query2.finance.yahoo.com"),
			QuoteBaseURL:      getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
			RatesURL:          getEnv("RATES_URL", "https://api.frankfurter.app/latest"),
			Timeout:           getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
			RatePerSecond:     getEnvAsFloat("PROVIDER_RATE_PER_SECOND", 2),
		},
		Engine: EngineConfig{
			ReportingCurrency: strings.ToUpper(getEnv("REPORTING_CURRENCY", "SEK")),
			StaticRates:       os.Getenv("STATIC_RATES"),
			LookupDebounce:    getEnvAsDuration("LOOKUP_DEBOUNCE", 600*time.Millisecond),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Validate checks values that have no usable fallback
func (c *Config) Validate() error {
	if len(c.Engine.ReportingCurrency) != 3 {
		return fmt.Errorf("invalid REPORTING_CURRENCY %q", c.Engine.ReportingCurrency)
	}
	if c.Providers.RatePerSecond <= 0 {
		return fmt.Errorf("PROVIDER_RATE_PER_SECOND must be positive")
	}
	if c.Engine.LookupDebounce < 0 {
		return fmt.Errorf("LOOKUP_DEBOUNCE must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value. Setting the variable to "-"
// yields an empty list.
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
