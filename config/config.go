package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppPort string
	AppMode string

	ProductsDBDriver string
	ProductsDBDSN    string
	MessagesDBDriver string
	MessagesDBDSN    string

	JWTSecret    string
	JWTExpiryMin int
	AuthRequired bool

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	EventRateLimit     int
	EventRateWindowSec int

	SeedProducts bool
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),

		ProductsDBDriver: strings.ToLower(getEnv("PRODUCTS_DB_DRIVER", DriverPostgres)),
		ProductsDBDSN:    getEnv("PRODUCTS_DB_DSN", "host=localhost user=postgres password=postgres dbname=catalog port=5432 sslmode=disable TimeZone=UTC"),
		MessagesDBDriver: strings.ToLower(getEnv("MESSAGES_DB_DRIVER", DriverSQLite)),
		MessagesDBDSN:    getEnv("MESSAGES_DB_DSN", "file:chat.sqlite?_busy_timeout=5000"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin: getEnvAsInt("JWT_EXPIRY_MIN", 60),
		AuthRequired: getEnvAsBool("AUTH_REQUIRED", true),

		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		EventRateLimit:     getEnvAsInt("EVENT_RATE_LIMIT", 30),
		EventRateWindowSec: getEnvAsInt("EVENT_RATE_WINDOW_SEC", 60),

		SeedProducts: getEnvAsBool("SEED_PRODUCTS", false),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
