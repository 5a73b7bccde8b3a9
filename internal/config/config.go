package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every runtime setting of the POS backend, loaded from the
// environment with sensible local-development defaults.
type Config struct {
	ServiceName string
	Port        string

	DatabaseUser     string
	DatabasePassword string
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseMaxConns int32

	OTLPEndpoint string

	// AMQPURL enables the order event publisher when non-empty.
	AMQPURL string
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		ServiceName:      getEnv("SERVICE_NAME", "pos-backend"),
		Port:             getEnv("PORT", "8080"),
		DatabaseUser:     getEnv("DATABASE_USER", "root"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", "pass"),
		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseName:     getEnv("DATABASE_NAME", "frank_furt"),
		DatabaseMaxConns: int32(getEnvInt("DATABASE_MAX_CONNS", 10)),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		AMQPURL:          getEnv("AMQP_URL", ""),
	}
}

// DatabaseDSN builds the pgx connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
