package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	LogLevel   string

	DatabaseURL string

	JWTSecret []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LockoutThreshold int

	KafkaBrokers []string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env not found, using environment: %v", err)
	}

	return Config{
		ServerPort: envIntDefault("SERVER_PORT", 8081),
		LogLevel:   envDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		AccessTokenTTL:  envDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: envDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		LockoutThreshold: envIntDefault("LOCKOUT_THRESHOLD", 5),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),
	}
}

// MustValidate stops the process when a required value is absent.
func (c Config) MustValidate() {
	if c.DatabaseURL == "" {
		log.Fatal("missing required env DATABASE_URL")
	}
	if len(c.JWTSecret) == 0 {
		log.Fatal("missing required env JWT_SECRET")
	}
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
