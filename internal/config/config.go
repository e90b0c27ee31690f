package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	AppName   string
	Port      int
	StatsPort int
	DBURL     string

	// main service -> stats service
	StatsURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSAllowedOrigins []string

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Env:           getEnv("APP_ENV", "dev"),
		AppName:       getEnv("APP_NAME", "afisha"),
		Port:          getEnvInt("PORT", 8080),
		StatsPort:     getEnvInt("STATS_PORT", 9090),
		DBURL:         buildDBURL(),
		StatsURL:      getEnv("STATS_URL", "http://127.0.0.1:9090"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "afisha")
	pass := getEnv("DB_PASSWORD", "afisha")
	name := getEnv("DB_NAME", "afisha")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}
