package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	JWTSecret             string
	JWTIssuer             string
	JWTAudience           string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int

	// Backplane 选择跨节点广播通道：memory（单机）、redis 或 nats。
	Backplane string
	RedisAddr string
	NatsURL   string

	MaxMessageBytes int

	AdminUsername string
	AdminPassword string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseDSN: getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=studyhub port=5432 sslmode=disable TimeZone=UTC"),
		Env:         getenv("APP_ENV", "dev"),

		JWTSecret:             getenv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:             getenv("JWT_ISSUER", "studyhub"),
		JWTAudience:           getenv("JWT_AUDIENCE", "studyhub-clients"),
		AccessTokenTTLMinutes: getenvInt("ACCESS_TOKEN_TTL_MINUTES", 120),
		RefreshTokenTTLDays:   getenvInt("REFRESH_TOKEN_TTL_DAYS", 7),

		Backplane: getenv("BACKPLANE", "memory"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
		NatsURL:   getenv("NATS_URL", "nats://localhost:4222"),

		MaxMessageBytes: getenvInt("MAX_MESSAGE_BYTES", 4096),

		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin1234"),
	}
}
