package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string

	ServerPort int

	DatabaseURL string

	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	PeerQuota        int
	AdminQuotaExempt bool

	InitialAdminCreate   bool
	InitialAdminUsername string
	InitialAdminPassword string
	InitialAdminName     string

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel string
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "wg-dashboard"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		AccessTTL:  time.Duration(EnvIntDefault("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL: time.Duration(EnvIntDefault("REFRESH_TOKEN_TTL_H", 48)) * time.Hour,

		PeerQuota:        EnvIntDefault("PEER_QUOTA", 5),
		AdminQuotaExempt: EnvBoolDefault("PEER_QUOTA_EXEMPT_ADMIN", true),

		InitialAdminCreate:   EnvBoolDefault("INITIAL_ADMIN_CREATE", true),
		InitialAdminUsername: EnvDefault("INITIAL_ADMIN_USERNAME", "admin"),
		InitialAdminPassword: os.Getenv("INITIAL_ADMIN_PASSWORD"),
		InitialAdminName:     EnvDefault("INITIAL_ADMIN_NAME", "Administrator"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "auth_events"),

		LogLevel: EnvDefault("LOG_LEVEL", "info"),
	}
}

func CSV(v string) []string {
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

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
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

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
