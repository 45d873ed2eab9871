package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr          string
	JWTSigningKey string

	// PostgresDSN selects the durable store; empty means in-memory.
	PostgresDSN     string
	BootstrapSchema bool
	TxTimeout       time.Duration

	RedisURL          string
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration

	// KafkaBrokers enables the audit outbox relay; empty disables it.
	KafkaBrokers []string
	AuditTopic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("LOANCORE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "loancore.audit"
	}

	return Config{
		Addr:              addr,
		JWTSigningKey:     jwtSigningKey,
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		BootstrapSchema:   os.Getenv("BOOTSTRAP_SCHEMA") == "true",
		TxTimeout:         envDuration("TX_TIMEOUT", 5*time.Second),
		RedisURL:          os.Getenv("REDIS_URL"),
		RedisPoolSize:     envInt("REDIS_POOL_SIZE", 10),
		RedisMinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
		RedisDialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		KafkaBrokers:      envList("KAFKA_BROKERS"),
		AuditTopic:        topic,
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
