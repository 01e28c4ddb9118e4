package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	PostgresURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string
}

// RedisConfig carries connection settings for the token revocation store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries settings for the audit outbox relay. Empty Brokers
// disables the relay (events stay in the outbox).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("EQUITYGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("EQUITYGATE_AUDIT_TOPIC")
	if topic == "" {
		topic = "equitygate.audit"
	}

	var brokers []string
	if raw := os.Getenv("EQUITYGATE_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:        addr,
		PostgresURL: os.Getenv("EQUITYGATE_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("EQUITYGATE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		JWTSigningKey: jwtSigningKey,
	}
}
