package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. It is read once at startup.
type Server struct {
	Addr          string
	Environment   string
	AdminAPIToken string

	JWTSigningKey string
	JWTIssuer     string

	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Sweeper       SweeperConfig
	Admission     AdmissionConfig
	RedemptionTTL time.Duration
}

// DatabaseConfig selects the relational store. An empty URL runs everything
// in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig backs the redemption cache and the sweep lease.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig points the notification producer at a broker. No brokers means
// notifications are only logged.
type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
	Partitions        int32
	ReplicationFactor int16
}

type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	LeaseTTL  time.Duration
}

type AdmissionConfig struct {
	// AutoApprove issues a voucher on enrollment for beneficiary registrations
	// instead of waiting for staff review.
	AutoApprove bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// development default; production deployments must override it
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envString("RELIEFPASS_ADDR", ":8080"),
		Environment:   envString("ENVIRONMENT", "development"),
		AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envString("JWT_ISSUER", "reliefpass"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           envList("KAFKA_BROKERS"),
			NotificationTopic: envString("KAFKA_NOTIFICATION_TOPIC", "reliefpass.notifications"),
			Partitions:        int32(envInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(envInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Sweeper: SweeperConfig{
			Interval:  envDuration("SWEEP_INTERVAL", 15*time.Minute),
			BatchSize: envInt("SWEEP_BATCH_SIZE", 200),
			LeaseTTL:  envDuration("SWEEP_LEASE_TTL", 5*time.Minute),
		},
		Admission: AdmissionConfig{
			AutoApprove: os.Getenv("AUTO_APPROVE") == "true",
		},
		RedemptionTTL: envDuration("REDEMPTION_CACHE_TTL", 24*time.Hour),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
