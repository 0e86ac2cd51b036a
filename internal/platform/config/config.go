package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	PolicyFile  string
	// RegoPath points at a directory of transfer deny rules. Empty uses the
	// built-in rules.
	RegoPath string
	Notifier string
	// ProverURL is the proof verification service. Empty rejects every
	// confidential transaction that carries a proof.
	ProverURL     string
	ProverTimeout time.Duration
	// AuditOpsSampleRate is the fraction of operational audit events kept.
	AuditOpsSampleRate float64
	ShutdownTimeout    time.Duration
	Redis              RedisConfig
	RateLimit          RateLimitConfig
	Kafka              KafkaConfig
	NATS               NATSConfig
	JWT                JWTConfig
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig bounds requests per authenticated caller. Reads and
// writes are counted in separate windows.
type RateLimitConfig struct {
	Disabled bool
	Read     int
	Write    int
	Window   time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// Partitions is used when the topic has to be created.
	Partitions int32
}

type NATSConfig struct {
	URL           string
	Stream        string
	SubjectPrefix string
	Timeout       time.Duration
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// Notifier kinds.
const (
	NotifierNone  = "none"
	NotifierKafka = "kafka"
	NotifierNATS  = "nats"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getenv("BRIDGEHUB_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "json"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		PolicyFile:  os.Getenv("BRIDGEHUB_POLICY_FILE"),
		RegoPath:    os.Getenv("BRIDGEHUB_REGO_PATH"),
		Notifier:    getenv("BRIDGEHUB_NOTIFIER", NotifierNone),

		ProverURL:          os.Getenv("PROVER_URL"),
		ProverTimeout:      getduration("PROVER_TIMEOUT", 30*time.Second),
		AuditOpsSampleRate: getfloat("AUDIT_OPS_SAMPLE_RATE", 1),
		ShutdownTimeout:    getduration("SHUTDOWN_TIMEOUT", 10*time.Second),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Disabled: os.Getenv("RATE_LIMIT_DISABLED") == "true",
			Read:     getint("RATE_LIMIT_READ", 100),
			Write:    getint("RATE_LIMIT_WRITE", 30),
			Window:   getduration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:      getenv("KAFKA_TOPIC", "bridgehub.messages"),
			Partitions: int32(getint("KAFKA_PARTITIONS", 3)),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			Stream:        getenv("NATS_STREAM", "BRIDGEHUB_MESSAGES"),
			SubjectPrefix: getenv("NATS_SUBJECT_PREFIX", "bridgehub.messages"),
			Timeout:       getduration("NATS_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			// Development default; override in every deployed environment.
			SigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getenv("JWT_ISSUER", "bridgehub"),
			Audience:   getenv("JWT_AUDIENCE", "bridgehub-api"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getfloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
