package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Mail      MailConfig
	Lifetimes Lifetimes
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// IsDevelopment reports whether the process runs in the development environment.
func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

// DatabaseConfig configures the Postgres pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis client. An empty URL selects in-memory code storage.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig configures administrator tokens.
type AuthConfig struct {
	JWTSigningKey   string
	Issuer          string
	TokenTTL        time.Duration
	RegistrationKey string
}

// MailConfig selects and configures the email provider.
type MailConfig struct {
	Provider         string // mailersend | smtp | log
	FallbackProvider string // optional provider used while the primary is failing
	FromAddress      string
	FromName         string
	MailerSendAPIKey string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
}

// Lifetimes are the expiry windows of codes and credentials.
type Lifetimes struct {
	CodeTTL       time.Duration
	CredentialTTL time.Duration
	SweepInterval time.Duration
}

// KafkaConfig enables audit streaming when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// Enabled reports whether audit events are relayed to Kafka.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// RateLimitConfig caps unauthenticated traffic on the public endpoints.
// A limit of zero disables that policy.
type RateLimitConfig struct {
	Enabled    bool
	Window     time.Duration
	PerIP      int // send-code and verify requests per client address
	PerEmail   int // codes sent to one mailbox
	LoginPerIP int
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds the config from environment variables, after loading an
// optional .env file, so main stays lean.
func FromEnv() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Server: Server{
			Addr:            getString("GATEPASS_ADDR", ":8080"),
			Environment:     getString("GATEPASS_ENV", "development"),
			LogLevel:        getString("LOG_LEVEL", "info"),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey:   getString("JWT_SIGNING_KEY", devSigningKey),
			Issuer:          getString("JWT_ISSUER", "gatepass"),
			TokenTTL:        getDuration("ADMIN_TOKEN_TTL", 12*time.Hour),
			RegistrationKey: os.Getenv("ADMIN_REGISTRATION_KEY"),
		},
		Mail: MailConfig{
			Provider:         strings.ToLower(getString("MAIL_PROVIDER", "log")),
			FallbackProvider: strings.ToLower(os.Getenv("MAIL_FALLBACK_PROVIDER")),
			FromAddress:      getString("MAIL_FROM", "no-reply@gatepass.local"),
			FromName:         getString("MAIL_FROM_NAME", "GatePass System"),
			MailerSendAPIKey: os.Getenv("MAILERSEND_API_KEY"),
			SMTPHost:         os.Getenv("SMTP_HOST"),
			SMTPPort:         getInt("SMTP_PORT", 587),
			SMTPUsername:     os.Getenv("SMTP_USERNAME"),
			SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		},
		Lifetimes: Lifetimes{
			CodeTTL:       getDuration("OTP_TTL", 10*time.Minute),
			CredentialTTL: getDuration("CREDENTIAL_TTL", 24*time.Hour),
			SweepInterval: getDuration("SWEEP_INTERVAL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getString("KAFKA_AUDIT_TOPIC", "gatepass.audit"),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getBool("RATE_LIMIT_ENABLED", true),
			Window:     getDuration("RATE_LIMIT_WINDOW", time.Minute),
			PerIP:      getInt("RATE_LIMIT_PER_IP", 30),
			PerEmail:   getInt("RATE_LIMIT_PER_EMAIL", 3),
			LoginPerIP: getInt("RATE_LIMIT_LOGIN_PER_IP", 10),
		},
	}

	if cfg.Auth.JWTSigningKey == devSigningKey && !cfg.Server.IsDevelopment() {
		slog.Warn("JWT_SIGNING_KEY is not set; using the development key")
	}
	return cfg
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v, "default", def.String())
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
