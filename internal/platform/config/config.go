package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    slog.Level

	Institution Institution
	Wizard      Wizard
	Token       Token

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	AuthAPI        Upstream
	ApplicationAPI Upstream
}

// Institution identifies the issuing institute.
type Institution struct {
	Name string
	// Code prefixes provisional application ids, e.g. NITT.
	Code string
	// Domain is the only e-mail domain accepted for verification.
	Domain string
}

type Wizard struct {
	FilePolicy      string
	Topology        string
	NoticeTTL       time.Duration
	SessionIdleTTL  time.Duration
	JanitorInterval time.Duration
	MaxUploadBytes  int64
}

// Token configures the verified-identity token bound to a wizard session.
type Token struct {
	SigningKey string
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// RedisConfig configures the session store. An empty URL selects the
// in-process store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyTTL       time.Duration
}

// PostgresConfig configures the audit event table. Optional.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the audit topic. Optional.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// Upstream is an HTTP collaborator.
type Upstream struct {
	BaseURL string
	Timeout time.Duration
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables. A .env file is
// loaded first when present (ENV_FILE overrides its path); variables already
// set in the environment win.
func FromEnv() (Server, error) {
	if err := loadDotEnv(); err != nil {
		return Server{}, err
	}

	r := reader{}
	cfg := Server{
		Addr:        r.str("IDCARD_ADDR", ":8080"),
		Environment: strings.ToLower(r.str("ENVIRONMENT", EnvDevelopment)),
		LogLevel:    r.level("LOG_LEVEL", slog.LevelInfo),
		Institution: Institution{
			Name:   r.str("INSTITUTION_NAME", "National Institute of Technology, Tiruchirappalli"),
			Code:   r.str("INSTITUTION_CODE", "NITT"),
			Domain: strings.ToLower(r.str("INSTITUTION_EMAIL_DOMAIN", "nitt.edu")),
		},
		Wizard: Wizard{
			FilePolicy:      os.Getenv("WIZARD_FILE_POLICY"),
			Topology:        r.str("WIZARD_TOPOLOGY", "staged"),
			NoticeTTL:       r.duration("WIZARD_NOTICE_TTL", 3*time.Second),
			SessionIdleTTL:  r.duration("WIZARD_SESSION_IDLE_TTL", 30*time.Minute),
			JanitorInterval: r.duration("WIZARD_JANITOR_INTERVAL", time.Minute),
			MaxUploadBytes:  r.int64("WIZARD_MAX_UPLOAD_BYTES", 12<<20),
		},
		Token: Token{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     r.str("JWT_ISSUER", "idcard-wizard"),
			Audience:   r.str("JWT_AUDIENCE", "idcard-application"),
			TTL:        r.duration("JWT_TTL", 2*time.Hour),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     int(r.int64("REDIS_POOL_SIZE", 10)),
			MinIdleConns: int(r.int64("REDIS_MIN_IDLE_CONNS", 2)),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyTTL:       r.duration("REDIS_SESSION_TTL", 24*time.Hour),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    int(r.int64("DATABASE_MAX_OPEN_CONNS", 10)),
			MaxIdleConns:    int(r.int64("DATABASE_MAX_IDLE_CONNS", 5)),
			ConnMaxLifetime: r.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:           r.list("KAFKA_BROKERS"),
			Topic:             r.str("KAFKA_AUDIT_TOPIC", "idcard.audit"),
			Partitions:        int32(r.int64("KAFKA_AUDIT_PARTITIONS", 3)),
			ReplicationFactor: int16(r.int64("KAFKA_REPLICATION_FACTOR", 1)),
		},
		AuthAPI: Upstream{
			BaseURL: strings.TrimRight(os.Getenv("AUTH_API_URL"), "/"),
			Timeout: r.duration("AUTH_API_TIMEOUT", 10*time.Second),
		},
		ApplicationAPI: Upstream{
			BaseURL: strings.TrimRight(os.Getenv("APPLICATION_API_URL"), "/"),
			Timeout: r.duration("APPLICATION_API_TIMEOUT", 30*time.Second),
		},
	}
	if r.err != nil {
		return Server{}, r.err
	}
	return cfg, cfg.validate()
}

// validate enforces what must be explicit in production. Development gets
// defaults so the server starts with no environment at all.
func (c *Server) validate() error {
	prod := c.Environment == EnvProduction
	if c.Wizard.FilePolicy == "" {
		if prod {
			return errors.New("WIZARD_FILE_POLICY must be set in production")
		}
		c.Wizard.FilePolicy = "staged"
	}
	if c.Token.SigningKey == "" {
		if prod {
			return errors.New("JWT_SIGNING_KEY must be set in production")
		}
		c.Token.SigningKey = devSigningKey
	}
	if c.AuthAPI.BaseURL == "" {
		return errors.New("AUTH_API_URL is required")
	}
	if c.ApplicationAPI.BaseURL == "" {
		return errors.New("APPLICATION_API_URL is required")
	}
	if c.Institution.Code == "" || c.Institution.Domain == "" {
		return errors.New("INSTITUTION_CODE and INSTITUTION_EMAIL_DOMAIN must not be empty")
	}
	return nil
}

func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// reader collects the first parse error so FromEnv can report it once.
type reader struct {
	err error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) int64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		r.fail(key, err)
		return def
	}
	return l
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
