package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Store drivers for the sandbox.
const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Config stores settings shared by the sandbox, the dispatcher and the CLI.
type Config struct {
	Port      int
	Sandbox   Sandbox
	DB        DB
	RateLimit RateLimit
	Client    Client
	Retry     Retry
	Breaker   Breaker
	Kafka     Kafka
	Dispatch  Dispatch
	Pprof     PprofConfig
	Telemetry Telemetry
}

// Sandbox configures the local workers API.
type Sandbox struct {
	Organization     string
	APIKeys          []string
	OperationTimeout time.Duration
	// StoreDriver is StoreBadger or StorePostgres.
	StoreDriver string
	// StoreDir is the badger directory; empty keeps data in memory.
	StoreDir   string
	SyncWrites bool
}

// DB holds PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a postgres connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// RateLimit configures the per-IP limiter of the sandbox.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Client configures the outbound workers API client.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Rate and Burst throttle outgoing requests; Rate 0 disables throttling.
	Rate  float64
	Burst int
}

// Retry is the backoff policy of the client.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Breaker configures the client circuit breaker.
type Breaker struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Kafka configures the dispatcher consumer.
type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Dispatch configures event processing. Timeout bounds one InsertTask
// including retries; 0 derives it from the client and retry settings.
type Dispatch struct {
	Timeout time.Duration
}

// PprofConfig configures the optional profiling server.
type PprofConfig struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Telemetry configures OpenTelemetry export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.CommandLine
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Sandbox.StoreDriver, "store", cfg.Sandbox.StoreDriver, "sandbox store: badger or postgres")
	fs.StringVar(&cfg.Sandbox.StoreDir, "store-dir", cfg.Sandbox.StoreDir, "badger directory (empty = in memory)")
	fs.StringVar(&cfg.Client.BaseURL, "base-url", cfg.Client.BaseURL, "workers API base url")
	fs.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "kafka brokers")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads .env and the environment without touching command-line flags.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	e := &envReader{}
	cfg := &Config{
		Port: e.int("PORT", defaultPort),
		Sandbox: Sandbox{
			Organization:     e.string("SANDBOX_ORGANIZATION", defaultOrganization),
			APIKeys:          e.list("SANDBOX_API_KEYS", nil),
			OperationTimeout: e.duration("SANDBOX_OPERATION_TIMEOUT", 3*time.Second),
			StoreDriver:      e.string("SANDBOX_STORE", defaultStoreDriver),
			StoreDir:         e.string("SANDBOX_STORE_DIR", ""),
			SyncWrites:       e.bool("SANDBOX_STORE_SYNC", false),
		},
		DB: DB{
			Host: e.string("POSTGRES_HOST", defaultDB.Host),
			Port: e.string("POSTGRES_PORT", defaultDB.Port),
			User: e.string("POSTGRES_USER", defaultDB.User),
			Pass: e.string("POSTGRES_PASSWORD", defaultDB.Pass),
			Name: e.string("POSTGRES_DB", defaultDB.Name),
		},
		RateLimit: RateLimit{
			Enabled:    e.bool("RATE_LIMIT_ENABLED", defaultRateLimit.Enabled),
			Rate:       e.float("RATE_LIMIT_RATE", defaultRateLimit.Rate),
			Burst:      e.int("RATE_LIMIT_BURST", defaultRateLimit.Burst),
			TTL:        e.duration("RATE_LIMIT_TTL", defaultRateLimit.TTL),
			MaxBuckets: e.int("RATE_LIMIT_MAX_BUCKETS", defaultRateLimit.MaxBuckets),
		},
		Client: Client{
			BaseURL: e.string("ONFLEET_BASE_URL", defaultClient.BaseURL),
			APIKey:  e.string("ONFLEET_API_KEY", ""),
			Timeout: e.duration("ONFLEET_TIMEOUT", defaultClient.Timeout),
			Rate:    e.float("ONFLEET_RATE", defaultClient.Rate),
			Burst:   e.int("ONFLEET_BURST", defaultClient.Burst),
		},
		Retry: Retry{
			MaxAttempts: e.int("ONFLEET_RETRY_MAX_ATTEMPTS", defaultRetry.MaxAttempts),
			BaseDelay:   e.duration("ONFLEET_RETRY_BASE_DELAY", defaultRetry.BaseDelay),
			MaxDelay:    e.duration("ONFLEET_RETRY_MAX_DELAY", defaultRetry.MaxDelay),
		},
		Breaker: Breaker{
			MaxRequests:      uint32(e.int("ONFLEET_BREAKER_MAX_REQUESTS", int(defaultBreaker.MaxRequests))),
			Interval:         e.duration("ONFLEET_BREAKER_INTERVAL", defaultBreaker.Interval),
			Timeout:          e.duration("ONFLEET_BREAKER_TIMEOUT", defaultBreaker.Timeout),
			FailureThreshold: uint32(e.int("ONFLEET_BREAKER_FAILURES", int(defaultBreaker.FailureThreshold))),
		},
		Kafka: Kafka{
			Brokers: e.list("KAFKA_BROKERS", nil),
			Topic:   e.string("KAFKA_TOPIC", ""),
			GroupID: e.string("KAFKA_GROUP_ID", ""),
		},
		Dispatch: Dispatch{
			Timeout: e.duration("DISPATCH_TIMEOUT", 0),
		},
		Pprof: PprofConfig{
			Enabled: e.bool("PPROF_ENABLED", false),
			Addr:    e.string("PPROF_ADDR", "127.0.0.1:6060"),
			User:    e.string("PPROF_USER", ""),
			Pass:    e.string("PPROF_PASS", ""),
		},
		Telemetry: Telemetry{
			Endpoint:    e.string("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: e.string("OTEL_SERVICE_NAME", defaultServiceName),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}
	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught while parsing.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid POSTGRES_PORT: %q", c.DB.Port)
	}
	switch c.Sandbox.StoreDriver {
	case StoreBadger, StorePostgres:
	default:
		return fmt.Errorf("invalid sandbox store %q: want %s or %s", c.Sandbox.StoreDriver, StoreBadger, StorePostgres)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid retry attempts: %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry base delay %s exceeds max delay %s", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	if c.Client.Rate < 0 || c.RateLimit.Rate < 0 {
		return errors.New("rate must not be negative")
	}
	if c.Dispatch.Timeout < 0 {
		return fmt.Errorf("invalid dispatch timeout: %s", c.Dispatch.Timeout)
	}
	return nil
}

// envReader collects the first parse error so Load can report it once.
type envReader struct{ err error }

func (e *envReader) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
}

func (e *envReader) string(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
