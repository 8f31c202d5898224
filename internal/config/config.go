package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// PlaceholderSecretKey is the sample key shipped in example env files. It is treated as unset.
const PlaceholderSecretKey = "sk_test_YOUR_SECRET_KEY_HERE"

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	PaystackSecretKey string
	PaystackBaseURL   string
	ProviderTimeout   time.Duration

	DefaultCurrency    string
	Currencies         []string
	CallbackURL        string
	CallbackFromOrigin bool

	CORSAllowedOrigins  []string
	RedisURL            string
	RateLimitInitialize string
	BodyLimitBytes      int64
	StaticDir           string
	SecurityHeaders     bool

	FulfillmentURL           string
	FulfillmentSigningSecret string
	FulfillmentTimeout       time.Duration
	DispatchMaxRetry         int
	DispatchQueue            string
	DispatchRetryBase        time.Duration
	WorkerConcurrency        int

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	ShutdownTimeout     time.Duration

	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	HTTPBuckets      string
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingSampling  float64
}

// Load reads configuration from environment variables and optional .env files.
// A missing Paystack key is not a load error: payment endpoints report it per request.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                   valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                     valueOrDefault(k.String("PORT"), "3000"),
		PaystackSecretKey:        strings.TrimSpace(k.String("PAYSTACK_SECRET_KEY")),
		PaystackBaseURL:          valueOrDefault(k.String("PAYSTACK_BASE_URL"), "https://api.paystack.co"),
		ProviderTimeout:          parseDuration(k.String("PROVIDER_TIMEOUT"), "10s"),
		DefaultCurrency:          strings.ToUpper(valueOrDefault(k.String("PAYMENT_DEFAULT_CURRENCY"), "USD")),
		Currencies:               upper(splitAndTrim(valueOrDefault(k.String("PAYMENT_CURRENCIES"), "NGN,USD,GHS,ZAR,KES"))),
		CallbackURL:              strings.TrimSpace(k.String("PAYMENT_CALLBACK_URL")),
		CallbackFromOrigin:       parseBool(k.String("PAYMENT_CALLBACK_FROM_ORIGIN"), false),
		CORSAllowedOrigins:       splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RedisURL:                 strings.TrimSpace(k.String("REDIS_URL")),
		RateLimitInitialize:      valueOrDefault(k.String("RATE_LIMIT_INITIALIZE"), "30-M"),
		BodyLimitBytes:           parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		StaticDir:                strings.TrimSpace(k.String("STATIC_DIR")),
		SecurityHeaders:          parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
		FulfillmentURL:           strings.TrimSpace(k.String("FULFILLMENT_WEBHOOK_URL")),
		FulfillmentSigningSecret: strings.TrimSpace(k.String("FULFILLMENT_SIGNING_SECRET")),
		FulfillmentTimeout:       parseDuration(k.String("FULFILLMENT_TIMEOUT"), "5s"),
		DispatchMaxRetry:         int(parseInt64(k.String("WEBHOOK_DISPATCH_MAX_RETRY"), 8)),
		DispatchQueue:            valueOrDefault(k.String("WEBHOOK_DISPATCH_QUEUE"), "webhooks"),
		DispatchRetryBase:        parseDuration(k.String("WEBHOOK_DISPATCH_RETRY_BASE"), "10s"),
		WorkerConcurrency:        int(parseInt64(k.String("WORKER_CONCURRENCY"), 4)),
		BreakerMinRequests:       int(parseInt64(k.String("BREAKER_MIN_REQUESTS"), 5)),
		BreakerFailureRatio:      parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:           parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		ShutdownTimeout:          parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		LogFormat:                valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:                 valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:           parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace:         valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
		HTTPBuckets:              strings.TrimSpace(k.String("OBS_HTTP_BUCKETS_MS")),
		TracingEnabled:           parseBool(k.String("OBS_ENABLE_TRACING"), false),
		OTLPEndpoint:             strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:          parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	if !contains(cfg.Currencies, cfg.DefaultCurrency) {
		return nil, fmt.Errorf("PAYMENT_DEFAULT_CURRENCY %q is not listed in PAYMENT_CURRENCIES", cfg.DefaultCurrency)
	}
	if cfg.DispatchMaxRetry < 0 {
		cfg.DispatchMaxRetry = 0
	}

	return cfg, nil
}

// PaystackConfigured reports whether a usable (non-empty, non-placeholder) secret key is set.
func (c *Config) PaystackConfigured() bool {
	return SecretUsable(c.PaystackSecretKey)
}

// SecretUsable reports whether key can be used to talk to the provider.
func SecretUsable(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderSecretKey
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func upper(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToUpper(v)
	}
	return values
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
