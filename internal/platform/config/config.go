package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultAddress         = ":8080"
	defaultBasePath        = "/admin"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultBackendTimeout  = 5 * time.Second
	defaultBackendRetries  = 3
	defaultRedisTTL        = time.Minute
	defaultAuditCollection = "auditLogs"
	defaultAMQPExchange    = "order.exchange"
	defaultSecretsFallback = ".secrets.local"

	// SourceREST reads records from the dashboard REST backend.
	SourceREST = "rest"
	// SourceFirestore reads records directly from Firestore collections.
	SourceFirestore = "firestore"
)

// Config aggregates runtime configuration for the admin service and CLI.
type Config struct {
	Environment string
	Log         LogConfig
	Server      ServerConfig
	Source      SourceConfig
	Backend     BackendConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	PubSub      PubSubConfig
	AMQP        AMQPConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Secrets     SecretsConfig
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string
	BasePath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SourceConfig selects where order, product and review records come from.
type SourceConfig struct {
	Kind string
}

// BackendConfig points at the dashboard REST API.
type BackendConfig struct {
	BaseURL    string
	AuthToken  string
	Timeout    time.Duration
	MaxRetries int
}

// FirebaseConfig identifies the Firebase project used for staff authentication.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig captures Firestore connectivity.
type FirestoreConfig struct {
	ProjectID       string
	EmulatorHost    string
	AuditCollection string
}

// PubSubConfig configures order event publishing to Pub/Sub.
type PubSubConfig struct {
	ProjectID        string
	OrderEventsTopic string
}

// AMQPConfig configures order event publishing to RabbitMQ.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// RedisConfig configures the record snapshot cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// StorageConfig names Cloud Storage buckets.
type StorageConfig struct {
	ExportsBucket string
}

// SecretsConfig configures Secret Manager lookups.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// SecretResolver resolves references to external secrets.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the configuration from defaults, the .env file, the process environment
// and explicit overrides, then resolves secret references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "ADMIN_ENVIRONMENT", "local")),
		Log: LogConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Address:         stringWithDefault(lookup, "ADMIN_HTTP_ADDR", defaultAddress),
			BasePath:        stringWithDefault(lookup, "ADMIN_BASE_PATH", defaultBasePath),
			ReadTimeout:     durationWithDefault(lookup, "ADMIN_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "ADMIN_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "ADMIN_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "ADMIN_HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Source: SourceConfig{
			Kind: strings.ToLower(stringWithDefault(lookup, "ADMIN_SOURCE", SourceREST)),
		},
		Backend: BackendConfig{
			BaseURL:    strings.TrimRight(stringWithDefault(lookup, "ADMIN_BACKEND_URL", ""), "/"),
			AuthToken:  stringWithDefault(lookup, "ADMIN_BACKEND_TOKEN", ""),
			Timeout:    durationWithDefault(lookup, "ADMIN_BACKEND_TIMEOUT", defaultBackendTimeout),
			MaxRetries: intWithDefault(lookup, "ADMIN_BACKEND_MAX_RETRIES", defaultBackendRetries),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:       stringWithDefault(lookup, "ADMIN_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost:    stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
			AuditCollection: stringWithDefault(lookup, "ADMIN_AUDIT_COLLECTION", defaultAuditCollection),
		},
		PubSub: PubSubConfig{
			ProjectID:        stringWithDefault(lookup, "ADMIN_PUBSUB_PROJECT_ID", ""),
			OrderEventsTopic: stringWithDefault(lookup, "ADMIN_PUBSUB_ORDER_TOPIC", ""),
		},
		AMQP: AMQPConfig{
			URL:      stringWithDefault(lookup, "ADMIN_AMQP_URL", ""),
			Exchange: stringWithDefault(lookup, "ADMIN_AMQP_EXCHANGE", defaultAMQPExchange),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "ADMIN_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "ADMIN_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "ADMIN_REDIS_DB", 0),
			TTL:      durationWithDefault(lookup, "ADMIN_REDIS_TTL", defaultRedisTTL),
		},
		Storage: StorageConfig{
			ExportsBucket: stringWithDefault(lookup, "ADMIN_STORAGE_EXPORTS_BUCKET", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "ADMIN_SECRETS_PROJECT_ID", ""),
			FallbackFile: stringWithDefault(lookup, "ADMIN_SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
	}

	// Google project ids cascade from the Firebase project when unspecified.
	for _, field := range []*string{&cfg.Firestore.ProjectID, &cfg.PubSub.ProjectID, &cfg.Secrets.ProjectID} {
		if *field == "" {
			*field = cfg.Firebase.ProjectID
		}
	}

	secretFields := []*string{&cfg.Backend.AuthToken, &cfg.Redis.Password, &cfg.AMQP.URL}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Address) == "" {
		invalid = append(invalid, "Server.Address")
	}
	switch cfg.Source.Kind {
	case SourceREST:
		if cfg.Backend.BaseURL == "" {
			invalid = append(invalid, "Backend.BaseURL")
		}
	case SourceFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Source.Kind")
	}
	if cfg.Backend.Timeout <= 0 {
		invalid = append(invalid, "Backend.Timeout")
	}
	if cfg.Backend.MaxRetries < 0 {
		invalid = append(invalid, "Backend.MaxRetries")
	}
	if cfg.Redis.Addr != "" && cfg.Redis.TTL <= 0 {
		invalid = append(invalid, "Redis.TTL")
	}
	if cfg.PubSub.OrderEventsTopic != "" && cfg.PubSub.ProjectID == "" {
		invalid = append(invalid, "PubSub.ProjectID")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !IsSecretReference(value) {
		return value, nil
	}
	normalized := NormalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

// IsSecretReference reports whether value points at Secret Manager.
func IsSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

// NormalizeSecretReference rewrites sm:// references to the canonical secret:// form.
func NormalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
