// Package config loads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvLogJSON      = "LOG_JSON"
	EnvLogLevel     = "LOG_LEVEL"
	EnvDatabase     = "ONBOARDING_DB"
	EnvFlow         = "ONBOARDING_FLOW"
	EnvUserID       = "ONBOARDING_USER_ID"
	EnvEnvironment  = "ONBOARDING_ENV"
	EnvGraphQLURL   = "GRAPHQL_URL"
	EnvGraphQLToken = "GRAPHQL_TOKEN"
	EnvGraphQLTries = "GRAPHQL_MAX_TRIES"
	EnvOTelEnabled  = "OTEL_ENABLED"
	EnvOTelEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	EnvOTelTimeout  = "OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"
	EnvOTelService  = "OTEL_SERVICE_NAME"
)

const (
	defaultDatabase    = "onboarding.db"
	defaultUserID      = "local-user"
	defaultMaxTries    = 4
	defaultService     = "onboarding"
	defaultOTelTimeout = 5 * time.Second
)

// Errors.
var (
	ErrInvalidValue = errors.New("invalid environment value")
	ErrEnvFile      = errors.New("env file could not be read")
)

// Config is the resolved process configuration.
type Config struct {
	LogJSON  bool
	LogLevel slog.Level

	// Database is the SQLite path. ":memory:" keeps everything in process.
	Database string
	// FlowPath points at a flow YAML file. Empty means the built-in flow.
	FlowPath string
	UserID   string

	GraphQLURL      string
	GraphQLToken    string
	GraphQLMaxTries int

	Environment  string
	OTelEnabled  bool
	OTelEndpoint string
	OTelTimeout  time.Duration
	ServiceName  string
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	envFiles []string
	lookup   func(string) (string, bool)
}

// WithEnvFile seeds unset variables from a .env file. A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFiles = append(l.envFiles, path)
	}
}

// WithLookup replaces os.LookupEnv, mostly for tests.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		if lookup != nil {
			l.lookup = lookup
		}
	}
}

// Load resolves the configuration. Real environment variables win over
// values from env files; earlier files win over later ones.
func Load(opts ...Option) (*Config, error) {
	l := &loader{lookup: os.LookupEnv}

	for _, opt := range opts {
		opt(l)
	}

	fileVars := make(map[string]string)

	for _, path := range l.envFiles {
		vars, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrEnvFile, path, err)
		}

		for key, value := range vars {
			if _, seen := fileVars[key]; !seen {
				fileVars[key] = value
			}
		}
	}

	env := reader{lookup: l.lookup, fallback: fileVars}

	cfg := &Config{
		LogJSON:         env.bool(EnvLogJSON, false),
		LogLevel:        env.level(EnvLogLevel, slog.LevelInfo),
		Database:        env.string(EnvDatabase, defaultDatabase),
		FlowPath:        env.string(EnvFlow, ""),
		UserID:          env.string(EnvUserID, defaultUserID),
		GraphQLURL:      env.url(EnvGraphQLURL),
		GraphQLToken:    env.string(EnvGraphQLToken, ""),
		GraphQLMaxTries: env.int(EnvGraphQLTries, defaultMaxTries),
		Environment:     env.string(EnvEnvironment, "local"),
		OTelEnabled:     env.bool(EnvOTelEnabled, false),
		OTelEndpoint:    env.url(EnvOTelEndpoint),
		OTelTimeout:     env.duration(EnvOTelTimeout, defaultOTelTimeout),
		ServiceName:     env.string(EnvOTelService, defaultService),
	}

	if env.err != nil {
		return nil, env.err
	}

	return cfg, nil
}

// reader records the first parse failure so Load can report it once.
type reader struct {
	lookup   func(string) (string, bool)
	fallback map[string]string
	err      error
}

func (r *reader) raw(key string) (string, bool) {
	value, ok := r.lookup(key)
	if !ok {
		value, ok = r.fallback[key]
	}

	value = strings.TrimSpace(value)

	return value, ok && value != ""
}

func (r *reader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, value, err)
	}
}

func (r *reader) string(key, def string) string {
	value, ok := r.raw(key)
	if !ok {
		return def
	}

	return value
}

func (r *reader) bool(key string, def bool) bool {
	value, ok := r.raw(key)
	if !ok {
		return def
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, err)

		return def
	}

	return parsed
}

func (r *reader) int(key string, def int) int {
	value, ok := r.raw(key)
	if !ok {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)

		return def
	}

	return parsed
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	value, ok := r.raw(key)
	if !ok {
		return def
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value, err)

		return def
	}

	return parsed
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	value, ok := r.raw(key)
	if !ok {
		return def
	}

	var level slog.Level

	err := level.UnmarshalText([]byte(value))
	if err != nil {
		r.fail(key, value, err)

		return def
	}

	return level
}

func (r *reader) url(key string) string {
	value, ok := r.raw(key)
	if !ok {
		return ""
	}

	parsed, err := url.Parse(value)
	if err != nil {
		r.fail(key, value, err)

		return ""
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		r.fail(key, value, fmt.Errorf("unsupported scheme %q", parsed.Scheme))

		return ""
	}

	return value
}
