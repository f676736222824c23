// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the process win over it. Every value has a
// default except JWT_SECRET.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port int

	DBPath      string
	DatabaseURL string

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool
	CORSOrigins  []string

	PhotoDir       string
	PhotoBucket    string
	AWSRegion      string
	LabelDetection bool
	MaxUploadBytes int64

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	LogLevel  slog.Level
	LogFormat string
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Errors for every bad
// variable are reported together.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Port:               p.int("PORT", 8080),
		DBPath:             p.string("DB_PATH", "data/fitlog.db"),
		DatabaseURL:        p.string("DATABASE_URL", ""),
		JWTSecret:          p.string("JWT_SECRET", ""),
		SessionTTL:         p.duration("SESSION_TTL", 7*24*time.Hour),
		CookieSecure:       p.bool("COOKIE_SECURE", false),
		CORSOrigins:        p.list("CORS_ORIGINS", []string{"*"}),
		PhotoDir:           p.string("PHOTO_DIR", "data/photos"),
		PhotoBucket:        p.string("PHOTO_BUCKET", ""),
		AWSRegion:          p.string("AWS_REGION", ""),
		LabelDetection:     p.bool("LABEL_DETECTION", false),
		MaxUploadBytes:     int64(p.int("MAX_UPLOAD_BYTES", 10<<20)),
		GitHubClientID:     p.string("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: p.string("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  p.string("GITHUB_CALLBACK_URL", ""),
		LogLevel:           p.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:          strings.ToLower(p.string("LOG_FORMAT", "text")),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		p.fail("PORT", "must be between 1 and 65535")
	}
	if len(cfg.JWTSecret) < 16 {
		p.fail("JWT_SECRET", "must be set and at least 16 characters")
	}
	if cfg.SessionTTL <= 0 {
		p.fail("SESSION_TTL", "must be positive")
	}
	if cfg.MaxUploadBytes <= 0 {
		p.fail("MAX_UPLOAD_BYTES", "must be positive")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		p.fail("LOG_FORMAT", "must be text or json")
	}
	if cfg.LabelDetection && cfg.AWSRegion == "" {
		p.fail("AWS_REGION", "is required when LABEL_DETECTION is on")
	}
	if cfg.PhotoBucket != "" && cfg.AWSRegion == "" {
		p.fail("AWS_REGION", "is required when PHOTO_BUCKET is set")
	}
	if cfg.GitHubEnabled() && cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) fail(key, msg string) {
	p.errs = append(p.errs, fmt.Errorf("config: %s %s", key, msg))
}

func (p *parser) string(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not an integer: %q", v))
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not a boolean: %q", v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("is not a duration: %q", v))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, fmt.Sprintf("is not a log level: %q", v))
		return def
	}
	return l
}
