package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultStaticToken is the static SSE secret used when PRAEVISIO_SSE_TOKEN is unset.
const DefaultStaticToken = "demo-token"

// StoreKind selects the token store backend. It is resolved once at startup.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

type Config struct {
	HTTPAddr     string    // PRAEVISIO_HTTP_ADDR (default ":8080")
	StaticToken  string    // PRAEVISIO_SSE_TOKEN (default "demo-token")
	RedisURL     string    // PRAEVISIO_REDIS_URL (optional, empty = in-process store)
	StoreKind    StoreKind // derived from RedisURL
	Env          string    // PRAEVISIO_ENV (default "production"; "test" disables timers)
	SnapshotPath string    // PRAEVISIO_SNAPSHOT_PATH (default "data/vigilance.json")
	EventLimit   int       // PRAEVISIO_EVENT_LIMIT (default 500)
	Autostart    bool      // PRAEVISIO_AUTOSTART (default true)
	NATSURL      string    // PRAEVISIO_NATS_URL (optional, empty = no external events)
	TuningFile   string    // PRAEVISIO_TUNING_FILE (optional TOML overrides)

	// Token settings
	TokenSweepInterval time.Duration // PRAEVISIO_TOKEN_SWEEP_INTERVAL (default 60s)
	TokenRateLimit     int           // PRAEVISIO_TOKEN_RATE_LIMIT (default 5)
	TokenRateWindow    time.Duration // PRAEVISIO_TOKEN_RATE_WINDOW (default 1m)

	// Snapshot mirror settings
	MirrorInterval   time.Duration // PRAEVISIO_MIRROR_INTERVAL (default 5m; 0 = disabled)
	MirrorS3Bucket   string        // PRAEVISIO_MIRROR_S3_BUCKET (enables S3 when set)
	MirrorS3Endpoint string        // PRAEVISIO_MIRROR_S3_ENDPOINT (custom endpoint for MinIO)
	MirrorS3Region   string        // PRAEVISIO_MIRROR_S3_REGION (default "us-east-1")
	MirrorS3Key      string        // PRAEVISIO_MIRROR_S3_KEY (default "praevisio/vigilance.json")
	MirrorGitRepo    string        // PRAEVISIO_MIRROR_GIT_REPO (enables git when set; path to clone)
	MirrorGitFile    string        // PRAEVISIO_MIRROR_GIT_FILE (default "vigilance.json")
	MirrorGitBranch  string        // PRAEVISIO_MIRROR_GIT_BRANCH (default "main")

	Tuning Tuning
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:         envOrDefault("PRAEVISIO_HTTP_ADDR", ":8080"),
		StaticToken:      envOrDefault("PRAEVISIO_SSE_TOKEN", DefaultStaticToken),
		RedisURL:         os.Getenv("PRAEVISIO_REDIS_URL"),
		Env:              envOrDefault("PRAEVISIO_ENV", "production"),
		SnapshotPath:     envOrDefault("PRAEVISIO_SNAPSHOT_PATH", "data/vigilance.json"),
		NATSURL:          os.Getenv("PRAEVISIO_NATS_URL"),
		TuningFile:       os.Getenv("PRAEVISIO_TUNING_FILE"),
		MirrorS3Bucket:   os.Getenv("PRAEVISIO_MIRROR_S3_BUCKET"),
		MirrorS3Endpoint: os.Getenv("PRAEVISIO_MIRROR_S3_ENDPOINT"),
		MirrorS3Region:   envOrDefault("PRAEVISIO_MIRROR_S3_REGION", "us-east-1"),
		MirrorS3Key:      envOrDefault("PRAEVISIO_MIRROR_S3_KEY", "praevisio/vigilance.json"),
		MirrorGitRepo:    os.Getenv("PRAEVISIO_MIRROR_GIT_REPO"),
		MirrorGitFile:    envOrDefault("PRAEVISIO_MIRROR_GIT_FILE", "vigilance.json"),
		MirrorGitBranch:  envOrDefault("PRAEVISIO_MIRROR_GIT_BRANCH", "main"),
	}

	c.StoreKind = StoreMemory
	if c.RedisURL != "" {
		c.StoreKind = StoreRedis
	}

	var err error
	if c.EventLimit, err = envInt("PRAEVISIO_EVENT_LIMIT", 500); err != nil {
		return nil, err
	}
	if c.EventLimit <= 0 {
		return nil, fmt.Errorf("PRAEVISIO_EVENT_LIMIT must be positive, got %d", c.EventLimit)
	}
	if c.TokenRateLimit, err = envInt("PRAEVISIO_TOKEN_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if c.TokenRateLimit <= 0 {
		return nil, fmt.Errorf("PRAEVISIO_TOKEN_RATE_LIMIT must be positive, got %d", c.TokenRateLimit)
	}
	if c.Autostart, err = envBool("PRAEVISIO_AUTOSTART", true); err != nil {
		return nil, err
	}
	if c.TokenSweepInterval, err = envDuration("PRAEVISIO_TOKEN_SWEEP_INTERVAL", "60s"); err != nil {
		return nil, err
	}
	if c.TokenRateWindow, err = envDuration("PRAEVISIO_TOKEN_RATE_WINDOW", "1m"); err != nil {
		return nil, err
	}
	if c.TokenRateWindow <= 0 {
		return nil, fmt.Errorf("PRAEVISIO_TOKEN_RATE_WINDOW must be positive")
	}
	if c.MirrorInterval, err = envDuration("PRAEVISIO_MIRROR_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	c.Tuning = DefaultTuning()
	if c.TuningFile != "" {
		t, err := LoadTuning(c.TuningFile)
		if err != nil {
			return nil, err
		}
		c.Tuning = t
	}

	return c, nil
}

// TestMode reports whether background timers must stay off.
func (c *Config) TestMode() bool {
	return strings.EqualFold(c.Env, "test")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
