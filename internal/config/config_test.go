package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// allEnvVars lists every variable Load reads; cleared between tests.
var allEnvVars = []string{
	"PRAEVISIO_HTTP_ADDR", "PRAEVISIO_SSE_TOKEN", "PRAEVISIO_REDIS_URL", "PRAEVISIO_ENV",
	"PRAEVISIO_SNAPSHOT_PATH", "PRAEVISIO_EVENT_LIMIT", "PRAEVISIO_AUTOSTART", "PRAEVISIO_NATS_URL",
	"PRAEVISIO_TUNING_FILE", "PRAEVISIO_TOKEN_SWEEP_INTERVAL", "PRAEVISIO_TOKEN_RATE_LIMIT",
	"PRAEVISIO_TOKEN_RATE_WINDOW", "PRAEVISIO_MIRROR_INTERVAL", "PRAEVISIO_MIRROR_S3_BUCKET",
	"PRAEVISIO_MIRROR_S3_ENDPOINT", "PRAEVISIO_MIRROR_S3_REGION", "PRAEVISIO_MIRROR_S3_KEY",
	"PRAEVISIO_MIRROR_GIT_REPO", "PRAEVISIO_MIRROR_GIT_FILE", "PRAEVISIO_MIRROR_GIT_BRANCH",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name          string
		env           map[string]string
		wantErr       bool
		wantHTTPAddr  string
		wantToken     string
		wantStoreKind StoreKind
		wantTestMode  bool
	}{
		{
			name:          "Defaults",
			env:           map[string]string{},
			wantHTTPAddr:  ":8080",
			wantToken:     "demo-token",
			wantStoreKind: StoreMemory,
		},
		{
			name: "RedisSelectsRemoteStore",
			env: map[string]string{
				"PRAEVISIO_REDIS_URL": "redis://localhost:6379/0",
				"PRAEVISIO_SSE_TOKEN": "s3cret",
				"PRAEVISIO_HTTP_ADDR": ":3000",
			},
			wantHTTPAddr:  ":3000",
			wantToken:     "s3cret",
			wantStoreKind: StoreRedis,
		},
		{
			name:          "TestMode",
			env:           map[string]string{"PRAEVISIO_ENV": "TEST"},
			wantHTTPAddr:  ":8080",
			wantToken:     "demo-token",
			wantStoreKind: StoreMemory,
			wantTestMode:  true,
		},
		{
			name:    "BadEventLimit",
			env:     map[string]string{"PRAEVISIO_EVENT_LIMIT": "lots"},
			wantErr: true,
		},
		{
			name:    "ZeroEventLimit",
			env:     map[string]string{"PRAEVISIO_EVENT_LIMIT": "0"},
			wantErr: true,
		},
		{
			name:    "BadSweepInterval",
			env:     map[string]string{"PRAEVISIO_TOKEN_SWEEP_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "BadAutostart",
			env:     map[string]string{"PRAEVISIO_AUTOSTART": "maybe"},
			wantErr: true,
		},
		{
			name:    "MissingTuningFile",
			env:     map[string]string{"PRAEVISIO_TUNING_FILE": "/nonexistent/tuning.toml"},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.StaticToken != tc.wantToken {
				t.Errorf("StaticToken = %q, want %q", cfg.StaticToken, tc.wantToken)
			}
			if cfg.StoreKind != tc.wantStoreKind {
				t.Errorf("StoreKind = %q, want %q", cfg.StoreKind, tc.wantStoreKind)
			}
			if cfg.TestMode() != tc.wantTestMode {
				t.Errorf("TestMode() = %v, want %v", cfg.TestMode(), tc.wantTestMode)
			}
		})
	}
}

func TestLoadNumericDefaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EventLimit != 500 {
		t.Errorf("EventLimit = %d, want 500", cfg.EventLimit)
	}
	if cfg.TokenRateLimit != 5 {
		t.Errorf("TokenRateLimit = %d, want 5", cfg.TokenRateLimit)
	}
	if cfg.TokenRateWindow != time.Minute {
		t.Errorf("TokenRateWindow = %v, want 1m", cfg.TokenRateWindow)
	}
	if cfg.TokenSweepInterval != time.Minute {
		t.Errorf("TokenSweepInterval = %v, want 1m", cfg.TokenSweepInterval)
	}
	if cfg.MirrorInterval != 5*time.Minute {
		t.Errorf("MirrorInterval = %v, want 5m", cfg.MirrorInterval)
	}
	if !cfg.Autostart {
		t.Error("Autostart = false, want true")
	}
	if cfg.SnapshotPath != "data/vigilance.json" {
		t.Errorf("SnapshotPath = %q, want %q", cfg.SnapshotPath, "data/vigilance.json")
	}
	if cfg.MirrorS3Region != "us-east-1" {
		t.Errorf("MirrorS3Region = %q, want %q", cfg.MirrorS3Region, "us-east-1")
	}
	if cfg.MirrorGitBranch != "main" {
		t.Errorf("MirrorGitBranch = %q, want %q", cfg.MirrorGitBranch, "main")
	}
}

func TestDefaultTuningOrdering(t *testing.T) {
	tun := DefaultTuning()
	if err := tun.Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	if tun.Prophecy.Period.Duration >= tun.Preservation.Period.Duration {
		t.Errorf("prophecy period %v should be shorter than preservation %v",
			tun.Prophecy.Period.Duration, tun.Preservation.Period.Duration)
	}
	if tun.Preservation.Period.Duration >= tun.Knowledge.Period.Duration {
		t.Errorf("preservation period %v should be shorter than knowledge %v",
			tun.Preservation.Period.Duration, tun.Knowledge.Period.Duration)
	}
}

func TestLoadTuningOverlay(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), "tuning.toml")
	content := `
[prophecy]
period = "750ms"
alert_threshold = 80

[knowledge]
discovery_probability = 1.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRAEVISIO_TUNING_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tuning.Prophecy.Period.Duration != 750*time.Millisecond {
		t.Errorf("prophecy period = %v, want 750ms", cfg.Tuning.Prophecy.Period.Duration)
	}
	if cfg.Tuning.Prophecy.AlertThreshold != 80 {
		t.Errorf("alert threshold = %v, want 80", cfg.Tuning.Prophecy.AlertThreshold)
	}
	if cfg.Tuning.Knowledge.DiscoveryProbability != 1.0 {
		t.Errorf("discovery probability = %v, want 1", cfg.Tuning.Knowledge.DiscoveryProbability)
	}
	// Untouched keys keep their defaults.
	if cfg.Tuning.Prophecy.MaxDelta != 5 {
		t.Errorf("max delta = %v, want default 5", cfg.Tuning.Prophecy.MaxDelta)
	}
	if cfg.Tuning.Preservation.Period.Duration != 5*time.Second {
		t.Errorf("preservation period = %v, want default 5s", cfg.Tuning.Preservation.Period.Duration)
	}
}

func TestLoadTuningRejectsInvalid(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{"NegativePeriod", "[knowledge]\nperiod = \"-1s\"\n"},
		{"ProbabilityAboveOne", "[preservation]\nhealing_probability = 1.5\n"},
		{"NegativeDelta", "[prophecy]\nmax_delta = -2.0\n"},
		{"BadDuration", "[prophecy]\nperiod = \"often\"\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tuning.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadTuning(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
