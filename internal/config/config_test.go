package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envListenAddr, "")
	t.Setenv(envDBPath, "")
	t.Setenv(envCatalogPath, "")
	t.Setenv(envInstallDir, "")
	t.Setenv(envFetchTimeoutS, "")
	t.Setenv(envLogLevel, "")

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.CatalogPath != defaultCatalogPath {
		t.Errorf("CatalogPath = %q, want %q", cfg.CatalogPath, defaultCatalogPath)
	}
	if cfg.InstallDir != defaultInstallDir {
		t.Errorf("InstallDir = %q, want %q", cfg.InstallDir, defaultInstallDir)
	}
	if cfg.FetchTimeout != defaultFetchTimeoutS*time.Second {
		t.Errorf("FetchTimeout = %v, want %v", cfg.FetchTimeout, defaultFetchTimeoutS*time.Second)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envCatalogPath, "/tmp/games.json")
	t.Setenv(envInstallDir, "/tmp/games")
	t.Setenv(envFetchTimeoutS, "5")
	t.Setenv(envLogLevel, "debug")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.CatalogPath != "/tmp/games.json" {
		t.Errorf("CatalogPath = %q, want %q", cfg.CatalogPath, "/tmp/games.json")
	}
	if cfg.InstallDir != "/tmp/games" {
		t.Errorf("InstallDir = %q, want %q", cfg.InstallDir, "/tmp/games")
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want %v", cfg.FetchTimeout, 5*time.Second)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
}

func TestLoadIgnoresInvalidFetchTimeout(t *testing.T) {
	t.Setenv(envFetchTimeoutS, "not-a-number")
	cfg := Load()
	if cfg.FetchTimeout != defaultFetchTimeoutS*time.Second {
		t.Errorf("FetchTimeout = %v, want default %v", cfg.FetchTimeout, defaultFetchTimeoutS*time.Second)
	}

	t.Setenv(envFetchTimeoutS, "-3")
	cfg = Load()
	if cfg.FetchTimeout != defaultFetchTimeoutS*time.Second {
		t.Errorf("FetchTimeout = %v, want default %v", cfg.FetchTimeout, defaultFetchTimeoutS*time.Second)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
}
