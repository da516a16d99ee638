package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":8080"
	defaultDBPath        = "launcherd.db"
	defaultCatalogPath   = "games.json"
	defaultInstallDir    = "Games"
	defaultFetchTimeoutS = 30

	envListenAddr    = "LAUNCHERD_LISTEN_ADDR"
	envDBPath        = "LAUNCHERD_DB_PATH"
	envCatalogPath   = "LAUNCHERD_CATALOG_PATH"
	envInstallDir    = "LAUNCHERD_INSTALL_DIR"
	envFetchTimeoutS = "LAUNCHERD_FETCH_TIMEOUT_S"
	envLogLevel      = "LAUNCHERD_LOG_LEVEL"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr   string
	DBPath       string
	CatalogPath  string
	InstallDir   string
	FetchTimeout time.Duration
	LogLevel     slog.Level
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:   defaultListenAddr,
		DBPath:       defaultDBPath,
		CatalogPath:  defaultCatalogPath,
		InstallDir:   defaultInstallDir,
		FetchTimeout: defaultFetchTimeoutS * time.Second,
		LogLevel:     slog.LevelInfo,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envCatalogPath); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv(envInstallDir); v != "" {
		cfg.InstallDir = v
	}
	if v := os.Getenv(envFetchTimeoutS); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.FetchTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
