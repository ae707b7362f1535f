package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	baseURLEnvVar  = "CHATTERM_BASE_URL"
	defaultBaseURL = "http://localhost:8080"
)

// logger goes to a file under the data dir; a TUI owns stdout. It stays a
// no-op until setupLogger runs, so one-shot commands and tests log nothing.
var logger = zerolog.Nop()

// appConfig is the resolved client configuration. The base URL comes from the
// environment first, then the config file, then the default.
type appConfig struct {
	baseURL        string
	requestTimeout time.Duration
	configDir      string
	archivePath    string
	logPath        string
}

type configFile struct {
	BaseURL        string `json:"baseURL"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

func resolveConfig() (appConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return appConfig{}, fmt.Errorf("resolve home dir: %w", err)
	}
	base := filepath.Join(home, ".config", "chatterm")

	cfg := appConfig{
		baseURL:        defaultBaseURL,
		requestTimeout: defaultHTTPTimeout,
		configDir:      base,
		archivePath:    filepath.Join(base, "archive.db"),
		logPath:        filepath.Join(base, "chatterm.log"),
	}

	file, err := readConfigFile(filepath.Join(base, "config.json"))
	if err != nil {
		return appConfig{}, err
	}
	if strings.TrimSpace(file.BaseURL) != "" {
		cfg.baseURL = strings.TrimSpace(file.BaseURL)
	}
	if file.TimeoutSeconds > 0 {
		cfg.requestTimeout = time.Duration(file.TimeoutSeconds) * time.Second
	}

	if env := strings.TrimSpace(os.Getenv(baseURLEnvVar)); env != "" {
		cfg.baseURL = env
	}
	return cfg, nil
}

// readConfigFile tolerates a missing file; anything else is an error so a
// malformed config does not silently fall back to the default endpoint.
func readConfigFile(path string) (configFile, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return configFile{}, nil
	}
	if err != nil {
		return configFile{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var file configFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return configFile{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return file, nil
}

// setupLogger points the package logger at the log file. Failure to open the
// file is reported but not fatal; the caller keeps the no-op logger.
func setupLogger(cfg appConfig) error {
	if err := os.MkdirAll(cfg.configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	out, err := os.OpenFile(cfg.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}
