// Package config resolves client settings from defaults, the environment
// (optionally seeded from a .env file) and command-line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const envPrefix = "BIZEXTRACT_"

// Config holds everything the engine and the front-ends need.
type Config struct {
	APIURL       string        `validate:"required,url"`
	Token        string
	PageSize     int           `validate:"min=1,max=500"`
	PollInterval time.Duration `validate:"min=100ms"`
	Timeout      time.Duration `validate:"min=1s"`
	ChromeTLS    bool
	ProxyURL     string `validate:"omitempty,url"`
	DataDir      string `validate:"required"`
	LogPath      string
	Debug        bool
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	dataDir := filepath.Join(dir, "bizextract")
	return Config{
		APIURL:       "http://localhost:8080/api",
		PageSize:     50,
		PollInterval: 2 * time.Second,
		Timeout:      15 * time.Second,
		DataDir:      dataDir,
	}
}

// FromEnv overlays BIZEXTRACT_* variables on top of Default. Malformed
// numeric or duration values are reported rather than silently ignored.
func FromEnv() (Config, error) {
	return fromLookup(Default(), os.LookupEnv)
}

func fromLookup(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) (string, bool) {
		v, ok := lookup(envPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("API_URL"); ok {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("TOKEN"); ok {
		cfg.Token = v
	}
	if v, ok := get("PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%sPAGE_SIZE: %w", envPrefix, err)
		}
		cfg.PageSize = n
	}
	if v, ok := get("POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%sPOLL_INTERVAL: %w", envPrefix, err)
		}
		cfg.PollInterval = d
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		cfg.Timeout = d
	}
	if v, ok := get("CHROME_TLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%sCHROME_TLS: %w", envPrefix, err)
		}
		cfg.ChromeTLS = b
	}
	if v, ok := get("PROXY"); ok {
		cfg.ProxyURL = v
	}
	if v, ok := get("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := get("LOG"); ok {
		cfg.LogPath = v
	}
	if v, ok := get("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%sDEBUG: %w", envPrefix, err)
		}
		cfg.Debug = b
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and returns the first violations in a
// single readable error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ResolvedLogPath is LogPath, or bizextract.log inside DataDir.
func (c Config) ResolvedLogPath() string {
	if c.LogPath != "" {
		return c.LogPath
	}
	return filepath.Join(c.DataDir, "bizextract.log")
}

// SnapshotDir is where saved job snapshots are written by default.
func (c Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}
