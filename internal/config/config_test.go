package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := fromLookup(Default(), lookupFrom(map[string]string{
		"BIZEXTRACT_API_URL":       "https://api.example.com/api/",
		"BIZEXTRACT_TOKEN":         "abc",
		"BIZEXTRACT_PAGE_SIZE":     "25",
		"BIZEXTRACT_POLL_INTERVAL": "500ms",
		"BIZEXTRACT_CHROME_TLS":    "true",
		"BIZEXTRACT_DATA_DIR":      "/tmp/biz",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api", cfg.APIURL)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.ChromeTLS)
	assert.Equal(t, "/tmp/biz/bizextract.log", cfg.ResolvedLogPath())
}

func TestFromLookupRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"page size", "BIZEXTRACT_PAGE_SIZE", "many"},
		{"interval", "BIZEXTRACT_POLL_INTERVAL", "soon"},
		{"chrome tls", "BIZEXTRACT_CHROME_TLS", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromLookup(Default(), lookupFrom(map[string]string{tt.key: tt.val}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad url", func(c *Config) { c.APIURL = "not a url" }, "APIURL"},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "PageSize"},
		{"interval too small", func(c *Config) { c.PollInterval = time.Millisecond }, "PollInterval"},
		{"bad proxy", func(c *Config) { c.ProxyURL = "::" }, "ProxyURL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
