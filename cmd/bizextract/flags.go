package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/egemenmermer/business-extractor/internal/config"
)

// loadConfig overlays explicitly set persistent flags on the environment
// configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	set := cmd.Flags().Changed
	if set("api-url") {
		cfg.APIURL = strings.TrimRight(flags.apiURL, "/")
	}
	if set("token") {
		cfg.Token = flags.token
	}
	if set("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if set("log") {
		cfg.LogPath = flags.logPath
	}
	if set("debug") {
		cfg.Debug = flags.debug
	}
	if set("page-size") {
		cfg.PageSize = flags.pageSize
	}
	if set("poll-interval") {
		d, err := time.ParseDuration(flags.pollInterval)
		if err != nil {
			return cfg, fmt.Errorf("--poll-interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if set("timeout") {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil {
			return cfg, fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if set("chrome-tls") {
		cfg.ChromeTLS = flags.chromeTLS
	}
	if set("proxy") {
		cfg.ProxyURL = flags.proxy
	}

	return cfg, cfg.Validate()
}
