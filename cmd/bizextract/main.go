// Command bizextract is the terminal client for the business-extractor API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/logging"
	"github.com/egemenmermer/business-extractor/internal/tui"
	"github.com/egemenmermer/business-extractor/internal/tui/views"
)

var version = "dev"

var flags struct {
	apiURL       string
	token        string
	dataDir      string
	logPath      string
	debug        bool
	pageSize     int
	pollInterval string
	timeout      string
	chromeTLS    bool
	proxy        string
}

var rootCmd = &cobra.Command{
	Use:   "bizextract",
	Short: "Business data extraction dashboard",
	Long: `bizextract submits category × location scraping jobs to the business-extractor
API, tracks their progress and browses the stored results.

Run without a subcommand to launch the interactive dashboard.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "API base URL (env BIZEXTRACT_API_URL)")
	pf.StringVar(&flags.token, "token", "", "Bearer token (env BIZEXTRACT_TOKEN)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Directory for logs, snapshots and recent searches (env BIZEXTRACT_DATA_DIR)")
	pf.StringVar(&flags.logPath, "log", "", "Log file path (default <data-dir>/bizextract.log)")
	pf.BoolVar(&flags.debug, "debug", false, "Log at debug level")
	pf.IntVar(&flags.pageSize, "page-size", 0, "Catalog page size")
	pf.StringVar(&flags.pollInterval, "poll-interval", "", "Job polling interval, e.g. 2s")
	pf.StringVar(&flags.timeout, "timeout", "", "HTTP request timeout, e.g. 15s")
	pf.BoolVar(&flags.chromeTLS, "chrome-tls", false, "Present a Chrome TLS fingerprint")
	pf.StringVar(&flags.proxy, "proxy", "", "HTTP proxy URL")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	engine, cleanup, err := newEngine(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	views.Version = version
	return tui.Run(engine)
}

// newEngine resolves the configuration and builds the engine. Headless
// commands also log warnings to stderr; the TUI logs to the file only.
func newEngine(cmd *cobra.Command, headless bool) (*app.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	newLogger := logging.NewFile
	if headless {
		newLogger = logging.NewHeadless
	}
	logger, err := newLogger(cfg.ResolvedLogPath(), cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	logger.Info("session start",
		zap.String("version", version),
		zap.String("command", cmd.Name()),
		zap.String("api_url", cfg.APIURL),
	)

	engine, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := engine.Close(); err != nil {
			logger.Warn("closing engine", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return engine, cleanup, nil
}
