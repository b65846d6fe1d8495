// Package cli implements the ochotona command line: one command group per entity
// driving its Entity Store, plus the mock-api backend.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ochotona/internal/config"
	"ochotona/internal/entities"
	"ochotona/internal/infrastructure/http/client"
	"ochotona/internal/infrastructure/metrics"
	"ochotona/pkg/logger"
)

var (
	// Version is injected during build
	Version = "dev"
)

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	apiURL     string
	configFile string
	envFile    string
	logLevel   string
	timeout    time.Duration
	json       bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags

	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	stores   *entities.Stores

	out    io.Writer
	errOut io.Writer
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ochotona",
		Short: "ochotona manages products, storages, storage rooms and stock positions",
		Long: `ochotona keeps a local view of the inventory entities of a REST backend.

Every entity command reads or writes one collection under {api-url}/api.
Configuration can be provided via flags, environment variables (OCHOTONA_API_URL,
OCHOTONA_TIMEOUT, LOG_LEVEL, APP_ENV), a .env file or a YAML configuration file.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.apiURL, "api-url", config.DefaultAPIURL, "Backend base URL")
	pf.StringVarP(&a.flags.configFile, "config", "c", "", "YAML configuration file")
	pf.StringVar(&a.flags.envFile, "env-file", config.DefaultEnvFile, "dotenv file read when present")
	pf.StringVar(&a.flags.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.DurationVar(&a.flags.timeout, "timeout", config.DefaultTimeout, "HTTP request timeout")
	pf.BoolVar(&a.flags.json, "json", false, "Output results in JSON format")

	root.AddCommand(
		newEntityCommand(a, productsForm()),
		newEntityCommand(a, storageForm()),
		newEntityCommand(a, storageRoomForm()),
		newEntityCommand(a, stockPositionForm()),
		newStatusCommand(a),
		newMockAPICommand(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup resolves configuration and builds the logger and the entity stores.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.flags.configFile,
		EnvFile:    a.flags.envFile,
	})
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	fromFlags := &config.Config{}
	if flags.Changed("api-url") {
		fromFlags.APIURL = a.flags.apiURL
	}
	if flags.Changed("log-level") {
		fromFlags.LogLevel = a.flags.logLevel
	}
	if flags.Changed("timeout") {
		fromFlags.Timeout = a.flags.timeout
	}
	cfg.Merge(fromFlags, config.SourceFlag)
	if flags.Changed("json") {
		cfg.SetJSON(a.flags.json, config.SourceFlag)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	clientMetrics, err := metrics.NewClientMetrics(a.registry)
	if err != nil {
		return err
	}
	storeMetrics, err := metrics.NewStoreMetrics(a.registry)
	if err != nil {
		return err
	}

	a.stores, err = entities.NewAggregator(entities.Options{
		BaseURL:       cfg.APIURL,
		HTTPClient:    client.NewHTTPClient(cfg.Timeout),
		Logger:        a.log,
		ClientMetrics: clientMetrics,
		StoreMetrics:  storeMetrics,
	})
	if err != nil {
		return err
	}
	a.log.Debugw("configuration resolved", "api_url", cfg.APIURL, "sources", cfg.Sources)
	return nil
}

// teardown lets background refreshes finish before the process exits.
func (a *app) teardown() {
	if a.stores != nil {
		a.stores.Wait()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
