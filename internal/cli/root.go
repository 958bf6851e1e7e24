package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ragrec/config"
	"ragrec/internal/logging"
	"ragrec/internal/metrics"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	logLevel  string
	logFormat string

	stopMetrics context.CancelFunc = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "ragrec",
	Short: "Retrieval-augmented product recommendations",
	Long: `ragrec recommends catalog items by combining a shopper's stated preferences
with their browsing history. Candidates are narrowed with attribute filters and
vector similarity, then ranked and explained by a generative model.

Example usage:
  ragrec warm                                  # Precompute item embeddings
  ragrec recommend --history p12,p7 --category Electronics
  ragrec candidates --request request.yaml     # Inspect the retrieval step
  ragrec catalog search --category Books --sort price`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})

		if cfg.Metrics.Addr != "" {
			var ctx context.Context
			ctx, stopMetrics = context.WithCancel(cmd.Context())
			go func() {
				if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
					logging.Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint stopped")
				}
			}()
			logging.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopMetrics()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragrec.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
