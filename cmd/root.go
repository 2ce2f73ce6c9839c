// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/metrics"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hbtap",
	Short: "hbtap - passive TCP stream tap for headband sensor telemetry",
	Long: `hbtap observes the TCP traffic of a sleep headband on the wire and rebuilds
its ordered record stream without taking part in the connection.

Sources:
  - sniff: capture-driven (libpcap, AF_PACKET or a pcap file), many flows
  - poll:  IPv4 raw socket following a single server port

Records can be printed to the console or forwarded to Kafka.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (trace/debug/info/warn/error)")

	rootCmd.AddCommand(sniffCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (*config.GlobalConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// revalidate re-applies validation after command flags changed cfg.
func revalidate(cfg *config.GlobalConfig) error {
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startMetrics starts the metrics server when enabled. The returned stop
// function is always safe to call.
func startMetrics(ctx context.Context, cfg config.MetricsConfig, logger log.Logger) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	srv := metrics.NewServer(cfg.Listen, cfg.Path, logger)
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := srv.Stop(context.Background()); err != nil {
			logger.WithError(err).Warn("metrics server stop failed")
		}
	}, nil
}
