package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/simulator"
)

var (
	simulateListen string
	simulateRate   int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve synthetic headband records over TCP",
	Long: `Start a TCP server that behaves like the headband: after a client sends
HELLO it streams one D.06 record per sample at the configured rate.

Examples:
  hbtap simulate                            # 0.0.0.0:8000, 256 samples/s
  hbtap simulate --listen 127.0.0.1:8000 --rate 128`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.Simulator.Listen = simulateListen
		}
		if cmd.Flags().Changed("rate") {
			cfg.Simulator.SampleRate = simulateRate
		}
		if err := revalidate(cfg); err != nil {
			return err
		}

		logger, err := log.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()
		return simulator.NewServer(cfg.Simulator, logger).Serve(ctx)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateListen, "listen", "", "listen address")
	simulateCmd.Flags().IntVar(&simulateRate, "rate", 0, "samples per second")
}
