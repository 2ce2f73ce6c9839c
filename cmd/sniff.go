package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/output"
	"firestige.xyz/hbtap/internal/source/sniffer"
)

var (
	sniffInterface string
	sniffFilter    string
	sniffEngine    string
	sniffFile      string
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Capture traffic and print the reassembled record stream",
	Long: `Run the capture-driven source. Every TCP connection opened towards the
monitored port is reassembled and its records are forwarded to the configured
output until interrupted, or until the end of a capture file.

Examples:
  hbtap sniff -i eth0                       # live capture with libpcap
  hbtap sniff -i eth0 --engine afpacket     # live capture with AF_PACKET
  hbtap sniff -r session.pcap               # offline replay
  hbtap sniff -c hbtap.yml -f "tcp port 9000"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applySniffFlags(cmd, cfg)
		if err := revalidate(cfg); err != nil {
			return err
		}
		return runSniff(cfg)
	},
}

func init() {
	sniffCmd.Flags().StringVarP(&sniffInterface, "interface", "i", "", "capture interface")
	sniffCmd.Flags().StringVarP(&sniffFilter, "filter", "f", "", "BPF filter expression")
	sniffCmd.Flags().StringVar(&sniffEngine, "engine", "", "capture engine (pcap/afpacket/file)")
	sniffCmd.Flags().StringVarP(&sniffFile, "read", "r", "", "replay a pcap file (implies --engine file)")
}

func applySniffFlags(cmd *cobra.Command, cfg *config.GlobalConfig) {
	if cmd.Flags().Changed("interface") {
		cfg.Capture.Interface = sniffInterface
	}
	if cmd.Flags().Changed("filter") {
		cfg.Capture.Filter = sniffFilter
	}
	if cmd.Flags().Changed("engine") {
		cfg.Capture.Engine = sniffEngine
	}
	if cmd.Flags().Changed("read") {
		cfg.Capture.Engine = config.EngineFile
		cfg.Capture.File = sniffFile
	}
}

func runSniff(cfg *config.GlobalConfig) error {
	logger, err := log.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	stopMetrics, err := startMetrics(ctx, cfg.Metrics, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	w, err := output.New(cfg.Output, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	s := sniffer.New(sniffer.Options{
		Capture:      cfg.Capture,
		MaxPending:   cfg.Reassembly.MaxPending,
		PollInterval: cfg.Sink.PollInterval,
	}, logger)
	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	pump := output.NewPumper(w, logger)
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		pump.Pump(ctx, s)
	}()

	select {
	case <-ctx.Done():
		logger.Info("interrupted, stopping capture")
	case <-s.Done():
	}

	// Records already queued are forwarded before exit.
	loopErr := s.Stop()
	<-pumped
	pump.Pump(context.Background(), &drained{chunks: s.Drain()})
	pump.Flush(context.Background())
	return loopErr
}

// drained replays leftover chunks to a Pumper.
type drained struct {
	chunks [][]byte
}

func (d *drained) ReadLine(context.Context) ([]byte, bool) {
	if len(d.chunks) == 0 {
		return nil, false
	}
	c := d.chunks[0]
	d.chunks = d.chunks[1:]
	return c, true
}
