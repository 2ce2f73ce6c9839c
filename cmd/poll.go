package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/output"
	"firestige.xyz/hbtap/internal/reassembly"
	"firestige.xyz/hbtap/internal/source/rawsock"
)

var (
	pollBind  string
	pollPort  uint16
	pollCount int
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Follow one server port through an IPv4 raw socket",
	Long: `Open an IPv4 raw socket and repeatedly poll it for segments sent from the
monitored port. Ordered data is forwarded to the configured output. Requires
root or CAP_NET_RAW.

Examples:
  sudo hbtap poll                           # 127.0.0.1, port 8000
  sudo hbtap poll --bind 192.168.1.20 -p 9000 -n 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyPollFlags(cmd, cfg)
		if err := revalidate(cfg); err != nil {
			return err
		}
		return runPoll(cfg)
	},
}

func init() {
	pollCmd.Flags().StringVar(&pollBind, "bind", "", "local IPv4 address to bind")
	pollCmd.Flags().Uint16VarP(&pollPort, "port", "p", 0, "server port to follow")
	pollCmd.Flags().IntVarP(&pollCount, "count", "n", 0, "number of polls (0 = until interrupted)")
}

func applyPollFlags(cmd *cobra.Command, cfg *config.GlobalConfig) {
	if cmd.Flags().Changed("bind") {
		cfg.RawSocket.Bind = pollBind
	}
	if cmd.Flags().Changed("port") {
		cfg.RawSocket.Port = pollPort
	}
}

func runPoll(cfg *config.GlobalConfig) error {
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

	sock, err := rawsock.New(cfg.RawSocket, reassembly.Options{MaxPending: cfg.Reassembly.MaxPending}, logger)
	if err != nil {
		if errors.Is(err, core.ErrPermissionDenied) {
			return fmt.Errorf("%w (run as root or grant CAP_NET_RAW)", err)
		}
		return err
	}
	defer sock.Close()

	w, err := output.New(cfg.Output, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	pump := output.NewPumper(w, logger)
	for n := 0; pollCount == 0 || n < pollCount; n++ {
		res := sock.Poll(ctx)
		if ctx.Err() != nil {
			break
		}
		switch res.Kind {
		case reassembly.Data:
			pump.Feed(ctx, res.Bytes())
		case reassembly.NoData:
			if errors.Is(res.Err, core.ErrSocketIO) {
				return res.Err
			}
			logger.Infof("no data available at port %d", cfg.RawSocket.Port)
		default:
			logger.Debugf("seq %d: %s", res.Seq, res.Kind)
		}
	}

	st := sock.Stats()
	logger.WithFields(map[string]interface{}{
		"segments": st.Segments,
		"bytes":    st.EmittedBytes,
		"past":     st.Past,
		"future":   st.Future,
	}).Info("poll finished")
	return nil
}
