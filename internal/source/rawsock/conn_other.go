//go:build !linux

package rawsock

import (
	"fmt"
	"net/netip"
	"runtime"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/log"
)

func openConn(config.RawSocketConfig, log.Logger) (packetConn, netip.Addr, error) {
	return nil, netip.Addr{}, fmt.Errorf("%w: raw socket source is not supported on %s", core.ErrSocketIO, runtime.GOOS)
}
