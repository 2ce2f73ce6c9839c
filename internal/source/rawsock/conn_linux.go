//go:build linux

package rawsock

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/log"
)

type rawConn struct {
	fd int
}

func openConn(cfg config.RawSocketConfig, logger log.Logger) (packetConn, netip.Addr, error) {
	addr, err := netip.ParseAddr(cfg.Bind)
	if err != nil || !addr.Is4() {
		return nil, netip.Addr{}, fmt.Errorf("%w: bind address %q is not IPv4", core.ErrConfigInvalid, cfg.Bind)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, netip.Addr{}, fmt.Errorf("%w: raw socket requires CAP_NET_RAW: %v", core.ErrPermissionDenied, err)
		}
		return nil, netip.Addr{}, fmt.Errorf("%w: socket: %v", core.ErrSocketIO, err)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		unix.Close(fd)
		return nil, netip.Addr{}, fmt.Errorf("%w: IP_HDRINCL: %v", core.ErrSocketIO, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Addr: addr.As4()}); err != nil {
		unix.Close(fd)
		return nil, netip.Addr{}, fmt.Errorf("%w: bind %s: %v", core.ErrSocketIO, addr, err)
	}
	if cfg.ReceiveAll {
		logger.Debug("receive-all requested; linux raw sockets already see every inbound TCP datagram")
	}

	logger.Infof("raw socket bound to %s", addr)
	return &rawConn{fd: fd}, addr, nil
}

func (c *rawConn) ReadPacket(buf []byte, timeout time.Duration) (int, error) {
	ms := int((timeout + time.Millisecond - 1) / time.Millisecond)
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, errWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, errWouldBlock
	}

	n, _, err = unix.Recvfrom(c.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, errWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (c *rawConn) Close() error {
	return unix.Close(c.fd)
}
