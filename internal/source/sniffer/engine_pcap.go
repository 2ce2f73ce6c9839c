package sniffer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
)

type pcapHandle struct {
	h *pcap.Handle
}

func openPcap(cfg config.CaptureConfig) (packetHandle, error) {
	h, err := pcap.OpenLive(cfg.Interface, int32(cfg.SnapLen), cfg.Promiscuous, cfg.ReadTimeout)
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: open %s: %v", core.ErrPermissionDenied, cfg.Interface, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Interface, err)
	}
	if cfg.Filter != "" {
		if err := h.SetBPFFilter(cfg.Filter); err != nil {
			h.Close()
			return nil, fmt.Errorf("failed to apply BPF filter %q: %w", cfg.Filter, err)
		}
	}
	return &pcapHandle{h: h}, nil
}

func (p *pcapHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := p.h.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, errReadTimeout
	}
	return data, ci, err
}

func (p *pcapHandle) LinkType() layers.LinkType { return p.h.LinkType() }

func (p *pcapHandle) Close() { p.h.Close() }

// libpcap reports privilege problems as plain text.
func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "not permitted")
}
