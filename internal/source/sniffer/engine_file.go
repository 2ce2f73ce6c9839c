package sniffer

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/hbtap/internal/config"
)

// pcapng section header block type.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type fileReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// fileHandle replays a pcap or pcapng file. It returns io.EOF at the end.
// The capture filter is applied in userspace.
type fileHandle struct {
	f      *os.File
	r      fileReader
	filter *pcap.BPF
}

func openFile(cfg config.CaptureConfig) (packetHandle, error) {
	path := cfg.File
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture file header: %w", err)
	}

	var r fileReader
	if bytes.Equal(magic, ngMagic) {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse capture file %s: %w", path, err)
	}
	h := &fileHandle{f: f, r: r}
	if cfg.Filter != "" {
		h.filter, err = pcap.NewBPF(r.LinkType(), cfg.SnapLen, cfg.Filter)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to compile BPF filter %q: %w", cfg.Filter, err)
		}
	}
	return h, nil
}

func (h *fileHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	for {
		data, ci, err := h.r.ReadPacketData()
		if err != nil || h.filter == nil || h.filter.Matches(ci, data) {
			return data, ci, err
		}
	}
}

func (h *fileHandle) LinkType() layers.LinkType { return h.r.LinkType() }

func (h *fileHandle) Close() { h.f.Close() }
