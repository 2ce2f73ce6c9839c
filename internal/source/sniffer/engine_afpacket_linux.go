//go:build linux

package sniffer

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
)

type afpacketHandle struct {
	tp *afpacket.TPacket
}

func openAFPacket(cfg config.CaptureConfig) (packetHandle, error) {
	frameSize, blockSize := ringSizes(cfg.SnapLen, cfg.BlockSize)
	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(cfg.NumBlocks),
		afpacket.OptPollTimeout(cfg.ReadTimeout),
		afpacket.OptTPacketVersion(afpacket.TPacketVersion3),
	)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("%w: af_packet on %s: %v", core.ErrPermissionDenied, cfg.Interface, err)
		}
		return nil, fmt.Errorf("failed to create TPacket handle: %w", err)
	}

	if cfg.Filter != "" {
		if err := applyBPFFilter(tp, cfg); err != nil {
			tp.Close()
			return nil, err
		}
	}
	return &afpacketHandle{tp: tp}, nil
}

// ringSizes rounds the frame size up to a power-of-two multiple of the page
// size and the block size up to a multiple of the frame size, as the ring
// setup requires.
func ringSizes(snapLen, blockSize int) (int, int) {
	frame := os.Getpagesize()
	for frame < snapLen {
		frame *= 2
	}
	if blockSize < frame {
		blockSize = frame
	}
	if rem := blockSize % frame; rem != 0 {
		blockSize += frame - rem
	}
	return frame, blockSize
}

// applyBPFFilter compiles the expression with libpcap and attaches the
// program to the ring socket.
func applyBPFFilter(tp *afpacket.TPacket, cfg config.CaptureConfig) error {
	pcapInsns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, cfg.SnapLen, cfg.Filter)
	if err != nil {
		return fmt.Errorf("failed to compile BPF filter %q: %w", cfg.Filter, err)
	}

	// pcap.BPFInstruction and bpf.RawInstruction share layout: Code->Op, Jt, Jf, K
	rawInsns := make([]bpf.RawInstruction, len(pcapInsns))
	for i, insn := range pcapInsns {
		rawInsns[i] = bpf.RawInstruction{
			Op: insn.Code,
			Jt: insn.Jt,
			Jf: insn.Jf,
			K:  insn.K,
		}
	}

	if err := tp.SetBPF(rawInsns); err != nil {
		return fmt.Errorf("failed to set BPF: %w", err)
	}
	return nil
}

// ReadPacketData uses the zero-copy path. The slice is only valid until the
// next call; the loop parses and copies before reading again.
func (a *afpacketHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := a.tp.ZeroCopyReadPacketData()
	if errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, unix.EINTR) {
		return nil, ci, errReadTimeout
	}
	return data, ci, err
}

func (a *afpacketHandle) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (a *afpacketHandle) Close() { a.tp.Close() }
