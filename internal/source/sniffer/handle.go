package sniffer

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/hbtap/internal/config"
)

// errReadTimeout is returned by handles when no frame arrived within their
// internal read timeout. The loop treats it as a chance to check the stop
// flag.
var errReadTimeout = errors.New("sniffer: read timeout")

// packetHandle is a capture engine.
type packetHandle interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close()
}

// openHandle opens the engine named in cfg.
func openHandle(cfg config.CaptureConfig) (packetHandle, error) {
	switch cfg.Engine {
	case config.EnginePcap:
		return openPcap(cfg)
	case config.EngineAFPacket:
		return openAFPacket(cfg)
	case config.EngineFile:
		return openFile(cfg)
	default:
		return nil, errors.New("sniffer: unknown capture engine " + cfg.Engine)
	}
}
