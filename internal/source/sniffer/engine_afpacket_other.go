//go:build !linux

package sniffer

import (
	"fmt"
	"runtime"

	"firestige.xyz/hbtap/internal/config"
)

func openAFPacket(config.CaptureConfig) (packetHandle, error) {
	return nil, fmt.Errorf("afpacket engine is not supported on %s", runtime.GOOS)
}
