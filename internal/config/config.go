// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/hbtap/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `hbtap:` root key in YAML.
type GlobalConfig struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Capture    CaptureConfig    `mapstructure:"capture" yaml:"capture"`
	RawSocket  RawSocketConfig  `mapstructure:"raw_socket" yaml:"raw_socket"`
	Reassembly ReassemblyConfig `mapstructure:"reassembly" yaml:"reassembly"`
	Sink       SinkConfig       `mapstructure:"sink" yaml:"sink"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Simulator  SimulatorConfig  `mapstructure:"simulator" yaml:"simulator"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`     // trace / debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"`   // text / json
	Pattern string           `mapstructure:"pattern" yaml:"pattern"` // text only: %time %level %field %msg
	Time    string           `mapstructure:"time" yaml:"time"`       // Go time layout
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log output destinations. Stdout is always on.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Packet sources ───

// Capture engines.
const (
	EnginePcap     = "pcap"
	EngineAFPacket = "afpacket"
	EngineFile     = "file"
)

// CaptureConfig configures the capture-driven source.
type CaptureConfig struct {
	Engine      string        `mapstructure:"engine" yaml:"engine"`       // pcap | afpacket | file
	Interface   string        `mapstructure:"interface" yaml:"interface"` // live engines
	Filter      string        `mapstructure:"filter" yaml:"filter"`       // BPF expression, passed through
	Port        uint16        `mapstructure:"port" yaml:"port"`           // builds "tcp port N" when filter is empty
	File        string        `mapstructure:"file" yaml:"file"`           // engine=file
	SnapLen     int           `mapstructure:"snap_len" yaml:"snap_len"`
	Promiscuous bool          `mapstructure:"promiscuous" yaml:"promiscuous"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	BlockSize   int           `mapstructure:"block_size" yaml:"block_size"` // afpacket
	NumBlocks   int           `mapstructure:"num_blocks" yaml:"num_blocks"` // afpacket
}

// RawSocketConfig configures the raw-socket source.
type RawSocketConfig struct {
	Bind         string        `mapstructure:"bind" yaml:"bind"`
	Port         uint16        `mapstructure:"port" yaml:"port"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	ReadInterval time.Duration `mapstructure:"read_interval" yaml:"read_interval"`
	ReceiveAll   bool          `mapstructure:"receive_all" yaml:"receive_all"`
}

// ReassemblyConfig configures per-connection reassembly.
type ReassemblyConfig struct {
	MaxPending int `mapstructure:"max_pending" yaml:"max_pending"` // 0 = unbounded
}

// SinkConfig configures the record queue.
type SinkConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Output ───

// Output types.
const (
	OutputConsole = "console"
	OutputKafka   = "kafka"
)

// OutputConfig selects where reassembled records are forwarded.
type OutputConfig struct {
	Type  string            `mapstructure:"type" yaml:"type"` // console | kafka
	Kafka KafkaOutputConfig `mapstructure:"kafka" yaml:"kafka"`
}

// KafkaOutputConfig configures the Kafka record forwarder.
type KafkaOutputConfig struct {
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	Compression  string        `mapstructure:"compression" yaml:"compression"` // none | gzip | snappy | lz4
}

// ─── Simulator ───

// SimulatorConfig configures the synthetic sensor server.
type SimulatorConfig struct {
	Listen     string `mapstructure:"listen" yaml:"listen"`
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"` // samples per second
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `hbtap: ...`.
type configRoot struct {
	Hbtap GlobalConfig `mapstructure:"hbtap"`
}

// Load loads configuration from file. An empty path yields the defaults.
// The YAML file uses `hbtap:` as root key; env vars use the HBTAP_ prefix
// (e.g. HBTAP_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "hbtap.log.level" → env "HBTAP_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Hbtap

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *GlobalConfig {
	cfg, err := Load("")
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for configuration.
// All keys use the "hbtap." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("hbtap.log.level", "info")
	v.SetDefault("hbtap.log.format", "text")
	v.SetDefault("hbtap.log.pattern", "%time [%level] %msg %field\n")
	v.SetDefault("hbtap.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("hbtap.log.outputs.file.enabled", false)
	v.SetDefault("hbtap.log.outputs.file.path", "/var/log/hbtap/hbtap.log")
	v.SetDefault("hbtap.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("hbtap.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("hbtap.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("hbtap.log.outputs.file.rotation.compress", true)

	// Capture defaults
	v.SetDefault("hbtap.capture.engine", EnginePcap)
	v.SetDefault("hbtap.capture.interface", "lo")
	v.SetDefault("hbtap.capture.filter", "")
	v.SetDefault("hbtap.capture.port", 8000)
	v.SetDefault("hbtap.capture.snap_len", 65535)
	v.SetDefault("hbtap.capture.promiscuous", true)
	v.SetDefault("hbtap.capture.read_timeout", "100ms")
	v.SetDefault("hbtap.capture.block_size", 1<<20)
	v.SetDefault("hbtap.capture.num_blocks", 8)

	// Raw socket defaults
	v.SetDefault("hbtap.raw_socket.bind", "127.0.0.1")
	v.SetDefault("hbtap.raw_socket.port", 8000)
	v.SetDefault("hbtap.raw_socket.poll_timeout", "5s")
	v.SetDefault("hbtap.raw_socket.read_interval", "200ms")
	v.SetDefault("hbtap.raw_socket.receive_all", true)

	// Reassembly / sink defaults
	v.SetDefault("hbtap.reassembly.max_pending", 4096)
	v.SetDefault("hbtap.sink.poll_interval", "100ms")

	// Metrics defaults
	v.SetDefault("hbtap.metrics.enabled", false)
	v.SetDefault("hbtap.metrics.listen", ":9091")
	v.SetDefault("hbtap.metrics.path", "/metrics")

	// Output defaults
	v.SetDefault("hbtap.output.type", OutputConsole)
	v.SetDefault("hbtap.output.kafka.batch_size", 100)
	v.SetDefault("hbtap.output.kafka.batch_timeout", "100ms")
	v.SetDefault("hbtap.output.kafka.compression", "snappy")

	// Simulator defaults
	v.SetDefault("hbtap.simulator.listen", "0.0.0.0:8000")
	v.SetDefault("hbtap.simulator.sample_rate", 256)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %q (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Capture ──
	switch cfg.Capture.Engine {
	case EnginePcap, EngineAFPacket:
		if cfg.Capture.Interface == "" {
			return fmt.Errorf("%w: capture.interface is required for engine %s", core.ErrConfigInvalid, cfg.Capture.Engine)
		}
	case EngineFile:
		if cfg.Capture.File == "" {
			return fmt.Errorf("%w: capture.file is required for engine file", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: capture.engine %q (must be pcap/afpacket/file)", core.ErrConfigInvalid, cfg.Capture.Engine)
	}
	if cfg.Capture.Filter == "" && cfg.Capture.Port != 0 {
		cfg.Capture.Filter = fmt.Sprintf("tcp port %d", cfg.Capture.Port)
	}
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: capture.snap_len must be positive", core.ErrConfigInvalid)
	}
	if cfg.Capture.ReadTimeout <= 0 {
		cfg.Capture.ReadTimeout = 100 * time.Millisecond
	}

	// ── Raw socket ──
	if _, err := netip.ParseAddr(cfg.RawSocket.Bind); err != nil {
		return fmt.Errorf("%w: raw_socket.bind: %v", core.ErrConfigInvalid, err)
	}
	if cfg.RawSocket.Port == 0 {
		return fmt.Errorf("%w: raw_socket.port is required", core.ErrConfigInvalid)
	}
	if cfg.RawSocket.PollTimeout <= 0 {
		cfg.RawSocket.PollTimeout = 5 * time.Second
	}
	if cfg.RawSocket.ReadInterval <= 0 || cfg.RawSocket.ReadInterval > cfg.RawSocket.PollTimeout {
		cfg.RawSocket.ReadInterval = cfg.RawSocket.PollTimeout
	}

	// ── Reassembly / sink ──
	if cfg.Reassembly.MaxPending < 0 {
		return fmt.Errorf("%w: reassembly.max_pending must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Sink.PollInterval <= 0 {
		cfg.Sink.PollInterval = 100 * time.Millisecond
	}

	// ── Output ──
	switch cfg.Output.Type {
	case OutputConsole:
	case OutputKafka:
		if len(cfg.Output.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: output.kafka.brokers is required when output.type=kafka", core.ErrConfigInvalid)
		}
		if cfg.Output.Kafka.Topic == "" {
			return fmt.Errorf("%w: output.kafka.topic is required when output.type=kafka", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: output.type %q (must be console/kafka)", core.ErrConfigInvalid, cfg.Output.Type)
	}

	if cfg.Simulator.SampleRate <= 0 {
		return fmt.Errorf("%w: simulator.sample_rate must be positive", core.ErrConfigInvalid)
	}

	return nil
}
