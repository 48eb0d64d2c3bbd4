package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/tech-paws/vm/internal/logging"
	"github.com/tech-paws/vm/internal/protocol/wire"
)

// EnvPrefix prefixes every environment override, e.g. TPVM_VM_TICK_INTERVAL.
const EnvPrefix = "TPVM_"

var ErrInvalid = errors.New("config: invalid")

// Config is the vmctl file configuration.
type Config struct {
	VM     VMConfig     `toml:"vm" envPrefix:"VM_"`
	Client ClientConfig `toml:"client" envPrefix:"CLIENT_"`
	Bench  BenchConfig  `toml:"bench" envPrefix:"BENCH_"`
	Server ServerConfig `toml:"server" envPrefix:"SERVER_"`
	Trace  TraceConfig  `toml:"trace" envPrefix:"TRACE_"`
	Log    LogConfig    `toml:"log" envPrefix:"LOG_"`
}

type VMConfig struct {
	Name           string `toml:"name" env:"NAME"`
	TickInterval   string `toml:"tick_interval" env:"TICK_INTERVAL"`
	RenderLogBytes uint64 `toml:"render_log_bytes" env:"RENDER_LOG_BYTES"`
	LogicLogBytes  uint64 `toml:"logic_log_bytes" env:"LOGIC_LOG_BYTES"`
	ScratchBytes   uint64 `toml:"scratch_bytes" env:"SCRATCH_BYTES"`
	ByteOrder      string `toml:"byte_order" env:"BYTE_ORDER"`
	StrictCommands bool   `toml:"strict_commands" env:"STRICT_COMMANDS"`
}

type ClientConfig struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Width   uint32 `toml:"width" env:"WIDTH"`
	Height  uint32 `toml:"height" env:"HEIGHT"`
}

type BenchConfig struct {
	Enabled           bool    `toml:"enabled" env:"ENABLED"`
	Quads             int     `toml:"quads" env:"QUADS"`
	Columns           int     `toml:"columns" env:"COLUMNS"`
	Speed             float32 `toml:"speed" env:"SPEED"`
	SimulateProducers int     `toml:"simulate_producers" env:"SIMULATE_PRODUCERS"`
	SimulateEvents    int     `toml:"simulate_events" env:"SIMULATE_EVENTS"`
}

type ServerConfig struct {
	Enabled     bool     `toml:"enabled" env:"ENABLED"`
	Addr        string   `toml:"addr" env:"ADDR"`
	CorsOrigins []string `toml:"cors_origins" env:"CORS_ORIGINS"`
	Token       string   `toml:"token" env:"TOKEN"`
}

type TraceConfig struct {
	Path string `toml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"`
}

func Default() Config {
	return Config{
		VM: VMConfig{
			Name:           "tpvm",
			TickInterval:   "16ms",
			RenderLogBytes: 1 << 20,
			LogicLogBytes:  256 << 10,
			ScratchBytes:   1 << 20,
			ByteOrder:      "little",
		},
		Client: ClientConfig{Enabled: true, Width: 1280, Height: 720},
		Bench:  BenchConfig{Enabled: true, Quads: 256, Columns: 16, Speed: 3.14159},
		Server: ServerConfig{Addr: "127.0.0.1:9400"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies TPVM_* environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return Config{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies TPVM_* environment variables to target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.VM.Name) == "" {
		return fmt.Errorf("%w: vm.name is required", ErrInvalid)
	}
	d, err := time.ParseDuration(strings.TrimSpace(cfg.VM.TickInterval))
	if err != nil {
		return fmt.Errorf("%w: vm.tick_interval: %v", ErrInvalid, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: vm.tick_interval must be positive", ErrInvalid)
	}
	if cfg.VM.RenderLogBytes == 0 || cfg.VM.LogicLogBytes == 0 || cfg.VM.ScratchBytes == 0 {
		return fmt.Errorf("%w: vm arena sizes must be positive", ErrInvalid)
	}
	if _, err := wire.ParseByteOrder(cfg.VM.ByteOrder); err != nil {
		return fmt.Errorf("%w: vm.byte_order: %v", ErrInvalid, err)
	}
	if !cfg.Client.Enabled && !cfg.Bench.Enabled {
		return fmt.Errorf("%w: at least one of client, bench must be enabled", ErrInvalid)
	}
	if cfg.Client.Enabled && (cfg.Client.Width == 0 || cfg.Client.Height == 0) {
		return fmt.Errorf("%w: client width and height are required", ErrInvalid)
	}
	if cfg.Bench.Enabled && (cfg.Bench.Quads <= 0 || cfg.Bench.Columns <= 0) {
		return fmt.Errorf("%w: bench quads and columns must be positive", ErrInvalid)
	}
	if cfg.Bench.SimulateProducers < 0 || cfg.Bench.SimulateEvents < 0 {
		return fmt.Errorf("%w: bench simulate counts must not be negative", ErrInvalid)
	}
	if cfg.Server.Enabled && strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is required when the server is enabled", ErrInvalid)
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok && strings.TrimSpace(cfg.Log.Level) != "" {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, cfg.Log.Level)
	}
	return nil
}
