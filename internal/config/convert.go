package config

import (
	"strings"
	"time"

	"github.com/tech-paws/vm/internal/logging"
	"github.com/tech-paws/vm/internal/modules/bench"
	"github.com/tech-paws/vm/internal/modules/client"
	"github.com/tech-paws/vm/internal/protocol/wire"
	"github.com/tech-paws/vm/internal/vm"
)

// VMConfig converts the validated file config to a vm.Config.
func (c Config) VMConfig() (vm.Config, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.VM.TickInterval))
	if err != nil {
		return vm.Config{}, err
	}
	order, err := wire.ParseByteOrder(c.VM.ByteOrder)
	if err != nil {
		return vm.Config{}, err
	}
	return vm.Config{
		Name:           c.VM.Name,
		RenderLogBytes: c.VM.RenderLogBytes,
		LogicLogBytes:  c.VM.LogicLogBytes,
		ScratchBytes:   c.VM.ScratchBytes,
		TickInterval:   d,
		ByteOrder:      order,
		StrictCommands: c.VM.StrictCommands,
	}, nil
}

func (c Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.Width = c.Client.Width
	cfg.Height = c.Client.Height
	return cfg
}

func (c Config) BenchConfig() bench.Config {
	cfg := bench.DefaultConfig()
	cfg.Quads = c.Bench.Quads
	cfg.Columns = c.Bench.Columns
	if c.Bench.Speed != 0 {
		cfg.Speed = c.Bench.Speed
	}
	return cfg
}

// LoggingConfig resolves the runtime logging profile with log.level applied.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.RuntimeConfig()
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		cfg.Level = lvl
	}
	return cfg
}
