package config

import (
	"fmt"
	"os"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "vm":
		return vmTemplate, nil
	case "bench":
		return benchTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Render encodes cfg as TOML, e.g. to show the effective config after env
// overrides.
func Render(cfg Config) ([]byte, error) {
	b, err := gotoml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return b, nil
}

const vmTemplate = `[vm]
name = "tpvm"
tick_interval = "16ms"
render_log_bytes = 1048576
logic_log_bytes = 262144
scratch_bytes = 1048576
byte_order = "little"
strict_commands = false

[client]
enabled = true
width = 1280
height = 720

[bench]
enabled = true
quads = 256
columns = 16
speed = 3.14159
simulate_producers = 4
simulate_events = 120

[server]
enabled = true
addr = "127.0.0.1:9400"
cors_origins = ["http://localhost:3000"]
token = ""

[trace]
path = ""

[log]
level = "info"
`

const benchTemplate = `[vm]
name = "tpvm-bench"
tick_interval = "1ms"
render_log_bytes = 4194304
logic_log_bytes = 1048576
scratch_bytes = 65536

[client]
enabled = false

[bench]
enabled = true
quads = 4096
columns = 64

[server]
enabled = false

[log]
level = "warn"
`
