package observability

import (
	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tech-paws/vm/internal/logging"
)

// InitLogger installs the process logger for app and returns it.
func InitLogger(app string, cfg logging.Config) zerolog.Logger {
	logger := logging.New(cfg, colorable.NewColorableStdout()).With().Str("app", app).Logger()
	log.Logger = logger
	zerolog.SetGlobalLevel(cfg.Level)
	return logger
}
