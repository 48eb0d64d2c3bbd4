package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tech-paws/vm/internal/config"
	"github.com/tech-paws/vm/internal/gapi"
	"github.com/tech-paws/vm/internal/modules/bench"
	"github.com/tech-paws/vm/internal/modules/client"
	"github.com/tech-paws/vm/internal/observability"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/server"
	"github.com/tech-paws/vm/internal/trace"
	"github.com/tech-paws/vm/internal/vm"
)

type options struct {
	configPath string
	ticks      int
	duration   time.Duration
	record     string
	replay     string
	simulate   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config path (defaults plus TPVM_* env when empty)")
	flag.IntVar(&opts.ticks, "ticks", 0, "run this many ticks back to back and exit")
	flag.DurationVar(&opts.duration, "duration", 0, "stop the run loop after this long")
	flag.StringVar(&opts.record, "record", "", "record render frames to this trace file (overrides trace.path)")
	flag.StringVar(&opts.replay, "replay", "", "summarize a recorded trace file and exit")
	flag.BoolVar(&opts.simulate, "simulate", false, "push synthetic pointer strokes while running")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "vmctl: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("vmctl", cfg.LoggingConfig())
	observability.RegisterMetrics()

	vmCfg, err := cfg.VMConfig()
	if err != nil {
		return err
	}
	if opts.replay != "" {
		return replay(logger, opts.replay, vmCfg.ByteOrder)
	}

	machine, err := vm.New(vmCfg, vm.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := register(machine, cfg); err != nil {
		_ = machine.Shutdown()
		return err
	}
	if err := machine.Init(); err != nil {
		_ = machine.Shutdown()
		return err
	}
	logger.Info().Str("vm", machine.Name()).Str("id", machine.ID()).Strs("modules", machine.Modules()).Msg("vm initialized")

	var consumer vm.RenderConsumer = &summary{logger: logger, order: vmCfg.ByteOrder}
	tracePath := cfg.Trace.Path
	if opts.record != "" {
		tracePath = opts.record
	}
	var recorder *trace.Recorder
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			_ = machine.Shutdown()
			return fmt.Errorf("open trace: %w", err)
		}
		defer f.Close()
		recorder = trace.NewRecorder(f, machine.ID(), vmCfg.ByteOrder, consumer)
		consumer = recorder
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := server.New(machine, logger, server.Options{
			CorsOrigins: cfg.Server.CorsOrigins,
			Token:       cfg.Server.Token,
		})
		g.Go(func() error {
			return srv.Serve(gctx, cfg.Server.Addr)
		})
	}
	if opts.simulate && cfg.Bench.SimulateProducers > 0 {
		target := client.ID
		if !cfg.Client.Enabled {
			target = bench.ID
		}
		simCfg := bench.SimulateConfig{
			Target:    target,
			Producers: cfg.Bench.SimulateProducers,
			Events:    cfg.Bench.SimulateEvents,
			Width:     float32(cfg.Client.Width),
			Height:    float32(cfg.Client.Height),
		}
		g.Go(func() error {
			if err := bench.Simulate(gctx, machine.Bus(), simCfg); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("simulation stopped")
			}
			return nil
		})
	}
	g.Go(func() error {
		if opts.ticks > 0 {
			err := tickN(gctx, machine, consumer, opts.ticks)
			stop()
			return err
		}
		return machine.Run(gctx, consumer)
	})

	runErr := g.Wait()
	if recorder != nil {
		frames, size := recorder.Stats()
		logger.Info().Str("path", tracePath).Uint64("frames", frames).Uint64("bytes", size).Msg("trace written")
	}
	stats := machine.Stats()
	logger.Info().Uint64("ticks", stats.Ticks).Interface("modules", stats.Modules).Msg("vm stopping")
	return errors.Join(runErr, machine.Shutdown())
}

func register(machine *vm.VM, cfg config.Config) error {
	if cfg.Client.Enabled {
		if err := machine.Register(client.New(cfg.ClientConfig())); err != nil {
			return err
		}
	}
	if cfg.Bench.Enabled {
		m, err := bench.New(cfg.BenchConfig())
		if err != nil {
			return err
		}
		if err := machine.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func tickN(ctx context.Context, machine *vm.VM, consumer vm.RenderConsumer, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := machine.Tick(consumer); err != nil {
			return err
		}
	}
	return nil
}

func replay(logger zerolog.Logger, path string, order binary.ByteOrder) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	s := &summary{logger: logger, order: order}
	frames, err := trace.Replay(f, s)
	if err != nil {
		return err
	}
	logger.Info().
		Str("path", path).
		Int("frames", frames).
		Int("commands", s.total.Commands).
		Int("quads", s.total.Quads).
		Int("lines", s.total.Lines).
		Int("texts", s.total.Texts).
		Msg("trace replayed")
	return nil
}

// summary decodes each render buffer and logs what it would draw.
type summary struct {
	logger zerolog.Logger
	order  binary.ByteOrder
	total  gapi.Stats
}

func (s *summary) ConsumeRender(moduleID string, buf cmdlog.Buffer) error {
	st := gapi.Summarize(cmdlog.Decode(buf, s.order))
	s.total.Commands += st.Commands
	s.total.Pipelines += st.Pipelines
	s.total.Quads += st.Quads
	s.total.Lines += st.Lines
	s.total.Texts += st.Texts
	s.total.Skipped += st.Skipped
	s.logger.Debug().
		Str("module", moduleID).
		Uint64("bytes", buf.Size).
		Int("commands", st.Commands).
		Int("quads", st.Quads).
		Int("texts", st.Texts).
		Msg("render")
	return nil
}
