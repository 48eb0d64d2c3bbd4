package bench

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/tech-paws/vm/internal/vm"
)

// SimulateConfig shapes a burst of synthetic pointer input.
type SimulateConfig struct {
	Target    string
	Producers int
	Events    int
	Width     float32
	Height    float32
}

// Simulate pushes pointer strokes into Target's logic channel from
// Producers goroutines. Each producer sends one stroke of Events events:
// start, moves along a circle, end. It stops at the first error.
func Simulate(ctx context.Context, bus *vm.Bus, cfg SimulateConfig) error {
	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < cfg.Producers; p++ {
		p := p
		g.Go(func() error {
			return stroke(ctx, bus, cfg, p)
		})
	}
	return g.Wait()
}

func stroke(ctx context.Context, bus *vm.Bus, cfg SimulateConfig, producer int) error {
	cx, cy := cfg.Width/2, cfg.Height/2
	radius := float32(math.Min(float64(cx), float64(cy))) * float32(producer+1) / float32(cfg.Producers+1)
	for i := 0; i < cfg.Events; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		kind := vm.PointerMove
		switch i {
		case 0:
			kind = vm.PointerStart
		case cfg.Events - 1:
			kind = vm.PointerEnd
		}
		a := 2 * math.Pi * float64(i) / float64(cfg.Events)
		ev := vm.PointerEvent{
			Kind:   kind,
			X:      cx + radius*float32(math.Cos(a)),
			Y:      cy + radius*float32(math.Sin(a)),
			Button: vm.MouseLeft,
		}
		if err := bus.PushPointer(cfg.Target, ev); err != nil {
			return err
		}
	}
	return nil
}
