package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tech-paws/vm/internal/gapi"
	"github.com/tech-paws/vm/internal/memory"
	"github.com/tech-paws/vm/internal/modules/client"
	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/testutil/testlog"
	"github.com/tech-paws/vm/internal/vm"
)

func newVM(t *testing.T, cfg vm.Config, now *time.Time, modules ...vm.Module) *vm.VM {
	t.Helper()
	v, err := vm.New(cfg, vm.WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatalf("new vm: %v", err)
	}
	for _, m := range modules {
		if err := v.Register(m); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := v.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = v.Shutdown() })
	return v
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	if _, err := New(Config{Quads: 0, Columns: 4}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBenchRendersEveryTick(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(100, 0)
	m, err := New(Config{Quads: 10, Columns: 4, Speed: 1, Color: gapi.RGBA(1, 1, 1, 1)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := newVM(t, vm.DefaultConfig(), &now, m)

	var quads int
	consumer := vm.RenderConsumerFunc(func(_ string, buf cmdlog.Buffer) error {
		quads += gapi.Summarize(cmdlog.Decode(buf, nil)).Quads
		return nil
	})
	for i := 0; i < 3; i++ {
		if err := v.Tick(consumer); err != nil {
			t.Fatalf("tick: %v", err)
		}
		now = now.Add(10 * time.Millisecond)
	}
	if quads != 30 {
		t.Fatalf("quads=%d", quads)
	}
	st := m.Snapshot()
	if st.Frames != 3 || st.MaxDelta != 10*time.Millisecond || st.AvgDelta != 10*time.Millisecond {
		t.Fatalf("status=%+v", st)
	}
}

func TestBenchCountsDroppedFrames(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(0, 0)
	cfg := vm.DefaultConfig()
	cfg.RenderLogBytes = 256
	m, err := New(Config{Quads: 8, Columns: 4})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := newVM(t, cfg, &now, m)
	if err := v.Tick(vm.DiscardRender); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if m.Snapshot().Dropped != 1 {
		t.Fatalf("dropped=%d", m.Snapshot().Dropped)
	}
}

func TestSimulateFeedsClient(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(0, 0)
	c := client.New(client.DefaultConfig())
	v := newVM(t, vm.DefaultConfig(), &now, c)

	cfg := SimulateConfig{Target: client.ID, Producers: 4, Events: 25, Width: 640, Height: 480}
	if err := Simulate(context.Background(), v.Bus(), cfg); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if err := v.Tick(vm.DiscardRender); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if got := c.Snapshot().Events; got != 100 {
		t.Fatalf("client events=%d", got)
	}
}

func TestSimulateStopsOnFullLog(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(0, 0)
	cfg := vm.DefaultConfig()
	cfg.LogicLogBytes = 512
	v := newVM(t, cfg, &now, client.New(client.DefaultConfig()))

	err := Simulate(context.Background(), v.Bus(), SimulateConfig{Target: client.ID, Producers: 2, Events: 100, Width: 10, Height: 10})
	if !errors.Is(err, memory.ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}
