package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tech-paws/vm/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("vm-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordTick("vm-a", 3*time.Millisecond)
	RecordRenderBuffer("tech.paws.client", 4096)
	SetModules("vm-a", 2)
	if got := testutil.ToFloat64(modulesRegistered.WithLabelValues("vm-a")); got != 2 {
		t.Fatalf("modules gauge=%v", got)
	}
}

func TestCommandCounters(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(commandsDropped.WithLabelValues("tech.paws.tests", "logic"))
	RecordCommandDropped("tech.paws.tests", "logic")
	RecordCommandDropped("tech.paws.tests", "logic")
	RecordCommandPushed("tech.paws.tests", "logic")
	after := testutil.ToFloat64(commandsDropped.WithLabelValues("tech.paws.tests", "logic"))
	if after-before != 2 {
		t.Fatalf("dropped delta=%v", after-before)
	}
}
