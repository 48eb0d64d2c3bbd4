package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpvm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total debug HTTP requests.",
		},
		[]string{"vm", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tpvm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Debug HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"vm", "method", "path", "status"},
	)
	commandsPushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpvm",
			Name:      "commands_pushed_total",
			Help:      "Commands appended to module command logs.",
		},
		[]string{"module", "channel"},
	)
	commandsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpvm",
			Name:      "commands_dropped_total",
			Help:      "Commands that did not fit in their command log.",
		},
		[]string{"module", "channel"},
	)
	tickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tpvm",
			Subsystem: "tick",
			Name:      "duration_seconds",
			Help:      "Time spent in one VM tick.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .016, .033, .05, .1},
		},
		[]string{"vm"},
	)
	renderBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tpvm",
			Subsystem: "render",
			Name:      "buffer_bytes",
			Help:      "Size of render buffers handed to the consumer.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{"module"},
	)
	modulesRegistered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tpvm",
			Name:      "modules",
			Help:      "Modules registered with the VM.",
		},
		[]string{"vm"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			commandsPushed,
			commandsDropped,
			tickDuration,
			renderBytes,
			modulesRegistered,
		)
	})
}

func RecordHTTPRequest(vm, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(vm, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(vm, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCommandPushed(module, channel string) {
	RegisterMetrics()
	commandsPushed.WithLabelValues(module, channel).Inc()
}

func RecordCommandDropped(module, channel string) {
	RegisterMetrics()
	commandsDropped.WithLabelValues(module, channel).Inc()
}

func RecordTick(vm string, duration time.Duration) {
	RegisterMetrics()
	tickDuration.WithLabelValues(vm).Observe(duration.Seconds())
}

func RecordRenderBuffer(module string, size uint64) {
	RegisterMetrics()
	renderBytes.WithLabelValues(module).Observe(float64(size))
}

func SetModules(vm string, n int) {
	RegisterMetrics()
	modulesRegistered.WithLabelValues(vm).Set(float64(n))
}
