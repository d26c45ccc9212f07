package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Eyepea/asterisk/taskprocessor"
	prom "github.com/prometheus/client_golang/prometheus"
)

// RegistryReporter provides per-processor report rows. The taskprocessor
// Registry satisfies it.
type RegistryReporter interface {
	Report() []taskprocessor.ProcessorReport
	Count() int
}

// SnapshotPoller periodically exports registry report snapshots into
// Prometheus gauges. Unlike MetricsExporter, which observes events as they
// happen, the poller publishes the same figures a report shows: current
// depth, high-water mark, processed count, and how many processors exist.
type SnapshotPoller struct {
	interval time.Duration
	reporter RegistryReporter

	queueDepth     *prom.GaugeVec
	maxDepth       *prom.GaugeVec
	processedTotal *prom.GaugeVec
	registered     prom.Gauge

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, reporter RegistryReporter, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	queueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskprocessor",
		Name:      "report_queue_depth",
		Help:      "Queued tasks per processor.",
	}, []string{"processor"})
	maxDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskprocessor",
		Name:      "report_max_depth",
		Help:      "High-water queue depth per processor.",
	}, []string{"processor"})
	processedTotal := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskprocessor",
		Name:      "report_processed_total",
		Help:      "Processed task count snapshot per processor.",
	}, []string{"processor"})
	registered := prom.NewGauge(prom.GaugeOpts{
		Namespace: "taskprocessor",
		Name:      "registered",
		Help:      "Number of live processors in the registry.",
	})

	var err error
	if queueDepth, err = registerCollector(reg, queueDepth); err != nil {
		return nil, err
	}
	if maxDepth, err = registerCollector(reg, maxDepth); err != nil {
		return nil, err
	}
	if processedTotal, err = registerCollector(reg, processedTotal); err != nil {
		return nil, err
	}
	if registered, err = registerCollector(reg, registered); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:       interval,
		reporter:       reporter,
		queueDepth:     queueDepth,
		maxDepth:       maxDepth,
		processedTotal: processedTotal,
		registered:     registered,
	}, nil
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	if p.reporter == nil {
		return
	}

	rows := p.reporter.Report()
	// Destroyed processors leave stale label sets behind; reset so each
	// collection reflects only live processors.
	p.queueDepth.Reset()
	p.maxDepth.Reset()
	p.processedTotal.Reset()

	for _, row := range rows {
		name := normalizeLabel(row.Name, "unknown")
		p.queueDepth.WithLabelValues(name).Set(float64(row.Depth))
		p.maxDepth.WithLabelValues(name).Set(float64(row.MaxDepth))
		p.processedTotal.WithLabelValues(name).Set(float64(row.Processed))
	}
	p.registered.Set(float64(p.reporter.Count()))
}
