package prometheus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Eyepea/asterisk/taskprocessor"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeReporter serves canned report rows.
type fakeReporter struct {
	mu   sync.Mutex
	rows []taskprocessor.ProcessorReport
}

func (f *fakeReporter) Report() []taskprocessor.ProcessorReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]taskprocessor.ProcessorReport(nil), f.rows...)
}

func (f *fakeReporter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeReporter) set(rows []taskprocessor.ProcessorReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

func TestSnapshotPoller_ExportsReportRows(t *testing.T) {
	reg := prom.NewRegistry()
	reporter := &fakeReporter{}
	reporter.set([]taskprocessor.ProcessorReport{
		{Name: "pbx/core", Processed: 42, Depth: 3, MaxDepth: 9},
	})

	poller, err := NewSnapshotPoller(reg, reporter, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.collectOnce()

	if got := testutil.ToFloat64(poller.queueDepth.WithLabelValues("pbx/core")); got != 3 {
		t.Errorf("queue depth = %v, want 3", got)
	}
	if got := testutil.ToFloat64(poller.maxDepth.WithLabelValues("pbx/core")); got != 9 {
		t.Errorf("max depth = %v, want 9", got)
	}
	if got := testutil.ToFloat64(poller.processedTotal.WithLabelValues("pbx/core")); got != 42 {
		t.Errorf("processed total = %v, want 42", got)
	}
	if got := testutil.ToFloat64(poller.registered); got != 1 {
		t.Errorf("registered = %v, want 1", got)
	}
}

func TestSnapshotPoller_DropsStaleProcessors(t *testing.T) {
	reg := prom.NewRegistry()
	reporter := &fakeReporter{}
	reporter.set([]taskprocessor.ProcessorReport{
		{Name: "gone", Processed: 1, Depth: 1, MaxDepth: 1},
	})

	poller, err := NewSnapshotPoller(reg, reporter, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	poller.collectOnce()

	reporter.set(nil)
	poller.collectOnce()

	if got := testutil.CollectAndCount(poller.queueDepth); got != 0 {
		t.Errorf("stale queue depth series = %d, want 0", got)
	}
	if got := testutil.ToFloat64(poller.registered); got != 0 {
		t.Errorf("registered = %v, want 0", got)
	}
}

func TestSnapshotPoller_StartStopLifecycle(t *testing.T) {
	reg := prom.NewRegistry()
	reporter := &fakeReporter{}
	reporter.set([]taskprocessor.ProcessorReport{
		{Name: "pbx/core", Processed: 7},
	})

	poller, err := NewSnapshotPoller(reg, reporter, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.Start(context.Background())
	poller.Start(context.Background()) // second Start is a no-op

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(poller.processedTotal.WithLabelValues("pbx/core")) == 7 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got := testutil.ToFloat64(poller.processedTotal.WithLabelValues("pbx/core")); got != 7 {
		t.Fatalf("processed total = %v, want 7", got)
	}

	poller.Stop()
	poller.Stop() // second Stop is safe
}

func TestSnapshotPoller_AgainstLiveRegistry(t *testing.T) {
	promReg := prom.NewRegistry()
	tpsReg := taskprocessor.NewRegistry(taskprocessor.WithLogger(taskprocessor.NewNoOpLogger()))

	tps, err := tpsReg.Get("live", taskprocessor.CreateIfMissing)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer tps.Unreference()

	done := make(chan struct{})
	if err := tps.Push(func(any) { close(done) }, nil); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run within 5s")
	}

	poller, err := NewSnapshotPoller(promReg, tpsReg, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	poller.collectOnce()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(poller.processedTotal.WithLabelValues("live")) >= 1 {
			break
		}
		poller.collectOnce()
		time.Sleep(time.Millisecond)
	}
	if got := testutil.ToFloat64(poller.processedTotal.WithLabelValues("live")); got < 1 {
		t.Errorf("processed total = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(poller.registered); got != 1 {
		t.Errorf("registered = %v, want 1", got)
	}
}
