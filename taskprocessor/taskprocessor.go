package taskprocessor

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of one processor's counters. Both
// fields mutate only inside the post-execute locked section, so a snapshot
// is always internally consistent.
type Stats struct {
	// Processed is the monotonic count of completed tasks.
	Processed uint64

	// MaxDepth is the deepest the queue has been, sampled at the instant
	// a task finishes executing (the just-finished task included).
	MaxDepth int
}

// Processor is a named FIFO task queue bound to one execution policy. A
// processor is a singleton by (case-insensitive) name within its registry.
//
// The mutex guards the queue, the stats and the shuttingDown flag. It is
// never held while a task callback runs.
type Processor struct {
	name string
	key  string // case-folded name, the registry's identity key

	mu           sync.Mutex
	queue        taskQueue
	processed    uint64
	maxDepth     int
	shuttingDown bool

	listener Listener
	reg      *Registry

	logger  Logger
	metrics Metrics

	// refs is the count of outstanding external handles; guarded by the
	// owning registry's mutex, not by p.mu.
	refs int
}

// Name returns the processor's name as originally registered.
func (p *Processor) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// Depth returns the number of queued, not yet popped tasks, or -1 for a
// nil handle.
func (p *Processor) Depth() int {
	if p == nil {
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// Stats returns a consistent snapshot of the processor's counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Processed: p.processed, MaxDepth: p.maxDepth}
}

// Push appends a task to the queue and notifies the listener. It fails
// with ErrMissingProcessor or ErrMissingTask on absent arguments, and with
// ErrShuttingDown once teardown has begun (such a task would never run).
//
// Push never blocks beyond the bounded critical section; task execution
// time has no effect on push latency.
func (p *Processor) Push(fn TaskFunc, data any) error {
	if p == nil {
		return ErrMissingProcessor
	}
	if fn == nil {
		return ErrMissingTask
	}

	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		p.metrics.TaskRejected(p.name, "shutdown")
		return ErrShuttingDown
	}
	wasEmpty := p.queue.len() == 0
	p.queue.push(task{fn: fn, data: data})
	depth := p.queue.len()
	p.mu.Unlock()

	p.listener.TaskPushed(wasEmpty)
	p.metrics.QueueDepth(p.name, depth)
	return nil
}

// Execute pops and runs exactly one task, returning whether a task ran.
// It is the operation a Listener drives; callers other than the bound
// listener should not use it.
//
// The callback runs outside the processor lock, so a task may safely
// re-enter its own processor (for example by pushing a follow-up task)
// without deadlocking.
func (p *Processor) Execute() bool {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return false
	}
	t, ok := p.queue.pop()
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	start := time.Now()
	p.runTask(t)
	elapsed := time.Since(start)

	p.mu.Lock()
	p.processed++
	depth := p.queue.len()
	// The just-finished task counts toward the observed depth: a burst of
	// K pushes records a high-water mark of at least K.
	if depth+1 > p.maxDepth {
		p.maxDepth = depth + 1
	}
	p.mu.Unlock()

	p.metrics.TaskProcessed(p.name, elapsed)
	p.metrics.QueueDepth(p.name, depth)

	if depth == 0 {
		p.listener.Emptied()
	}
	return true
}

// runTask invokes the callback, containing any panic so the worker that
// drives Execute survives a faulty task.
func (p *Processor) runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", F("taskprocessor", p.name), F("panic", r))
		}
	}()
	t.fn(t.data)
}

// Unreference releases one external handle on the processor, delegating to
// the owning registry. Releasing the last handle destroys the processor;
// see Registry.Unreference. Safe on a nil handle.
func (p *Processor) Unreference() {
	if p == nil {
		return
	}
	p.reg.Unreference(p)
}
