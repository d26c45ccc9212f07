package taskprocessor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// GetMode controls whether Get may create a missing processor.
type GetMode int

const (
	// CreateIfMissing creates a processor with the default single-worker
	// listener when the name is not registered.
	CreateIfMissing GetMode = iota

	// OnlyIfExists returns ErrNotFound on a miss, with no side effects.
	OnlyIfExists
)

// Registry is a concurrent directory of live processors keyed by
// case-insensitive name. It enforces at most one live processor per name
// and owns their lifetimes: the registry owns each processor, the processor
// owns its listener, and the listener holds only a non-owning
// back-reference. External callers hold reference-counted handles; the last
// Unreference unlinks the processor and synchronously stops its listener.
type Registry struct {
	mu    sync.Mutex
	procs map[string]*Processor

	logger  Logger
	metrics Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger overrides the registry's logger. The default writes through
// the standard log package.
func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics installs a metrics sink invoked by every processor the
// registry creates. The default discards all events.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		procs:   make(map[string]*Processor),
		logger:  NewDefaultLogger(),
		metrics: &NilMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns a handle to the processor registered under name, creating it
// with the default listener when mode is CreateIfMissing. With OnlyIfExists
// a miss returns ErrNotFound and leaves the registry untouched.
//
// Every successful Get must be balanced by one Unreference.
func (r *Registry) Get(name string, mode GetMode) (*Processor, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.procs[key]; ok {
		p.refs++
		return p, nil
	}
	if mode == OnlyIfExists {
		return nil, fmt.Errorf("taskprocessor %q: %w", name, ErrNotFound)
	}
	return r.createLocked(name, key, newDefaultListener())
}

// CreateWithListener registers a processor bound to a caller-supplied
// execution policy instead of the default worker thread. It fails with
// ErrDuplicateName when the name is already live; the listener is not
// started in that case.
func (r *Registry) CreateWithListener(name string, listener Listener) (*Processor, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	if listener == nil {
		return nil, ErrMissingListener
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.procs[key]; ok {
		return nil, fmt.Errorf("taskprocessor %q: %w", name, ErrDuplicateName)
	}
	return r.createLocked(name, key, listener)
}

// createLocked builds, links and starts a processor. Caller holds r.mu.
// A start failure unwinds completely: nothing partially registered is ever
// visible to other callers.
func (r *Registry) createLocked(name, key string, listener Listener) (*Processor, error) {
	p := &Processor{
		name:     name,
		key:      key,
		queue:    newTaskQueue(),
		listener: listener,
		reg:      r,
		logger:   r.logger,
		metrics:  r.metrics,
		refs:     1,
	}
	listener.Attach(p)
	r.procs[key] = p

	if err := listener.Start(); err != nil {
		delete(r.procs, key)
		r.logger.Error("taskprocessor listener failed to start",
			F("name", name), F("error", err))
		return nil, fmt.Errorf("start listener for taskprocessor %q: %w", name, err)
	}

	r.logger.Debug("created taskprocessor", F("name", name))
	return p, nil
}

// Unreference releases one external handle on p. When the last handle is
// released the processor is finalized: it is unlinked from the registry,
// marked shutting down (pops refuse from that point on), and its listener
// is shut down synchronously, blocking until the worker has fully stopped.
//
// Tasks still queued at finalization are discarded unexecuted; the
// discard is logged. The name becomes available for re-registration as
// soon as Unreference returns from the unlink, so a subsequent Get creates
// a fresh processor with fresh statistics.
func (r *Registry) Unreference(p *Processor) {
	if p == nil {
		return
	}

	r.mu.Lock()
	if p.refs <= 0 {
		r.mu.Unlock()
		r.logger.Warn("unreference of destroyed taskprocessor", F("name", p.name))
		return
	}
	p.refs--
	if p.refs > 0 {
		r.mu.Unlock()
		return
	}
	if r.procs[p.key] == p {
		delete(r.procs, p.key)
	}
	r.mu.Unlock()

	// Finalize outside the registry lock: the worker may be mid-task and
	// that task may call back into the registry.
	p.mu.Lock()
	p.shuttingDown = true
	discarded := p.queue.len()
	p.mu.Unlock()

	p.listener.Shutdown()

	if discarded > 0 {
		r.logger.Warn("taskprocessor destroyed with queued tasks",
			F("name", p.name), F("discarded", discarded))
	}

	p.mu.Lock()
	p.queue.clear()
	p.mu.Unlock()

	r.logger.Debug("destroyed taskprocessor", F("name", p.name))
}

// Count returns the number of live processors.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Report returns one row per live processor, sorted by name. Each row is
// internally consistent (read under that processor's lock); rows are not a
// cross-processor snapshot. Report never fails; processors destroyed while
// it runs are simply omitted.
func (r *Registry) Report() []ProcessorReport {
	r.mu.Lock()
	procs := make([]*Processor, 0, len(r.procs))
	for _, p := range r.procs {
		procs = append(procs, p)
	}
	r.mu.Unlock()

	sort.Slice(procs, func(i, j int) bool { return procs[i].key < procs[j].key })

	rows := make([]ProcessorReport, 0, len(procs))
	for _, p := range procs {
		p.mu.Lock()
		rows = append(rows, ProcessorReport{
			Name:      p.name,
			Processed: p.processed,
			Depth:     p.queue.len(),
			MaxDepth:  p.maxDepth,
		})
		p.mu.Unlock()
	}
	return rows
}

// =============================================================================
// Default Registry Helper (Singleton)
// =============================================================================

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Get calls Registry.Get on the default registry.
func Get(name string, mode GetMode) (*Processor, error) {
	return Default().Get(name, mode)
}

// CreateWithListener calls Registry.CreateWithListener on the default
// registry.
func CreateWithListener(name string, listener Listener) (*Processor, error) {
	return Default().CreateWithListener(name, listener)
}

// Unreference releases one handle on p via its owning registry.
func Unreference(p *Processor) {
	p.Unreference()
}

// Report calls Registry.Report on the default registry.
func Report() []ProcessorReport {
	return Default().Report()
}
