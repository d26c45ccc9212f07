package taskprocessor

import "sync"

// defaultListener is the built-in execution policy: one dedicated worker
// goroutine per processor. The worker alternates between two states:
// draining (repeatedly calling Execute while it returns true) and idle
// (blocked on the condition variable until the next wake).
//
// The wake state has its own mutex, deliberately distinct from the
// processor's: Push never touches the listener lock past the wake call, and
// the worker's idle decision never touches the processor lock.
type defaultListener struct {
	tps *Processor // non-owning back-reference, set by Attach

	mu     sync.Mutex
	cond   *sync.Cond
	wakeUp bool
	dead   bool

	done chan struct{} // closed when the worker goroutine exits
}

func newDefaultListener() *defaultListener {
	l := &defaultListener{done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *defaultListener) Attach(tps *Processor) {
	l.tps = tps
}

func (l *defaultListener) Start() error {
	go l.run()
	return nil
}

// TaskPushed wakes the worker only on the empty→non-empty edge. A push that
// lands mid-drain needs no wake: the processor lock serializes push and pop,
// so the worker's next Execute call observes it.
func (l *defaultListener) TaskPushed(wasEmpty bool) {
	if wasEmpty {
		l.wake(false)
	}
}

func (l *defaultListener) Emptied() {}

// Shutdown signals the worker to die and joins it. The caller may release
// the processor only after this returns.
func (l *defaultListener) Shutdown() {
	l.wake(true)
	<-l.done
}

// run is the worker loop: drain until Execute reports nothing ran, then
// idle until the next wake. A wake flagged dead terminates the loop.
func (l *defaultListener) run() {
	defer close(l.done)

	for {
		if !l.tps.Execute() {
			if l.idle() {
				return
			}
		}
	}
}

// idle blocks until the next wake and reports whether the listener is dead.
// The wakeUp flag absorbs wakes that arrive before the worker gets here, so
// no empty→non-empty edge is ever lost.
func (l *defaultListener) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for !l.wakeUp {
		l.cond.Wait()
	}
	l.wakeUp = false
	return l.dead
}

// wake sets the wake flag and signals the worker. The dead flag is
// terminal: a later wake never clears it.
func (l *defaultListener) wake(die bool) {
	l.mu.Lock()
	l.wakeUp = true
	if die {
		l.dead = true
	}
	l.mu.Unlock()
	l.cond.Signal()
}
