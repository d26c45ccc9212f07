package taskprocessor

// Listener is the execution policy bound to one Processor. It decides when
// the tasks queued on its processor are executed, by calling the
// processor's Execute method. The built-in policy runs a dedicated worker
// goroutine; alternatives can delegate execution to an existing event loop
// or pool instead (see CreateWithListener).
//
// Lifecycle: the registry calls Attach exactly once, then Start, before the
// processor is handed to any caller. Shutdown is called exactly once, after
// the processor has been unlinked from the registry. Implementations must
// not call back into the registry from Attach or Start.
type Listener interface {
	// Attach binds the listener to its processor. The reference is
	// non-owning: the processor owns the listener, never the reverse.
	Attach(tps *Processor)

	// Start activates the policy and may spawn workers. A non-nil error
	// aborts processor creation; Shutdown will not be called.
	Start() error

	// TaskPushed is invoked after every successful push, outside the
	// processor lock. wasEmpty is true only when the push made the queue
	// transition from empty to non-empty; this edge is the only wake
	// signal the policy needs, since a task pushed while draining is
	// observed on the next Execute call anyway.
	TaskPushed(wasEmpty bool)

	// Emptied is invoked after an Execute call leaves the queue empty.
	Emptied()

	// Shutdown stops the policy. It must block until every worker spawned
	// by Start has fully stopped; the processor is released afterwards.
	Shutdown()
}
