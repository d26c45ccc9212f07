// Package taskprocessor maintains a registry of uniquely named, serialized
// task queues that can be shared across subsystems.
//
// A Processor is a named FIFO queue bound to an execution policy (a
// Listener). Producers push callbacks to a processor by name; the processor
// guarantees that tasks for that name run strictly in push order, one at a
// time, without the producers managing workers themselves. Distinct
// processors execute fully in parallel.
//
// # Quick Start
//
// Get (or lazily create) a processor from the default registry and push
// work to it:
//
//	tps, err := taskprocessor.Get("pbx/dialplan", taskprocessor.CreateIfMissing)
//	if err != nil {
//		// handle error
//	}
//	defer tps.Unreference()
//
//	tps.Push(func(data any) {
//		// Runs on the processor's dedicated worker, after everything
//		// pushed before it and before everything pushed after it.
//	}, nil)
//
// # Lifecycle
//
// Processors are reference counted. Every successful Get or
// CreateWithListener returns a handle the caller must release with
// Unreference. When the last handle is released, the registry unlinks the
// processor, synchronously stops its listener's worker, and discards any
// tasks still queued (see Registry.Unreference).
//
// # Execution policies
//
// The built-in policy runs one dedicated worker goroutine per processor,
// idle on a condition variable until the queue transitions from empty to
// non-empty. Subsystems that must integrate task execution into their own
// event loop can supply a custom Listener via CreateWithListener; see the
// Listener interface for the contract.
package taskprocessor
