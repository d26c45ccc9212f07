package taskprocessor

import "errors"

var (
	// ErrMissingName is returned when a registry operation is given an
	// empty processor name.
	ErrMissingName = errors.New("taskprocessor name is required")

	// ErrMissingProcessor is returned by Push on a nil processor handle.
	ErrMissingProcessor = errors.New("taskprocessor is required")

	// ErrMissingTask is returned by Push when the task callback is nil.
	ErrMissingTask = errors.New("task callback is required")

	// ErrMissingListener is returned by CreateWithListener when the
	// supplied listener is nil.
	ErrMissingListener = errors.New("listener is required")

	// ErrNotFound is returned by Get with OnlyIfExists, and by Ping, when
	// no processor is registered under the requested name.
	ErrNotFound = errors.New("taskprocessor not found")

	// ErrDuplicateName is returned by CreateWithListener when a live
	// processor already holds the requested name.
	ErrDuplicateName = errors.New("taskprocessor already exists")

	// ErrShuttingDown is returned by Push once the processor's teardown
	// has begun. Work pushed at that point would never execute.
	ErrShuttingDown = errors.New("taskprocessor is shutting down")

	// ErrPingTimeout is returned by Ping when the probe task does not run
	// within the timeout.
	ErrPingTimeout = errors.New("taskprocessor ping timed out")
)
