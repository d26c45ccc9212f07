package taskprocessor

import (
	"fmt"
	"time"
)

// DefaultPingTimeout bounds a Ping when the caller passes a non-positive
// timeout.
const DefaultPingTimeout = time.Second

// Ping pushes a no-op probe task to the named processor and measures the
// elapsed time until it executes. It returns ErrNotFound when no processor
// holds the name and ErrPingTimeout when the probe does not run within the
// timeout (the processor is wedged or heavily backlogged). Ping never
// blocks past the timeout.
func (r *Registry) Ping(name string, timeout time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}

	p, err := r.Get(name, OnlyIfExists)
	if err != nil {
		return 0, err
	}
	defer p.Unreference()

	done := make(chan struct{})
	begin := time.Now()
	if err := p.Push(func(any) { close(done) }, nil); err != nil {
		return 0, fmt.Errorf("ping %q: %w", name, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return time.Since(begin), nil
	case <-timer.C:
		return 0, fmt.Errorf("ping %q after %v: %w", name, timeout, ErrPingTimeout)
	}
}

// Ping calls Registry.Ping on the default registry.
func Ping(name string, timeout time.Duration) (time.Duration, error) {
	return Default().Ping(name, timeout)
}
