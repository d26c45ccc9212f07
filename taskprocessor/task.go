package taskprocessor

// TaskFunc is the unit of work pushed to a Processor. The data argument is
// the opaque value supplied at push time; the callback owns it once invoked.
type TaskFunc func(data any)

// task is the queue envelope for one pushed callback. The queue owns the
// envelope until the task is popped for execution.
type task struct {
	fn   TaskFunc
	data any
}
