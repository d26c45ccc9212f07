package taskprocessor

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// taskQueue is a slice-backed FIFO of pending tasks. It is not safe for
// concurrent use; every call must hold the owning Processor's mutex.
type taskQueue struct {
	tasks []task
}

func newTaskQueue() taskQueue {
	return taskQueue{tasks: make([]task, 0, defaultQueueCap)}
}

func (q *taskQueue) push(t task) {
	q.tasks = append(q.tasks, t)
}

func (q *taskQueue) pop() (task, bool) {
	if len(q.tasks) == 0 {
		return task{}, false
	}

	t := q.tasks[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.tasks[0] = task{}
	q.tasks = q.tasks[1:]
	q.maybeCompact()

	return t, true
}

func (q *taskQueue) len() int {
	return len(q.tasks)
}

// clear drops all pending tasks and releases their references.
func (q *taskQueue) clear() {
	q.tasks = make([]task, 0, defaultQueueCap)
}

func (q *taskQueue) maybeCompact() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]task, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}
