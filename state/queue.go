package state

import (
	"context"
	"sync"
)

// taskQueue runs background tasks one at a time in submission order, so
// remote mirrors of successive cart edits reach the backend in edit order.
type taskQueue struct {
	mu      sync.Mutex
	tasks   []func(context.Context)
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	pending sync.WaitGroup
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// push enqueues task. It returns false once the queue has shut down.
func (q *taskQueue) push(task func(context.Context)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending.Add(1)
	q.tasks = append(q.tasks, task)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *taskQueue) pop() (func(context.Context), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// shutdown refuses new tasks and discards queued ones.
func (q *taskQueue) shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for range q.tasks {
		q.pending.Done()
	}
	q.tasks = nil
}

func (q *taskQueue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			q.shutdown()
			return
		case <-q.wake:
		}
		for ctx.Err() == nil {
			task, ok := q.pop()
			if !ok {
				break
			}
			task(ctx)
			q.pending.Done()
		}
	}
}

// wait blocks until every pushed task has run or been discarded.
func (q *taskQueue) wait() {
	q.pending.Wait()
}
