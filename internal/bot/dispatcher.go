// ABOUTME: Per-session serial job queue
// ABOUTME: Jobs for one key run in submission order on one goroutine; keys run in parallel

package bot

import "sync"

type queue struct {
	pending []func()
}

// dispatcher runs jobs so that jobs sharing a key never overlap and keep their order.
// A key's goroutine exits once its queue drains.
type dispatcher struct {
	mu     sync.Mutex
	queues map[string]*queue
	wg     sync.WaitGroup
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[string]*queue)}
}

// Dispatch schedules job behind any pending jobs for key.
func (d *dispatcher) Dispatch(key string, job func()) {
	d.mu.Lock()
	if q, ok := d.queues[key]; ok {
		q.pending = append(q.pending, job)
		d.mu.Unlock()
		return
	}
	q := &queue{}
	d.queues[key] = q
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain(key, q, job)
}

func (d *dispatcher) drain(key string, q *queue, job func()) {
	defer d.wg.Done()
	for {
		job()

		d.mu.Lock()
		if len(q.pending) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job = q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		d.mu.Unlock()
	}
}

// Wait blocks until every dispatched job has finished.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

// active returns the number of keys with a running goroutine.
func (d *dispatcher) active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
