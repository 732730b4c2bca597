package notify

import (
	"context"
	"sync"

	"paroletrack/internal/metrics"
	"paroletrack/internal/model"
)

// Dispatcher decouples alert creation from notification delivery: the
// engine enqueues, a fixed worker pool drains. Enqueue never blocks;
// a full queue drops the notification (the alert record is already
// durable) and counts the drop.
type Dispatcher struct {
	router  *Router
	ch      chan model.Alert
	workers int
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDispatcher(r *Router, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		router:  r,
		ch:      make(chan model.Alert, queueSize),
		workers: workers,
		stop:    make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop drains nothing further; queued alerts still in the channel are
// abandoned (at-most-once delivery).
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}

// Enqueue hands an alert to the worker pool without blocking.
func (d *Dispatcher) Enqueue(a model.Alert) {
	select {
	case d.ch <- a:
	default:
		metrics.DispatchQueueDrops.Inc()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case a := <-d.ch:
			d.router.Dispatch(context.Background(), a)
		}
	}
}
