package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; overflow is counted, not queued.
	DropIfFull bool
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Pending   int
}

// Dispatcher forwards events to a Sink from a single background goroutine,
// so sinks never run on the request path. A nil *Dispatcher discards
// everything.
type Dispatcher struct {
	sink     Sink
	queue    chan Event
	nonBlock bool

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	closing  atomic.Bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher starts delivery and returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		queue:    make(chan Event, max(cfg.BufferSize, 1)),
		nonBlock: cfg.DropIfFull,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)

	for {
		select {
		case ev := <-d.queue:
			d.send(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers whatever was accepted before Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.send(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) send(ev Event) {
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. In non-blocking mode a full buffer counts a drop and
// returns at once. Otherwise Emit waits for room, and a cancelled ctx also
// counts as a drop. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closing.Load() {
		return
	}

	var cancelled <-chan struct{}
	if ctx != nil {
		cancelled = ctx.Done()
	}

	if d.nonBlock {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-d.stop:
	case <-cancelled:
		d.dropped.Add(1)
	}
}

// Close stops intake, flushes queued events, and waits for the sink to
// finish. Repeated calls are no-ops.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
	})
	<-d.stopped
}

// Dropped returns the number of events discarded by backpressure.
func (d *Dispatcher) Dropped() uint64 {
	return d.Stats().Dropped
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Pending:   len(d.queue),
	}
}
