package audit

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	logger  *slog.Logger
	ch      chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	closed  atomic.Bool
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink, logger *slog.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		ch:     make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain delivers whatever was queued before Close.
func (d *Dispatcher) drain() {
	for len(d.ch) > 0 {
		d.deliver(<-d.ch)
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("audit sink panicked", "event_type", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// seal stamps the event and detaches its metadata from the caller, so a
// queued event cannot change after Emit returns.
func seal(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	return event
}

// Emit queues event after sealing it. With DropIfFull a full buffer drops
// the event; otherwise Emit waits for room until ctx ends. Events emitted
// after Close are discarded without counting as drops.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = seal(event)

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-d.done:
	case <-ctx.Done():
		d.drop(event)
	}
}

func (d *Dispatcher) drop(event Event) {
	n := d.dropped.Add(1)
	d.logger.Debug("audit event dropped", "event_type", event.EventType, "user_id", event.UserID, "dropped", n)
}

// Close stops intake, delivers queued events and reports how many were
// dropped over the dispatcher's lifetime.
func (d *Dispatcher) Close() {
	if d == nil || !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.done)
	d.wg.Wait()

	if n := d.dropped.Load(); n > 0 {
		d.logger.Warn("audit events dropped", "count", n)
	}
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
