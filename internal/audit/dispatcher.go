package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and event preparation.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Now stamps events that arrive without a timestamp.
	Now func() time.Time
}

// Dispatcher delivers session audit events to a sink from one goroutine so
// that a slow sink never holds up a sign-in or refresh.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event
	stop  chan struct{}
	wg    sync.WaitGroup

	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing
// is disabled; every method is safe on a nil *Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver hands ev to the sink. A panicking sink loses the event and is
// counted as a failure.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit prepares and enqueues ev. With DropIfFull a full buffer drops the
// event and counts it; otherwise Emit blocks until there is room or ctx is
// done.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ev = d.prepare(ev)

	if d.cfg.DropIfFull {
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
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

func (d *Dispatcher) prepare(ev Event) Event {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = d.cfg.Now()
	}
	ev.Timestamp = ev.Timestamp.UTC()
	ev.Metadata = Scrub(ev.Metadata)
	return ev
}

// Scrub returns a copy of metadata without keys that may carry credentials:
// anything naming a token, password or secret, and the bare "code" key.
func Scrub(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if sensitiveKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}

func sensitiveKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "code" || k == "authorization" {
		return true
	}
	for _, marker := range []string{"token", "password", "secret"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// Close stops accepting events and drains the buffer into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped returns the number of events discarded under backpressure or
// cancellation.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns the number of events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Failed returns the number of events lost to a panicking sink.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

// String summarizes the counters for debug logs.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("audit{delivered=%d dropped=%d failed=%d}", d.Delivered(), d.Dropped(), d.Failed())
}
