package goSession

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// eventDispatcher fans events out to subscribers. In async mode one goroutine drains a
// bounded queue; otherwise delivery happens on the publishing goroutine.
type eventDispatcher struct {
	cfg EventsConfig
	log *slog.Logger

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64

	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

type subscription struct {
	id   uint64
	sink EventSink
}

func newEventDispatcher(cfg EventsConfig, logger *slog.Logger) *eventDispatcher {
	d := &eventDispatcher{
		cfg:  cfg,
		log:  logger,
		done: make(chan struct{}),
	}
	if !cfg.Async {
		return d
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	d.ch = make(chan Event, cfg.BufferSize)

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *eventDispatcher) Subscribe(sink EventSink) func() {
	if sink == nil {
		return func() {}
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, sink: sink})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			kept := make([]subscription, 0, len(d.subs))
			for _, sub := range d.subs {
				if sub.id != id {
					kept = append(kept, sub)
				}
			}
			d.subs = kept
		})
	}
}

func (d *eventDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *eventDispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !d.cfg.Async {
		d.deliver(event)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *eventDispatcher) deliver(event Event) {
	d.mu.RLock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, sub := range subs {
		d.safeEmit(sub.sink, event)
	}
}

func (d *eventDispatcher) safeEmit(s EventSink, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("goSession: event sink panicked", "event", event.Type, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.Emit(context.Background(), event)
}

func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
