package audit

import (
	"sync"
	"sync/atomic"
)

// BufferedSink decouples event producers from a slower downstream sink.
//
// Events are handed to a background goroutine through a bounded channel.
// When the buffer is full the event is dropped and a counter incremented;
// the producing run is never blocked. This is the property that lets the
// workflow engine audit every stage without taking a latency dependency on
// the audit backend.
type BufferedSink struct {
	next    Sink
	events  chan Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewBufferedSink wraps next with an asynchronous buffer of the given size.
// A non-positive size defaults to 256. Close must be called to flush and
// stop the background worker.
func NewBufferedSink(next Sink, size int) *BufferedSink {
	if size <= 0 {
		size = 256
	}
	b := &BufferedSink{
		next:   next,
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go b.drain()
	return b
}

// Record enqueues the event without blocking. If the buffer is full, or the
// sink has been closed, the event is dropped.
func (b *BufferedSink) Record(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return
	}
	select {
	case b.events <- event:
	default:
		b.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded.
func (b *BufferedSink) Dropped() int64 {
	return b.dropped.Load()
}

// Close flushes buffered events to the downstream sink and stops the worker.
func (b *BufferedSink) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	<-b.done
}

func (b *BufferedSink) drain() {
	defer close(b.done)
	for event := range b.events {
		if b.next != nil {
			b.next.Record(event)
		}
	}
}
