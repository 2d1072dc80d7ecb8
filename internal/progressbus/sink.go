package progressbus

import "sync"

// CallbackSink adapts a single function into a Sink, mirroring the
// teacher's callback-struct UIReporter. It is safe for the codec to call
// from one goroutine at a time (per §5, a codec is single-threaded); the
// mutex guards concurrent construction/replacement of the callback from an
// unrelated goroutine (e.g. a CLI updating its display while a background
// cancellation check runs).
type CallbackSink struct {
	mu sync.RWMutex
	fn func(Event)
}

// NewCallbackSink returns a Sink that invokes fn for every emitted event.
func NewCallbackSink(fn func(Event)) *CallbackSink {
	return &CallbackSink{fn: fn}
}

// Emit implements Sink.
func (c *CallbackSink) Emit(e Event) {
	c.mu.RLock()
	fn := c.fn
	c.mu.RUnlock()
	if fn != nil {
		fn(e)
	}
}

// SetCallback replaces the function invoked on Emit.
func (c *CallbackSink) SetCallback(fn func(Event)) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

// RecordingSink accumulates every event it receives, in order. Used by
// tests that assert on the exact sequence of named lifecycle events a
// StreamCodec or ArchiveFramer emits.
type RecordingSink struct {
	mu     sync.Mutex
	Events []Event
}

// Emit implements Sink.
func (r *RecordingSink) Emit(e Event) {
	r.mu.Lock()
	r.Events = append(r.Events, e)
	r.mu.Unlock()
}

// Kinds returns the Kind of every recorded event, in order.
func (r *RecordingSink) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		kinds[i] = e.Kind
	}
	return kinds
}
