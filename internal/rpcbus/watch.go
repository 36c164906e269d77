package rpcbus

import "sync"

// Scope carries the caller-context metadata a Watch is tagged with so that
// fan-out logic in a SubscriptionPoint can filter posts by adapter, device,
// LE scan id, or MAP session key without the watch's owner threading those
// fields through separately.
type Scope struct {
	AdapterAddress string
	DeviceAddress  string
	ScanID         int
	SessionKey     string
	// CallerID identifies the bus-level caller (e.g. a D-Bus unique name).
	// It lets one RPC method tear down a subscription established by an
	// earlier, different method call from the same caller -- e.g.
	// cancelDiscovery dropping that caller's filtered-devices subscription
	//.
	CallerID string
}

// Watch pairs one subscription Message with a disappearance callback that
// fires at most once. The watch keeps the message reference alive for as
// long as the watch itself exists; destruction is safe to invoke from
// inside the disappeared callback.
type Watch struct {
	msg   Message
	Scope Scope

	mu       sync.Mutex
	once     sync.Once
	closed   bool
	onClosed func(w *Watch)
}

// NewWatch wraps msg with a disappearance callback. onDisappear is invoked
// at most once, when the bus reports the caller gone, and Closed() is true
// by the time it runs. A local Close before that suppresses it.
func NewWatch(msg Message, scope Scope, onDisappear func(w *Watch)) *Watch {
	w := &Watch{msg: msg, Scope: scope, onClosed: onDisappear}
	msg.OnDisappear(w.fireDisappear)
	return w
}

func (w *Watch) fireDisappear() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.once.Do(func() {
		if w.onClosed != nil {
			w.onClosed(w)
		}
	})
}

// Close tears the watch down locally (e.g. after a terminal Reply) without
// treating it as a caller disappearance. It is idempotent.
func (w *Watch) Close() {
	w.mu.Lock()
	already := w.closed
	w.closed = true
	w.mu.Unlock()
	if already {
		return
	}
	w.once.Do(func() {})
}

// Closed reports whether the watch has been torn down, locally or by
// disappearance.
func (w *Watch) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Post forwards an event to the underlying message. It is a no-op once the
// watch is closed.
func (w *Watch) Post(v any) error {
	if w.Closed() {
		return nil
	}
	return w.msg.Post(v)
}

// Reply sends the terminal response for the underlying message.
func (w *Watch) Reply(v any) error {
	return w.msg.Reply(v)
}

// Message exposes the wrapped message for callers that need to decode
// request parameters before the watch is fully constructed.
func (w *Watch) Message() Message {
	return w.msg
}
