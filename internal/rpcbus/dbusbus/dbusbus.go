// Package dbusbus is the concrete D-Bus transport backing internal/rpcbus:
// one exported object per RPC category, method calls decoded through a
// generic Invoke method and handed to a Dispatcher, subscription fan-out
// emitted as D-Bus signals, and caller disappearance detected through
// org.freedesktop.DBus's NameOwnerChanged signal. The object-export and
// signal-watch idioms follow the Profile1 handler pattern used elsewhere in
// the pack for talking to BlueZ over github.com/godbus/dbus/v5.
package dbusbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/anttech/btmgrd/internal/rpcbus"
)

// ifaceName is the D-Bus interface every category object exports.
const ifaceName = "org.anttech.btmgr1"

// categories lists the object path components exported on the bus; each
// becomes "/" + category, e.g. "/adapter", "/avrcp".
var categories = []string{
	"adapter", "device", "le",
	"avrcp", "opp", "a2dp", "gatt", "pbap", "map", "hfp", "pan", "hid", "spp", "mesh",
}

// Dispatcher is the subset of service.Root this package drives: Submit
// queues a function onto the single dispatcher goroutine, and Dispatch
// routes one decoded rpcbus.Message by category. Dispatch must only ever be
// called from inside a Submit callback, which is exactly how invoke uses it.
type Dispatcher interface {
	Submit(fn func())
	Dispatch(ctx context.Context, msg rpcbus.Message) error
}

// Bus owns the D-Bus connection, the exported category objects, and the
// registry of per-caller disappearance callbacks fed by NameOwnerChanged.
type Bus struct {
	conn       *dbus.Conn
	log        *slog.Logger
	dispatcher Dispatcher
	busName    string

	mu           sync.Mutex
	disappearFns map[string][]func()

	sigCh chan *dbus.Signal
	done  chan struct{}
}

// Connect dials the system bus and returns a Bus ready for Start.
func Connect(busName string, dispatcher Dispatcher, log *slog.Logger) (*Bus, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return newBus(conn, busName, dispatcher, log), nil
}

func newBus(conn *dbus.Conn, busName string, dispatcher Dispatcher, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		conn:         conn,
		log:          log.With("component", "dbusbus"),
		dispatcher:   dispatcher,
		busName:      busName,
		disappearFns: make(map[string][]func()),
	}
}

// Start claims the configured bus name, exports every category object, and
// begins watching NameOwnerChanged for caller disappearance. It returns once
// the bus name is owned and every object is exported; the signal watch loop
// runs in its own goroutine until ctx is done or Close is called.
func (b *Bus) Start(ctx context.Context) error {
	reply, err := b.conn.RequestName(b.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name %s: %w", b.busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already owned", b.busName)
	}

	for _, category := range categories {
		h := &categoryHandler{bus: b, category: category}
		path := dbus.ObjectPath("/" + category)
		if err := b.conn.Export(h, path, ifaceName); err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
	}

	b.sigCh = make(chan *dbus.Signal, 32)
	b.conn.Signal(b.sigCh)
	if err := b.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("watch NameOwnerChanged: %w", err)
	}

	b.done = make(chan struct{})
	go b.watchLoop(ctx)

	b.log.Info("dbus transport started", "busName", b.busName, "categories", len(categories))
	return nil
}

func (b *Bus) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case sig, ok := <-b.sigCh:
			if !ok {
				return
			}
			if sig.Name == "org.freedesktop.DBus.NameOwnerChanged" {
				b.handleNameOwnerChanged(sig)
			}
		}
	}
}

func (b *Bus) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) != 3 {
		return
	}
	name, _ := sig.Body[0].(string)
	newOwner, _ := sig.Body[2].(string)
	if newOwner != "" {
		return
	}
	b.fireDisappear(name)
}

func (b *Bus) fireDisappear(caller string) {
	b.mu.Lock()
	fns := b.disappearFns[caller]
	delete(b.disappearFns, caller)
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// watchDisappear registers fn to run on the dispatcher goroutine (through
// Submit) when caller's unique name disappears from the bus. If caller has
// already disappeared (or the lookup itself fails, e.g. the caller vanished
// between the method call and this registration), fn runs synchronously
// instead.
func (b *Bus) watchDisappear(caller string, fn func()) {
	if caller == "" {
		fn()
		return
	}

	var owner string
	if err := b.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, caller).Store(&owner); err != nil {
		fn()
		return
	}

	b.mu.Lock()
	b.disappearFns[caller] = append(b.disappearFns[caller], func() { b.dispatcher.Submit(fn) })
	b.mu.Unlock()
}

// Close tears down the signal watch and releases the bus connection.
func (b *Bus) Close() error {
	if b.done != nil {
		close(b.done)
	}
	_ = b.conn.RemoveMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	)
	if b.sigCh != nil {
		b.conn.RemoveSignal(b.sigCh)
	}
	return b.conn.Close()
}

// categoryHandler is the D-Bus-exported object for one RPC category. Its
// only method, Invoke, is generic: the method name and JSON-encoded params
// travel as plain strings rather than one D-Bus method per RPC method,
// since the category set and its per-method schemas are owned by
// internal/service and internal/profiles, not by the transport.
type categoryHandler struct {
	bus      *Bus
	category string
}

// Invoke dispatches one RPC call. sender is filled by the D-Bus connection
// with the caller's unique bus name; it is not part of the wire signature.
func (h *categoryHandler) Invoke(method, paramsJSON string, sender dbus.Sender) (string, *dbus.Error) {
	return h.bus.invoke(h.category, method, paramsJSON, string(sender))
}

func (b *Bus) invoke(category, method, paramsJSON, caller string) (string, *dbus.Error) {
	msg := newMessage(b, category, method, caller, paramsJSON)

	b.dispatcher.Submit(func() {
		if err := b.dispatcher.Dispatch(context.Background(), msg); err != nil {
			msg.failDispatch(err)
		}
	})

	reply := <-msg.result
	if reply.err != nil {
		return "", dbus.MakeFailedError(reply.err)
	}
	return reply.json, nil
}
