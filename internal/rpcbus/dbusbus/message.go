package dbusbus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/anttech/btmgrd/internal/rpcbus"
)

// replyResult carries the outcome Invoke is blocked waiting on: either the
// JSON-encoded terminal reply, or a transport-level error from Dispatch
// itself (domain faults travel inside the reply JSON as an ErrorResponse,
// not here).
type replyResult struct {
	json string
	err  error
}

// dbusMessage is the concrete rpcbus.Message for one D-Bus method call. A
// subscribing caller's Reply unblocks Invoke; any further Post calls are
// delivered as signals on the category's object path.
type dbusMessage struct {
	bus       *Bus
	category  string
	method    string
	caller    string
	raw       json.RawMessage
	subscribe bool

	result chan replyResult
	once   sync.Once
}

func newMessage(bus *Bus, category, method, caller, paramsJSON string) *dbusMessage {
	m := &dbusMessage{
		bus:      bus,
		category: category,
		method:   method,
		caller:   caller,
		raw:      json.RawMessage(paramsJSON),
		result:   make(chan replyResult, 1),
	}

	var probe struct {
		Subscribe bool `json:"subscribe"`
	}
	_ = json.Unmarshal(m.raw, &probe)
	m.subscribe = probe.Subscribe

	return m
}

func (m *dbusMessage) Category() string { return m.category }
func (m *dbusMessage) Method() string   { return m.method }
func (m *dbusMessage) CallerID() string { return m.caller }

func (m *dbusMessage) Params(v any) error {
	if len(m.raw) == 0 {
		return nil
	}
	return json.Unmarshal(m.raw, v)
}

func (m *dbusMessage) Reply(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	m.once.Do(func() {
		m.result <- replyResult{json: string(raw)}
	})
	return nil
}

func (m *dbusMessage) Post(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}
	path := dbus.ObjectPath("/" + m.category)
	return m.bus.conn.Emit(path, ifaceName+".Event", string(raw))
}

func (m *dbusMessage) Subscribed() bool { return m.subscribe }

func (m *dbusMessage) OnDisappear(fn func()) {
	m.bus.watchDisappear(m.caller, fn)
}

// failDispatch unblocks Invoke when Dispatch itself returns an error rather
// than calling Reply (a transport fault, not a domain fault).
func (m *dbusMessage) failDispatch(err error) {
	m.once.Do(func() {
		m.result <- replyResult{err: err}
	})
}

var _ rpcbus.Message = (*dbusMessage)(nil)
