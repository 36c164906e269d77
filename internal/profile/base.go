// Package profile implements the connect/disconnect/getStatus contract
// shared by every profile (A2DP, AVRCP, GATT, PBAP, MAP, HFP, PAN, HID, SPP,
// OPP, mesh): one Base per profile category, driving a narrow per-adapter
// Stack binding and owning the connecting/connected bookkeeping, the
// per-scope getStatus subscription points, and the connect-watch map.
package profile

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

// Stack is the narrow per-adapter contract Base drives. Each profile binds
// one implementation per adapter it is enabled on.
type Stack interface {
	Connected(address string) bool
	Connect(ctx context.Context, address string, cb func(err error))
	Disconnect(ctx context.Context, address string, cb func(err error))
}

// RoleStack is implemented by profiles that additionally support runtime
// enable/disable by role UUID (A2DP source/sink, AVRCP controller/target).
type RoleStack interface {
	EnableRole(ctx context.Context, uuid string, cb func(err error))
	DisableRole(ctx context.Context, uuid string, cb func(err error))
}

type scopeKey struct {
	adapter string
	scope   string
}

type deviceState struct {
	connecting   bool
	connected    bool
	statusSub    rpcbus.SubscriptionPoint
	connectWatch *rpcbus.Watch
}

// Base is one profile instance's connect/disconnect/getStatus state
// machine. It is not safe for concurrent use; callers run it from the
// single dispatcher goroutine like every other domain package here.
type Base struct {
	category string
	log      *slog.Logger

	// sessionKeyed switches the per-(adapter, device) scope used by every
	// method below to per-(adapter, sessionKey); MAP is the one profile
	// that needs this, since more than one MAS session can exist against
	// the same device.
	sessionKeyed bool

	adapters map[string]Stack
	roles    map[string]RoleStack
	devices  map[scopeKey]*deviceState
}

// New creates a Base for the given profile category (used only in log
// fields and error text).
func New(category string, log *slog.Logger) *Base {
	if log == nil {
		log = slog.Default()
	}
	return &Base{
		category: category,
		log:      log.With("profile", category),
		adapters: make(map[string]Stack),
		roles:    make(map[string]RoleStack),
		devices:  make(map[scopeKey]*deviceState),
	}
}

// WithSessionKeys switches this Base's scope from device address to an
// opaque session key supplied by the caller of Connect/Disconnect/GetStatus.
func (b *Base) WithSessionKeys() *Base {
	b.sessionKeyed = true
	return b
}

// Bind registers the Stack backing this profile on one adapter. RoleStack
// is optional; profiles without runtime role enable pass a Stack that
// doesn't implement it.
func (b *Base) Bind(adapterAddress string, stack Stack) {
	b.adapters[adapterAddress] = stack
	if rs, ok := stack.(RoleStack); ok {
		b.roles[adapterAddress] = rs
	}
}

// Unbind removes the adapter's Stack binding and drops every device-state
// entry scoped to it, closing any live connect-watch without posting
// (the adapter itself is gone, not the remote device).
func (b *Base) Unbind(adapterAddress string) {
	delete(b.adapters, adapterAddress)
	delete(b.roles, adapterAddress)
	for k, st := range b.devices {
		if k.adapter != adapterAddress {
			continue
		}
		if st.connectWatch != nil {
			st.connectWatch.Close()
		}
		delete(b.devices, k)
	}
}

func (b *Base) key(adapterAddress, deviceAddress, sessionKey string) scopeKey {
	if b.sessionKeyed {
		return scopeKey{adapter: adapterAddress, scope: sessionKey}
	}
	return scopeKey{adapter: adapterAddress, scope: deviceAddress}
}

func (b *Base) stateFor(k scopeKey) *deviceState {
	st, ok := b.devices[k]
	if !ok {
		st = &deviceState{}
		b.devices[k] = st
	}
	return st
}

// StatusEvent is the getStatus reply/post shape common to every profile.
type StatusEvent struct {
	AdapterAddress string `json:"adapterAddress"`
	Address        string `json:"address"`
	Connected      bool   `json:"connected"`
	Connecting     bool   `json:"connecting"`
	ReturnValue    bool   `json:"returnValue"`
	Subscribed     *bool  `json:"subscribed,omitempty"`
}

// DisconnectEvent is posted to a connect subscription's watch at teardown.
type DisconnectEvent struct {
	AdapterAddress     string `json:"adapterAddress"`
	Address            string `json:"address"`
	DisconnectByRemote bool   `json:"disconnectByRemote"`
}

func (b *Base) statusEvent(adapterAddress, address string, st *deviceState) StatusEvent {
	return StatusEvent{
		AdapterAddress: adapterAddress,
		Address:        address,
		Connected:      st.connected,
		Connecting:     st.connecting,
		ReturnValue:    true,
	}
}

func (b *Base) notifyStatus(adapterAddress, address string, k scopeKey) {
	st := b.stateFor(k)
	st.statusSub.Post(b.statusEvent(adapterAddress, address, st))
}

// Connect implements the connect protocol: reject unknown device /
// uninitialized profile / in-flight connect / already-connected, mark
// connecting, notify status, invoke the stack's connect. The stack's
// subsequent connected=true property change (PropertyChanged below) -- not
// this call's completion -- clears the connecting flag and fans out.
func (b *Base) Connect(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager, address, sessionKey string) error {
	adapterAddress := mgr.Address()
	stack, ok := b.adapters[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	if _, known := mgr.Inventory().Get(address); !known {
		return msg.Reply(rpcErr(btcode.DeviceNotAvail))
	}

	k := b.key(adapterAddress, address, sessionKey)
	st := b.stateFor(k)
	if st.connecting {
		return msg.Reply(rpcErr(btcode.DevConnecting))
	}
	if st.connected || stack.Connected(address) {
		return msg.Reply(rpcErr(btcode.ProfileConnected))
	}

	st.connecting = true
	b.notifyStatus(adapterAddress, address, k)

	subscribe := msg.Subscribed()
	if err := msg.Reply(subscribedResponse(adapterAddress, subscribe)); err != nil {
		return err
	}
	if subscribe {
		st.connectWatch = rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: address}, func(*rpcbus.Watch) {
			stack.Disconnect(ctx, address, func(error) {})
		})
	}

	stack.Connect(ctx, address, func(err error) {
		st := b.stateFor(k)
		if err != nil {
			st.connecting = false
			if st.connectWatch != nil {
				st.connectWatch.Close()
				st.connectWatch = nil
			}
			b.notifyStatus(adapterAddress, address, k)
		}
	})
	return nil
}

// Disconnect implements the disconnect protocol: verify connected, call the
// stack's disconnect, on success tear down the connect-watch locally
// (disconnectByRemote:false), unmark connected/connecting, and fan out.
func (b *Base) Disconnect(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager, address, sessionKey string) error {
	adapterAddress := mgr.Address()
	stack, ok := b.adapters[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	k := b.key(adapterAddress, address, sessionKey)
	st, ok := b.devices[k]
	if !ok || !st.connected {
		return msg.Reply(rpcErr(btcode.ProfileNotConnected))
	}

	stack.Disconnect(ctx, address, func(err error) {
		if err != nil {
			b.log.Warn("stack disconnect failed", "adapterAddress", adapterAddress, "address", address, "err", err)
			_ = msg.Reply(stackErr(err))
			return
		}
		b.teardown(st, adapterAddress, address, false)
		b.notifyStatus(adapterAddress, address, k)
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// GetStatus replies with the current connecting/connected state and, when
// subscribed, keeps posting changes until the caller goes away.
func (b *Base) GetStatus(msg rpcbus.Message, mgr *adapter.Manager, address, sessionKey string) error {
	adapterAddress := mgr.Address()
	k := b.key(adapterAddress, address, sessionKey)
	st := b.stateFor(k)

	ev := b.statusEvent(adapterAddress, address, st)
	if msg.Subscribed() {
		sub := true
		ev.Subscribed = &sub
	}
	if err := msg.Reply(ev); err != nil {
		return err
	}
	if !msg.Subscribed() {
		return nil
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: address}, func(w *rpcbus.Watch) {
		st.statusSub.Remove(w)
	})
	st.statusSub.Subscribe(w)
	return nil
}

// PropertyChanged reacts to the stack's connected property-change
// observation. A transition to true is what actually clears the connecting
// flag and marks connected; a transition to false tears down any live
// connect-watch with disconnectByRemote:true, since a local disconnect
// tears its watch down through Disconnect above instead.
func (b *Base) PropertyChanged(adapterAddress, address, sessionKey string, connected bool) {
	k := b.key(adapterAddress, address, sessionKey)
	st, ok := b.devices[k]
	if !ok {
		return
	}
	if connected {
		st.connecting = false
		st.connected = true
		b.notifyStatus(adapterAddress, address, k)
		return
	}
	if !st.connected {
		return
	}
	b.teardown(st, adapterAddress, address, true)
	b.notifyStatus(adapterAddress, address, k)
}

func (b *Base) teardown(st *deviceState, adapterAddress, address string, byRemote bool) {
	st.connected = false
	st.connecting = false
	if st.connectWatch == nil {
		return
	}
	_ = st.connectWatch.Post(DisconnectEvent{AdapterAddress: adapterAddress, Address: address, DisconnectByRemote: byRemote})
	st.connectWatch.Close()
	st.connectWatch = nil
}
