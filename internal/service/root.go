// Package service implements the process-wide coordinator: it owns the SIL handle, the per-adapter managers, and
// the single centralized dispatcher loop every RPC message and SIL callback
// is funneled through.
package service

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btaddr"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// ProfileRouter dispatches a category's RPC methods against whichever
// per-(adapter,device) profile state a category like avrcp or opp owns.
// cmd/btmgrd registers one of these per profile category.
type ProfileRouter interface {
	Dispatch(ctx context.Context, root *Root, msg rpcbus.Message) error
}

// Root is the process-wide service root. Every field below is touched only from the
// Run goroutine; nothing in this package takes a lock.
type Root struct {
	log    *slog.Logger
	handle sil.Handle

	adapters map[string]*adapter.Manager
	profiles map[string]ProfileRouter

	statusSub         rpcbus.SubscriptionPoint
	queryAvailableSub rpcbus.SubscriptionPoint

	defaultAddress string

	tasks chan func()
}

// New builds a Root over handle without starting its dispatcher loop or
// enumerating adapters yet; call Bootstrap then Run.
func New(handle sil.Handle, log *slog.Logger) *Root {
	if log == nil {
		log = slog.Default()
	}
	return &Root{
		log:      log.With("component", "service"),
		handle:   handle,
		adapters: make(map[string]*adapter.Manager),
		profiles: make(map[string]ProfileRouter),
		tasks:    make(chan func(), 64),
	}
}

// RegisterProfile wires a profile category's router into the dispatcher
// (cmd/btmgrd calls this once per profile category at startup).
func (r *Root) RegisterProfile(category string, router ProfileRouter) {
	r.profiles[category] = router
}

// Bootstrap enumerates the SIL's current adapter list and subscribes Root as
// the single Observer for all stack events. An unavailable handle (nil)
// leaves the adapter list empty; every adapter-scoped method then fails
// with adapterNotAvailable.
func (r *Root) Bootstrap() {
	if r.handle == nil {
		r.log.Warn("SIL handle unavailable at startup; adapter list is empty")
		return
	}
	for _, a := range r.handle.Adapters() {
		r.addAdapter(a)
	}
	r.handle.Subscribe(r)
}

func (r *Root) addAdapter(stackAdapter sil.Adapter) *adapter.Manager {
	m := adapter.New(stackAdapter, r.log)
	m.OnStatusChanged(func(*adapter.Manager) { r.notifyStatus() })
	m.OnQueryAvailableChanged(func(*adapter.Manager) { r.notifyQueryAvailable() })
	r.adapters[m.Address()] = m
	if r.defaultAddress == "" {
		r.defaultAddress = m.Address()
	}
	r.notifyStatus()
	r.notifyQueryAvailable()
	return m
}

// removeAdapter destroys a Manager whose backing SIL adapter has
// disappeared.
func (r *Root) removeAdapter(address string) {
	if _, ok := r.adapters[address]; !ok {
		return
	}
	delete(r.adapters, address)
	if r.defaultAddress == address {
		r.defaultAddress = ""
		for a := range r.adapters {
			r.defaultAddress = a
			break
		}
	}
	r.notifyStatus()
	r.notifyQueryAvailable()
}

// Adapter looks up a Manager by its canonical address.
func (r *Root) Adapter(address string) (*adapter.Manager, bool) {
	m, ok := r.adapters[address]
	return m, ok
}

// Adapters returns every currently known Manager, in no particular order.
func (r *Root) Adapters() []*adapter.Manager {
	out := make([]*adapter.Manager, 0, len(r.adapters))
	for _, m := range r.adapters {
		out = append(out, m)
	}
	return out
}

// Submit enqueues fn to run on the single dispatcher goroutine. Safe to call
// from any goroutine (the SIL may deliver observer callbacks off-thread);
// fn itself must not be called directly by anything but Run.
func (r *Root) Submit(fn func()) {
	r.tasks <- fn
}

// Run is the single-threaded cooperative dispatcher: it serializes every
// RPC message, SIL observer callback, and timer onto one goroutine. It
// returns when ctx is canceled.
func (r *Root) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-r.tasks:
			fn()
		}
	}
}

// ResolveAdapter decodes the adapterAddress field of the request and looks
// up its Manager, falling back to the default adapter when the field is
// empty. On failure it replies adapterNotAvailable itself.
func (r *Root) ResolveAdapter(msg rpcbus.Message) (*adapter.Manager, bool) {
	var req struct {
		AdapterAddress string `json:"adapterAddress"`
	}
	_ = msg.Params(&req)

	addr := req.AdapterAddress
	if addr == "" {
		addr = r.defaultAddress
	} else if normalized, err := btaddr.Normalize(addr); err == nil {
		addr = normalized
	}

	m, ok := r.adapters[addr]
	if !ok {
		_ = msg.Reply(rpcbus.ErrorResponse{ErrorCode: int(btcode.AdapterNotAvailable), ErrorText: btcode.AdapterNotAvailable.String()})
		return nil, false
	}
	return m, true
}
