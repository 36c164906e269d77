package service

import (
	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

// AdapterListEvent is the payload for the Service Root's aggregate getStatus
// and queryAvailable responses: one entry per
// currently known adapter.
type AdapterListEvent struct {
	Adapters    []adapter.StatusEvent `json:"adapters"`
	ReturnValue bool                  `json:"returnValue"`
}

func (r *Root) adapterListEvent() AdapterListEvent {
	out := AdapterListEvent{ReturnValue: true}
	for _, m := range r.adapters {
		out.Adapters = append(out.Adapters, m.StatusEventSnapshot())
	}
	return out
}

func (r *Root) notifyStatus() {
	r.statusSub.Post(r.adapterListEvent())
}

func (r *Root) notifyQueryAvailable() {
	r.queryAvailableSub.Post(r.adapterListEvent())
}

// GetStatus replies with every adapter's current status and, if the caller
// subscribed, keeps posting on any subsequent adapter addition or removal or
// per-adapter status change.
func (r *Root) GetStatus(msg rpcbus.Message) error {
	if err := msg.Reply(r.adapterListEvent()); err != nil {
		return err
	}
	if msg.Subscribed() {
		w := rpcbus.NewWatch(msg, rpcbus.Scope{CallerID: msg.CallerID()}, func(w *rpcbus.Watch) {
			r.statusSub.Remove(w)
		})
		r.statusSub.Subscribe(w)
	}
	return nil
}

// QueryAvailable replies with the same adapter-list shape as GetStatus but
// subscribes to the narrower set of changes assigned to queryAvailable
// (address, class-of-device, stack identity, supported UUIDs).
func (r *Root) QueryAvailable(msg rpcbus.Message) error {
	if err := msg.Reply(r.adapterListEvent()); err != nil {
		return err
	}
	if msg.Subscribed() {
		w := rpcbus.NewWatch(msg, rpcbus.Scope{CallerID: msg.CallerID()}, func(w *rpcbus.Watch) {
			r.queryAvailableSub.Remove(w)
		})
		r.queryAvailableSub.Subscribe(w)
	}
	return nil
}
