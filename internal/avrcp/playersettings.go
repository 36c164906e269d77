package avrcp

import (
	"context"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

type playerSettingsParams struct {
	Address string `json:"address"`
	PlayerApplicationSettings
}

// diff returns only the fields of want that differ from cur, leaving the
// rest zero, plus whether anything differed at all.
func (cur PlayerApplicationSettings) diff(want PlayerApplicationSettings) (PlayerApplicationSettings, bool) {
	var d PlayerApplicationSettings
	var changed bool
	if want.Equalizer != "" && want.Equalizer != cur.Equalizer {
		d.Equalizer = want.Equalizer
		changed = true
	}
	if want.Repeat != "" && want.Repeat != cur.Repeat {
		d.Repeat = want.Repeat
		changed = true
	}
	if want.Shuffle != "" && want.Shuffle != cur.Shuffle {
		d.Shuffle = want.Shuffle
		changed = true
	}
	if want.Scan != "" && want.Scan != cur.Scan {
		d.Scan = want.Scan
		changed = true
	}
	return d, changed
}

func (cur PlayerApplicationSettings) merge(delta PlayerApplicationSettings) PlayerApplicationSettings {
	if delta.Equalizer != "" {
		cur.Equalizer = delta.Equalizer
	}
	if delta.Repeat != "" {
		cur.Repeat = delta.Repeat
	}
	if delta.Shuffle != "" {
		cur.Shuffle = delta.Shuffle
	}
	if delta.Scan != "" {
		cur.Scan = delta.Scan
	}
	return cur
}

// setPlayerApplicationSettings only forwards the settings that actually
// differ from the current mirror, so the stack is never asked to rewrite a
// value it already holds.
func (m *Manager) setPlayerApplicationSettings(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req playerSettingsParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	k := deviceKey{adapter: adapterAddress, device: req.Address}
	cur := m.settings[k]
	delta, changed := cur.diff(req.PlayerApplicationSettings)
	if !changed {
		return msg.Reply(okResponse(adapterAddress))
	}
	stack.SetPlayerApplicationSettings(ctx, req.Address, delta, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		m.settings[k] = cur.merge(delta)
		m.notifySettings(adapterAddress, req.Address)
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// getPlayerApplicationSettings returns the current mirror without a stack
// round trip; the mirror is kept current by PlayerApplicationSettingsChanged.
func (m *Manager) getPlayerApplicationSettings(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	k := deviceKey{adapter: adapterAddress, device: req.Address}
	settings := m.settings[k]
	if req.Subscribe {
		if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
			return err
		}
		sub := m.settingsSub[k]
		if sub == nil {
			sub = &rpcbus.SubscriptionPoint{}
			m.settingsSub[k] = sub
		}
		w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: req.Address}, func(w *rpcbus.Watch) {
			sub.Remove(w)
		})
		sub.Subscribe(w)
		_ = w.Post(settings)
		return nil
	}
	return msg.Reply(settings)
}

// PlayerApplicationSettingsChanged updates the mirror with a stack-reported
// change and notifies getPlayerApplicationSettings subscribers.
func (m *Manager) PlayerApplicationSettingsChanged(adapterAddress, address string, settings PlayerApplicationSettings) {
	k := deviceKey{adapter: adapterAddress, device: address}
	m.settings[k] = m.settings[k].merge(settings)
	m.notifySettings(adapterAddress, address)
}

func (m *Manager) notifySettings(adapterAddress, address string) {
	k := deviceKey{adapter: adapterAddress, device: address}
	sub := m.settingsSub[k]
	if sub == nil {
		return
	}
	sub.Post(m.settings[k])
}
