package avrcp

import (
	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

type playerInfoParams struct {
	Address   string `json:"address"`
	Subscribe bool   `json:"subscribe,omitempty"`
}

// getPlayerInfo returns the per-device player identity mirror, updated by
// PlayerInfoChanged as the stack reports it.
func (m *Manager) getPlayerInfo(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req playerInfoParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	k := deviceKey{adapter: adapterAddress, device: req.Address}
	if !req.Subscribe {
		return msg.Reply(m.playerInfo[k])
	}
	if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: req.Address}, func(w *rpcbus.Watch) {
		m.playerInfoSub.Remove(w)
	})
	m.playerInfoSub.Subscribe(w)
	_ = w.Post(m.playerInfo[k])
	return nil
}

// PlayerInfoChanged updates the player identity mirror and notifies
// getPlayerInfo subscribers.
func (m *Manager) PlayerInfoChanged(adapterAddress, address string, info PlayerInfo) {
	k := deviceKey{adapter: adapterAddress, device: address}
	m.playerInfo[k] = info
	m.playerInfoSub.PostFiltered(info, func(w *rpcbus.Watch) bool {
		return w.Scope.AdapterAddress == adapterAddress && w.Scope.DeviceAddress == address
	})
}

// notifyPlayStatus subscribes to the per-device play-status mirror.
func (m *Manager) notifyPlayStatus(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	k := deviceKey{adapter: adapterAddress, device: req.Address}
	if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: req.Address}, func(w *rpcbus.Watch) {
		m.playStatusSub.Remove(w)
	})
	m.playStatusSub.Subscribe(w)
	_ = w.Post(m.playStatus[k])
	return nil
}

// PlayStatusChanged updates the play-status mirror and notifies
// notifyPlayStatus subscribers.
func (m *Manager) PlayStatusChanged(adapterAddress, address string, status PlayStatus) {
	k := deviceKey{adapter: adapterAddress, device: address}
	m.playStatus[k] = status
	m.playStatusSub.PostFiltered(status, func(w *rpcbus.Watch) bool {
		return w.Scope.AdapterAddress == adapterAddress && w.Scope.DeviceAddress == address
	})
}
