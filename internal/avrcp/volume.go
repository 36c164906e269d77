package avrcp

import (
	"context"
	"math"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

type setVolumeParams struct {
	Address string `json:"address"`
	Volume  int    `json:"volume"`
}

type volumeEvent struct {
	AdapterAddress string `json:"adapterAddress"`
	Address        string `json:"address"`
	Volume         int    `json:"volume"`
}

// toStackVolume converts the caller's 0..100 volume to AVRCP's 7-bit scale.
func toStackVolume(volume int) byte {
	return byte(math.Round(float64(volume) / 100 * 127))
}

// fromStackVolume is the inverse conversion applied to stack-reported
// volume changes.
func fromStackVolume(v byte) int {
	return int(math.Round(float64(v) / 127 * 100))
}

func (m *Manager) setAbsoluteVolume(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req setVolumeParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	stack.SetAbsoluteVolume(ctx, req.Address, toStackVolume(req.Volume), func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// getRemoteVolume subscribes to volume changes, optionally filtered to one
// device; an omitted address subscribes to every device on the adapter.
func (m *Manager) getRemoteVolume(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: req.Address}, func(w *rpcbus.Watch) {
		m.volumeSub.Remove(w)
	})
	m.volumeSub.Subscribe(w)
	return nil
}

// RemoteVolumeChanged converts a stack-reported 7-bit volume back to 0..100
// and fans it out to subscribers scoped to this device or to the adapter
// as a whole.
func (m *Manager) RemoteVolumeChanged(adapterAddress, deviceAddress string, stackVolume byte) {
	ev := volumeEvent{AdapterAddress: adapterAddress, Address: deviceAddress, Volume: fromStackVolume(stackVolume)}
	m.volumeSub.PostFiltered(ev, func(w *rpcbus.Watch) bool {
		if w.Scope.AdapterAddress != adapterAddress {
			return false
		}
		return w.Scope.DeviceAddress == "" || w.Scope.DeviceAddress == deviceAddress
	})
}
