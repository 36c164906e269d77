package avrcp

import (
	"context"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

type passThroughEvent struct {
	AdapterAddress string `json:"adapterAddress"`
	Address        string `json:"address"`
	KeyCode        string `json:"keyCode"`
	KeyStatus      string `json:"keyStatus"`
}

type sendPassThroughParams struct {
	Address   string `json:"address"`
	KeyCode   string `json:"keyCode"`
	KeyStatus string `json:"keyStatus"`
}

// sendPassThroughCommand maps the wire key-code/key-status strings to the
// stack's enumeration, failing keyCodeInvalidValueParam for anything else.
func (m *Manager) sendPassThroughCommand(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req sendPassThroughParams
	_ = msg.Params(&req)
	key, ok := parseKeyCode(req.KeyCode)
	if !ok {
		return msg.Reply(rpcErr(btcode.KeyCodeInvalidValueParam))
	}
	status, ok := parseKeyStatus(req.KeyStatus)
	if !ok {
		return msg.Reply(rpcErr(btcode.KeyCodeInvalidValueParam))
	}
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	stack.SendPassThroughCommand(ctx, req.Address, key, status, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// receivePassThroughCommand subscribes to incoming pass-through commands,
// optionally filtered to one device.
func (m *Manager) receivePassThroughCommand(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: req.Address}, func(w *rpcbus.Watch) {
		m.passThroughSub.Remove(w)
	})
	m.passThroughSub.Subscribe(w)
	return nil
}

// PassThroughCommandReceived fans an incoming command out to every
// receivePassThroughCommand subscriber whose (adapter, device) filter
// admits it.
func (m *Manager) PassThroughCommandReceived(adapterAddress, deviceAddress string, key KeyCode, status KeyStatus) {
	ev := passThroughEvent{AdapterAddress: adapterAddress, Address: deviceAddress, KeyCode: key.String(), KeyStatus: status.String()}
	m.passThroughSub.PostFiltered(ev, func(w *rpcbus.Watch) bool {
		if w.Scope.AdapterAddress != adapterAddress {
			return false
		}
		return w.Scope.DeviceAddress == "" || w.Scope.DeviceAddress == deviceAddress
	})
}
