package avrcp

import (
	"context"
	"fmt"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

func formatRequestID(id int) string {
	return fmt.Sprintf("%03d", id)
}

// mediaRequestEvent is posted to the awaitMediaMetaDataRequest /
// awaitMediaPlayStatusRequest subscriber when the remote controller asks
// for metadata or play status.
type mediaRequestEvent struct {
	RequestID      string `json:"requestId"`
	Address        string `json:"address"`
	AdapterAddress string `json:"adapterAddress"`
}

func (m *Manager) awaitMediaMetaDataRequest(msg rpcbus.Message, mgr *adapter.Manager) error {
	return m.awaitOn(m.metaDataAwait, msg, mgr)
}

func (m *Manager) awaitMediaPlayStatusRequest(msg rpcbus.Message, mgr *adapter.Manager) error {
	return m.awaitOn(m.playStatusAwait, msg, mgr)
}

func (m *Manager) awaitOn(slot map[string]*rpcbus.Watch, msg rpcbus.Message, mgr *adapter.Manager) error {
	addr := mgr.Address()
	if w, ok := slot[addr]; ok && !w.Closed() {
		return msg.Reply(rpcErr(btcode.AllowOneSubscribe))
	}
	if err := msg.Reply(subscribedResponse(addr, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: addr}, func(*rpcbus.Watch) {
		delete(slot, addr)
	})
	slot[addr] = w
	return nil
}

// MediaMetaDataRequested reacts to the stack announcing an incoming
// metadata request. It is a no-op without an open
// awaitMediaMetaDataRequest subscription for the adapter.
func (m *Manager) MediaMetaDataRequested(adapterAddress, deviceAddress string, stackRequest any) {
	w, ok := m.metaDataAwait[adapterAddress]
	broker := m.metaDataReqs[adapterAddress]
	if !ok || broker == nil {
		return
	}
	id := broker.Allocate(stackRequest)
	_ = w.Post(mediaRequestEvent{RequestID: formatRequestID(id), Address: deviceAddress, AdapterAddress: adapterAddress})
}

// MediaPlayStatusRequested is the play-status analogue.
func (m *Manager) MediaPlayStatusRequested(adapterAddress, deviceAddress string, stackRequest any) {
	w, ok := m.playStatusAwait[adapterAddress]
	broker := m.playStatusReqs[adapterAddress]
	if !ok || broker == nil {
		return
	}
	id := broker.Allocate(stackRequest)
	_ = w.Post(mediaRequestEvent{RequestID: formatRequestID(id), Address: deviceAddress, AdapterAddress: adapterAddress})
}

type supplyMetaDataParams struct {
	RequestID string `json:"requestId"`
	MediaMetaData
}

func (m *Manager) supplyMediaMetaData(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req supplyMetaDataParams
	_ = msg.Params(&req)
	return m.resolveAndSupply(ctx, msg, mgr, m.metaDataReqs, req.RequestID, func(stack Stack, handle any, cb func(error)) {
		stack.SupplyMediaMetaData(ctx, handle, req.MediaMetaData, cb)
	})
}

type supplyPlayStatusParams struct {
	RequestID string `json:"requestId"`
	PlayStatus
}

func (m *Manager) supplyMediaPlayStatus(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req supplyPlayStatusParams
	_ = msg.Params(&req)
	return m.resolveAndSupply(ctx, msg, mgr, m.playStatusReqs, req.RequestID, func(stack Stack, handle any, cb func(error)) {
		stack.SupplyMediaPlayStatus(ctx, handle, req.PlayStatus, cb)
	})
}

func (m *Manager) resolveAndSupply(_ context.Context, msg rpcbus.Message, mgr *adapter.Manager, brokers map[string]*requestBroker, requestID string, call func(Stack, any, func(error))) error {
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	broker := brokers[adapterAddress]
	var id int
	if _, err := fmt.Sscanf(requestID, "%d", &id); err != nil || broker == nil {
		return msg.Reply(rpcErr(btcode.AvrcpStateErr))
	}
	handle, ok := broker.Resolve(id)
	if !ok {
		return msg.Reply(rpcErr(btcode.AvrcpStateErr))
	}
	call(stack, handle, func(err error) {
		broker.Release(id)
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}
