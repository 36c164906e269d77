package opp

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

// pushRequest is the metadata synthesized for an incoming push before it
// is accepted or rejected.
type pushRequest struct {
	address  string
	name     string
	fileName string
	fileSize int64
	handle   any
}

type pushRequestEvent struct {
	RequestID string `json:"requestId"`
	Address   string `json:"address"`
	Name      string `json:"name"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
}

type awaitTransferEvent struct {
	Request pushRequestEvent `json:"request"`
}

// awaitTransferRequest installs the one-per-adapter incoming-push watch;
// a second attempt on the same adapter fails allowOneSubscribe.
func (m *Manager) awaitTransferRequest(msg rpcbus.Message, mgr *adapter.Manager) error {
	addr := mgr.Address()
	if w, ok := m.awaitPush[addr]; ok && !w.Closed() {
		return msg.Reply(rpcErr(btcode.AllowOneSubscribe))
	}
	if err := msg.Reply(subscribedResponse(addr, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: addr}, func(*rpcbus.Watch) {
		delete(m.awaitPush, addr)
	})
	m.awaitPush[addr] = w
	return nil
}

// IncomingTransferRequested reacts to the stack announcing a new incoming
// push. It is a no-op without an open awaitTransferRequest subscription for
// the adapter.
func (m *Manager) IncomingTransferRequested(adapterAddress, address, name, fileName string, fileSize int64, stackRequest any) {
	w, ok := m.awaitPush[adapterAddress]
	broker := m.pendingPush[adapterAddress]
	if !ok || broker == nil {
		return
	}
	id := broker.Allocate(&pushRequest{address: address, name: name, fileName: fileName, fileSize: fileSize, handle: stackRequest})
	_ = w.Post(awaitTransferEvent{Request: pushRequestEvent{
		RequestID: formatRequestID(id),
		Address:   address,
		Name:      name,
		FileName:  fileName,
		FileSize:  fileSize,
	}})
}

type requestIDParams struct {
	RequestID string `json:"requestId"`
}

func (m *Manager) resolvePending(mgr *adapter.Manager, requestID string) (*requestBroker, int, *pushRequest, bool) {
	adapterAddress := mgr.Address()
	broker := m.pendingPush[adapterAddress]
	var id int
	if broker == nil {
		return nil, 0, nil, false
	}
	if _, err := fmt.Sscanf(requestID, "%d", &id); err != nil {
		return nil, 0, nil, false
	}
	handle, ok := broker.Resolve(id)
	if !ok {
		return nil, 0, nil, false
	}
	req, ok := handle.(*pushRequest)
	if !ok {
		return nil, 0, nil, false
	}
	return broker, id, req, true
}

// acceptTransferRequest answers a pending push with acceptance; on stack
// success the request-id becomes this transfer's id for cancelTransfer and
// monitorTransfer going forward, so the broker slot stays reserved.
func (m *Manager) acceptTransferRequest(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req requestIDParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	_, _, pending, ok := m.resolvePending(mgr, req.RequestID)
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	stack.AcceptTransfer(ctx, pending.handle, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		m.incoming[req.RequestID] = &transfer{
			direction:   directionIncoming,
			adapterAddr: adapterAddress,
			address:     pending.address,
			size:        pending.fileSize,
		}
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// rejectTransferRequest answers a pending push with rejection, freeing its
// request-id for reuse.
func (m *Manager) rejectTransferRequest(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req requestIDParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	broker, id, pending, ok := m.resolvePending(mgr, req.RequestID)
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	stack.RejectTransfer(ctx, pending.handle, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		broker.Release(id)
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// cancelTransfer cancels an in-progress incoming transfer by request-id.
func (m *Manager) cancelTransfer(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req requestIDParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	tr, ok := m.incoming[req.RequestID]
	if !ok || tr.canceled {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	stack.CancelTransfer(ctx, req.RequestID, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		tr.canceled = true
		m.releasePendingID(adapterAddress, req.RequestID)
		delete(m.incoming, req.RequestID)
		m.notifyMonitors(adapterAddress)
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// releasePendingID frees requestID's slot in its adapter's requestBroker,
// the same way cancelTransfer does, so a completed or failed transfer does
// not hold its id forever.
func (m *Manager) releasePendingID(adapterAddress, requestID string) {
	broker := m.pendingPush[adapterAddress]
	if broker == nil {
		return
	}
	var id int
	if _, err := fmt.Sscanf(requestID, "%d", &id); err == nil {
		broker.Release(id)
	}
}

// IncomingTransferProgress updates an accepted incoming transfer's byte
// count and fans it out to monitorTransfer subscribers.
func (m *Manager) IncomingTransferProgress(requestID string, transferred, size int64) {
	tr, ok := m.incoming[requestID]
	if !ok {
		return
	}
	tr.transferred, tr.size = transferred, size
	m.notifyMonitors(tr.adapterAddr)
	if transferred >= size {
		m.releasePendingID(tr.adapterAddr, requestID)
		delete(m.incoming, requestID)
		m.notifyMonitors(tr.adapterAddr)
	}
}

// IncomingTransferFailed drops an incoming transfer that the stack could
// not complete.
func (m *Manager) IncomingTransferFailed(requestID string) {
	tr, ok := m.incoming[requestID]
	if !ok {
		return
	}
	m.releasePendingID(tr.adapterAddr, requestID)
	delete(m.incoming, requestID)
	m.notifyMonitors(tr.adapterAddr)
}
