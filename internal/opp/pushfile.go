package opp

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

type pushFileParams struct {
	Address    string `json:"address"`
	SourceFile string `json:"sourceFile"`
}

type transferProgressEvent struct {
	Transferred int64 `json:"transferred"`
	Size        int64 `json:"size"`
	Subscribed  bool  `json:"subscribed"`
}

// resolveSourceFile joins sourceFile under the storage root and rejects
// anything that escapes it or does not exist.
func (m *Manager) resolveSourceFile(sourceFile string) (string, bool) {
	if sourceFile == "" || filepath.IsAbs(sourceFile) {
		return "", false
	}
	full := filepath.Join(m.storageRoot, sourceFile)
	if !strings.HasPrefix(full, filepath.Clean(m.storageRoot)+string(filepath.Separator)) {
		return "", false
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}

// pushFile starts an outgoing transfer. The source path is resolved under
// the storage root before the stack is ever invoked; a missing or
// out-of-root path fails srcfileInvalid without touching the stack.
func (m *Manager) pushFile(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req pushFileParams
	_ = msg.Params(&req)
	path, ok := m.resolveSourceFile(req.SourceFile)
	if !ok {
		return msg.Reply(rpcErr(btcode.SrcfileInvalid))
	}
	adapterAddress := mgr.Address()
	stack, ok := m.stacks[adapterAddress]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
		return err
	}

	stack.PushFile(ctx, req.Address, path, func(transferID string, err error) {
		if err != nil {
			_ = msg.Post(transferProgressEvent{Subscribed: false})
			return
		}
		w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress, DeviceAddress: req.Address}, func(*rpcbus.Watch) {
			tr, ok := m.outgoing[transferID]
			if !ok || tr.canceled {
				return
			}
			tr.disappeared = true
			stack.CancelTransfer(ctx, transferID, func(err error) {
				if err != nil {
					return
				}
				tr.canceled = true
				delete(m.outgoing, transferID)
				m.notifyMonitors(tr.adapterAddr)
			})
		})
		m.outgoing[transferID] = &transfer{
			direction:   directionOutgoing,
			adapterAddr: adapterAddress,
			address:     req.Address,
			watch:       w,
		}
	})
	return nil
}

// OutgoingTransferProgress updates an outgoing transfer's byte count,
// posts it to the pushFile caller, and fans it out to monitorTransfer
// subscribers. A completed transfer (transferred >= size) is deleted.
func (m *Manager) OutgoingTransferProgress(transferID string, transferred, size int64) {
	tr, ok := m.outgoing[transferID]
	if !ok {
		return
	}
	tr.transferred, tr.size = transferred, size
	if tr.watch != nil {
		_ = tr.watch.Post(transferProgressEvent{Transferred: transferred, Size: size, Subscribed: true})
	}
	m.notifyMonitors(tr.adapterAddr)
	if transferred >= size {
		m.finishOutgoing(transferID, tr)
	}
}

// OutgoingTransferFailed reports an outgoing transfer that the stack could
// not complete.
func (m *Manager) OutgoingTransferFailed(transferID string) {
	tr, ok := m.outgoing[transferID]
	if !ok {
		return
	}
	if tr.watch != nil {
		_ = tr.watch.Post(transferProgressEvent{Transferred: tr.transferred, Size: tr.size, Subscribed: false})
	}
	m.finishOutgoing(transferID, tr)
}

func (m *Manager) finishOutgoing(transferID string, tr *transfer) {
	if tr.watch != nil {
		tr.watch.Close()
	}
	delete(m.outgoing, transferID)
	m.notifyMonitors(tr.adapterAddr)
}

type transferSummary struct {
	Direction   string `json:"direction"`
	Address     string `json:"address"`
	Transferred int64  `json:"transferred"`
	Size        int64  `json:"size"`
}

type monitorEvent struct {
	Transfers []transferSummary `json:"transfers"`
}

// monitorTransfer subscribes to this adapter's transfer list, posted on
// every progress, completion, or cancellation change rather than on a wall
// clock, since nothing else here owns a timer facility.
func (m *Manager) monitorTransfer(msg rpcbus.Message, mgr *adapter.Manager) error {
	adapterAddress := mgr.Address()
	if err := msg.Reply(subscribedResponse(adapterAddress, true)); err != nil {
		return err
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: adapterAddress}, func(w *rpcbus.Watch) {
		m.monitorSub.Remove(w)
	})
	m.monitorSub.Subscribe(w)
	_ = w.Post(m.snapshotTransfers(adapterAddress))
	return nil
}

func (m *Manager) snapshotTransfers(adapterAddress string) monitorEvent {
	var summaries []transferSummary
	for _, tr := range m.outgoing {
		if tr.adapterAddr != adapterAddress {
			continue
		}
		summaries = append(summaries, transferSummary{Direction: string(tr.direction), Address: tr.address, Transferred: tr.transferred, Size: tr.size})
	}
	for _, tr := range m.incoming {
		if tr.adapterAddr != adapterAddress {
			continue
		}
		summaries = append(summaries, transferSummary{Direction: string(tr.direction), Address: tr.address, Transferred: tr.transferred, Size: tr.size})
	}
	return monitorEvent{Transfers: summaries}
}

func (m *Manager) notifyMonitors(adapterAddress string) {
	snapshot := m.snapshotTransfers(adapterAddress)
	m.monitorSub.PostFiltered(snapshot, func(w *rpcbus.Watch) bool {
		return w.Scope.AdapterAddress == adapterAddress
	})
}
