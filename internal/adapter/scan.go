package adapter

import (
	"context"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/inventory"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// ScanReply is the synchronous acknowledgement to startScan, carrying the
// stack-allocated scan id the subscription is now scoped to.
type ScanReply struct {
	AdapterAddress string `json:"adapterAddress"`
	ReturnValue    bool   `json:"returnValue"`
	ScanID         int    `json:"scanId"`
}

// StartScan registers a compound LE discovery filter and scopes the
// caller's subscription to it. The first successful
// registration starts the shared LE discovery engine; the disappearance
// callback removes the stack-side filter and, if it was the last one,
// cancels LE discovery altogether.
func (m *Manager) StartScan(ctx context.Context, msg rpcbus.Message, filter sil.DiscoveryFilter) error {
	if !m.props.Powered {
		return msg.Reply(rpcErr(btcode.AdapterTurnedOff))
	}
	m.stack.AddLeDiscoveryFilter(ctx, filter, func(id sil.ScanID, err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		first := len(m.scans) == 0
		w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: m.props.Address, ScanID: int(id)}, func(*rpcbus.Watch) {
			m.teardownScan(ctx, id)
		})
		m.scans[id] = &scanState{watch: w, filter: filter}
		_ = msg.Reply(ScanReply{AdapterAddress: m.props.Address, ReturnValue: true, ScanID: int(id)})
		if first {
			m.stack.StartLeDiscovery(ctx, func(error) {})
		}
	})
	return nil
}

func (m *Manager) teardownScan(ctx context.Context, id sil.ScanID) {
	if _, ok := m.scans[id]; !ok {
		return
	}
	delete(m.scans, id)
	m.inv.DropScan(id)
	m.stack.RemoveLeDiscoveryFilter(ctx, id, func(error) {})
	if len(m.scans) == 0 {
		m.stack.CancelLeDiscovery(ctx, func(error) {})
	}
}

// LEDeviceFoundScoped mirrors a filter-scoped LE discovery result and posts
// it to that scan's subscriber only.
func (m *Manager) LEDeviceFoundScoped(scanID sil.ScanID, snapshot sil.DeviceSnapshot) {
	st, ok := m.scans[scanID]
	if !ok {
		return
	}
	d, _ := m.inv.LEFoundScoped(scanID, snapshot)
	_ = st.watch.Post(DeviceEvent{AdapterAddress: m.props.Address, Device: d})
}

// LEDeviceRemovedScoped mirrors a filter-scoped LE device loss.
func (m *Manager) LEDeviceRemovedScoped(scanID sil.ScanID, address string) {
	st, ok := m.scans[scanID]
	if !ok {
		return
	}
	d, ok := m.inv.LERemovedScoped(scanID, address)
	if !ok {
		return
	}
	_ = st.watch.Post(DeviceEvent{AdapterAddress: m.props.Address, Device: d, Removed: true})
}

// LEDeviceChangedScoped mirrors a filter-scoped LE property change.
func (m *Manager) LEDeviceChangedScoped(scanID sil.ScanID, address string, props map[string]any) {
	st, ok := m.scans[scanID]
	if !ok {
		return
	}
	d, ok := m.inv.LEChangedScoped(scanID, address, func(d *inventory.Device) { applyDeviceProps(d, props) })
	if !ok {
		return
	}
	_ = st.watch.Post(DeviceEvent{AdapterAddress: m.props.Address, Device: d})
}

// LEDeviceFound mirrors a global (unscoped) LE discovery result.
func (m *Manager) LEDeviceFound(snapshot sil.DeviceSnapshot) { m.inv.LEFound(snapshot) }

// LEDeviceRemoved mirrors a global LE device loss.
func (m *Manager) LEDeviceRemoved(address string) { m.inv.LERemoved(address) }

// LEDeviceChanged mirrors a global LE property change.
func (m *Manager) LEDeviceChanged(address string, props map[string]any) {
	m.inv.LEPropertiesChanged(address, func(d *inventory.Device) { applyDeviceProps(d, props) })
}
