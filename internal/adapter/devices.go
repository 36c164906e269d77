package adapter

import (
	"github.com/anttech/btmgrd/internal/inventory"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// DeviceEvent is the payload posted to the global and filtered-devices
// subscriptions after any inventory mutation.
type DeviceEvent struct {
	AdapterAddress string            `json:"adapterAddress"`
	Device         *inventory.Device `json:"device"`
	Removed        bool              `json:"removed,omitempty"`
}

// DeviceFound mirrors a classic/dual discovery or refresh into the inventory
// and fans the change out to the global and filtered-devices subscriptions.
func (m *Manager) DeviceFound(snapshot sil.DeviceSnapshot) {
	d, _ := m.inv.Found(snapshot)
	m.fanOutDevice(d, false)
}

// DeviceRemoved mirrors a deviceRemoved observation.
func (m *Manager) DeviceRemoved(address string) {
	d, ok := m.inv.Removed(address)
	if !ok {
		return
	}
	m.fanOutDevice(d, true)
}

// DevicePropertiesChanged mirrors a devicePropertiesChanged observation. A
// connected=false transition is left to profile.Base, which owns the
// connected/connecting sets; this method only mirrors inventory-visible
// fields (name, trusted, blocked, class-of-device, paired).
func (m *Manager) DevicePropertiesChanged(address string, props map[string]any) {
	d, ok := m.inv.PropertiesChanged(address, func(d *inventory.Device) { applyDeviceProps(d, props) })
	if !ok {
		return
	}
	m.fanOutDevice(d, false)
}

func applyDeviceProps(d *inventory.Device, props map[string]any) {
	if v, ok := props["name"].(string); ok {
		d.Name = v
	}
	if v, ok := props["trusted"].(bool); ok {
		d.Trusted = v
	}
	if v, ok := props["blocked"].(bool); ok {
		d.Blocked = v
	}
	if v, ok := props["paired"].(bool); ok {
		d.Paired = v
	}
	if v, ok := props["pairing"].(bool); ok {
		d.Pairing = v
	}
	if v, ok := props["classOfDevice"].(uint32); ok {
		d.ClassOfDevice = v
	}
}

func (m *Manager) fanOutDevice(d *inventory.Device, removed bool) {
	ev := DeviceEvent{AdapterAddress: m.props.Address, Device: d, Removed: removed}
	m.devicesSub.Post(ev)
	kept := m.filtered[:0]
	for _, fs := range m.filtered {
		if fs.watch.Closed() {
			continue
		}
		kept = append(kept, fs)
		if fs.filter.Admits(d) {
			_ = fs.watch.Post(ev)
		}
	}
	m.filtered = kept
}

// GetDiscoveredDevice replies with the current classic/dual inventory and,
// when the caller supplied a filter and subscribed, keeps posting
// filter-admitted changes.
func (m *Manager) GetDiscoveredDevice(msg rpcbus.Message, filter inventory.Filter) error {
	all := m.inv.All()
	if err := msg.Reply(struct {
		AdapterAddress string              `json:"adapterAddress"`
		ReturnValue    bool                `json:"returnValue"`
		Devices        []*inventory.Device `json:"devices"`
	}{AdapterAddress: m.props.Address, ReturnValue: true, Devices: all}); err != nil {
		return err
	}
	if !msg.Subscribed() {
		return nil
	}
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: m.props.Address, CallerID: msg.CallerID()}, func(w *rpcbus.Watch) {
		m.removeFilteredSub(w)
	})
	m.filtered = append(m.filtered, &filteredSub{watch: w, filter: filter})
	return nil
}

// LinkKeyCreated mirrors the stack completing a pairing's key exchange.
func (m *Manager) LinkKeyCreated(address string) {
	d, ok := m.inv.PropertiesChanged(address, func(d *inventory.Device) { d.Paired = true })
	if !ok {
		return
	}
	m.fanOutDevice(d, false)
}

// LinkKeyDestroyed mirrors an unpair or bond-store eviction.
func (m *Manager) LinkKeyDestroyed(address string) {
	d, ok := m.inv.PropertiesChanged(address, func(d *inventory.Device) { d.Paired = false })
	if !ok {
		return
	}
	m.fanOutDevice(d, false)
}

func (m *Manager) removeFilteredSub(w *rpcbus.Watch) {
	kept := m.filtered[:0]
	for _, fs := range m.filtered {
		if fs.watch != w {
			kept = append(kept, fs)
		}
	}
	m.filtered = kept
}
