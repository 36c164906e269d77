package inventory

import "github.com/anttech/btmgrd/internal/sil"

// Inventory is the per-adapter device inventory: a
// classic/dual map, a parallel LE map, and LE-scan-id-scoped views. It is
// exclusively owned by its adapter; removal destroys the Device.
type Inventory struct {
	devices   map[string]*Device
	leDevices map[string]*Device
	leScoped  map[sil.ScanID]map[string]*Device
}

// New creates an empty Inventory.
func New() *Inventory {
	return &Inventory{
		devices:   make(map[string]*Device),
		leDevices: make(map[string]*Device),
		leScoped:  make(map[sil.ScanID]map[string]*Device),
	}
}

func fromSnapshot(s sil.DeviceSnapshot) *Device {
	return &Device{
		Address:          s.Address,
		Name:             s.Name,
		Type:             Type(s.Type),
		ClassOfDevice:    s.ClassOfDevice,
		RSSI:             s.RSSI,
		ManufacturerData: append([]byte(nil), s.ManufacturerData...),
		ScanRecord:       append([]byte(nil), s.ScanRecord...),
		ServiceUUIDs:     append([]string(nil), s.SupportedServiceClasses...),
		MessageTypes:     append([]string(nil), s.SupportedMessageTypes...),
	}
}

func upsert(m map[string]*Device, s sil.DeviceSnapshot) (*Device, bool) {
	if existing, ok := m[s.Address]; ok {
		paired, pairing := existing.Paired, existing.Pairing
		trusted, blocked := existing.Trusted, existing.Blocked
		updated := fromSnapshot(s)
		updated.Paired, updated.Pairing = paired, pairing
		updated.Trusted, updated.Blocked = trusted, blocked
		m[s.Address] = updated
		return updated, false
	}
	d := fromSnapshot(s)
	m[s.Address] = d
	return d, true
}

// Found creates or updates a classic/dual device entry.
// Returns the device and whether it was newly created.
func (inv *Inventory) Found(s sil.DeviceSnapshot) (*Device, bool) {
	return upsert(inv.devices, s)
}

// Removed destroys a classic/dual device entry, returning it if present.
func (inv *Inventory) Removed(address string) (*Device, bool) {
	d, ok := inv.devices[address]
	if ok {
		delete(inv.devices, address)
	}
	return d, ok
}

// PropertiesChanged applies mutate to an existing classic/dual device.
func (inv *Inventory) PropertiesChanged(address string, mutate func(*Device)) (*Device, bool) {
	d, ok := inv.devices[address]
	if !ok {
		return nil, false
	}
	mutate(d)
	return d, true
}

// Get returns the classic/dual device at address, if present.
func (inv *Inventory) Get(address string) (*Device, bool) {
	d, ok := inv.devices[address]
	return d, ok
}

// All returns every classic/dual device, in no particular order.
func (inv *Inventory) All() []*Device {
	out := make([]*Device, 0, len(inv.devices))
	for _, d := range inv.devices {
		out = append(out, d)
	}
	return out
}

// LEFound creates or updates a global LE device entry.
func (inv *Inventory) LEFound(s sil.DeviceSnapshot) (*Device, bool) {
	return upsert(inv.leDevices, s)
}

// LERemoved destroys a global LE device entry.
func (inv *Inventory) LERemoved(address string) (*Device, bool) {
	d, ok := inv.leDevices[address]
	if ok {
		delete(inv.leDevices, address)
	}
	return d, ok
}

// LEPropertiesChanged applies mutate to an existing global LE device.
func (inv *Inventory) LEPropertiesChanged(address string, mutate func(*Device)) (*Device, bool) {
	d, ok := inv.leDevices[address]
	if !ok {
		return nil, false
	}
	mutate(d)
	return d, true
}

// LEAll returns every globally tracked LE device.
func (inv *Inventory) LEAll() []*Device {
	out := make([]*Device, 0, len(inv.leDevices))
	for _, d := range inv.leDevices {
		out = append(out, d)
	}
	return out
}

// LEFoundScoped creates or updates a device entry within a single scan
// filter's view, independent of the global LE map.
func (inv *Inventory) LEFoundScoped(scanID sil.ScanID, s sil.DeviceSnapshot) (*Device, bool) {
	m, ok := inv.leScoped[scanID]
	if !ok {
		m = make(map[string]*Device)
		inv.leScoped[scanID] = m
	}
	return upsert(m, s)
}

// LERemovedScoped destroys a device entry within a single scan filter's view.
func (inv *Inventory) LERemovedScoped(scanID sil.ScanID, address string) (*Device, bool) {
	m, ok := inv.leScoped[scanID]
	if !ok {
		return nil, false
	}
	d, ok := m[address]
	if ok {
		delete(m, address)
	}
	return d, ok
}

// LEChangedScoped applies mutate to a device entry within a scan filter's view.
func (inv *Inventory) LEChangedScoped(scanID sil.ScanID, address string, mutate func(*Device)) (*Device, bool) {
	m, ok := inv.leScoped[scanID]
	if !ok {
		return nil, false
	}
	d, ok := m[address]
	if !ok {
		return nil, false
	}
	mutate(d)
	return d, true
}

// DropScan discards an entire scan-id-scoped view, e.g. when its last
// subscriber disappears and the stack-side filter is removed.
func (inv *Inventory) DropScan(scanID sil.ScanID) {
	delete(inv.leScoped, scanID)
}

// ScopedAll returns every device currently visible through scanID's view.
func (inv *Inventory) ScopedAll(scanID sil.ScanID) []*Device {
	m := inv.leScoped[scanID]
	out := make([]*Device, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}
