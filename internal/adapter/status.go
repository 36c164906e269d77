package adapter

import "github.com/anttech/btmgrd/internal/rpcbus"

// StatusEvent is the payload posted to getStatus subscribers and nested
// inside the Service Root's adapter-list getStatus.
type StatusEvent struct {
	AdapterAddress string `json:"adapterAddress"`
	Powered        bool   `json:"powered"`
	Name           string `json:"name,omitempty"`
	Discoverable   bool   `json:"discoverable"`
	Pairable       bool   `json:"pairable"`
	Pairing        bool   `json:"pairing"`
	Discovering    bool   `json:"discovering"`
	ClassOfDevice  uint32 `json:"classOfDevice"`
}

func (m *Manager) statusEvent() StatusEvent {
	return StatusEvent{
		AdapterAddress: m.props.Address,
		Powered:        m.props.Powered,
		Name:           m.props.Name,
		Discoverable:   m.props.Discoverable,
		Pairable:       m.pair.Pairable(),
		Pairing:        m.pair.IsPairing(),
		Discovering:    m.props.Discovering,
		ClassOfDevice:  m.props.ClassOfDevice,
	}
}

// StatusEventSnapshot exposes the current status event for callers outside
// the package, such as the Service Root's aggregate getStatus/queryAvailable.
func (m *Manager) StatusEventSnapshot() StatusEvent {
	return m.statusEvent()
}

// GetStatus replies with this adapter's current status and, if the caller
// subscribed, keeps posting on every subsequent power/discoverable/pairable
// /name/pairing/discovery/class-of-device change.
func (m *Manager) GetStatus(msg rpcbus.Message) error {
	if err := msg.Reply(m.statusEvent()); err != nil {
		return err
	}
	if msg.Subscribed() {
		w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: m.props.Address}, func(w *rpcbus.Watch) {
			m.statusSub.Remove(w)
		})
		m.statusSub.Subscribe(w)
	}
	return nil
}

// ApplyAdapterProperties mirrors a batch of SIL adapter-property changes and
// fires the getStatus/queryAvailable notifications the changed fields imply.
func (m *Manager) ApplyAdapterProperties(props map[string]any) {
	statusDirty, queryDirty := false, false

	if v, ok := props["powered"].(bool); ok {
		m.props.Powered = v
		statusDirty = true
	}
	if v, ok := props["discoverable"].(bool); ok {
		m.props.Discoverable = v
		statusDirty = true
	}
	if v, ok := props["discoverableTimeout"].(int); ok {
		m.props.DiscoverableTimeout = v
	}
	if v, ok := props["pairable"].(bool); ok {
		m.pair.SetPairable(v)
		statusDirty = true
	}
	if v, ok := props["pairableTimeout"].(int); ok {
		m.props.PairableTimeout = v
	}
	if v, ok := props["name"].(string); ok {
		m.props.Name = v
		statusDirty, queryDirty = true, true
	}
	if v, ok := props["classOfDevice"].(uint32); ok {
		m.props.ClassOfDevice = v
		statusDirty, queryDirty = true, true
	}
	if v, ok := props["address"].(string); ok {
		m.props.Address = v
		queryDirty = true
	}
	if v, ok := props["stackName"].(string); ok {
		m.props.StackName = v
		queryDirty = true
	}
	if v, ok := props["stackVersion"].(string); ok {
		m.props.StackVersion = v
		queryDirty = true
	}
	if v, ok := props["firmwareVersion"].(string); ok {
		m.props.FirmwareVersion = v
		queryDirty = true
	}
	if v, ok := props["supportedServiceClasses"].([]string); ok {
		m.props.SupportedServiceClasses = v
		queryDirty = true
	}

	if statusDirty {
		m.notifyStatus()
	}
	if queryDirty {
		m.notifyQueryAvailable()
	}
}

// SetPowered mirrors an adapterStateChanged observation.
func (m *Manager) SetPowered(powered bool) {
	if m.props.Powered == powered {
		return
	}
	m.props.Powered = powered
	m.notifyStatus()
}

// SetDiscovering mirrors a discoveryStateChanged observation.
func (m *Manager) SetDiscovering(discovering bool) {
	if m.props.Discovering == discovering {
		return
	}
	m.props.Discovering = discovering
	m.notifyStatus()
}
