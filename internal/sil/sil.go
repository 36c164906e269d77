// Package sil defines the boundary btmgrd consumes from its Stack
// Integration Library collaborator. The concrete Bluetooth
// stack (BlueZ, Fluoride, a vendor SIL) is explicitly out of scope for this
// repository; this package is the trait the rest of btmgrd programs against,
// plus a deterministic Fake used by every domain package's tests.
package sil

import "context"

// Callback is the completion signature for the SIL's asynchronous calls.
// Every stack call is a suspension point that resolves through one of these
// on a later turn of the service.Root dispatcher loop.
type Callback func(err error)

// AdvertiserID identifies a registered LE advertiser.
type AdvertiserID int32

// ScanID identifies a registered LE discovery filter.
type ScanID int32

// Transport selects the discovery radio.
type Transport int

const (
	TransportBREDR Transport = iota
	TransportLE
	TransportDual
)

// DiscoveryFilter is the compound LE scan filter.
type DiscoveryFilter struct {
	Address     string                 `json:"address,omitempty"`
	Name        string                 `json:"name,omitempty"`
	ServiceUUID string                 `json:"serviceUuid,omitempty"`
	ServiceMask []byte                 `json:"serviceMask,omitempty"`
	ServiceData ServiceDataFilter      `json:"serviceData,omitempty"`
	ManufData   ManufacturerDataFilter `json:"manufacturerData,omitempty"`
}

type ServiceDataFilter struct {
	UUID string `json:"uuid,omitempty"`
	Data []byte `json:"data,omitempty"`
	Mask []byte `json:"mask,omitempty"`
}

type ManufacturerDataFilter struct {
	ID   uint16 `json:"id,omitempty"`
	Data []byte `json:"data,omitempty"`
	Mask []byte `json:"mask,omitempty"`
}

// AdvertiseSettings configures an LE advertiser.
type AdvertiseSettings struct {
	Connectable bool `json:"connectable"`
	MinInterval int  `json:"minInterval,omitempty"`
	MaxInterval int  `json:"maxInterval,omitempty"`
	TxPower     int  `json:"txPower,omitempty"`
	Timeout     int  `json:"timeout,omitempty"`
}

// DeviceProperties is the mutable subset of Device fields the stack can push
// a change for, or that the core can request the stack set.
type DeviceProperties struct {
	Name       *string
	Trusted    *bool
	Blocked    *bool
	Alias      *string
}

// AdapterProperty names a single mutable Adapter attribute.
type AdapterProperty struct {
	Name  string
	Value any
}

// SecretKind names the pairing prompt kind.
type SecretKind int

const (
	SecretEnterPasskey SecretKind = iota
	SecretEnterPinCode
	SecretConfirmPasskey
	SecretDisplayPinCode
	SecretDisplayPasskey
)

// Adapter is the per-physical-adapter control surface the core drives.
// Every method that can fail asynchronously takes a Callback invoked on a
// later dispatcher turn; methods with a stack-assigned id
// (RegisterAdvertiser, AddLeDiscoveryFilter) deliver it through that
// callback.
type Adapter interface {
	Address() string

	Enable(ctx context.Context, cb Callback)
	Disable(ctx context.Context, cb Callback)

	StartDiscovery(ctx context.Context, transport Transport, accessCode string, cb Callback)
	CancelDiscovery(ctx context.Context, cb func(stillDiscovering bool, err error))

	StartLeDiscovery(ctx context.Context, cb Callback)
	CancelLeDiscovery(ctx context.Context, cb Callback)
	AddLeDiscoveryFilter(ctx context.Context, f DiscoveryFilter, cb func(id ScanID, err error))
	RemoveLeDiscoveryFilter(ctx context.Context, id ScanID, cb Callback)

	Pair(ctx context.Context, address string, cb Callback)
	CancelPairing(ctx context.Context, address string, cb Callback)
	Unpair(ctx context.Context, address string, cb Callback)
	SupplyPairingSecret(ctx context.Context, address string, kind SecretKind, value string)
	SupplyPairingConfirmation(ctx context.Context, address string, accept bool)

	SetAdapterProperty(ctx context.Context, prop AdapterProperty, cb Callback)
	SetDeviceProperties(ctx context.Context, address string, props DeviceProperties, cb Callback)

	RegisterAdvertiser(ctx context.Context, cb func(id AdvertiserID, err error))
	StartAdvertising(ctx context.Context, id AdvertiserID, settings AdvertiseSettings, advData, scanResp []byte, cb Callback)
	SetAdvertiserData(ctx context.Context, id AdvertiserID, isScanResp bool, data []byte, cb Callback)
	SetAdvertiserParameters(ctx context.Context, id AdvertiserID, settings AdvertiseSettings, cb Callback)
	DisableAdvertiser(ctx context.Context, id AdvertiserID, cb Callback)
	UnregisterAdvertiser(ctx context.Context, id AdvertiserID, cb Callback)

	SendHciCommand(ctx context.Context, ogf, ocf byte, params []byte, cb func(resp []byte, err error))

	EnableTrace(traceType string)
	DisableTrace(traceType string)
	SetLogPath(traceType, path string)
	SetKeepAliveInterval(d int)
	EnableKeepAlive()
	DisableKeepAlive()
	SetWoBleTriggerDevices(addrs []string)
	EnableWoBle(suspend bool)
	DisableWoBle()
	StartSniff(address string)
	StopSniff(address string)
}

// Observer receives unsolicited events from the stack. The core funnels
// every method here onto service.Root's single dispatcher channel rather
// than acting on it synchronously from whatever goroutine the SIL delivers
// it on.
type Observer interface {
	AdapterStateChanged(adapterAddress string, powered bool)
	AdapterPropertiesChanged(adapterAddress string, props map[string]any)
	DiscoveryStateChanged(adapterAddress string, discovering bool)

	DeviceFound(adapterAddress string, props DeviceSnapshot)
	DeviceRemoved(adapterAddress, deviceAddress string)
	DevicePropertiesChanged(adapterAddress, deviceAddress string, props map[string]any)

	LeDeviceFound(adapterAddress string, props DeviceSnapshot)
	LeDeviceRemoved(adapterAddress, deviceAddress string)
	LeDeviceChanged(adapterAddress, deviceAddress string, props map[string]any)

	LeDeviceFoundScoped(adapterAddress string, scanID ScanID, props DeviceSnapshot)
	LeDeviceRemovedScoped(adapterAddress string, scanID ScanID, deviceAddress string)
	LeDeviceChangedScoped(adapterAddress string, scanID ScanID, deviceAddress string, props map[string]any)

	LinkKeyCreated(adapterAddress, deviceAddress string)
	LinkKeyDestroyed(adapterAddress, deviceAddress string)

	PairingSecretRequested(adapterAddress, deviceAddress string, kind SecretKind)
	PairingSecretDisplayed(adapterAddress, deviceAddress string, kind SecretKind, value string)
	PairingConfirmationRequested(adapterAddress, deviceAddress string, passkey uint32)
	PairingCanceled(adapterAddress, deviceAddress string)
	IncomingPairRequest(adapterAddress, deviceAddress, deviceName string)

	LeConnectionRequested(adapterAddress, deviceAddress string)
	KeepAliveStateChanged(adapterAddress string, alive bool)
}

// DeviceSnapshot is the stack's view of a discovered device, used to seed or
// refresh an inventory.Device.
type DeviceSnapshot struct {
	Address                string
	Name                   string
	Type                   string // "bredr" | "ble" | "dual"
	ClassOfDevice          uint32
	RSSI                   int16
	ManufacturerData       []byte
	ScanRecord             []byte
	SupportedServiceClasses []string
	SupportedMessageTypes  []string
}

// Handle is the full SIL handle the core obtains at startup: the set of
// currently known adapters plus the ability to subscribe an Observer.
// The core treats an unavailable Handle as "empty adapter list, every
// adapter-scoped method fails with adapterNotAvailable".
type Handle interface {
	Adapters() []Adapter
	Subscribe(o Observer)
}
