// Package inventory implements the per-adapter device inventory: classic/dual
// and LE device maps, plus LE-scan-id-scoped views for filtered subscribers.
package inventory

// Type names the device's radio type.
type Type string

const (
	TypeBREDR Type = "bredr"
	TypeBLE   Type = "ble"
	TypeDual  Type = "dual"
)

// Device is keyed by adapter-address + device-address.
// It is exclusively owned by the Inventory that created it.
type Device struct {
	Address          string
	Name             string
	Type             Type
	ClassOfDevice    uint32
	Paired           bool
	Pairing          bool
	Trusted          bool
	Blocked          bool
	RSSI             int16
	ManufacturerData []byte
	ScanRecord       []byte
	ServiceUUIDs     []string
	MessageTypes     []string
}

func (d *Device) clone() *Device {
	c := *d
	c.ManufacturerData = append([]byte(nil), d.ManufacturerData...)
	c.ScanRecord = append([]byte(nil), d.ScanRecord...)
	c.ServiceUUIDs = append([]string(nil), d.ServiceUUIDs...)
	c.MessageTypes = append([]string(nil), d.MessageTypes...)
	return &c
}

// hasServiceUUID reports whether uuid (case-insensitive) is among the
// device's advertised service UUIDs.
func (d *Device) hasServiceUUID(uuid string) bool {
	for _, u := range d.ServiceUUIDs {
		if equalFoldASCII(u, uuid) {
			return true
		}
	}
	return false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
