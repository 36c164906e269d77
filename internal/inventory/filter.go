package inventory

// Filter is the (class-of-device, service-UUID) compound filter a caller may
// attach to a devices subscription. Either field may be
// left at its zero value to skip that dimension.
type Filter struct {
	ClassOfDevice    uint32
	HasClassOfDevice bool
	ServiceUUID      string
}

// Admits reports whether d passes the filter.
//
//   - A BR/EDR typed device passes the UUID dimension only when its
//     advertised service UUIDs contain the filter UUID.
//   - A BLE typed device bypasses the UUID check entirely.
//   - A class-of-device filter admits only devices whose CoD bitwise-AND
//     with the filter value equals the filter value.
func (f Filter) Admits(d *Device) bool {
	if f.HasClassOfDevice && d.ClassOfDevice&f.ClassOfDevice != f.ClassOfDevice {
		return false
	}
	if f.ServiceUUID == "" {
		return true
	}
	if d.Type == TypeBLE {
		return true
	}
	return d.hasServiceUUID(f.ServiceUUID)
}
