package inventory_test

import (
	"testing"

	"github.com/anttech/btmgrd/internal/inventory"
	"github.com/anttech/btmgrd/internal/sil"
)

func TestFoundCreatesThenUpdatesPreservingPairedState(t *testing.T) {
	inv := inventory.New()

	d, created := inv.Found(sil.DeviceSnapshot{Address: "aa:bb:cc:dd:ee:ff", Name: "Phone", Type: "bredr"})
	if !created {
		t.Fatal("first Found should report created=true")
	}
	d.Paired = true

	d2, created2 := inv.Found(sil.DeviceSnapshot{Address: "aa:bb:cc:dd:ee:ff", Name: "Phone2", Type: "bredr"})
	if created2 {
		t.Fatal("second Found for the same address should report created=false")
	}
	if !d2.Paired {
		t.Fatal("paired state should survive a property refresh")
	}
	if d2.Name != "Phone2" {
		t.Fatalf("Name = %q, want %q", d2.Name, "Phone2")
	}
}

func TestRemovedDestroysEntry(t *testing.T) {
	inv := inventory.New()
	inv.Found(sil.DeviceSnapshot{Address: "aa:bb:cc:dd:ee:ff", Type: "bredr"})

	_, ok := inv.Removed("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatal("expected device to be present for removal")
	}
	if _, ok := inv.Get("aa:bb:cc:dd:ee:ff"); ok {
		t.Fatal("device should no longer be present")
	}
}

func TestFilterAdmission(t *testing.T) {
	tests := []struct {
		name   string
		filter inventory.Filter
		device inventory.Device
		want   bool
	}{
		{
			name:   "BREDR device with matching UUID admitted",
			filter: inventory.Filter{ServiceUUID: "180d"},
			device: inventory.Device{Type: inventory.TypeBREDR, ServiceUUIDs: []string{"180D"}},
			want:   true,
		},
		{
			name:   "BREDR device without matching UUID rejected",
			filter: inventory.Filter{ServiceUUID: "180d"},
			device: inventory.Device{Type: inventory.TypeBREDR, ServiceUUIDs: []string{"1812"}},
			want:   false,
		},
		{
			name:   "BLE device bypasses UUID check",
			filter: inventory.Filter{ServiceUUID: "180d"},
			device: inventory.Device{Type: inventory.TypeBLE, ServiceUUIDs: nil},
			want:   true,
		},
		{
			name:   "class-of-device bitmask admits superset",
			filter: inventory.Filter{HasClassOfDevice: true, ClassOfDevice: 0x0204},
			device: inventory.Device{ClassOfDevice: 0x0206},
			want:   true,
		},
		{
			name:   "class-of-device bitmask rejects missing bits",
			filter: inventory.Filter{HasClassOfDevice: true, ClassOfDevice: 0x0204},
			device: inventory.Device{ClassOfDevice: 0x0200},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.device
			if got := tt.filter.Admits(&d); got != tt.want {
				t.Fatalf("Admits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopedScanViewsAreIndependent(t *testing.T) {
	inv := inventory.New()

	inv.LEFoundScoped(1, sil.DeviceSnapshot{Address: "aa:bb:cc:dd:ee:ff", Type: "ble"})
	inv.LEFoundScoped(2, sil.DeviceSnapshot{Address: "11:22:33:44:55:66", Type: "ble"})

	if len(inv.ScopedAll(1)) != 1 {
		t.Fatalf("scan 1 should see exactly its own device")
	}
	if len(inv.ScopedAll(2)) != 1 {
		t.Fatalf("scan 2 should see exactly its own device")
	}

	inv.DropScan(1)
	if len(inv.ScopedAll(1)) != 0 {
		t.Fatal("scan 1 view should be empty after DropScan")
	}
	if len(inv.ScopedAll(2)) != 1 {
		t.Fatal("dropping scan 1 must not affect scan 2")
	}
}
