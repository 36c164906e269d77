//go:build integration

package integration_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/profiles"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
	"github.com/anttech/btmgrd/internal/sil"
)

// TestAdapterDiscoveryAndPairingLifecycle drives a full discovery-then-pair
// flow through the real dispatcher: a fake adapter reports a device over
// discovery, a client pairs with it, and the stack resolves the pairing
// asynchronously the way a real SIL would.
func TestAdapterDiscoveryAndPairingLifecycle(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	fakeAdapter := sil.NewFakeAdapter("aa:bb:cc:dd:ee:01")
	handle := sil.NewFakeHandle(fakeAdapter)

	root := service.New(handle, logger)
	root.Bootstrap()

	mgr, ok := root.Adapter("aa:bb:cc:dd:ee:01")
	if !ok {
		t.Fatal("adapter not registered after Bootstrap")
	}
	mgr.SetPowered(true)

	ctx := context.Background()

	// drain runs the dispatcher until every task queued so far has run,
	// including the observer events handle.Emit submits.
	drain := func() {
		loopCtx, stop := context.WithCancel(ctx)
		root.Submit(stop)
		_ = root.Run(loopCtx)
	}

	// Start discovery.
	discoverMsg := rpcbus.NewFakeMessage("adapter", "startDiscovery", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:01",
	}, false)
	if err := root.Dispatch(ctx, discoverMsg); err != nil {
		t.Fatalf("Dispatch startDiscovery: %v", err)
	}
	fakeAdapter.CompleteStartDiscovery(nil)

	var discoverReply struct {
		ReturnValue bool `json:"returnValue"`
	}
	if err := discoverMsg.LastReply(&discoverReply); err != nil {
		t.Fatalf("decode startDiscovery reply: %v", err)
	}
	if !discoverReply.ReturnValue {
		t.Fatal("startDiscovery returnValue = false, want true")
	}

	// The fake stack reports a discovered device.
	handle.Emit(func(o sil.Observer) {
		o.DeviceFound("aa:bb:cc:dd:ee:01", sil.DeviceSnapshot{
			Address: "11:22:33:44:55:66",
			Name:    "Test Headset",
		})
	})
	drain()

	devicesMsg := rpcbus.NewFakeMessage("device", "getDiscoveredDevice", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:01",
	}, false)
	if err := root.Dispatch(ctx, devicesMsg); err != nil {
		t.Fatalf("Dispatch getDiscoveredDevice: %v", err)
	}
	var devicesReply struct {
		Devices []struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"devices"`
	}
	if err := devicesMsg.LastReply(&devicesReply); err != nil {
		t.Fatalf("decode getDiscoveredDevice reply: %v", err)
	}
	if len(devicesReply.Devices) != 1 || devicesReply.Devices[0].Address != "11:22:33:44:55:66" {
		t.Fatalf("discovered devices = %+v, want one device at 11:22:33:44:55:66", devicesReply.Devices)
	}

	// Pair with the discovered device.
	pairMsg := rpcbus.NewFakeMessage("adapter", "pair", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:01",
		"address":        "11:22:33:44:55:66",
	}, false)
	if err := root.Dispatch(ctx, pairMsg); err != nil {
		t.Fatalf("Dispatch pair: %v", err)
	}
	// Pairing first stops the discovery started above.
	fakeAdapter.CompleteCancelDiscovery(false, nil)
	if fakeAdapter.PendingPairs() != 1 {
		t.Fatalf("PendingPairs = %d, want 1", fakeAdapter.PendingPairs())
	}
	fakeAdapter.CompletePair(nil)

	var pairReply struct {
		ReturnValue bool `json:"returnValue"`
	}
	if err := pairMsg.LastReply(&pairReply); err != nil {
		t.Fatalf("decode pair reply: %v", err)
	}
	if !pairReply.ReturnValue {
		t.Fatal("pair returnValue = false, want true")
	}

	// Completing the pairing produces a link key in a real stack; mirror
	// that so the device shows up as paired.
	handle.Emit(func(o sil.Observer) {
		o.LinkKeyCreated("aa:bb:cc:dd:ee:01", "11:22:33:44:55:66")
	})
	drain()

	pairedMsg := rpcbus.NewFakeMessage("device", "getPairedDevices", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:01",
	}, false)
	if err := root.Dispatch(ctx, pairedMsg); err != nil {
		t.Fatalf("Dispatch getPairedDevices: %v", err)
	}
	var pairedReply struct {
		Devices []struct {
			Address string `json:"address"`
			Paired  bool   `json:"paired"`
		} `json:"devices"`
	}
	if err := pairedMsg.LastReply(&pairedReply); err != nil {
		t.Fatalf("decode getPairedDevices reply: %v", err)
	}
	if len(pairedReply.Devices) != 1 || !pairedReply.Devices[0].Paired {
		t.Fatalf("paired devices = %+v, want one paired device", pairedReply.Devices)
	}
}

// fakeProfileStack is a minimal profile.Stack used to drive a profile
// connect/disconnect cycle without a real transport.
type fakeProfileStack struct {
	connected map[string]bool
}

func newFakeProfileStack() *fakeProfileStack {
	return &fakeProfileStack{connected: make(map[string]bool)}
}

func (s *fakeProfileStack) Connected(address string) bool { return s.connected[address] }

func (s *fakeProfileStack) Connect(_ context.Context, address string, cb func(err error)) {
	s.connected[address] = true
	cb(nil)
}

func (s *fakeProfileStack) Disconnect(_ context.Context, address string, cb func(err error)) {
	s.connected[address] = false
	cb(nil)
}

var _ profile.Stack = (*fakeProfileStack)(nil)

// TestProfileConnectDisconnectLifecycle wires a full profiles.Set into
// service.Root the way cmd/btmgrd does, binds a fake GATT stack to one
// adapter, and drives a connect/getStatus/disconnect cycle through the
// dispatcher exactly like a D-Bus caller would.
func TestProfileConnectDisconnectLifecycle(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	fakeAdapter := sil.NewFakeAdapter("aa:bb:cc:dd:ee:02")
	handle := sil.NewFakeHandle(fakeAdapter)

	root := service.New(handle, logger)
	root.Bootstrap()

	mgr, ok := root.Adapter("aa:bb:cc:dd:ee:02")
	if !ok {
		t.Fatal("adapter not registered after Bootstrap")
	}
	mgr.DeviceFound(sil.DeviceSnapshot{Address: "11:22:33:44:55:77", Type: "bredr"})

	set := profiles.NewSet(logger)
	for category, router := range set.Routers() {
		root.RegisterProfile(category, router)
	}

	stack := newFakeProfileStack()
	set.Bind("aa:bb:cc:dd:ee:02", func(category string) (profile.Stack, bool) {
		if category == "gatt" {
			return stack, true
		}
		return nil, false
	})

	ctx := context.Background()

	connectMsg := rpcbus.NewFakeMessage("gatt", "connect", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:02",
		"address":        "11:22:33:44:55:77",
	}, false)
	if err := root.Dispatch(ctx, connectMsg); err != nil {
		t.Fatalf("Dispatch gatt connect: %v", err)
	}
	var connectReply struct {
		ReturnValue bool `json:"returnValue"`
	}
	if err := connectMsg.LastReply(&connectReply); err != nil {
		t.Fatalf("decode connect reply: %v", err)
	}
	if !connectReply.ReturnValue {
		t.Fatal("gatt connect returnValue = false, want true")
	}
	if !stack.Connected("11:22:33:44:55:77") {
		t.Fatal("fake stack did not record the connection")
	}
	// The stack reports the new connection through its connected property.
	set.Simple["gatt"].PropertyChanged("aa:bb:cc:dd:ee:02", "11:22:33:44:55:77", true)

	statusMsg := rpcbus.NewFakeMessage("gatt", "getStatus", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:02",
		"address":        "11:22:33:44:55:77",
	}, false)
	if err := root.Dispatch(ctx, statusMsg); err != nil {
		t.Fatalf("Dispatch gatt getStatus: %v", err)
	}
	var statusReply struct {
		Connected bool `json:"connected"`
	}
	if err := statusMsg.LastReply(&statusReply); err != nil {
		t.Fatalf("decode getStatus reply: %v", err)
	}
	if !statusReply.Connected {
		t.Fatal("getStatus reported disconnected after connect")
	}

	disconnectMsg := rpcbus.NewFakeMessage("gatt", "disconnect", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:02",
		"address":        "11:22:33:44:55:77",
	}, false)
	if err := root.Dispatch(ctx, disconnectMsg); err != nil {
		t.Fatalf("Dispatch gatt disconnect: %v", err)
	}
	if stack.Connected("11:22:33:44:55:77") {
		t.Fatal("fake stack still reports connected after disconnect")
	}

	// Unbinding leaves the category routable but without a backing stack,
	// so a subsequent connect fails with profileUnavail rather than
	// panicking on a nil Stack.
	set.Unbind("aa:bb:cc:dd:ee:02")

	afterUnbindMsg := rpcbus.NewFakeMessage("gatt", "connect", map[string]string{
		"adapterAddress": "aa:bb:cc:dd:ee:02",
		"address":        "11:22:33:44:55:77",
	}, false)
	if err := root.Dispatch(ctx, afterUnbindMsg); err != nil {
		t.Fatalf("Dispatch gatt connect after unbind: %v", err)
	}
	var errReply struct {
		ErrorCode int `json:"errorCode"`
	}
	if err := afterUnbindMsg.LastReply(&errReply); err != nil {
		t.Fatalf("decode post-unbind reply: %v", err)
	}
	if errReply.ErrorCode != int(btcode.ProfileUnavail) {
		t.Fatalf("post-unbind errorCode = %d, want %d", errReply.ErrorCode, btcode.ProfileUnavail)
	}
}
