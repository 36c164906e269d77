package sil

import "context"

// FakeHandle is a deterministic, single-goroutine SIL handle for tests.
// StartDiscovery, CancelDiscovery, Pair and CancelPairing on FakeAdapter
// stay pending until the test resolves them with the matching Complete*
// helper, so tests can assert on the state a caller observes in between;
// the other calls complete synchronously.
type FakeHandle struct {
	adapters  []Adapter
	observers []Observer
}

// NewFakeHandle builds a handle exposing the given adapters.
func NewFakeHandle(adapters ...*FakeAdapter) *FakeHandle {
	h := &FakeHandle{}
	for _, a := range adapters {
		a.handle = h
		h.adapters = append(h.adapters, a)
	}
	return h
}

func (h *FakeHandle) Adapters() []Adapter { return h.adapters }

func (h *FakeHandle) Subscribe(o Observer) { h.observers = append(h.observers, o) }

// Emit fans an event out to every subscribed Observer; fn calls whichever
// Observer method the test needs.
func (h *FakeHandle) Emit(fn func(Observer)) {
	for _, o := range h.observers {
		fn(o)
	}
}

type pendingCall struct {
	id int
	cb Callback
}

// FakeAdapter is a scriptable Adapter. Zero value is unusable; use
// NewFakeAdapter.
type FakeAdapter struct {
	addr   string
	handle *FakeHandle

	Powered     bool
	Discovering bool

	LeDiscoveryStarts   int
	LeDiscoveryCancels  int

	pairCalls    []pendingCall
	unpairCalls  []pendingCall
	cancelPairCalls []pendingCall
	discoveryCalls  []pendingCall
	cancelDiscCalls []func(stillDiscovering bool, err error)

	nextScanID ScanID
	filterCalls []struct {
		filter DiscoveryFilter
		cb     func(ScanID, error)
	}
	RemovedFilters []ScanID

	nextAdvertiserID AdvertiserID
	RegisteredAdvertisers []AdvertiserID
	UnregisteredAdvertisers []AdvertiserID
	StartedAdvertising []AdvertiserID
	DisabledAdvertisers []AdvertiserID

	SuppliedSecrets       []SuppliedSecret
	SuppliedConfirmations []SuppliedConfirmation

	seq int
}

type SuppliedSecret struct {
	Address string
	Kind    SecretKind
	Value   string
}

type SuppliedConfirmation struct {
	Address string
	Accept  bool
}

// NewFakeAdapter creates a powered-off fake adapter at the given address.
func NewFakeAdapter(address string) *FakeAdapter {
	return &FakeAdapter{addr: address}
}

func (a *FakeAdapter) Address() string { return a.addr }

func (a *FakeAdapter) Enable(_ context.Context, cb Callback) {
	a.Powered = true
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) Disable(_ context.Context, cb Callback) {
	a.Powered = false
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) StartDiscovery(_ context.Context, _ Transport, _ string, cb Callback) {
	a.seq++
	a.discoveryCalls = append(a.discoveryCalls, pendingCall{id: a.seq, cb: cb})
}

// CompleteStartDiscovery resolves the oldest pending StartDiscovery call.
func (a *FakeAdapter) CompleteStartDiscovery(err error) {
	if len(a.discoveryCalls) == 0 {
		return
	}
	call := a.discoveryCalls[0]
	a.discoveryCalls = a.discoveryCalls[1:]
	if err == nil {
		a.Discovering = true
	}
	if call.cb != nil {
		call.cb(err)
	}
}

func (a *FakeAdapter) CancelDiscovery(_ context.Context, cb func(stillDiscovering bool, err error)) {
	a.cancelDiscCalls = append(a.cancelDiscCalls, cb)
}

// CompleteCancelDiscovery resolves the oldest pending CancelDiscovery call.
func (a *FakeAdapter) CompleteCancelDiscovery(stillDiscovering bool, err error) {
	if len(a.cancelDiscCalls) == 0 {
		return
	}
	cb := a.cancelDiscCalls[0]
	a.cancelDiscCalls = a.cancelDiscCalls[1:]
	a.Discovering = stillDiscovering
	if cb != nil {
		cb(stillDiscovering, err)
	}
}

func (a *FakeAdapter) StartLeDiscovery(_ context.Context, cb Callback) {
	a.LeDiscoveryStarts++
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) CancelLeDiscovery(_ context.Context, cb Callback) {
	a.LeDiscoveryCancels++
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) AddLeDiscoveryFilter(_ context.Context, f DiscoveryFilter, cb func(ScanID, error)) {
	a.nextScanID++
	id := a.nextScanID
	a.filterCalls = append(a.filterCalls, struct {
		filter DiscoveryFilter
		cb     func(ScanID, error)
	}{f, cb})
	if cb != nil {
		cb(id, nil)
	}
}

func (a *FakeAdapter) RemoveLeDiscoveryFilter(_ context.Context, id ScanID, cb Callback) {
	a.RemovedFilters = append(a.RemovedFilters, id)
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) Pair(_ context.Context, address string, cb Callback) {
	a.seq++
	a.pairCalls = append(a.pairCalls, pendingCall{id: a.seq, cb: cb})
	_ = address
}

// CompletePair resolves the oldest pending Pair call.
func (a *FakeAdapter) CompletePair(err error) {
	if len(a.pairCalls) == 0 {
		return
	}
	call := a.pairCalls[0]
	a.pairCalls = a.pairCalls[1:]
	if call.cb != nil {
		call.cb(err)
	}
}

// PendingPairs reports the number of Pair calls awaiting completion.
func (a *FakeAdapter) PendingPairs() int { return len(a.pairCalls) }

func (a *FakeAdapter) CancelPairing(_ context.Context, _ string, cb Callback) {
	a.seq++
	a.cancelPairCalls = append(a.cancelPairCalls, pendingCall{id: a.seq, cb: cb})
}

// CompleteCancelPairing resolves the oldest pending CancelPairing call.
func (a *FakeAdapter) CompleteCancelPairing(err error) {
	if len(a.cancelPairCalls) == 0 {
		return
	}
	call := a.cancelPairCalls[0]
	a.cancelPairCalls = a.cancelPairCalls[1:]
	if call.cb != nil {
		call.cb(err)
	}
}

func (a *FakeAdapter) Unpair(_ context.Context, _ string, cb Callback) {
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) SupplyPairingSecret(_ context.Context, address string, kind SecretKind, value string) {
	a.SuppliedSecrets = append(a.SuppliedSecrets, SuppliedSecret{Address: address, Kind: kind, Value: value})
}

func (a *FakeAdapter) SupplyPairingConfirmation(_ context.Context, address string, accept bool) {
	a.SuppliedConfirmations = append(a.SuppliedConfirmations, SuppliedConfirmation{Address: address, Accept: accept})
}

func (a *FakeAdapter) SetAdapterProperty(_ context.Context, _ AdapterProperty, cb Callback) {
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) SetDeviceProperties(_ context.Context, _ string, _ DeviceProperties, cb Callback) {
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) RegisterAdvertiser(_ context.Context, cb func(AdvertiserID, error)) {
	a.nextAdvertiserID++
	id := a.nextAdvertiserID
	a.RegisteredAdvertisers = append(a.RegisteredAdvertisers, id)
	if cb != nil {
		cb(id, nil)
	}
}

func (a *FakeAdapter) StartAdvertising(_ context.Context, id AdvertiserID, _ AdvertiseSettings, _, _ []byte, cb Callback) {
	a.StartedAdvertising = append(a.StartedAdvertising, id)
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) SetAdvertiserData(_ context.Context, _ AdvertiserID, _ bool, _ []byte, cb Callback) {
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) SetAdvertiserParameters(_ context.Context, _ AdvertiserID, _ AdvertiseSettings, cb Callback) {
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) DisableAdvertiser(_ context.Context, id AdvertiserID, cb Callback) {
	a.DisabledAdvertisers = append(a.DisabledAdvertisers, id)
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) UnregisterAdvertiser(_ context.Context, id AdvertiserID, cb Callback) {
	a.UnregisteredAdvertisers = append(a.UnregisteredAdvertisers, id)
	if cb != nil {
		cb(nil)
	}
}

func (a *FakeAdapter) SendHciCommand(_ context.Context, _, _ byte, _ []byte, cb func([]byte, error)) {
	if cb != nil {
		cb(nil, nil)
	}
}

func (a *FakeAdapter) EnableTrace(string)            {}
func (a *FakeAdapter) DisableTrace(string)           {}
func (a *FakeAdapter) SetLogPath(string, string)     {}
func (a *FakeAdapter) SetKeepAliveInterval(int)      {}
func (a *FakeAdapter) EnableKeepAlive()              {}
func (a *FakeAdapter) DisableKeepAlive()             {}
func (a *FakeAdapter) SetWoBleTriggerDevices([]string) {}
func (a *FakeAdapter) EnableWoBle(bool)              {}
func (a *FakeAdapter) DisableWoBle()                 {}
func (a *FakeAdapter) StartSniff(string)             {}
func (a *FakeAdapter) StopSniff(string)              {}

var _ Adapter = (*FakeAdapter)(nil)
