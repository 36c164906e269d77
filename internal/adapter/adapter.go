// Package adapter implements the per-physical-adapter manager: pair state, device inventory, LE scan filters, advertisers, and the
// getStatus/getDevices/filtered-devices subscription points. One Manager
// exists per adapter the SIL reports; the owning service.Root creates and
// destroys them as the SIL adapter list changes.
package adapter

import (
	"log/slog"

	"github.com/anttech/btmgrd/internal/inventory"
	"github.com/anttech/btmgrd/internal/pairing"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// Properties is the mirrored adapter state. Manager keeps
// this in sync with SIL property-change observations rather than querying
// the stack synchronously on every read.
type Properties struct {
	Address                 string
	Powered                 bool
	Name                    string
	StackName               string
	StackVersion            string
	FirmwareVersion         string
	Discoverable            bool
	DiscoverableTimeout     int
	DiscoveryTimeout        int
	PairableTimeout         int
	ClassOfDevice           uint32
	SupportedServiceClasses []string
	Discovering             bool
	InterfaceName           string
	HCIIndex                int
	Default                 bool
}

type scanState struct {
	watch  *rpcbus.Watch
	filter sil.DiscoveryFilter
}

type advertiserState struct {
	watch    *rpcbus.Watch
	settings sil.AdvertiseSettings
}

type filteredSub struct {
	watch  *rpcbus.Watch
	filter inventory.Filter
}

type pendingOutgoingPair struct {
	msg     rpcbus.Message
	address string
}

// Manager owns everything scoped to one physical adapter.
type Manager struct {
	stack sil.Adapter
	log   *slog.Logger

	props Properties
	inv   *inventory.Inventory
	pair  *pairing.Machine

	// NoInputNoOutput disables incoming pairing prompts.
	NoInputNoOutput bool

	statusSub  rpcbus.SubscriptionPoint
	devicesSub rpcbus.SubscriptionPoint
	filtered   []*filteredSub

	scans       map[sil.ScanID]*scanState
	advertisers map[sil.AdvertiserID]*advertiserState

	outgoingWatch *rpcbus.Watch
	incomingWatch *rpcbus.Watch
	pendingPair   *pendingOutgoingPair

	onStatusChanged         func(*Manager)
	onQueryAvailableChanged func(*Manager)
}

// New creates a Manager for the given SIL adapter, seeded from its address.
func New(stack sil.Adapter, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		stack:       stack,
		log:         log.With("component", "adapter", "adapter", stack.Address()),
		props:       Properties{Address: stack.Address()},
		inv:         inventory.New(),
		pair:        pairing.New(),
		scans:       make(map[sil.ScanID]*scanState),
		advertisers: make(map[sil.AdvertiserID]*advertiserState),
	}
}

// Address is the adapter's canonical address.
func (m *Manager) Address() string { return m.props.Address }

// Properties returns a copy of the mirrored adapter state.
func (m *Manager) Properties() Properties { return m.props }

// Inventory exposes the per-adapter device inventory to callers (e.g.
// profile.Base) that need to check device existence.
func (m *Manager) Inventory() *inventory.Inventory { return m.inv }

// PairState exposes the per-adapter pairing machine, read-only outside this
// package except through the pairing operations below.
func (m *Manager) PairState() *pairing.Machine { return m.pair }

// OnStatusChanged registers the hook service.Root uses to fan a getStatus
// change out to its own process-wide adapter-list subscribers.
func (m *Manager) OnStatusChanged(fn func(*Manager)) { m.onStatusChanged = fn }

// OnQueryAvailableChanged registers the analogous hook for queryAvailable.
func (m *Manager) OnQueryAvailableChanged(fn func(*Manager)) { m.onQueryAvailableChanged = fn }

func (m *Manager) notifyStatus() {
	m.statusSub.Post(m.statusEvent())
	if m.onStatusChanged != nil {
		m.onStatusChanged(m)
	}
}

func (m *Manager) notifyQueryAvailable() {
	if m.onQueryAvailableChanged != nil {
		m.onQueryAvailableChanged(m)
	}
}
