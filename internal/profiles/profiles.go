package profiles

import (
	"log/slog"

	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/service"
)

// simpleCategories lists every profile that needs nothing beyond
// profile.Base's connect/disconnect/getStatus contract.
var simpleCategories = []string{"gatt", "pbap", "hfp", "pan", "hid", "spp", "mesh"}

// Set bundles one instance of every C10 profile this process can enable,
// keyed by RPC category, ready to be registered with service.Root and
// bound per adapter through Bind.
type Set struct {
	A2DP   *A2DP
	MAP    *MAP
	Simple map[string]*Simple
}

// NewSet creates one instance per C10 profile category.
func NewSet(log *slog.Logger) *Set {
	s := &Set{
		A2DP:   NewA2DP(log),
		MAP:    NewMAP(log),
		Simple: make(map[string]*Simple, len(simpleCategories)),
	}
	for _, category := range simpleCategories {
		s.Simple[category] = NewSimple(category, log)
	}
	return s
}

// Routers returns every profile in the set keyed by RPC category, for
// cmd/btmgrd to pass to service.Root.RegisterProfile.
func (s *Set) Routers() map[string]service.ProfileRouter {
	routers := map[string]service.ProfileRouter{
		"a2dp": s.A2DP,
		"map":  s.MAP,
	}
	for category, m := range s.Simple {
		routers[category] = m
	}
	return routers
}

// Bind enables every profile in the set on one adapter using the given
// lookup, which returns the bound Stack (or RoleStack-capable Stack) for a
// category on that adapter, or ok=false if the SIL does not support it.
func (s *Set) Bind(adapterAddress string, stackFor func(category string) (profile.Stack, bool)) {
	if stack, ok := stackFor("a2dp"); ok {
		s.A2DP.Bind(adapterAddress, stack)
	}
	if stack, ok := stackFor("map"); ok {
		s.MAP.Bind(adapterAddress, stack)
	}
	for category, m := range s.Simple {
		if stack, ok := stackFor(category); ok {
			m.Bind(adapterAddress, stack)
		}
	}
}

// Unbind disables every profile in the set on one adapter.
func (s *Set) Unbind(adapterAddress string) {
	s.A2DP.Unbind(adapterAddress)
	s.MAP.Unbind(adapterAddress)
	for _, m := range s.Simple {
		m.Unbind(adapterAddress)
	}
}
