// Package profiles instantiates internal/profile.Base once per profile
// category that needs nothing beyond connect/disconnect/getStatus plus,
// for A2DP, runtime role enable/disable and, for MAP, per-session scoping.
// GATT, PBAP, HFP, PAN, HID, SPP, and MESH all share the same Simple shape;
// A2DP and MAP get their own thin wrapper in a2dp.go and map.go.
package profiles

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
)

// Simple is the connect/disconnect/getStatus-only profile instance used by
// every category that has no RPC surface beyond profile.Base's own.
type Simple struct {
	base *profile.Base
	log  *slog.Logger
}

// NewSimple creates a Simple profile instance for the given RPC category
// (e.g. "gatt", "pbap", "hfp", "pan", "hid", "spp", "mesh").
func NewSimple(category string, log *slog.Logger) *Simple {
	if log == nil {
		log = slog.Default()
	}
	return &Simple{
		base: profile.New(category, log),
		log:  log.With("profile", category),
	}
}

// Bind enables this profile on one adapter.
func (m *Simple) Bind(adapterAddress string, stack profile.Stack) {
	m.base.Bind(adapterAddress, stack)
}

// Unbind disables this profile on one adapter.
func (m *Simple) Unbind(adapterAddress string) {
	m.base.Unbind(adapterAddress)
}

var _ service.ProfileRouter = (*Simple)(nil)

type addressParams struct {
	Address   string `json:"address"`
	Subscribe bool   `json:"subscribe,omitempty"`
}

// Dispatch routes this category's three RPC methods.
func (m *Simple) Dispatch(ctx context.Context, root *service.Root, msg rpcbus.Message) error {
	mgr, ok := root.ResolveAdapter(msg)
	if !ok {
		return nil
	}
	var req addressParams
	_ = msg.Params(&req)

	switch msg.Method() {
	case "connect":
		return m.base.Connect(ctx, msg, mgr, req.Address, "")
	case "disconnect":
		return m.base.Disconnect(ctx, msg, mgr, req.Address, "")
	case "getStatus":
		return m.base.GetStatus(msg, mgr, req.Address, "")
	default:
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
}

// PropertyChanged mirrors the stack's connected property change into the
// profile base.
func (m *Simple) PropertyChanged(adapterAddress, address string, connected bool) {
	m.base.PropertyChanged(adapterAddress, address, "", connected)
}
