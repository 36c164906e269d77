package profiles

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
)

// MAP is the message-access profile. A device can open more than one MAS
// (message access server) instance at once, so MAP scopes connect/
// disconnect/getStatus by session key instead of bare device address.
type MAP struct {
	base *profile.Base
	log  *slog.Logger
}

// NewMAP creates the MAP profile instance.
func NewMAP(log *slog.Logger) *MAP {
	if log == nil {
		log = slog.Default()
	}
	return &MAP{
		base: profile.New("map", log).WithSessionKeys(),
		log:  log.With("profile", "map"),
	}
}

// Bind enables MAP on one adapter.
func (m *MAP) Bind(adapterAddress string, stack profile.Stack) {
	m.base.Bind(adapterAddress, stack)
}

// Unbind disables MAP on one adapter.
func (m *MAP) Unbind(adapterAddress string) {
	m.base.Unbind(adapterAddress)
}

var _ service.ProfileRouter = (*MAP)(nil)

func sessionKey(deviceAddress, instanceName string) string {
	return deviceAddress + "_" + instanceName
}

type mapParams struct {
	Address      string `json:"address"`
	InstanceName string `json:"instanceName"`
	Subscribe    bool   `json:"subscribe,omitempty"`
}

// Dispatch routes the three /map RPC methods, scoped by
// (adapter, deviceAddress_instanceName) rather than (adapter, deviceAddress).
func (m *MAP) Dispatch(ctx context.Context, root *service.Root, msg rpcbus.Message) error {
	mgr, ok := root.ResolveAdapter(msg)
	if !ok {
		return nil
	}
	var req mapParams
	_ = msg.Params(&req)
	key := sessionKey(req.Address, req.InstanceName)

	switch msg.Method() {
	case "connect":
		return m.base.Connect(ctx, msg, mgr, req.Address, key)
	case "disconnect":
		return m.base.Disconnect(ctx, msg, mgr, req.Address, key)
	case "getStatus":
		return m.base.GetStatus(msg, mgr, req.Address, key)
	default:
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
}

// PropertyChanged mirrors the stack's connected property change, scoped by
// the same session key Dispatch derives from address and instance name.
func (m *MAP) PropertyChanged(adapterAddress, address, instanceName string, connected bool) {
	m.base.PropertyChanged(adapterAddress, address, sessionKey(address, instanceName), connected)
}
