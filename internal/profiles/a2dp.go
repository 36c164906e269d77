package profiles

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
)

// A2DP is the source/sink profile; besides connect/disconnect/getStatus it
// supports runtime role enable/disable by UUID (source vs sink), the other
// profile alongside AVRCP's controller/target that needs this.
type A2DP struct {
	*Simple
}

// NewA2DP creates the A2DP profile instance.
func NewA2DP(log *slog.Logger) *A2DP {
	return &A2DP{Simple: NewSimple("a2dp", log)}
}

var _ service.ProfileRouter = (*A2DP)(nil)

type roleUUIDsParams struct {
	UUIDs []string `json:"uuids"`
}

// Dispatch routes connect/disconnect/getStatus the same way Simple does,
// plus enable/disable for the source/sink role toggle.
func (m *A2DP) Dispatch(ctx context.Context, root *service.Root, msg rpcbus.Message) error {
	switch msg.Method() {
	case "enable", "disable":
		mgr, ok := root.ResolveAdapter(msg)
		if !ok {
			return nil
		}
		var req roleUUIDsParams
		_ = msg.Params(&req)
		if msg.Method() == "enable" {
			return m.base.EnableRoles(ctx, msg, mgr, req.UUIDs)
		}
		return m.base.DisableRoles(ctx, msg, mgr, req.UUIDs)
	default:
		return m.Simple.Dispatch(ctx, root, msg)
	}
}
