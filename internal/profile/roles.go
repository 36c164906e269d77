package profile

import (
	"context"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

// EnableRoles applies uuids to the adapter's RoleStack one at a time; if any
// step fails, whatever was already enabled in this call is disabled again
// before the call fails, so a partial enable never lingers.
func (b *Base) EnableRoles(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager, uuids []string) error {
	rs, ok := b.roles[mgr.Address()]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	adapterAddress := mgr.Address()
	applyRolesSeq(ctx, rs.EnableRole, uuids, 0, func(failedAt int, err error) {
		if err != nil {
			applyRolesSeq(ctx, rs.DisableRole, uuids[:failedAt], 0, func(int, error) {
				_ = msg.Reply(stackErr(err))
			})
			return
		}
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// DisableRoles is the symmetric teardown.
func (b *Base) DisableRoles(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager, uuids []string) error {
	rs, ok := b.roles[mgr.Address()]
	if !ok {
		return msg.Reply(rpcErr(btcode.ProfileUnavail))
	}
	adapterAddress := mgr.Address()
	applyRolesSeq(ctx, rs.DisableRole, uuids, 0, func(_ int, err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		_ = msg.Reply(okResponse(adapterAddress))
	})
	return nil
}

// applyRolesSeq applies uuids[i:] one at a time, stopping at the first
// failure, since each call only resolves asynchronously on a later
// dispatcher turn. done is called with the index reached (the count of
// uuids successfully applied before a failure, or len(uuids) on success)
// and the failure's error, if any.
func applyRolesSeq(ctx context.Context, call func(ctx context.Context, uuid string, cb func(error)), uuids []string, i int, done func(reached int, err error)) {
	if i >= len(uuids) {
		done(i, nil)
		return
	}
	call(ctx, uuids[i], func(err error) {
		if err != nil {
			done(i, err)
			return
		}
		applyRolesSeq(ctx, call, uuids, i+1, done)
	})
}
