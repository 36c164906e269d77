// Package opp implements the OPP profile: outgoing and incoming object
// transfers with accept/reject arbitration, per-transfer progress, and
// client-disappearance cancellation (connect/disconnect/getStatus are
// delegated to profile.Base the same way avrcp does).
package opp

import (
	"context"

	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

// Stack is the narrow OPP control-stack contract a Manager drives. It
// embeds profile.Stack so a bound adapter satisfies the generic
// connect/disconnect/getStatus contract in addition to these OPP-specific
// transfer calls.
type Stack interface {
	profile.Stack

	// PushFile starts an outgoing transfer of sourceFile to address. cb
	// fires once with the stack-assigned transfer id once the transfer has
	// been accepted by the remote side, or with err if it never starts.
	PushFile(ctx context.Context, address, sourceFile string, cb func(transferID string, err error))

	// AcceptTransfer and RejectTransfer answer an incoming push request
	// previously announced through IncomingTransferRequested, identified by
	// the opaque stackRequest handle that call supplied.
	AcceptTransfer(ctx context.Context, stackRequest any, cb func(error))
	RejectTransfer(ctx context.Context, stackRequest any, cb func(error))

	// CancelTransfer cancels an in-progress transfer: an outgoing one by the
	// transfer id PushFile reported, an incoming one by the request-id it
	// was accepted under.
	CancelTransfer(ctx context.Context, transferID string, cb func(error))
}

// transferDirection distinguishes a locally initiated push from a remotely
// initiated one accepted locally.
type transferDirection string

const (
	directionOutgoing transferDirection = "outgoing"
	directionIncoming transferDirection = "incoming"
)

// transfer is the per-transfer bookkeeping record: the direction, the
// endpoints, the watch whose disappearance cancels it, the
// canceled/client-disappeared flags, and progress.
type transfer struct {
	direction   transferDirection
	adapterAddr string
	address     string
	watch       *rpcbus.Watch // the pushFile caller's watch, for an outgoing transfer; nil for incoming
	canceled    bool
	disappeared bool
	transferred int64
	size        int64
}
