package adapter

import (
	"context"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// StartDiscovery begins classic/dual discovery. Rejected when powered=false
// or a pairing is in progress; a second call while already discovering is a
// no-op success.
func (m *Manager) StartDiscovery(ctx context.Context, msg rpcbus.Message, transport sil.Transport, accessCode string) error {
	if !m.props.Powered {
		return msg.Reply(rpcErr(btcode.AdapterTurnedOff))
	}
	if m.pair.IsPairing() {
		return msg.Reply(rpcErr(btcode.PairingInProgress))
	}
	if m.props.Discovering {
		return msg.Reply(okResponse(m.props.Address))
	}
	m.stack.StartDiscovery(ctx, transport, accessCode, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		m.SetDiscovering(true)
		_ = msg.Reply(okResponse(m.props.Address))
	})
	return nil
}

// CancelDiscovery is fire-and-forget: on success any still-open
// filtered-devices subscription owned by the same caller is dropped.
func (m *Manager) CancelDiscovery(ctx context.Context, msg rpcbus.Message) error {
	caller := msg.CallerID()
	m.stack.CancelDiscovery(ctx, func(stillDiscovering bool, err error) {
		m.SetDiscovering(stillDiscovering)
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		if !stillDiscovering {
			m.dropFilteredSubsFor(caller)
		}
		_ = msg.Reply(okResponse(m.props.Address))
	})
	return nil
}

// cancelDiscoveryForPairing drives the "cancelDiscovery then pair" two-step:
// the pairing's own stack call waits for discovery to be confirmed stopped,
// and restores state with stopDiscFail if it isn't.
func (m *Manager) cancelDiscoveryForPairing(ctx context.Context, done func(ok bool, stopDiscFailed bool)) {
	if !m.props.Discovering {
		done(true, false)
		return
	}
	m.stack.CancelDiscovery(ctx, func(stillDiscovering bool, err error) {
		m.SetDiscovering(stillDiscovering)
		if err != nil || stillDiscovering {
			done(false, true)
			return
		}
		done(true, false)
	})
}

func (m *Manager) dropFilteredSubsFor(callerID string) {
	if callerID == "" {
		return
	}
	kept := m.filtered[:0]
	for _, fs := range m.filtered {
		if fs.watch.Scope.CallerID == callerID {
			fs.watch.Close()
			continue
		}
		kept = append(kept, fs)
	}
	m.filtered = kept
}
