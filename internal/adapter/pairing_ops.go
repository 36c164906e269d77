package adapter

import (
	"context"
	"errors"
	"strconv"

	"github.com/anttech/btmgrd/internal/btaddr"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/inventory"
	"github.com/anttech/btmgrd/internal/pairing"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// PairEvent is posted on the pair / awaitPairingRequests subscription for
// every prompt and the terminal outcome.
type PairEvent struct {
	Request     string  `json:"request"`
	Address     string  `json:"address,omitempty"`
	Name        string  `json:"name,omitempty"`
	Passkey     *uint32 `json:"passkey,omitempty"`
	PinCode     *string `json:"pinCode,omitempty"`
	ReturnValue *bool   `json:"returnValue,omitempty"`
	ErrorCode   *int    `json:"errorCode,omitempty"`
	Subscribed  *bool   `json:"subscribed,omitempty"`
}

// Unpair removes an existing bond. It fails with unpairFail if the stack
// reports an error, otherwise mirrors the link-key loss into the inventory.
func (m *Manager) Unpair(ctx context.Context, msg rpcbus.Message, address string) error {
	addr, err := btaddr.Normalize(address)
	if err != nil {
		return msg.Reply(rpcErr(btcode.InvalidAddress))
	}
	m.stack.Unpair(ctx, addr, func(err error) {
		if err != nil {
			_ = msg.Reply(rpcErrf(btcode.UnpairFail, err.Error()))
			return
		}
		m.LinkKeyDestroyed(addr)
		_ = msg.Reply(okResponse(m.props.Address))
	})
	return nil
}

// Pair starts an outgoing pairing to address: the caller
// is acknowledged immediately with a subscribed response, discovery is
// confirmed stopped before the stack's pair call is issued, and stack
// prompts/outcomes are posted to the same subscription until endPairing.
func (m *Manager) Pair(ctx context.Context, msg rpcbus.Message, address string) error {
	addr, err := btaddr.Normalize(address)
	if err != nil {
		return msg.Reply(rpcErr(btcode.InvalidAddress))
	}
	if !m.props.Powered {
		return msg.Reply(rpcErr(btcode.AdapterTurnedOff))
	}
	if d, ok := m.inv.Get(addr); ok && d.Paired {
		return msg.Reply(rpcErr(btcode.DeviceAlreadyPaired))
	}
	if err := m.pair.BeginOutgoing(addr); err != nil {
		return msg.Reply(rpcErr(btcode.PairingInProgress))
	}

	if err := msg.Reply(subscribedResponse(m.props.Address, true)); err != nil {
		return err
	}

	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: m.props.Address, DeviceAddress: addr}, func(*rpcbus.Watch) {
		m.handleOutgoingPairDisappear(ctx, addr)
	})
	m.outgoingWatch = w
	m.notifyStatus()

	m.cancelDiscoveryForPairing(ctx, func(ok bool, _ bool) {
		if !ok {
			m.finishOutgoingPair(false, btcode.StopDiscFail)
			return
		}
		m.stack.Pair(ctx, addr, func(err error) {
			if err != nil {
				m.finishOutgoingPair(false, translateCode(err))
				return
			}
			m.inv.PropertiesChanged(addr, func(d *inventory.Device) { d.Paired = true; d.Pairing = false })
			m.finishOutgoingPair(true, 0)
		})
	})
	return nil
}

func (m *Manager) handleOutgoingPairDisappear(ctx context.Context, addr string) {
	if m.pair.Direction() != pairing.DirectionOutgoing || m.pair.DeviceInProgress() != addr {
		return
	}
	m.stack.CancelPairing(ctx, addr, func(error) {
		m.outgoingWatch = nil
		m.pair.Completed()
		m.notifyStatus()
	})
}

func (m *Manager) finishOutgoingPair(success bool, code btcode.Code) {
	m.emitEndPairing(success, code)
	m.pair.Completed()
	m.notifyStatus()
}

// emitEndPairing posts the terminal event on whichever watch (incoming or
// outgoing) owns the in-progress pairing, and closes an outgoing watch since
// its subscription is one-shot per pair attempt.
func (m *Manager) emitEndPairing(success bool, code btcode.Code) pairing.Direction {
	direction := m.pair.Direction()
	w := m.activePairWatch()
	sub := false
	ev := PairEvent{Request: "endPairing", ReturnValue: &success, Subscribed: &sub}
	if !success {
		c := int(code)
		ev.ErrorCode = &c
	}
	if w != nil {
		_ = w.Post(ev)
		if direction == pairing.DirectionOutgoing {
			w.Close()
			m.outgoingWatch = nil
		}
	}
	return direction
}

func (m *Manager) activePairWatch() *rpcbus.Watch {
	if m.pair.Direction() == pairing.DirectionIncoming {
		return m.incomingWatch
	}
	return m.outgoingWatch
}

// AwaitPairingRequests subscribes to incoming pairing prompts, setting
// pairable=true. Idempotent for the same caller; a second, distinct caller
// fails with allowOneSubscribe.
func (m *Manager) AwaitPairingRequests(msg rpcbus.Message) error {
	caller := msg.CallerID()
	sameCaller := m.incomingWatch != nil && m.incomingWatch.Scope.CallerID == caller

	if err := m.pair.AwaitIncoming(sameCaller); err != nil {
		return msg.Reply(rpcErr(btcode.AllowOneSubscribe))
	}
	if err := msg.Reply(subscribedResponse(m.props.Address, true)); err != nil {
		return err
	}
	if !sameCaller {
		m.incomingWatch = rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: m.props.Address, CallerID: caller}, func(*rpcbus.Watch) {
			m.pair.StopAwaiting()
			m.incomingWatch = nil
			m.notifyStatus()
		})
	}
	m.notifyStatus()
	return nil
}

// HandleIncomingPairRequest reacts to the stack's incomingPairRequest
// observation. It is a no-op without an open
// awaitPairingRequests subscription or with a NoInputNoOutput I/O capability.
func (m *Manager) HandleIncomingPairRequest(address, name string) {
	if m.incomingWatch == nil || m.NoInputNoOutput {
		return
	}
	if err := m.pair.BeginIncoming(address); err != nil {
		m.log.Warn("incoming pair request while a pairing is already in progress", "address", address)
		return
	}
	_ = m.incomingWatch.Post(PairEvent{Request: "incomingPairRequest", Address: address, Name: name})
	m.notifyStatus()
}

// HandleSecretRequested routes an enterPasskey/enterPinCode prompt to the
// watch owning the in-progress pairing.
func (m *Manager) HandleSecretRequested(address string, kind sil.SecretKind) {
	if m.pair.DeviceInProgress() != address {
		return
	}
	m.pair.SetSecretPhase(toSecretPhase(kind))
	if w := m.activePairWatch(); w != nil {
		_ = w.Post(PairEvent{Request: secretRequestName(kind), Address: address})
	}
}

// HandleSecretDisplayed routes a displayPinCode/displayPasskey prompt.
func (m *Manager) HandleSecretDisplayed(address string, kind sil.SecretKind, value string) {
	if m.pair.DeviceInProgress() != address {
		return
	}
	m.pair.SetSecretPhase(toSecretPhase(kind))
	w := m.activePairWatch()
	if w == nil {
		return
	}
	ev := PairEvent{Request: secretRequestName(kind), Address: address}
	if kind == sil.SecretDisplayPasskey {
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			pk := uint32(n)
			ev.Passkey = &pk
		}
	} else {
		v := value
		ev.PinCode = &v
	}
	_ = w.Post(ev)
}

// HandleConfirmationRequested routes a confirmPasskey prompt.
func (m *Manager) HandleConfirmationRequested(address string, passkey uint32) {
	if m.pair.DeviceInProgress() != address {
		return
	}
	m.pair.SetSecretPhase(pairing.SecretConfirmPasskey)
	if w := m.activePairWatch(); w != nil {
		_ = w.Post(PairEvent{Request: "confirmPasskey", Address: address, Passkey: &passkey})
	}
}

// HandlePairingCanceled reacts to a stack-initiated cancellation outside the
// cancelPairing RPC flow.
func (m *Manager) HandlePairingCanceled(address string) {
	if m.pair.DeviceInProgress() != address {
		return
	}
	m.finishOutgoingPair(false, btcode.PairingCanceled)
}

// SupplyPasskey answers an enterPasskey or confirmPasskey prompt.
func (m *Manager) SupplyPasskey(ctx context.Context, msg rpcbus.Message, address string, passkey uint32) error {
	addr, err := btaddr.Normalize(address)
	if err != nil {
		return msg.Reply(rpcErr(btcode.InvalidAddress))
	}
	if err := m.checkPairingTarget(addr); err != nil {
		return msg.Reply(err)
	}
	m.stack.SupplyPairingSecret(ctx, addr, sil.SecretEnterPasskey, strconv.FormatUint(uint64(passkey), 10))
	return msg.Reply(okResponse(m.props.Address))
}

// SupplyPinCode answers an enterPinCode prompt.
func (m *Manager) SupplyPinCode(ctx context.Context, msg rpcbus.Message, address, pinCode string) error {
	addr, err := btaddr.Normalize(address)
	if err != nil {
		return msg.Reply(rpcErr(btcode.InvalidAddress))
	}
	if err := m.checkPairingTarget(addr); err != nil {
		return msg.Reply(err)
	}
	m.stack.SupplyPairingSecret(ctx, addr, sil.SecretEnterPinCode, pinCode)
	return msg.Reply(okResponse(m.props.Address))
}

// SupplyPasskeyConfirmation answers a confirmPasskey prompt.
func (m *Manager) SupplyPasskeyConfirmation(ctx context.Context, msg rpcbus.Message, address string, accept bool) error {
	addr, err := btaddr.Normalize(address)
	if err != nil {
		return msg.Reply(rpcErr(btcode.InvalidAddress))
	}
	if err := m.checkPairingTarget(addr); err != nil {
		return msg.Reply(err)
	}
	m.stack.SupplyPairingConfirmation(ctx, addr, accept)
	return msg.Reply(okResponse(m.props.Address))
}

func (m *Manager) checkPairingTarget(addr string) *rpcbus.ErrorResponse {
	err := m.pair.VerifyAddress(addr)
	if err == nil {
		return nil
	}
	if errors.Is(err, pairing.ErrNoPairing) {
		e := rpcErr(btcode.NoPairing)
		return &e
	}
	e := rpcErr(btcode.NoPairingForRequestedAddress)
	return &e
}

// CancelPairing requires an in-progress pairing to address.
func (m *Manager) CancelPairing(ctx context.Context, msg rpcbus.Message, address string) error {
	addr, err := btaddr.Normalize(address)
	if err != nil {
		return msg.Reply(rpcErr(btcode.InvalidAddress))
	}
	if err := m.pair.BeginCancel(addr); err != nil {
		if errors.Is(err, pairing.ErrWrongAddress) {
			return msg.Reply(rpcErr(btcode.NoPairingForRequestedAddress))
		}
		return msg.Reply(rpcErr(btcode.NoPairing))
	}
	if err := msg.Reply(okResponse(m.props.Address)); err != nil {
		return err
	}
	m.notifyStatus()

	m.stack.CancelPairing(ctx, addr, func(err error) {
		if err != nil {
			m.pair.CancelFailed()
			if w := m.activePairWatch(); w != nil {
				_ = w.Post(PairEvent{Request: "continuePairing", Address: addr})
			}
			m.notifyStatus()
			return
		}
		m.emitEndPairing(false, btcode.PairingCanceled)
		m.pair.CancelConfirmed()
		m.notifyStatus()
	})
	return nil
}

// PairableTimeoutExpired tears down an outstanding incoming subscription and
// clears pairable; a no-op while a pairing is actively in progress.
func (m *Manager) PairableTimeoutExpired() {
	if m.pair.IsPairing() {
		return
	}
	if m.incomingWatch != nil {
		success, sub := false, false
		code := int(btcode.PairableTimeout)
		_ = m.incomingWatch.Post(PairEvent{Request: "endPairing", ReturnValue: &success, ErrorCode: &code, Subscribed: &sub})
		m.incomingWatch.Close()
		m.incomingWatch = nil
	}
	m.pair.PairableTimeoutExpired()
	m.notifyStatus()
}

func toSecretPhase(kind sil.SecretKind) pairing.SecretPhase {
	switch kind {
	case sil.SecretEnterPasskey:
		return pairing.SecretEnterPasskey
	case sil.SecretEnterPinCode:
		return pairing.SecretEnterPinCode
	case sil.SecretConfirmPasskey:
		return pairing.SecretConfirmPasskey
	case sil.SecretDisplayPinCode:
		return pairing.SecretDisplayPinCode
	case sil.SecretDisplayPasskey:
		return pairing.SecretDisplayPasskey
	default:
		return pairing.SecretNone
	}
}

func secretRequestName(kind sil.SecretKind) string {
	switch kind {
	case sil.SecretEnterPasskey:
		return "enterPasskey"
	case sil.SecretEnterPinCode:
		return "enterPinCode"
	case sil.SecretConfirmPasskey:
		return "confirmPasskey"
	case sil.SecretDisplayPinCode:
		return "displayPinCode"
	case sil.SecretDisplayPasskey:
		return "displayPasskey"
	default:
		return "unknown"
	}
}

func translateCode(err error) btcode.Code {
	if be, ok := err.(*btcode.Error); ok {
		return be.Code
	}
	return btcode.AdapterNotAvailable
}
