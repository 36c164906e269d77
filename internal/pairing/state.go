// Package pairing implements the per-adapter pairing state machine:
// pairable/pairing/incoming/outgoing, with secret and confirmation prompts.
// The coarse transitions are a pure function over a table; the owning
// adapter.Manager executes the side effects (stack calls, subscription
// posts) the transition implies.
package pairing

import "errors"

// State is the coarse pairing state.
type State uint8

const (
	StateIdle State = iota
	StateAwaitingIncoming
	StatePairing
	StateCanceling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingIncoming:
		return "AwaitingIncoming"
	case StatePairing:
		return "Pairing"
	case StateCanceling:
		return "Canceling"
	default:
		return "Unknown"
	}
}

// Direction is which side initiated the in-progress pairing.
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionIncoming
	DirectionOutgoing
)

// SecretPhase names the current pairing prompt, if any.
type SecretPhase uint8

const (
	SecretNone SecretPhase = iota
	SecretEnterPasskey
	SecretEnterPinCode
	SecretConfirmPasskey
	SecretDisplayPinCode
	SecretDisplayPasskey
)

// Event drives the coarse transition table.
type Event uint8

const (
	EventAwaitIncoming Event = iota
	EventBeginOutgoing
	EventBeginIncoming
	EventBeginCancel
	EventCancelConfirmed
	EventCancelFailed
	EventCompleted
	EventPairableTimeout
	EventStopAwaiting
)

// Errors returned by Machine guards. Callers translate these into the fixed
// btcode.Code table; this package stays free of the RPC error vocabulary.
var (
	ErrPairingInProgress = errors.New("pairing already in progress")
	ErrNoPairing         = errors.New("no pairing in progress")
	ErrWrongAddress      = errors.New("pairing in progress for a different address")
	ErrAllowOneSubscribe = errors.New("an awaitPairingRequests subscriber already exists")
)

type transition struct {
	next State
}

// table is the pure coarse-state transition table. Guards that need
// contextual fields (device address, pairable flag) live in Machine's
// methods, which consult this table only after the guard passes.
var table = map[State]map[Event]transition{
	StateIdle: {
		EventAwaitIncoming: {next: StateAwaitingIncoming},
		EventBeginOutgoing: {next: StatePairing},
		EventBeginIncoming: {next: StatePairing},
	},
	StateAwaitingIncoming: {
		EventAwaitIncoming:    {next: StateAwaitingIncoming},
		EventBeginOutgoing:    {next: StatePairing},
		EventBeginIncoming:    {next: StatePairing},
		EventPairableTimeout:  {next: StateIdle},
		EventStopAwaiting:     {next: StateIdle},
	},
	StatePairing: {
		EventBeginCancel:      {next: StateCanceling},
		EventCompleted:        {next: StateIdle}, // direction-dependent override applied by Machine
	},
	StateCanceling: {
		EventCancelConfirmed: {next: StateIdle}, // direction-dependent override applied by Machine
		EventCancelFailed:    {next: StatePairing},
	},
}

// Machine is the per-adapter pairing state machine.
type Machine struct {
	state       State
	direction   Direction
	secretPhase SecretPhase
	device      string

	pairable        bool
	awaitSubscriber bool
}

// New creates a Machine in the Idle state.
func New() *Machine { return &Machine{} }

func (m *Machine) State() State             { return m.state }
func (m *Machine) Direction() Direction     { return m.direction }
func (m *Machine) SecretPhase() SecretPhase { return m.secretPhase }
func (m *Machine) DeviceInProgress() string { return m.device }
func (m *Machine) Pairable() bool           { return m.pairable }
func (m *Machine) SetPairable(v bool)       { m.pairable = v }
func (m *Machine) IsPairing() bool          { return m.state == StatePairing || m.state == StateCanceling }
func (m *Machine) AwaitingIncoming() bool   { return m.awaitSubscriber }

func (m *Machine) apply(ev Event) {
	if next, ok := table[m.state][ev]; ok {
		m.state = next.next
	}
}

// AwaitIncoming enters AwaitingIncoming and sets pairable=true. It rejects a
// second concurrent subscriber.
// alreadySubscribed tells Machine this call is a re-subscribe by the same
// caller and should be treated as idempotent rather than a conflict.
func (m *Machine) AwaitIncoming(alreadySubscribed bool) error {
	if m.awaitSubscriber && !alreadySubscribed {
		return ErrAllowOneSubscribe
	}
	m.awaitSubscriber = true
	m.pairable = true
	m.apply(EventAwaitIncoming)
	return nil
}

// StopAwaiting tears down the incoming-pairing subscription slot, e.g. on
// caller disappearance while merely awaiting (not yet mid-pairing).
func (m *Machine) StopAwaiting() {
	m.awaitSubscriber = false
	if m.state == StateAwaitingIncoming {
		m.apply(EventStopAwaiting)
	}
}

// BeginOutgoing starts an outgoing pairing to address.
func (m *Machine) BeginOutgoing(address string) error {
	if m.IsPairing() {
		return ErrPairingInProgress
	}
	m.apply(EventBeginOutgoing)
	m.direction = DirectionOutgoing
	m.device = address
	m.secretPhase = SecretNone
	return nil
}

// BeginIncoming starts an incoming pairing prompted by the stack. The
// caller (adapter.Manager) has already verified that an awaitPairingRequests
// subscription is open and that the I/O capability is not NoInputNoOutput;
// the pairable flag is not checked here.
func (m *Machine) BeginIncoming(address string) error {
	if m.IsPairing() {
		return ErrPairingInProgress
	}
	m.apply(EventBeginIncoming)
	m.direction = DirectionIncoming
	m.device = address
	m.secretPhase = SecretNone
	return nil
}

// SetSecretPhase records the current prompt kind without changing the
// coarse state.
func (m *Machine) SetSecretPhase(phase SecretPhase) {
	if m.state == StatePairing {
		m.secretPhase = phase
	}
}

// VerifyAddress checks a supplied secret/confirmation targets the
// in-progress device.
func (m *Machine) VerifyAddress(address string) error {
	if m.state != StatePairing {
		return ErrNoPairing
	}
	if address != m.device {
		return ErrWrongAddress
	}
	return nil
}

// BeginCancel moves Pairing -> Canceling. Returns ErrNoPairing if nothing is
// in progress, or ErrWrongAddress if the pairing in progress is for a
// different address.
func (m *Machine) BeginCancel(address string) error {
	if err := m.VerifyAddress(address); err != nil {
		return err
	}
	m.apply(EventBeginCancel)
	return nil
}

// CancelConfirmed finishes a stack-confirmed cancellation, returning to Idle
// or, for an incoming pairing whose await subscription is still open, back
// to AwaitingIncoming.
func (m *Machine) CancelConfirmed() {
	direction := m.direction
	m.apply(EventCancelConfirmed)
	m.resolveTerminal(direction)
}

// CancelFailed reverts Canceling back to Pairing: on failure the caller
// posts continuePairing and the pairing resumes.
func (m *Machine) CancelFailed() {
	m.apply(EventCancelFailed)
}

// Completed finishes a pairing, successfully or not: outgoing pairings drop
// back to Idle; an incoming pairing whose
// awaitPairingRequests subscription is still open returns to
// AwaitingIncoming instead.
func (m *Machine) Completed() {
	direction := m.direction
	m.apply(EventCompleted)
	m.resolveTerminal(direction)
}

func (m *Machine) resolveTerminal(direction Direction) {
	m.direction = DirectionNone
	m.secretPhase = SecretNone
	m.device = ""
	if direction == DirectionIncoming && m.awaitSubscriber {
		m.state = StateAwaitingIncoming
	}
}

// PairableTimeoutExpired tears down an outstanding incoming subscription and
// clears pairable. It is a no-op if a pairing is
// currently in progress -- the caller only invokes this while merely
// awaiting.
func (m *Machine) PairableTimeoutExpired() {
	if m.IsPairing() {
		return
	}
	m.awaitSubscriber = false
	m.pairable = false
	m.apply(EventPairableTimeout)
}
