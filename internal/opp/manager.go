package opp

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
)

// Manager is the single OPP profile instance for the whole process; it
// registers once with the Service Root under the "opp" category and tracks
// every adapter it has been enabled on.
type Manager struct {
	base *profile.Base
	log  *slog.Logger

	stacks map[string]Stack

	storageRoot string

	pendingPush map[string]*requestBroker // adapterAddress -> pending incoming push requests
	awaitPush   map[string]*rpcbus.Watch   // adapterAddress -> awaitTransferRequest watch

	outgoing map[string]*transfer // stack transfer id -> transfer
	incoming map[string]*transfer // request id -> transfer

	monitorSub rpcbus.SubscriptionPoint
}

// New creates the OPP Manager. storageRoot bounds every pushFile
// sourceFile so a caller cannot push an arbitrary path off the device.
func New(storageRoot string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		base:        profile.New("opp", log),
		log:         log.With("profile", "opp"),
		stacks:      make(map[string]Stack),
		storageRoot: storageRoot,
		pendingPush: make(map[string]*requestBroker),
		awaitPush:   make(map[string]*rpcbus.Watch),
		outgoing:    make(map[string]*transfer),
		incoming:    make(map[string]*transfer),
	}
}

// Bind enables OPP on one adapter.
func (m *Manager) Bind(adapterAddress string, stack Stack) {
	m.stacks[adapterAddress] = stack
	m.base.Bind(adapterAddress, stack)
	m.pendingPush[adapterAddress] = newRequestBroker()
}

// Unbind disables OPP on one adapter.
func (m *Manager) Unbind(adapterAddress string) {
	delete(m.stacks, adapterAddress)
	delete(m.pendingPush, adapterAddress)
	delete(m.awaitPush, adapterAddress)
	m.base.Unbind(adapterAddress)
}

var _ service.ProfileRouter = (*Manager)(nil)

// Dispatch routes one /opp RPC method.
func (m *Manager) Dispatch(ctx context.Context, root *service.Root, msg rpcbus.Message) error {
	mgr, ok := root.ResolveAdapter(msg)
	if !ok {
		return nil
	}

	switch msg.Method() {
	case "connect":
		return m.dispatchConnect(ctx, msg, mgr)
	case "disconnect":
		return m.dispatchDisconnect(ctx, msg, mgr)
	case "getStatus":
		return m.dispatchGetStatus(msg, mgr)
	case "pushFile":
		return m.pushFile(ctx, msg, mgr)
	case "awaitTransferRequest":
		return m.awaitTransferRequest(msg, mgr)
	case "acceptTransferRequest":
		return m.acceptTransferRequest(ctx, msg, mgr)
	case "rejectTransferRequest":
		return m.rejectTransferRequest(ctx, msg, mgr)
	case "cancelTransfer":
		return m.cancelTransfer(ctx, msg, mgr)
	case "monitorTransfer":
		return m.monitorTransfer(msg, mgr)
	default:
		return msg.Reply(rpcbus.ErrorResponse{ErrorCode: int(btcode.ProfileUnavail), ErrorText: btcode.ProfileUnavail.String()})
	}
}

type addressParams struct {
	Address   string `json:"address"`
	Subscribe bool   `json:"subscribe,omitempty"`
}

func (m *Manager) dispatchConnect(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	return m.base.Connect(ctx, msg, mgr, req.Address, "")
}

func (m *Manager) dispatchDisconnect(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	return m.base.Disconnect(ctx, msg, mgr, req.Address, "")
}

func (m *Manager) dispatchGetStatus(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	return m.base.GetStatus(msg, mgr, req.Address, "")
}

// PropertyChanged mirrors the stack's connected property change into the
// profile base.
func (m *Manager) PropertyChanged(adapterAddress, address string, connected bool) {
	m.base.PropertyChanged(adapterAddress, address, "", connected)
}
