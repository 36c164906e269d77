package avrcp

import (
	"context"
	"log/slog"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
)

type deviceKey struct {
	adapter string
	device  string
}

// Manager is the single AVRCP profile instance for the whole process; it
// registers once with the Service Root under the "avrcp" category and
// tracks every adapter it has been enabled on.
type Manager struct {
	base *profile.Base
	log  *slog.Logger

	stacks map[string]Stack

	metaDataAwait   map[string]*rpcbus.Watch
	playStatusAwait map[string]*rpcbus.Watch

	metaDataReqs   map[string]*requestBroker
	playStatusReqs map[string]*requestBroker

	passThroughSub rpcbus.SubscriptionPoint
	volumeSub      rpcbus.SubscriptionPoint
	playerInfoSub  rpcbus.SubscriptionPoint
	playStatusSub  rpcbus.SubscriptionPoint
	settingsSub    map[deviceKey]*rpcbus.SubscriptionPoint

	settings      map[deviceKey]PlayerApplicationSettings
	playerInfo    map[deviceKey]PlayerInfo
	currentFolder map[deviceKey]string
	playStatus    map[deviceKey]PlayStatus
	folderItems   map[deviceKey][]string
}

// New creates the AVRCP Manager. Call Bind for every adapter the profile is
// enabled on before registering it with service.Root.RegisterProfile.
func New(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		base:            profile.New("avrcp", log),
		log:             log.With("profile", "avrcp"),
		stacks:          make(map[string]Stack),
		metaDataAwait:   make(map[string]*rpcbus.Watch),
		playStatusAwait: make(map[string]*rpcbus.Watch),
		metaDataReqs:    make(map[string]*requestBroker),
		playStatusReqs:  make(map[string]*requestBroker),
		settingsSub:     make(map[deviceKey]*rpcbus.SubscriptionPoint),
		settings:        make(map[deviceKey]PlayerApplicationSettings),
		playerInfo:      make(map[deviceKey]PlayerInfo),
		currentFolder:   make(map[deviceKey]string),
		playStatus:      make(map[deviceKey]PlayStatus),
		folderItems:     make(map[deviceKey][]string),
	}
}

// Bind enables AVRCP on one adapter.
func (m *Manager) Bind(adapterAddress string, stack Stack) {
	m.stacks[adapterAddress] = stack
	m.base.Bind(adapterAddress, stack)
	m.metaDataReqs[adapterAddress] = newRequestBroker()
	m.playStatusReqs[adapterAddress] = newRequestBroker()
}

// Unbind disables AVRCP on one adapter.
func (m *Manager) Unbind(adapterAddress string) {
	delete(m.stacks, adapterAddress)
	delete(m.metaDataReqs, adapterAddress)
	delete(m.playStatusReqs, adapterAddress)
	delete(m.metaDataAwait, adapterAddress)
	delete(m.playStatusAwait, adapterAddress)
	m.base.Unbind(adapterAddress)
}

var _ service.ProfileRouter = (*Manager)(nil)

// Dispatch routes one /avrcp RPC method.
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
	case "awaitMediaMetaDataRequest":
		return m.awaitMediaMetaDataRequest(msg, mgr)
	case "awaitMediaPlayStatusRequest":
		return m.awaitMediaPlayStatusRequest(msg, mgr)
	case "supplyMediaMetaData":
		return m.supplyMediaMetaData(ctx, msg, mgr)
	case "supplyMediaPlayStatus":
		return m.supplyMediaPlayStatus(ctx, msg, mgr)
	case "sendPassThroughCommand":
		return m.sendPassThroughCommand(ctx, msg, mgr)
	case "receivePassThroughCommand":
		return m.receivePassThroughCommand(msg, mgr)
	case "setAbsoluteVolume":
		return m.setAbsoluteVolume(ctx, msg, mgr)
	case "getRemoteVolume":
		return m.getRemoteVolume(msg, mgr)
	case "setPlayerApplicationSettings":
		return m.setPlayerApplicationSettings(ctx, msg, mgr)
	case "getPlayerApplicationSettings":
		return m.getPlayerApplicationSettings(msg, mgr)
	case "getPlayerInfo":
		return m.getPlayerInfo(msg, mgr)
	case "notifyPlayStatus":
		return m.notifyPlayStatus(msg, mgr)
	case "getCurrentFolder":
		return m.getCurrentFolder(msg, mgr)
	case "changePath":
		return m.changePath(msg, mgr)
	case "numberOfItems":
		return m.numberOfItems(msg, mgr)
	case "folderItems":
		return m.listFolderItems(msg, mgr)
	case "playItem":
		return m.playItem(msg, mgr)
	case "addToNowPlaying":
		return m.addToNowPlaying(msg, mgr)
	case "search":
		return m.search(msg, mgr)
	case "enable":
		return m.dispatchEnableRoles(ctx, msg, mgr)
	case "disable":
		return m.dispatchDisableRoles(ctx, msg, mgr)
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

type roleUUIDsParams struct {
	UUIDs []string `json:"uuids"`
}

// dispatchEnableRoles and dispatchDisableRoles expose the controller/target
// role toggle from the internal method set; AVRCP is one of the two
// profiles (with A2DP) that supports runtime role enable/disable.
func (m *Manager) dispatchEnableRoles(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req roleUUIDsParams
	_ = msg.Params(&req)
	return m.base.EnableRoles(ctx, msg, mgr, req.UUIDs)
}

func (m *Manager) dispatchDisableRoles(ctx context.Context, msg rpcbus.Message, mgr *adapter.Manager) error {
	var req roleUUIDsParams
	_ = msg.Params(&req)
	return m.base.DisableRoles(ctx, msg, mgr, req.UUIDs)
}

// PropertyChanged mirrors the stack's connected property change into the
// profile base and, on disconnect, clears this device's player mirrors.
func (m *Manager) PropertyChanged(adapterAddress, address string, connected bool) {
	m.base.PropertyChanged(adapterAddress, address, "", connected)
	if connected {
		return
	}
	k := deviceKey{adapter: adapterAddress, device: address}
	delete(m.playerInfo, k)
	delete(m.currentFolder, k)
	delete(m.playStatus, k)
	delete(m.settings, k)
	delete(m.settingsSub, k)
	delete(m.folderItems, k)
}
