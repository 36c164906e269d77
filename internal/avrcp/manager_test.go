package avrcp_test

import (
	"context"
	"testing"

	"github.com/anttech/btmgrd/internal/avrcp"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
	"github.com/anttech/btmgrd/internal/sil"
)

const (
	testAdapter = "00:11:22:33:44:55"
	testDevice  = "aa:bb:cc:dd:ee:ff"
)

type fakeStack struct {
	connected        bool
	lastKey          avrcp.KeyCode
	lastStatus       avrcp.KeyStatus
	lastVolume       byte
	lastSettings     avrcp.PlayerApplicationSettings
	suppliedMetaData avrcp.MediaMetaData
}

func (s *fakeStack) Connected(string) bool { return s.connected }

func (s *fakeStack) Connect(_ context.Context, _ string, cb func(error)) { cb(nil) }

func (s *fakeStack) Disconnect(_ context.Context, _ string, cb func(error)) {
	s.connected = false
	cb(nil)
}

func (s *fakeStack) SendPassThroughCommand(_ context.Context, _ string, key avrcp.KeyCode, status avrcp.KeyStatus, cb func(error)) {
	s.lastKey, s.lastStatus = key, status
	cb(nil)
}

func (s *fakeStack) SetAbsoluteVolume(_ context.Context, _ string, volume7Bit byte, cb func(error)) {
	s.lastVolume = volume7Bit
	cb(nil)
}

func (s *fakeStack) SupplyMediaMetaData(_ context.Context, _ any, data avrcp.MediaMetaData, cb func(error)) {
	s.suppliedMetaData = data
	cb(nil)
}

func (s *fakeStack) SupplyMediaPlayStatus(_ context.Context, _ any, _ avrcp.PlayStatus, cb func(error)) {
	cb(nil)
}

func (s *fakeStack) SetPlayerApplicationSettings(_ context.Context, _ string, settings avrcp.PlayerApplicationSettings, cb func(error)) {
	s.lastSettings = settings
	cb(nil)
}

func newRootWithDevice(t *testing.T) *service.Root {
	t.Helper()
	fa := sil.NewFakeAdapter(testAdapter)
	r := service.New(sil.NewFakeHandle(fa), nil)
	r.Bootstrap()
	mgr, ok := r.Adapter(testAdapter)
	if !ok {
		t.Fatalf("adapter %s not bootstrapped", testAdapter)
	}
	mgr.DeviceFound(sil.DeviceSnapshot{Address: testDevice, Type: "bredr"})
	return r
}

func connectParams(address string) map[string]any {
	return map[string]any{"address": address}
}

func TestConnectDisconnectGetStatus(t *testing.T) {
	m := avrcp.New(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	root := newRootWithDevice(t)

	connMsg := rpcbus.NewFakeMessage("avrcp", "connect", connectParams(testDevice), false)
	if err := m.Dispatch(context.Background(), root, connMsg); err != nil {
		t.Fatalf("connect: %v", err)
	}
	stack.connected = true
	m.PropertyChanged(testAdapter, testDevice, true)

	statusMsg := rpcbus.NewFakeMessage("avrcp", "getStatus", connectParams(testDevice), false)
	if err := m.Dispatch(context.Background(), root, statusMsg); err != nil {
		t.Fatalf("getStatus: %v", err)
	}

	discMsg := rpcbus.NewFakeMessage("avrcp", "disconnect", connectParams(testDevice), false)
	if err := m.Dispatch(context.Background(), root, discMsg); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	var resp rpcbus.Response
	if err := discMsg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.ReturnValue {
		t.Fatalf("disconnect reply = %+v, want returnValue=true", resp)
	}
}

func TestMediaMetaDataRoundTrip(t *testing.T) {
	m := avrcp.New(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	root := newRootWithDevice(t)

	awaitMsg := rpcbus.NewFakeMessage("avrcp", "awaitMediaMetaDataRequest", nil, true)
	if err := m.Dispatch(context.Background(), root, awaitMsg); err != nil {
		t.Fatalf("await: %v", err)
	}

	m.MediaMetaDataRequested(testAdapter, testDevice, "handle-1")

	var reqEvent struct {
		RequestID string `json:"requestId"`
		Address   string `json:"address"`
	}
	if err := awaitMsg.LastPost(&reqEvent); err != nil {
		t.Fatal(err)
	}
	if reqEvent.RequestID != "001" {
		t.Fatalf("requestId = %q, want 001", reqEvent.RequestID)
	}

	supplyMsg := rpcbus.NewFakeMessage("avrcp", "supplyMediaMetaData", map[string]any{
		"requestId": reqEvent.RequestID,
		"title":     "Song",
	}, false)
	if err := m.Dispatch(context.Background(), root, supplyMsg); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if stack.suppliedMetaData.Title != "Song" {
		t.Fatalf("suppliedMetaData = %+v, want title=Song", stack.suppliedMetaData)
	}

	var resp rpcbus.Response
	if err := supplyMsg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.ReturnValue {
		t.Fatalf("supply reply = %+v, want returnValue=true", resp)
	}
}

func TestAwaitMediaMetaDataRequestAllowsOnlyOneSubscriber(t *testing.T) {
	m := avrcp.New(nil)
	m.Bind(testAdapter, &fakeStack{})
	root := newRootWithDevice(t)

	first := rpcbus.NewFakeMessage("avrcp", "awaitMediaMetaDataRequest", nil, true)
	if err := m.Dispatch(context.Background(), root, first); err != nil {
		t.Fatalf("first await: %v", err)
	}

	second := rpcbus.NewFakeMessage("avrcp", "awaitMediaMetaDataRequest", nil, true)
	if err := m.Dispatch(context.Background(), root, second); err != nil {
		t.Fatalf("second await: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := second.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.AllowOneSubscribe) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.AllowOneSubscribe)
	}
}

func TestSendPassThroughCommandRejectsUnknownKeyCode(t *testing.T) {
	m := avrcp.New(nil)
	m.Bind(testAdapter, &fakeStack{})
	root := newRootWithDevice(t)

	msg := rpcbus.NewFakeMessage("avrcp", "sendPassThroughCommand", map[string]any{
		"address":   testDevice,
		"keyCode":   "teleport",
		"keyStatus": "pressed",
	}, false)
	if err := m.Dispatch(context.Background(), root, msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.KeyCodeInvalidValueParam) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.KeyCodeInvalidValueParam)
	}
}

func TestSendPassThroughCommandMapsKnownKeyCode(t *testing.T) {
	m := avrcp.New(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	root := newRootWithDevice(t)

	msg := rpcbus.NewFakeMessage("avrcp", "sendPassThroughCommand", map[string]any{
		"address":   testDevice,
		"keyCode":   "volumeUp",
		"keyStatus": "released",
	}, false)
	if err := m.Dispatch(context.Background(), root, msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if stack.lastKey != avrcp.KeyVolumeUp || stack.lastStatus != avrcp.KeyReleased {
		t.Fatalf("lastKey/lastStatus = %v/%v, want volumeUp/released", stack.lastKey, stack.lastStatus)
	}
}

func TestSetAbsoluteVolumeConversion(t *testing.T) {
	m := avrcp.New(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	root := newRootWithDevice(t)

	msg := rpcbus.NewFakeMessage("avrcp", "setAbsoluteVolume", map[string]any{
		"address": testDevice,
		"volume":  50,
	}, false)
	if err := m.Dispatch(context.Background(), root, msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if stack.lastVolume != 64 {
		t.Fatalf("lastVolume = %d, want 64 (round(50/100*127))", stack.lastVolume)
	}
}

func TestRemoteVolumeChangedNotifiesSubscriber(t *testing.T) {
	m := avrcp.New(nil)
	m.Bind(testAdapter, &fakeStack{})
	root := newRootWithDevice(t)

	subMsg := rpcbus.NewFakeMessage("avrcp", "getRemoteVolume", connectParams(testDevice), true)
	if err := m.Dispatch(context.Background(), root, subMsg); err != nil {
		t.Fatalf("getRemoteVolume: %v", err)
	}

	m.RemoteVolumeChanged(testAdapter, testDevice, 64)

	var ev struct {
		Volume int `json:"volume"`
	}
	if err := subMsg.LastPost(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Volume != 50 {
		t.Fatalf("volume = %d, want 50 (round(64/127*100))", ev.Volume)
	}
}

func TestSetPlayerApplicationSettingsForwardsOnlyChangedFields(t *testing.T) {
	m := avrcp.New(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	root := newRootWithDevice(t)

	first := rpcbus.NewFakeMessage("avrcp", "setPlayerApplicationSettings", map[string]any{
		"address":   testDevice,
		"equalizer": "on",
		"repeat":    "off",
	}, false)
	if err := m.Dispatch(context.Background(), root, first); err != nil {
		t.Fatalf("first: %v", err)
	}
	if stack.lastSettings.Equalizer != "on" || stack.lastSettings.Repeat != "off" {
		t.Fatalf("lastSettings = %+v, want both fields forwarded on first call", stack.lastSettings)
	}

	stack.lastSettings = avrcp.PlayerApplicationSettings{}
	second := rpcbus.NewFakeMessage("avrcp", "setPlayerApplicationSettings", map[string]any{
		"address":   testDevice,
		"equalizer": "on",
		"shuffle":   "on",
	}, false)
	if err := m.Dispatch(context.Background(), root, second); err != nil {
		t.Fatalf("second: %v", err)
	}
	if stack.lastSettings.Equalizer != "" {
		t.Fatalf("lastSettings.Equalizer = %q, want empty since it did not change", stack.lastSettings.Equalizer)
	}
	if stack.lastSettings.Shuffle != "on" {
		t.Fatalf("lastSettings.Shuffle = %q, want on", stack.lastSettings.Shuffle)
	}
}

func TestDisconnectClearsPerDeviceMirrors(t *testing.T) {
	m := avrcp.New(nil)
	m.Bind(testAdapter, &fakeStack{})

	m.PlayerInfoChanged(testAdapter, testDevice, avrcp.PlayerInfo{Name: "Player"})
	m.PropertyChanged(testAdapter, testDevice, false)

	root := newRootWithDevice(t)
	msg := rpcbus.NewFakeMessage("avrcp", "getPlayerInfo", connectParams(testDevice), false)
	if err := m.Dispatch(context.Background(), root, msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var info avrcp.PlayerInfo
	if err := msg.LastReply(&info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "" {
		t.Fatalf("playerInfo mirror = %+v, want cleared after disconnect", info)
	}
}
