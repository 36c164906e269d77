package profile_test

import (
	"context"
	"testing"

	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profile"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

const (
	testAdapter = "00:11:22:33:44:55"
	testDevice  = "aa:bb:cc:dd:ee:ff"
)

type fakeStack struct {
	connected     bool
	connectErr    error
	disconnectErr error
	connectCalls  int
}

func (s *fakeStack) Connected(string) bool { return s.connected }

func (s *fakeStack) Connect(_ context.Context, _ string, cb func(error)) {
	s.connectCalls++
	cb(s.connectErr)
}

func (s *fakeStack) Disconnect(_ context.Context, _ string, cb func(error)) {
	if s.disconnectErr == nil {
		s.connected = false
	}
	cb(s.disconnectErr)
}

func newManagerWithDevice(t *testing.T) *adapter.Manager {
	t.Helper()
	fa := sil.NewFakeAdapter(testAdapter)
	mgr := adapter.New(fa, nil)
	mgr.DeviceFound(sil.DeviceSnapshot{Address: testDevice, Type: "bredr"})
	return mgr
}

func TestConnectRejectsUnknownDevice(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	b.Bind(testAdapter, &fakeStack{})

	msg := rpcbus.NewFakeMessage("a2dp", "connect", nil, false)
	if err := b.Connect(context.Background(), msg, mgr, "ff:ff:ff:ff:ff:ff", ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.DeviceNotAvail) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.DeviceNotAvail)
	}
}

func TestConnectMarksConnectingThenPropertyChangeMarksConnected(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	stack := &fakeStack{}
	b.Bind(testAdapter, stack)

	msg := rpcbus.NewFakeMessage("a2dp", "connect", nil, true)
	if err := b.Connect(context.Background(), msg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if stack.connectCalls != 1 {
		t.Fatalf("connectCalls = %d, want 1", stack.connectCalls)
	}

	statusMsg := rpcbus.NewFakeMessage("a2dp", "getStatus", nil, false)
	if err := b.GetStatus(statusMsg, mgr, testDevice, ""); err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	var st profile.StatusEvent
	if err := statusMsg.LastReply(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Connecting || st.Connected {
		t.Fatalf("status = %+v, want connecting=true connected=false", st)
	}

	b.PropertyChanged(testAdapter, testDevice, "", true)

	statusMsg2 := rpcbus.NewFakeMessage("a2dp", "getStatus", nil, false)
	if err := b.GetStatus(statusMsg2, mgr, testDevice, ""); err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	var st2 profile.StatusEvent
	if err := statusMsg2.LastReply(&st2); err != nil {
		t.Fatal(err)
	}
	if st2.Connecting || !st2.Connected {
		t.Fatalf("status = %+v, want connecting=false connected=true", st2)
	}
}

func TestConnectAlreadyConnectedFails(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	stack := &fakeStack{connected: true}
	b.Bind(testAdapter, stack)

	msg := rpcbus.NewFakeMessage("a2dp", "connect", nil, false)
	if err := b.Connect(context.Background(), msg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.ProfileConnected) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.ProfileConnected)
	}
}

func TestDisconnectRequiresConnected(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	b.Bind(testAdapter, &fakeStack{})

	msg := rpcbus.NewFakeMessage("a2dp", "disconnect", nil, false)
	if err := b.Disconnect(context.Background(), msg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.ProfileNotConnected) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.ProfileNotConnected)
	}
}

func TestDisconnectTearsDownWatchLocallyNotRemote(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	stack := &fakeStack{}
	b.Bind(testAdapter, stack)

	connectMsg := rpcbus.NewFakeMessage("a2dp", "connect", nil, true)
	if err := b.Connect(context.Background(), connectMsg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	b.PropertyChanged(testAdapter, testDevice, "", true)

	disconnectMsg := rpcbus.NewFakeMessage("a2dp", "disconnect", nil, false)
	if err := b.Disconnect(context.Background(), disconnectMsg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	var ev profile.DisconnectEvent
	if err := connectMsg.LastPost(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.DisconnectByRemote {
		t.Fatalf("DisconnectByRemote = true, want false for a locally initiated disconnect")
	}

	var ok rpcbus.Response
	if err := disconnectMsg.LastReply(&ok); err != nil {
		t.Fatal(err)
	}
	if !ok.ReturnValue {
		t.Fatalf("disconnect reply = %+v, want returnValue=true", ok)
	}
}

func TestRemotePropertyChangeTearsDownWatchAsRemote(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	stack := &fakeStack{}
	b.Bind(testAdapter, stack)

	connectMsg := rpcbus.NewFakeMessage("a2dp", "connect", nil, true)
	if err := b.Connect(context.Background(), connectMsg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	b.PropertyChanged(testAdapter, testDevice, "", true)

	b.PropertyChanged(testAdapter, testDevice, "", false)

	var ev profile.DisconnectEvent
	if err := connectMsg.LastPost(&ev); err != nil {
		t.Fatal(err)
	}
	if !ev.DisconnectByRemote {
		t.Fatalf("DisconnectByRemote = false, want true for a remote-initiated disconnect")
	}
}

func TestConnectWatchDisappearanceTriggersDisconnect(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	stack := &fakeStack{}
	b.Bind(testAdapter, stack)

	connectMsg := rpcbus.NewFakeMessage("a2dp", "connect", nil, true)
	if err := b.Connect(context.Background(), connectMsg, mgr, testDevice, ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	b.PropertyChanged(testAdapter, testDevice, "", true)
	stack.connected = true // the stack side of the established connection

	connectMsg.Disappear()

	if stack.connected {
		t.Fatalf("stack still reports connected after the subscribing caller disappeared")
	}
}

type fakeRoleStack struct {
	fakeStack
	enabled  []string
	disabled []string
	failUUID string
}

func (s *fakeRoleStack) EnableRole(_ context.Context, uuid string, cb func(error)) {
	if uuid == s.failUUID {
		cb(&btcode.Error{Code: btcode.ProfileUnavail, Text: "denied"})
		return
	}
	s.enabled = append(s.enabled, uuid)
	cb(nil)
}

func (s *fakeRoleStack) DisableRole(_ context.Context, uuid string, cb func(error)) {
	s.disabled = append(s.disabled, uuid)
	cb(nil)
}

func TestEnableRolesStopsOnFirstFailure(t *testing.T) {
	b := profile.New("a2dp", nil)
	mgr := newManagerWithDevice(t)
	rs := &fakeRoleStack{failUUID: "role-b"}
	b.Bind(testAdapter, rs)

	msg := rpcbus.NewFakeMessage("a2dp", "enableRoles", nil, false)
	if err := b.EnableRoles(context.Background(), msg, mgr, []string{"role-a", "role-b", "role-c"}); err != nil {
		t.Fatalf("EnableRoles: %v", err)
	}

	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.ProfileUnavail) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.ProfileUnavail)
	}
	if len(rs.enabled) != 1 || rs.enabled[0] != "role-a" {
		t.Fatalf("enabled = %v, want [role-a]", rs.enabled)
	}
	if len(rs.disabled) != 1 || rs.disabled[0] != "role-a" {
		t.Fatalf("disabled = %v, want [role-a] rolled back after role-b failed", rs.disabled)
	}
}
