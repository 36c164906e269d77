package profiles_test

import (
	"context"
	"testing"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/profiles"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
	"github.com/anttech/btmgrd/internal/sil"
)

const (
	testAdapter = "00:11:22:33:44:55"
	testDevice  = "aa:bb:cc:dd:ee:ff"
)

type fakeStack struct {
	connected bool
	enabled   []string
	disabled  []string
	failUUID  string
}

func (s *fakeStack) Connected(string) bool { return s.connected }

func (s *fakeStack) Connect(_ context.Context, _ string, cb func(error)) {
	s.connected = true
	cb(nil)
}

func (s *fakeStack) Disconnect(_ context.Context, _ string, cb func(error)) {
	s.connected = false
	cb(nil)
}

func (s *fakeStack) EnableRole(_ context.Context, uuid string, cb func(error)) {
	if uuid == s.failUUID {
		cb(&btcode.Error{Code: btcode.ProfileUnavail, Text: "denied"})
		return
	}
	s.enabled = append(s.enabled, uuid)
	cb(nil)
}

func (s *fakeStack) DisableRole(_ context.Context, uuid string, cb func(error)) {
	s.disabled = append(s.disabled, uuid)
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

func TestSimpleConnectDisconnectGetStatus(t *testing.T) {
	m := profiles.NewSimple("gatt", nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	svc := newRootWithDevice(t)

	connectMsg := rpcbus.NewFakeMessage("gatt", "connect", map[string]any{"address": testDevice}, false)
	if err := m.Dispatch(context.Background(), svc, connectMsg); err != nil {
		t.Fatalf("connect: %v", err)
	}
	var ack rpcbus.Response
	if err := connectMsg.LastReply(&ack); err != nil {
		t.Fatal(err)
	}
	if !ack.ReturnValue {
		t.Fatalf("connect ack = %+v, want returnValue=true", ack)
	}

	m.PropertyChanged(testAdapter, testDevice, true)

	statusMsg := rpcbus.NewFakeMessage("gatt", "getStatus", map[string]any{"address": testDevice}, false)
	if err := m.Dispatch(context.Background(), svc, statusMsg); err != nil {
		t.Fatalf("getStatus: %v", err)
	}
	var status struct {
		Connected bool `json:"connected"`
	}
	if err := statusMsg.LastReply(&status); err != nil {
		t.Fatal(err)
	}
	if !status.Connected {
		t.Fatalf("status = %+v, want connected=true", status)
	}

	disconnectMsg := rpcbus.NewFakeMessage("gatt", "disconnect", map[string]any{"address": testDevice}, false)
	if err := m.Dispatch(context.Background(), svc, disconnectMsg); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	var dack rpcbus.Response
	if err := disconnectMsg.LastReply(&dack); err != nil {
		t.Fatal(err)
	}
	if !dack.ReturnValue {
		t.Fatalf("disconnect ack = %+v, want returnValue=true", dack)
	}
}

func TestSimpleUnknownMethodFailsProfileUnavail(t *testing.T) {
	m := profiles.NewSimple("pbap", nil)
	m.Bind(testAdapter, &fakeStack{})
	svc := newRootWithDevice(t)

	msg := rpcbus.NewFakeMessage("pbap", "bogusMethod", map[string]any{"address": testDevice}, false)
	if err := m.Dispatch(context.Background(), svc, msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.ProfileUnavail) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.ProfileUnavail)
	}
}

func TestA2DPEnableRolesRollsBackOnFailure(t *testing.T) {
	m := profiles.NewA2DP(nil)
	stack := &fakeStack{failUUID: "sink-uuid"}
	m.Bind(testAdapter, stack)
	svc := newRootWithDevice(t)

	msg := rpcbus.NewFakeMessage("a2dp", "enable", map[string]any{"uuids": []string{"source-uuid", "sink-uuid"}}, false)
	if err := m.Dispatch(context.Background(), svc, msg); err != nil {
		t.Fatalf("enable: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.ProfileUnavail) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.ProfileUnavail)
	}
	if len(stack.disabled) != 1 || stack.disabled[0] != "source-uuid" {
		t.Fatalf("disabled = %v, want [source-uuid] rolled back", stack.disabled)
	}
}

func TestA2DPEnableRolesSucceeds(t *testing.T) {
	m := profiles.NewA2DP(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	svc := newRootWithDevice(t)

	msg := rpcbus.NewFakeMessage("a2dp", "enable", map[string]any{"uuids": []string{"source-uuid"}}, false)
	if err := m.Dispatch(context.Background(), svc, msg); err != nil {
		t.Fatalf("enable: %v", err)
	}
	var resp rpcbus.Response
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.ReturnValue {
		t.Fatalf("enable reply = %+v, want returnValue=true", resp)
	}
	if len(stack.enabled) != 1 || stack.enabled[0] != "source-uuid" {
		t.Fatalf("enabled = %v, want [source-uuid]", stack.enabled)
	}
}

func TestMAPScopesBySessionKeyNotBareAddress(t *testing.T) {
	m := profiles.NewMAP(nil)
	stack := &fakeStack{}
	m.Bind(testAdapter, stack)
	svc := newRootWithDevice(t)

	firstConnect := rpcbus.NewFakeMessage("map", "connect", map[string]any{"address": testDevice, "instanceName": "mas0"}, false)
	if err := m.Dispatch(context.Background(), svc, firstConnect); err != nil {
		t.Fatalf("connect mas0: %v", err)
	}
	m.PropertyChanged(testAdapter, testDevice, "mas0", true)

	secondStatus := rpcbus.NewFakeMessage("map", "getStatus", map[string]any{"address": testDevice, "instanceName": "mas1"}, false)
	if err := m.Dispatch(context.Background(), svc, secondStatus); err != nil {
		t.Fatalf("getStatus mas1: %v", err)
	}
	var status struct {
		Connected bool `json:"connected"`
	}
	if err := secondStatus.LastReply(&status); err != nil {
		t.Fatal(err)
	}
	if status.Connected {
		t.Fatalf("mas1 status = %+v, want connected=false (separate session from mas0)", status)
	}

	firstStatus := rpcbus.NewFakeMessage("map", "getStatus", map[string]any{"address": testDevice, "instanceName": "mas0"}, false)
	if err := m.Dispatch(context.Background(), svc, firstStatus); err != nil {
		t.Fatalf("getStatus mas0: %v", err)
	}
	if err := firstStatus.LastReply(&status); err != nil {
		t.Fatal(err)
	}
	if !status.Connected {
		t.Fatalf("mas0 status = %+v, want connected=true", status)
	}
}
