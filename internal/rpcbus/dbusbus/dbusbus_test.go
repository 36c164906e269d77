package dbusbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

var errUnreachableCategory = errors.New("no route for category")

func TestNewMessageParsesSubscribeFlag(t *testing.T) {
	m := newMessage(nil, "adapter", "queryAvailable", ":1.42", `{"subscribe":true}`)
	if !m.Subscribed() {
		t.Fatal("Subscribed() = false, want true")
	}

	m2 := newMessage(nil, "adapter", "getStatus", ":1.42", `{}`)
	if m2.Subscribed() {
		t.Fatal("Subscribed() = true, want false")
	}
}

func TestMessageCategoryMethodCaller(t *testing.T) {
	m := newMessage(nil, "avrcp", "connect", ":1.7", `{"address":"aa:bb:cc:dd:ee:ff"}`)
	if m.Category() != "avrcp" || m.Method() != "connect" || m.CallerID() != ":1.7" {
		t.Fatalf("got category=%s method=%s caller=%s", m.Category(), m.Method(), m.CallerID())
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := m.Params(&req); err != nil {
		t.Fatal(err)
	}
	if req.Address != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("Params address = %q", req.Address)
	}
}

func TestMessageReplyUnblocksOnceOnly(t *testing.T) {
	m := newMessage(nil, "adapter", "getStatus", ":1.1", `{}`)

	if err := m.Reply(map[string]bool{"returnValue": true}); err != nil {
		t.Fatal(err)
	}
	// A second Reply must not block or panic even though result is
	// buffered for exactly one value.
	if err := m.Reply(map[string]bool{"returnValue": false}); err != nil {
		t.Fatal(err)
	}

	got := <-m.result
	if got.json != `{"returnValue":true}` {
		t.Fatalf("result = %q, want the first reply", got.json)
	}
}

func TestFailDispatchUnblocksInvoke(t *testing.T) {
	m := newMessage(nil, "adapter", "bogus", ":1.1", `{}`)
	wantErr := errUnreachableCategory
	m.failDispatch(wantErr)

	got := <-m.result
	if got.err != wantErr {
		t.Fatalf("result.err = %v, want %v", got.err, wantErr)
	}
}

func TestHandleNameOwnerChangedFiresDisappear(t *testing.T) {
	b := newBus(nil, "org.anttech.btmgr", nil, nil)

	fired := false
	b.disappearFns[":1.9"] = []func(){func() { fired = true }}

	b.handleNameOwnerChanged(&dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []any{":1.9", ":1.9", ""},
	})

	if !fired {
		t.Fatal("disappear callback did not fire")
	}
	if _, ok := b.disappearFns[":1.9"]; ok {
		t.Fatal("disappearFns entry should be removed after firing")
	}
}

func TestHandleNameOwnerChangedIgnoresStillOwned(t *testing.T) {
	b := newBus(nil, "org.anttech.btmgr", nil, nil)

	fired := false
	b.disappearFns[":1.9"] = []func(){func() { fired = true }}

	b.handleNameOwnerChanged(&dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []any{":1.9", "", ":1.9"},
	})

	if fired {
		t.Fatal("disappear callback fired for a name that is still owned")
	}
}
