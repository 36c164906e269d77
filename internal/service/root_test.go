package service_test

import (
	"context"
	"testing"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/service"
	"github.com/anttech/btmgrd/internal/sil"
)

const testAddr = "00:11:22:33:44:55"

func newRoot() (*service.Root, *sil.FakeAdapter) {
	fa := sil.NewFakeAdapter(testAddr)
	r := service.New(sil.NewFakeHandle(fa), nil)
	r.Bootstrap()
	return r, fa
}

func TestBootstrapEnumeratesAdapters(t *testing.T) {
	r, _ := newRoot()
	if len(r.Adapters()) != 1 {
		t.Fatalf("Adapters() = %d, want 1", len(r.Adapters()))
	}
	if _, ok := r.Adapter(testAddr); !ok {
		t.Fatalf("Adapter(%s) not found", testAddr)
	}
}

func TestGetStatusAggregatesEveryAdapter(t *testing.T) {
	r, _ := newRoot()
	msg := rpcbus.NewFakeMessage("adapter", "getStatus", nil, false)

	if err := r.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	var resp service.AdapterListEvent
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.ReturnValue || len(resp.Adapters) != 1 || resp.Adapters[0].AdapterAddress != testAddr {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestDispatchUnknownCategoryFailsProfileUnavail(t *testing.T) {
	r, _ := newRoot()
	msg := rpcbus.NewFakeMessage("avrcp", "getStatus", nil, false)

	if err := r.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	var resp rpcbus.ErrorResponse
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorCode != int(btcode.ProfileUnavail) {
		t.Fatalf("errorCode = %d, want %d", resp.ErrorCode, btcode.ProfileUnavail)
	}
}

func TestDispatchAdapterScopedMethodResolvesDefaultAdapter(t *testing.T) {
	r, fa := newRoot()
	msg := rpcbus.NewFakeMessage("adapter", "startDiscovery", map[string]string{"transport": "le"}, false)
	m, _ := r.Adapter(testAddr)
	m.SetPowered(true)

	if err := r.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	fa.CompleteStartDiscovery(nil)

	var resp rpcbus.Response
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.ReturnValue {
		t.Fatalf("resp = %+v, want returnValue=true", resp)
	}
}

func TestObserverEventsAreSerializedThroughRun(t *testing.T) {
	r, _ := newRoot()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	var observer sil.Observer = r
	observer.AdapterStateChanged(testAddr, true)

	msg := rpcbus.NewFakeMessage("adapter", "getStatus", nil, false)
	processed := make(chan struct{})
	r.Submit(func() {
		_ = r.Dispatch(ctx, msg)
		close(processed)
	})
	<-processed

	cancel()
	<-done

	var resp service.AdapterListEvent
	if err := msg.LastReply(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Adapters) != 1 || !resp.Adapters[0].Powered {
		t.Fatalf("resp = %+v, want powered adapter after AdapterStateChanged", resp)
	}
}
