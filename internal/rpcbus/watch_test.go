package rpcbus_test

import (
	"testing"

	"github.com/anttech/btmgrd/internal/rpcbus"
)

func TestWatchFiresDisappearOnce(t *testing.T) {
	msg := rpcbus.NewFakeMessage("adapter", "pair", map[string]string{"address": "aa:bb:cc:dd:ee:ff"}, true)

	var fired int
	w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: "00:11:22:33:44:55"}, func(*rpcbus.Watch) {
		fired++
	})

	msg.Disappear()
	msg.Disappear()

	if fired != 1 {
		t.Fatalf("disappear callback fired %d times, want 1", fired)
	}
	if !w.Closed() {
		t.Fatal("watch should be closed after disappearance")
	}
}

func TestWatchCloseIsIdempotentAndSafeFromCallback(t *testing.T) {
	msg := rpcbus.NewFakeMessage("adapter", "pair", nil, true)

	var w *rpcbus.Watch
	var fired int
	w = rpcbus.NewWatch(msg, rpcbus.Scope{}, func(watch *rpcbus.Watch) {
		fired++
		// Destruction from inside the disappeared callback must not deadlock
		// or double-fire.
		watch.Close()
		watch.Close()
	})

	msg.Disappear()

	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if !w.Closed() {
		t.Fatal("expected watch closed")
	}
}

func TestWatchPostNoopAfterClose(t *testing.T) {
	msg := rpcbus.NewFakeMessage("le", "startScan", nil, true)
	w := rpcbus.NewWatch(msg, rpcbus.Scope{}, nil)

	w.Close()
	if err := w.Post(map[string]bool{"subscribed": false}); err != nil {
		t.Fatalf("Post after close returned error: %v", err)
	}
	if len(msg.Posts) != 0 {
		t.Fatalf("expected no posts delivered after close, got %d", len(msg.Posts))
	}
}
