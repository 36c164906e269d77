package rpcbus_test

import (
	"testing"

	"github.com/anttech/btmgrd/internal/rpcbus"
)

type statusEvent struct {
	Powered bool `json:"powered"`
}

func TestSubscriptionPointPostsInJoinOrder(t *testing.T) {
	var sp rpcbus.SubscriptionPoint

	var order []string
	makeWatch := func(name string) *rpcbus.Watch {
		msg := rpcbus.NewFakeMessage("adapter", "getStatus", nil, true)
		w := rpcbus.NewWatch(msg, rpcbus.Scope{}, nil)
		_ = msg // silence unused in case of future field use
		order = append(order, name) // creation order; the assertion below reads sp.Subscribers()
		return w
	}

	a := makeWatch("a")
	b := makeWatch("b")
	sp.Subscribe(a)
	sp.Subscribe(b)

	sp.Post(statusEvent{Powered: true})

	subs := sp.Subscribers()
	if len(subs) != 2 || subs[0] != a || subs[1] != b {
		t.Fatalf("subscribers not in join order")
	}
}

func TestSubscriptionPointPrunesDeadSubscribers(t *testing.T) {
	var sp rpcbus.SubscriptionPoint

	liveMsg := rpcbus.NewFakeMessage("adapter", "getStatus", nil, true)
	live := rpcbus.NewWatch(liveMsg, rpcbus.Scope{}, nil)

	deadMsg := rpcbus.NewFakeMessage("adapter", "getStatus", nil, true)
	dead := rpcbus.NewWatch(deadMsg, rpcbus.Scope{}, nil)

	sp.Subscribe(live)
	sp.Subscribe(dead)

	deadMsg.Disappear()

	sp.Post(statusEvent{Powered: false})

	if len(liveMsg.Posts) != 1 {
		t.Fatalf("live subscriber got %d posts, want 1", len(liveMsg.Posts))
	}
	if len(deadMsg.Posts) != 0 {
		t.Fatalf("dead subscriber got %d posts, want 0", len(deadMsg.Posts))
	}
	if sp.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sp.Len())
	}
}

func TestSubscriptionPointFilteredPost(t *testing.T) {
	var sp rpcbus.SubscriptionPoint

	matchMsg := rpcbus.NewFakeMessage("device", "getStatus", nil, true)
	match := rpcbus.NewWatch(matchMsg, rpcbus.Scope{DeviceAddress: "aa:bb:cc:dd:ee:ff"}, nil)

	otherMsg := rpcbus.NewFakeMessage("device", "getStatus", nil, true)
	other := rpcbus.NewWatch(otherMsg, rpcbus.Scope{DeviceAddress: "11:22:33:44:55:66"}, nil)

	sp.Subscribe(match)
	sp.Subscribe(other)

	sp.PostFiltered(statusEvent{Powered: true}, func(w *rpcbus.Watch) bool {
		return w.Scope.DeviceAddress == "aa:bb:cc:dd:ee:ff"
	})

	if len(matchMsg.Posts) != 1 {
		t.Fatalf("matching subscriber got %d posts, want 1", len(matchMsg.Posts))
	}
	if len(otherMsg.Posts) != 0 {
		t.Fatalf("non-matching subscriber got %d posts, want 0", len(otherMsg.Posts))
	}
}
