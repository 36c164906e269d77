package rpcbus

// SubscriptionPoint is a multi-subscriber fan-out sink.
// Subscribers are kept in join order; posting is synchronous relative to the
// single-threaded dispatcher that owns it, so no locking is needed here --
// every method must only ever be called from the dispatcher goroutine.
type SubscriptionPoint struct {
	subscribers []*Watch
}

// Subscribe adds w to the subscriber list.
func (sp *SubscriptionPoint) Subscribe(w *Watch) {
	sp.subscribers = append(sp.subscribers, w)
}

// Post sends v to every current subscriber, in join order, pruning any that
// have gone since the last post.
func (sp *SubscriptionPoint) Post(v any) {
	sp.prune()
	for _, w := range sp.subscribers {
		_ = w.Post(v)
	}
}

// PostFiltered sends v only to subscribers for which keep returns true,
// after pruning dead subscribers.
func (sp *SubscriptionPoint) PostFiltered(v any, keep func(*Watch) bool) {
	sp.prune()
	for _, w := range sp.subscribers {
		if keep(w) {
			_ = w.Post(v)
		}
	}
}

// Remove drops w from the subscriber list without closing it.
func (sp *SubscriptionPoint) Remove(w *Watch) {
	for i, s := range sp.subscribers {
		if s == w {
			sp.subscribers = append(sp.subscribers[:i], sp.subscribers[i+1:]...)
			return
		}
	}
}

// Len reports the number of live subscribers after pruning.
func (sp *SubscriptionPoint) Len() int {
	sp.prune()
	return len(sp.subscribers)
}

// Subscribers returns the live subscriber list after pruning. Callers must
// not retain the slice across a mutation of sp.
func (sp *SubscriptionPoint) Subscribers() []*Watch {
	sp.prune()
	return sp.subscribers
}

func (sp *SubscriptionPoint) prune() {
	live := sp.subscribers[:0]
	for _, w := range sp.subscribers {
		if !w.Closed() {
			live = append(live, w)
		}
	}
	sp.subscribers = live
}
