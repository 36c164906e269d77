package avrcp

// requestEntry pairs a caller-facing 3-digit request-id with the stack's
// opaque handle for that outstanding request, in allocation order.
type requestEntry struct {
	id     int
	handle any
}

// requestBroker allocates 3-digit decimal request ids (1..999, wrapping to
// 1) for AVRCP media-metadata/play-status request brokerage. The allocation
// idiom -- a map keyed by the allocated value plus an allocate/release pair
// -- mirrors bfd.DiscriminatorAllocator, but ids are issued sequentially
// rather than randomly and a collision reuses the oldest outstanding id
// instead of retrying, since the id space here is small and the wire
// protocol expects deterministic recycling.
type requestBroker struct {
	next  int
	order []*requestEntry
	byID  map[int]*requestEntry
}

func newRequestBroker() *requestBroker {
	return &requestBroker{next: 1, byID: make(map[int]*requestEntry)}
}

// Allocate binds handle to a fresh request-id, evicting the oldest
// outstanding entry if the next sequential id is still in use.
func (b *requestBroker) Allocate(handle any) int {
	id := b.next
	b.next++
	if b.next > 999 {
		b.next = 1
	}
	if _, taken := b.byID[id]; taken {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.byID, oldest.id)
		id = oldest.id
	}
	e := &requestEntry{id: id, handle: handle}
	b.order = append(b.order, e)
	b.byID[id] = e
	return id
}

// Resolve returns the stack handle bound to id.
func (b *requestBroker) Resolve(id int) (any, bool) {
	e, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// Release drops id, freeing it for reuse.
func (b *requestBroker) Release(id int) {
	e, ok := b.byID[id]
	if !ok {
		return
	}
	delete(b.byID, id)
	for i, o := range b.order {
		if o == e {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
