package rpcbus

import "encoding/json"

// FakeMessage is an in-memory Message used by domain package tests. It
// records every Reply/Post payload and lets the test fire a disappearance
// directly.
type FakeMessage struct {
	CategoryName string
	MethodName   string
	Caller       string
	RawParams    json.RawMessage
	SubscribeReq bool

	Replies []json.RawMessage
	Posts   []json.RawMessage

	disappearFn func()
	gone        bool
}

// NewFakeMessage builds a FakeMessage with params marshaled from p.
func NewFakeMessage(category, method string, p any, subscribe bool) *FakeMessage {
	raw, _ := json.Marshal(p)
	return &FakeMessage{CategoryName: category, MethodName: method, RawParams: raw, SubscribeReq: subscribe}
}

func (m *FakeMessage) Category() string { return m.CategoryName }
func (m *FakeMessage) Method() string   { return m.MethodName }
func (m *FakeMessage) CallerID() string { return m.Caller }

func (m *FakeMessage) Params(v any) error {
	if m.RawParams == nil {
		return nil
	}
	return json.Unmarshal(m.RawParams, v)
}

func (m *FakeMessage) Reply(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.Replies = append(m.Replies, raw)
	return nil
}

func (m *FakeMessage) Post(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.Posts = append(m.Posts, raw)
	return nil
}

func (m *FakeMessage) Subscribed() bool { return m.SubscribeReq }

func (m *FakeMessage) OnDisappear(fn func()) {
	if m.gone {
		fn()
		return
	}
	m.disappearFn = fn
}

// Disappear simulates the bus reporting this caller has gone.
func (m *FakeMessage) Disappear() {
	if m.gone {
		return
	}
	m.gone = true
	if m.disappearFn != nil {
		m.disappearFn()
	}
}

// LastReply decodes the most recent Reply payload into v.
func (m *FakeMessage) LastReply(v any) error {
	if len(m.Replies) == 0 {
		return nil
	}
	return json.Unmarshal(m.Replies[len(m.Replies)-1], v)
}

// LastPost decodes the most recent Post payload into v.
func (m *FakeMessage) LastPost(v any) error {
	if len(m.Posts) == 0 {
		return nil
	}
	return json.Unmarshal(m.Posts[len(m.Posts)-1], v)
}
