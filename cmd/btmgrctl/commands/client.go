// Package commands implements the btmgrctl CLI commands.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ifaceName matches the interface internal/rpcbus/dbusbus exports.
const ifaceName = "org.anttech.btmgr1"

// busClient calls into btmgrd's D-Bus RPC surface. The category objects and
// their generic Invoke method are owned by internal/rpcbus/dbusbus; this
// client only knows the wire shape (method name plus JSON params in,
// JSON reply out), not any per-method schema.
type busClient struct {
	conn    *dbus.Conn
	busName string
}

func newBusClient(busName string, systemBus bool) (*busClient, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if systemBus {
		conn, err = dbus.SystemBus()
	} else {
		conn, err = dbus.SessionBus()
	}
	if err != nil {
		return nil, fmt.Errorf("connect bus: %w", err)
	}
	return &busClient{conn: conn, busName: busName}, nil
}

// errReply is returned when the daemon replies with an ErrorResponse
// envelope rather than a successful one.
type errReply struct {
	Code int
	Text string
}

func (e *errReply) Error() string {
	return fmt.Sprintf("btmgrd error %d: %s", e.Code, e.Text)
}

// call invokes one category/method pair with params marshaled to JSON, and
// decodes the reply into v. If the reply carries an errorCode field, call
// returns an *errReply instead of decoding into v.
func (c *busClient) call(category, method string, params, v any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	obj := c.conn.Object(c.busName, dbus.ObjectPath("/"+category))

	var replyJSON string
	if err := obj.Call(ifaceName+".Invoke", 0, method, string(paramsJSON)).Store(&replyJSON); err != nil {
		return fmt.Errorf("invoke %s.%s: %w", category, method, err)
	}

	var probe struct {
		ErrorCode int    `json:"errorCode"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal([]byte(replyJSON), &probe); err == nil && probe.ErrorCode != 0 {
		return &errReply{Code: probe.ErrorCode, Text: probe.ErrorText}
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(replyJSON), v); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	return nil
}
