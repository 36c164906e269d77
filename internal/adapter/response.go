package adapter

import (
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

// okResponse is the bare success envelope every reply carries.
func okResponse(adapterAddress string) rpcbus.Response {
	return rpcbus.Response{ReturnValue: true, AdapterAddress: adapterAddress}
}

func subscribedResponse(adapterAddress string, subscribed bool) rpcbus.Response {
	return rpcbus.Response{ReturnValue: true, AdapterAddress: adapterAddress, Subscribed: &subscribed}
}

func rpcErr(code btcode.Code) rpcbus.ErrorResponse {
	return rpcbus.ErrorResponse{ErrorCode: int(code), ErrorText: code.String()}
}

func rpcErrf(code btcode.Code, text string) rpcbus.ErrorResponse {
	return rpcbus.ErrorResponse{ErrorCode: int(code), ErrorText: text}
}

// stackErr translates an opaque SIL error into a caller-facing fault. The
// stack is expected to report *btcode.Error for faults it can name
// precisely; anything else surfaces as a generic precondition fault with the
// stack's text preserved.
func stackErr(err error) rpcbus.ErrorResponse {
	if be, ok := err.(*btcode.Error); ok {
		return rpcErrf(be.Code, be.Text)
	}
	return rpcErrf(btcode.AdapterNotAvailable, err.Error())
}
