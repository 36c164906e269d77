package profile

import (
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

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

// stackErr translates an opaque Stack error into a caller-facing fault, the
// same way adapter.stackErr does for SIL errors.
func stackErr(err error) rpcbus.ErrorResponse {
	if be, ok := err.(*btcode.Error); ok {
		return rpcErrf(be.Code, be.Text)
	}
	return rpcErrf(btcode.ProfileUnavail, err.Error())
}
