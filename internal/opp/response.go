package opp

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

func stackErr(err error) rpcbus.ErrorResponse {
	if be, ok := err.(*btcode.Error); ok {
		return rpcbus.ErrorResponse{ErrorCode: int(be.Code), ErrorText: be.Text}
	}
	return rpcbus.ErrorResponse{ErrorCode: int(btcode.ProfileUnavail), ErrorText: err.Error()}
}
