package profiles

import (
	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

func rpcErr(code btcode.Code) rpcbus.ErrorResponse {
	return rpcbus.ErrorResponse{ErrorCode: int(code), ErrorText: code.String()}
}
