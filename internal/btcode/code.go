// Package btcode holds the fixed numeric RPC error-code table that every
// response-carrying caller fault or precondition fault on the bus must use.
// The numbers are wire-compatible constants, not sequential; new codes are
// appended monotonically and existing ones are never renumbered.
package btcode

import "fmt"

// Code is a caller-facing RPC error code.
type Code int

// Fixed error codes. Do not renumber existing values.
const (
	AdapterNotAvailable    Code = 101
	AllowOneSubscribe      Code = 104
	DeviceNotAvail         Code = 106
	PairingCanceled        Code = 107
	NoPairing              Code = 108
	PairingInProgress      Code = 118
	UnpairFail             Code = 122
	PairableTimeout        Code = 126
	ProfileUnavail         Code = 127
	DevConnecting          Code = 128
	ProfileConnected       Code = 131
	ProfileNotConnected    Code = 136
	AdapterTurnedOff       Code = 161
	AvrcpStateErr          Code = 189
	BleAdvNoMoreAdvertiser Code = 257
	MessageOwnerMissing    Code = 276
	BleAdvExceedSizeLimit  Code = 284
	AvrcpNoConnectedDevices Code = 295

	// Codes not enumerated in the fixed table but required by the
	// operations it describes; allocated in the same monotonic space
	// above the highest documented value so they never collide with a future
	// officially appended code.
	DeviceAlreadyPaired          Code = 301
	NoPairingForRequestedAddress Code = 302
	StopDiscFail                 Code = 303
	KeyCodeInvalidValueParam     Code = 304
	SrcfileInvalid               Code = 305
	SchemaViolation              Code = 306
	InvalidAddress               Code = 307
)

var names = map[Code]string{
	AdapterNotAvailable:          "adapterNotAvailable",
	AllowOneSubscribe:            "allowOneSubscribe",
	DeviceNotAvail:               "deviceNotAvail",
	PairingCanceled:              "pairingCanceled",
	NoPairing:                    "noPairing",
	PairingInProgress:            "pairingInProgress",
	UnpairFail:                   "unpairFail",
	PairableTimeout:              "pairableTimeout",
	ProfileUnavail:               "profileUnavail",
	DevConnecting:                "devConnecting",
	ProfileConnected:             "profileConnected",
	ProfileNotConnected:          "profileNotConnected",
	AdapterTurnedOff:             "adapterTurnedOff",
	AvrcpStateErr:                "avrcpStateErr",
	BleAdvNoMoreAdvertiser:       "bleAdvNoMoreAdvertiser",
	MessageOwnerMissing:          "messageOwnerMissing",
	BleAdvExceedSizeLimit:        "bleAdvExceedSizeLimit",
	AvrcpNoConnectedDevices:      "avrcpNoConnectedDevices",
	DeviceAlreadyPaired:          "deviceAlreadyPaired",
	NoPairingForRequestedAddress: "noPairingForRequestedAddress",
	StopDiscFail:                 "stopDiscFail",
	KeyCodeInvalidValueParam:     "keyCodeInvalidValueParam",
	SrcfileInvalid:               "srcfileInvalid",
	SchemaViolation:              "schemaViolation",
	InvalidAddress:               "invalidAddress",
}

// String returns the wire text name of the code, e.g. "pairingInProgress".
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a caller-facing RPC fault: a fixed numeric Code plus descriptive text.
// It never carries a wrapped stack error directly -- stack faults are
// translated to a Code by the caller before being wrapped here.
type Error struct {
	Code Code
	Text string
}

// New creates an Error with the code's canonical text.
func New(code Code) *Error {
	return &Error{Code: code, Text: code.String()}
}

// Newf creates an Error with a custom descriptive text.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Text: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Text)
}
