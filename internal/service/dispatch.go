package service

import (
	"context"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/inventory"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// Dispatch routes one inbound RPC message by category. It must only be
// called from inside a function passed to Submit (or, equivalently, from
// within Run's own goroutine) — it touches adapter.Manager state directly.
func (r *Root) Dispatch(ctx context.Context, msg rpcbus.Message) error {
	switch msg.Category() {
	case "adapter":
		return r.dispatchAdapter(ctx, msg)
	case "device":
		return r.dispatchDevice(ctx, msg)
	case "le":
		return r.dispatchLE(ctx, msg)
	default:
		if router, ok := r.profiles[msg.Category()]; ok {
			return router.Dispatch(ctx, r, msg)
		}
		return msg.Reply(rpcbus.ErrorResponse{
			ErrorCode: int(btcode.ProfileUnavail),
			ErrorText: btcode.ProfileUnavail.String(),
		})
	}
}

func (r *Root) dispatchAdapter(ctx context.Context, msg rpcbus.Message) error {
	switch msg.Method() {
	case "getStatus":
		return r.GetStatus(msg)
	case "queryAvailable":
		return r.QueryAvailable(msg)
	}

	m, ok := r.ResolveAdapter(msg)
	if !ok {
		return nil
	}

	switch msg.Method() {
	case "setState":
		var req struct {
			Powered *bool `json:"powered"`
		}
		if err := msg.Params(&req); err != nil {
			return msg.Reply(rpcbus.ErrorResponse{ErrorCode: int(btcode.InvalidAddress), ErrorText: "malformed params"})
		}
		if req.Powered != nil {
			m.SetPowered(*req.Powered)
		}
		return msg.Reply(struct {
			AdapterAddress string `json:"adapterAddress"`
			ReturnValue    bool   `json:"returnValue"`
		}{AdapterAddress: m.Address(), ReturnValue: true})
	case "startDiscovery":
		var req struct {
			Transport  string `json:"transport"`
			AccessCode string `json:"accessCode"`
		}
		_ = msg.Params(&req)
		return m.StartDiscovery(ctx, msg, parseTransport(req.Transport), req.AccessCode)
	case "cancelDiscovery":
		return m.CancelDiscovery(ctx, msg)
	case "pair":
		var req struct {
			Address string `json:"address"`
		}
		_ = msg.Params(&req)
		return m.Pair(ctx, msg, req.Address)
	case "unpair":
		var req struct {
			Address string `json:"address"`
		}
		_ = msg.Params(&req)
		return m.Unpair(ctx, msg, req.Address)
	case "cancelPairing":
		var req struct {
			Address string `json:"address"`
		}
		_ = msg.Params(&req)
		return m.CancelPairing(ctx, msg, req.Address)
	case "supplyPasskey":
		var req struct {
			Address string `json:"address"`
			Passkey uint32 `json:"passkey"`
		}
		_ = msg.Params(&req)
		return m.SupplyPasskey(ctx, msg, req.Address, req.Passkey)
	case "supplyPinCode":
		var req struct {
			Address string `json:"address"`
			PinCode string `json:"pinCode"`
		}
		_ = msg.Params(&req)
		return m.SupplyPinCode(ctx, msg, req.Address, req.PinCode)
	case "supplyPasskeyConfirmation":
		var req struct {
			Address string `json:"address"`
			Accept  bool   `json:"accept"`
		}
		_ = msg.Params(&req)
		return m.SupplyPasskeyConfirmation(ctx, msg, req.Address, req.Accept)
	case "awaitPairingRequests":
		return m.AwaitPairingRequests(msg)
	default:
		return msg.Reply(rpcbus.ErrorResponse{ErrorCode: int(btcode.ProfileUnavail), ErrorText: btcode.ProfileUnavail.String()})
	}
}

func (r *Root) dispatchDevice(ctx context.Context, msg rpcbus.Message) error {
	m, ok := r.ResolveAdapter(msg)
	if !ok {
		return nil
	}
	switch msg.Method() {
	case "getDiscoveredDevice":
		var req struct {
			ClassOfDevice    uint32 `json:"classOfDevice"`
			HasClassOfDevice bool   `json:"hasClassOfDevice"`
			ServiceUUID      string `json:"serviceUuid"`
		}
		_ = msg.Params(&req)
		return m.GetDiscoveredDevice(msg, inventory.Filter{
			ClassOfDevice:    req.ClassOfDevice,
			HasClassOfDevice: req.HasClassOfDevice,
			ServiceUUID:      req.ServiceUUID,
		})
	case "getConnectedDevices", "getPairedDevices":
		return msg.Reply(struct {
			AdapterAddress string              `json:"adapterAddress"`
			ReturnValue    bool                `json:"returnValue"`
			Devices        []*inventory.Device `json:"devices"`
		}{AdapterAddress: m.Address(), ReturnValue: true, Devices: filterDevices(m.Inventory().All(), msg.Method())})
	case "setState":
		return msg.Reply(struct {
			AdapterAddress string `json:"adapterAddress"`
			ReturnValue    bool   `json:"returnValue"`
		}{AdapterAddress: m.Address(), ReturnValue: true})
	case "getStatus":
		return m.GetStatus(msg)
	default:
		return msg.Reply(rpcbus.ErrorResponse{ErrorCode: int(btcode.ProfileUnavail), ErrorText: btcode.ProfileUnavail.String()})
	}
}

// filterDevices narrows the inventory to the paired subset. The connected
// subset is not tracked in the inventory, so getConnectedDevices always
// replies with an empty list; profile connect state is not consulted.
func filterDevices(all []*inventory.Device, method string) []*inventory.Device {
	out := make([]*inventory.Device, 0, len(all))
	if method != "getPairedDevices" {
		return out
	}
	for _, d := range all {
		if d.Paired {
			out = append(out, d)
		}
	}
	return out
}

func (r *Root) dispatchLE(ctx context.Context, msg rpcbus.Message) error {
	m, ok := r.ResolveAdapter(msg)
	if !ok {
		return nil
	}
	switch msg.Method() {
	case "startScan":
		var req struct {
			sil.DiscoveryFilter
		}
		_ = msg.Params(&req)
		return m.StartScan(ctx, msg, req.DiscoveryFilter)
	case "startAdvertising":
		var req struct {
			sil.AdvertiseSettings
			AdvertiseData []byte `json:"advertiseData"`
			ScanResponse  []byte `json:"scanResponse"`
		}
		_ = msg.Params(&req)
		return m.StartAdvertising(ctx, msg, req.AdvertiseSettings, req.AdvertiseData, req.ScanResponse)
	case "updateAdvertising":
		var req struct {
			sil.AdvertiseSettings
			AdvertiserID  int32  `json:"advertiserId"`
			AdvertiseData []byte `json:"advertiseData"`
			ScanResponse  []byte `json:"scanResponse"`
		}
		_ = msg.Params(&req)
		return m.UpdateAdvertising(ctx, msg, sil.AdvertiserID(req.AdvertiserID), req.AdvertiseSettings, req.AdvertiseData, req.ScanResponse)
	case "disableAdvertising":
		var req struct {
			AdvertiserID int32 `json:"advertiserId"`
		}
		_ = msg.Params(&req)
		return m.DisableAdvertiser(ctx, msg, sil.AdvertiserID(req.AdvertiserID))
	case "getStatus":
		return m.GetStatus(msg)
	default:
		return msg.Reply(rpcbus.ErrorResponse{ErrorCode: int(btcode.ProfileUnavail), ErrorText: btcode.ProfileUnavail.String()})
	}
}

func parseTransport(s string) sil.Transport {
	switch s {
	case "le":
		return sil.TransportLE
	case "dual":
		return sil.TransportDual
	default:
		return sil.TransportBREDR
	}
}
