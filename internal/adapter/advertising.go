package adapter

import (
	"context"

	"github.com/anttech/btmgrd/internal/btcode"
	"github.com/anttech/btmgrd/internal/rpcbus"
	"github.com/anttech/btmgrd/internal/sil"
)

// maxAdvertisingPayload is the BLE legacy advertising PDU payload limit:
// advertiseData and scanResponse must each fit within it.
const maxAdvertisingPayload = 31

// AdvertiserReply is the synchronous acknowledgement to startAdvertising.
type AdvertiserReply struct {
	AdapterAddress string `json:"adapterAddress"`
	ReturnValue    bool   `json:"returnValue"`
	AdvertiserID   int32  `json:"advertiserId"`
}

// StartAdvertising registers and starts an LE advertiser. On disappearance
// the advertiser is first disabled then unregistered.
func (m *Manager) StartAdvertising(ctx context.Context, msg rpcbus.Message, settings sil.AdvertiseSettings, advData, scanResp []byte) error {
	if !m.props.Powered {
		return msg.Reply(rpcErr(btcode.AdapterTurnedOff))
	}
	if len(advData) > maxAdvertisingPayload || len(scanResp) > maxAdvertisingPayload {
		return msg.Reply(rpcErr(btcode.BleAdvExceedSizeLimit))
	}
	m.stack.RegisterAdvertiser(ctx, func(id sil.AdvertiserID, err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		m.stack.StartAdvertising(ctx, id, settings, advData, scanResp, func(err error) {
			if err != nil {
				_ = msg.Reply(stackErr(err))
				m.stack.UnregisterAdvertiser(ctx, id, func(error) {})
				return
			}
			w := rpcbus.NewWatch(msg, rpcbus.Scope{AdapterAddress: m.props.Address}, func(*rpcbus.Watch) {
				m.teardownAdvertiser(ctx, id)
			})
			m.advertisers[id] = &advertiserState{watch: w, settings: settings}
			_ = msg.Reply(AdvertiserReply{AdapterAddress: m.props.Address, ReturnValue: true, AdvertiserID: int32(id)})
		})
	})
	return nil
}

func (m *Manager) teardownAdvertiser(ctx context.Context, id sil.AdvertiserID) {
	if _, ok := m.advertisers[id]; !ok {
		return
	}
	delete(m.advertisers, id)
	m.stack.DisableAdvertiser(ctx, id, func(error) {
		m.stack.UnregisterAdvertiser(ctx, id, func(error) {})
	})
}

// UpdateAdvertising modifies settings, advertise data, and scan response of
// an existing advertiser.
func (m *Manager) UpdateAdvertising(ctx context.Context, msg rpcbus.Message, id sil.AdvertiserID, settings sil.AdvertiseSettings, advData, scanResp []byte) error {
	st, ok := m.advertisers[id]
	if !ok {
		return msg.Reply(rpcErr(btcode.BleAdvNoMoreAdvertiser))
	}
	if len(advData) > maxAdvertisingPayload || len(scanResp) > maxAdvertisingPayload {
		return msg.Reply(rpcErr(btcode.BleAdvExceedSizeLimit))
	}
	st.settings = settings
	m.stack.SetAdvertiserParameters(ctx, id, settings, func(error) {})
	m.stack.SetAdvertiserData(ctx, id, false, advData, func(error) {})
	m.stack.SetAdvertiserData(ctx, id, true, scanResp, func(err error) {
		if err != nil {
			_ = msg.Reply(stackErr(err))
			return
		}
		_ = msg.Reply(okResponse(m.props.Address))
	})
	return nil
}

// DisableAdvertiser unregisters an advertiser.
func (m *Manager) DisableAdvertiser(ctx context.Context, msg rpcbus.Message, id sil.AdvertiserID) error {
	st, ok := m.advertisers[id]
	if !ok {
		return msg.Reply(rpcErr(btcode.BleAdvNoMoreAdvertiser))
	}
	st.watch.Close()
	delete(m.advertisers, id)
	m.stack.DisableAdvertiser(ctx, id, func(error) {
		m.stack.UnregisterAdvertiser(ctx, id, func(err error) {
			if err != nil {
				_ = msg.Reply(stackErr(err))
				return
			}
			_ = msg.Reply(okResponse(m.props.Address))
		})
	})
	return nil
}
