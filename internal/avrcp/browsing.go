package avrcp

import (
	"github.com/anttech/btmgrd/internal/adapter"
	"github.com/anttech/btmgrd/internal/rpcbus"
)

// browsing keeps the minimal per-device file-system-like navigation state
// AVRCP browsing needs: a current path and the uids the stack last listed
// under it. It has no stack counterpart here, unlike connect/volume/pass
// through -- browsing content lives in the controlled device, not the stack.

type folderItemsParams struct {
	Address   string `json:"address"`
	StartItem int    `json:"startItem"`
	EndItem   int    `json:"endItem"`
}

type folderItemsResponse struct {
	Items []string `json:"items"`
}

type changePathParams struct {
	Address string `json:"address"`
	Path    string `json:"path"`
}

type itemParams struct {
	Address string `json:"address"`
	UID     string `json:"uid"`
}

type numberOfItemsResponse struct {
	NumberOfItems int `json:"numberOfItems"`
}

type searchParams struct {
	Address string `json:"address"`
	Pattern string `json:"pattern"`
}

func (m *Manager) getCurrentFolder(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	k := deviceKey{adapter: mgr.Address(), device: req.Address}
	return msg.Reply(struct {
		Path string `json:"path"`
	}{Path: m.currentFolder[k]})
}

func (m *Manager) changePath(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req changePathParams
	_ = msg.Params(&req)
	adapterAddress := mgr.Address()
	k := deviceKey{adapter: adapterAddress, device: req.Address}
	m.currentFolder[k] = req.Path
	return msg.Reply(okResponse(adapterAddress))
}

func (m *Manager) numberOfItems(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req addressParams
	_ = msg.Params(&req)
	k := deviceKey{adapter: mgr.Address(), device: req.Address}
	return msg.Reply(numberOfItemsResponse{NumberOfItems: len(m.folderItems[k])})
}

func (m *Manager) listFolderItems(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req folderItemsParams
	_ = msg.Params(&req)
	k := deviceKey{adapter: mgr.Address(), device: req.Address}
	all := m.folderItems[k]
	start, end := req.StartItem, req.EndItem+1
	if start < 0 {
		start = 0
	}
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return msg.Reply(folderItemsResponse{Items: []string{}})
	}
	return msg.Reply(folderItemsResponse{Items: append([]string{}, all[start:end]...)})
}

func (m *Manager) playItem(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req itemParams
	_ = msg.Params(&req)
	return msg.Reply(okResponse(mgr.Address()))
}

func (m *Manager) addToNowPlaying(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req itemParams
	_ = msg.Params(&req)
	return msg.Reply(okResponse(mgr.Address()))
}

func (m *Manager) search(msg rpcbus.Message, mgr *adapter.Manager) error {
	var req searchParams
	_ = msg.Params(&req)
	k := deviceKey{adapter: mgr.Address(), device: req.Address}
	var matches []string
	for _, item := range m.folderItems[k] {
		if req.Pattern == "" || item == req.Pattern {
			matches = append(matches, item)
		}
	}
	return msg.Reply(numberOfItemsResponse{NumberOfItems: len(matches)})
}

// FolderItemsChanged replaces the cached listing for a device's current
// folder, as reported by the stack after a changePath or a browsing refresh.
func (m *Manager) FolderItemsChanged(adapterAddress, address string, items []string) {
	k := deviceKey{adapter: adapterAddress, device: address}
	m.folderItems[k] = items
}
