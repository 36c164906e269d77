// Package avrcp implements the AVRCP profile: connect/disconnect/getStatus
// (delegated to profile.Base), media-metadata/play-status request brokerage,
// pass-through commands, absolute volume, player application settings, and
// player info/current-folder/play-status mirrors.
package avrcp

import (
	"context"

	"github.com/anttech/btmgrd/internal/profile"
)

// MediaMetaData is the data the controller supplies in answer to a
// mediaMetaDataRequested prompt.
type MediaMetaData struct {
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Track     int    `json:"track,omitempty"`
	NumTracks int    `json:"numTracks,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

// PlayStatus is the data supplied in answer to a mediaPlayStatusRequested
// prompt, and the shape mirrored per device for notifyPlayStatus.
type PlayStatus struct {
	SongLength int    `json:"songLength,omitempty"`
	SongPos    int    `json:"songPosition,omitempty"`
	PlayStatus string `json:"playStatus,omitempty"`
}

// PlayerApplicationSettings mirrors the four settings AVRCP exposes.
type PlayerApplicationSettings struct {
	Equalizer string `json:"equalizer,omitempty"`
	Repeat    string `json:"repeat,omitempty"`
	Shuffle   string `json:"shuffle,omitempty"`
	Scan      string `json:"scan,omitempty"`
}

// PlayerInfo is the per-device player identity mirror.
type PlayerInfo struct {
	Name       string `json:"name,omitempty"`
	MajorType  string `json:"majorType,omitempty"`
	SubType    string `json:"subType,omitempty"`
	PlayStatus string `json:"playStatus,omitempty"`
}

// Stack is the narrow AVRCP control-stack contract a Manager drives.
// It embeds profile.Stack so a bound adapter satisfies the generic
// connect/disconnect/getStatus contract in addition to these AVRCP-specific
// calls.
type Stack interface {
	profile.Stack

	SendPassThroughCommand(ctx context.Context, address string, key KeyCode, status KeyStatus, cb func(error))
	SetAbsoluteVolume(ctx context.Context, address string, volume7Bit byte, cb func(error))
	SupplyMediaMetaData(ctx context.Context, stackRequest any, data MediaMetaData, cb func(error))
	SupplyMediaPlayStatus(ctx context.Context, stackRequest any, status PlayStatus, cb func(error))
	SetPlayerApplicationSettings(ctx context.Context, address string, settings PlayerApplicationSettings, cb func(error))
}
