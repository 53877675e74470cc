// Package reporter is the WebSocket endpoint the browser extension uses to
// report what the page's player is doing, and through which the server
// pushes lyrics and playback commands back to the page.
package reporter

import (
	"encoding/json"
	"time"
)

// MessageType names an envelope.
type MessageType string

const (
	// extension -> server
	TypeTrackDetected MessageType = "TRACK_DETECTED"
	TypeTrackProgress MessageType = "TRACK_PROGRESS"
	TypeTrackPaused   MessageType = "TRACK_PAUSED"
	TypeTrackStopped  MessageType = "TRACK_STOPPED"
	TypeTrackSeeked   MessageType = "TRACK_SEEKED"
	TypePing          MessageType = "ping"

	// server -> extension
	TypePong            MessageType = "pong"
	TypeConnected       MessageType = "connected"
	TypeLyricsUpdate    MessageType = "LYRICS_UPDATE"
	TypePlaybackCommand MessageType = "PLAYBACK_COMMAND"
)

// IsTrackEvent reports whether t carries a TrackUpdate payload.
func (t MessageType) IsTrackEvent() bool {
	switch t {
	case TypeTrackDetected, TypeTrackProgress, TypeTrackPaused, TypeTrackStopped, TypeTrackSeeked:
		return true
	}
	return false
}

// Message is the wire envelope. Timestamp is unix milliseconds.
type Message struct {
	MessageType MessageType     `json:"message_type"`
	Data        json.RawMessage `json:"data"`
	Timestamp   int64           `json:"timestamp"`
}

// NewMessage marshals data into an envelope stamped with now.
func NewMessage(t MessageType, data any, now time.Time) (*Message, error) {
	if data == nil {
		data = struct{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{MessageType: t, Data: raw, Timestamp: now.UnixMilli()}, nil
}

// TrackUpdate is the payload of every TRACK_* message.
type TrackUpdate struct {
	Title       string   `json:"title"`
	Artist      string   `json:"artist"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Source      string   `json:"source,omitempty"`
	URL         string   `json:"url,omitempty"`
	Timestamp   int64    `json:"timestamp,omitempty"`
	IsPlaying   bool     `json:"is_playing"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	// PlaybackRate mirrors the media element's playbackRate.
	PlaybackRate *float64 `json:"playbackRate,omitempty"`
}

// Position returns the reported position and whether one was sent.
func (u TrackUpdate) Position() (float64, bool) {
	if u.CurrentTime == nil {
		return 0, false
	}
	return *u.CurrentTime, true
}

// ConnectedData greets a new client.
type ConnectedData struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
}

// Command is a playback command sent to the extension.
type Command string

const (
	CommandPlay     Command = "play"
	CommandPause    Command = "pause"
	CommandSeek     Command = "seek"
	CommandNext     Command = "next"
	CommandPrevious Command = "previous"
)

// PlaybackCommandData is the PLAYBACK_COMMAND payload.
type PlaybackCommandData struct {
	Command  Command  `json:"command"`
	SeekTime *float64 `json:"seekTime"`
}

// Event is a decoded TRACK_* message handed to the Handler.
type Event struct {
	Type     MessageType
	ClientID string
	Track    TrackUpdate
	Received time.Time
}
