package session

import "time"

// Session is the stored state of one live session. Optional parts are nil
// until they have been provisioned.
type Session struct {
	ID        string     `json:"sessionId"`
	Ingest    *Ingest    `json:"ingest,omitempty"`
	Channel   *Channel   `json:"channel,omitempty"`
	Recording *Recording `json:"recording,omitempty"`
	Streaming Streaming  `json:"streaming"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Ingest is the low-latency playback channel a session pushes into.
type Ingest struct {
	Endpoint    string `json:"ingestEndpoint"`   // rtmps url the encoder pushes to
	ChannelRef  string `json:"ingestChannelRef"` // upstream channel reference, may be empty
	PlaybackURL string `json:"playbackUrl"`
}

// Channel is the encoding channel and its push input.
type Channel struct {
	ChannelRef string `json:"channelRef"`
	InputRef   string `json:"inputRef"`
	PushURL    string `json:"pushUrl"` // where the host sends its stream
}

type Recording struct {
	IsRecording bool      `json:"isRecording"`
	StartedAt   time.Time `json:"startedAt"`
	ActionRef   string    `json:"actionRef"`
}

type Streaming struct {
	IsLive    bool       `json:"isLive"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// PlaybackURL returns the playback url of the linked ingest, "" if none.
func (s *Session) PlaybackURL() string {
	if s.Ingest == nil {
		return ""
	}
	return s.Ingest.PlaybackURL
}

// IngestChannelRef returns the linked ingest channel reference, "" if none.
func (s *Session) IngestChannelRef() string {
	if s.Ingest == nil {
		return ""
	}
	return s.Ingest.ChannelRef
}
