package ingest

import (
	"context"
	"errors"
)

var (
	ErrConflict = errors.New("ingest: conflict")
	ErrNotFound = errors.New("ingest: not found")
)

// Ingest manages low-latency ingest and playback channels.
type Ingest interface {
	CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error)
	StartChannel(ctx context.Context, channelRef string) error
	StopChannel(ctx context.Context, channelRef string) error
	Health(ctx context.Context) error
}

type ChannelRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	LatencyMode string `json:"latencyMode"`
}

type Channel struct {
	Ref            string `json:"ref"`
	IngestEndpoint string `json:"ingestEndpoint"` // host name without scheme
	PlaybackURL    string `json:"playbackUrl"`
}
