package ingest

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Ingest recording every call.
type Fake struct {
	CreateErr error
	StartErr  error
	StopErr   error

	mutex   sync.Mutex
	created []ChannelRequest
	started []string
	stopped []string
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.created = append(f.created, req)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	n := len(f.created)
	return &Channel{
		Ref:            fmt.Sprintf("ingest-%d", n),
		IngestEndpoint: fmt.Sprintf("%d.global-contribute.example.net", n),
		PlaybackURL:    fmt.Sprintf("https://%d.playback.example.net/live.m3u8", n),
	}, nil
}

func (f *Fake) StartChannel(ctx context.Context, channelRef string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.started = append(f.started, channelRef)
	return f.StartErr
}

func (f *Fake) StopChannel(ctx context.Context, channelRef string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.stopped = append(f.stopped, channelRef)
	return f.StopErr
}

func (f *Fake) Health(ctx context.Context) error {
	return nil
}

func (f *Fake) Created() []ChannelRequest {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]ChannelRequest(nil), f.created...)
}

func (f *Fake) Started() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.started...)
}

func (f *Fake) Stopped() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.stopped...)
}
