package encoder

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Encoder recording every call.
type Fake struct {
	// Errors returned by the respective calls when set
	CreateErr   error
	StartErr    error
	StopErr     error
	ScheduleErr error

	// Delay is waited in every create call
	Delay time.Duration

	mutex sync.Mutex
	calls FakeCalls
	seq   int
}

type FakeCalls struct {
	Inputs   []InputRequest
	Channels []ChannelRequest
	Started  []string
	Stopped  []string
	Created  []ScheduleAction
	Deleted  []string
}

// Total is the number of calls of any kind.
func (c FakeCalls) Total() int {
	return len(c.Inputs) + len(c.Channels) + len(c.Started) + len(c.Stopped) + len(c.Created) + len(c.Deleted)
}

func NewFake() *Fake {
	return &Fake{}
}

// Calls returns a copy of the calls made so far.
func (f *Fake) Calls() FakeCalls {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return FakeCalls{
		Inputs:   append([]InputRequest(nil), f.calls.Inputs...),
		Channels: append([]ChannelRequest(nil), f.calls.Channels...),
		Started:  append([]string(nil), f.calls.Started...),
		Stopped:  append([]string(nil), f.calls.Stopped...),
		Created:  append([]ScheduleAction(nil), f.calls.Created...),
		Deleted:  append([]string(nil), f.calls.Deleted...),
	}
}

func (f *Fake) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.Delay):
		return nil
	}
}

func (f *Fake) CreateInput(ctx context.Context, req InputRequest) (*Input, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls.Inputs = append(f.calls.Inputs, req)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.seq++
	input := &Input{ID: fmt.Sprintf("input-%d", f.seq)}
	for _, dest := range req.Destinations {
		input.Destinations = append(input.Destinations, InputDestination{
			StreamName: dest.StreamName,
			URL:        fmt.Sprintf("rtmp://198.51.100.%d:1935/%s", f.seq, dest.StreamName),
		})
	}
	return input, nil
}

func (f *Fake) CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls.Channels = append(f.calls.Channels, req)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.seq++
	return &Channel{ID: fmt.Sprintf("channel-%d", f.seq), State: "IDLE"}, nil
}

func (f *Fake) StartChannel(ctx context.Context, channelRef string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls.Started = append(f.calls.Started, channelRef)
	return f.StartErr
}

func (f *Fake) StopChannel(ctx context.Context, channelRef string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls.Stopped = append(f.calls.Stopped, channelRef)
	return f.StopErr
}

func (f *Fake) CreateScheduleAction(ctx context.Context, channelRef string, action ScheduleAction) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls.Created = append(f.calls.Created, action)
	return f.ScheduleErr
}

func (f *Fake) DeleteScheduleAction(ctx context.Context, channelRef string, actionName string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls.Deleted = append(f.calls.Deleted, actionName)
	return f.ScheduleErr
}

func (f *Fake) Health(ctx context.Context) error {
	return nil
}
