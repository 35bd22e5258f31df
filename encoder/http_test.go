package encoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voc/session-api/config"
	"github.com/voc/session-api/rest"
	"gotest.tools/v3/assert"
)

func newTestEncoder(t *testing.T, handler http.HandlerFunc) *HTTPEncoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := rest.New("encoder", config.UpstreamConfig{
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxAttempts: 1,
	})
	assert.NilError(t, err)
	return NewHTTPEncoder(api)
}

func TestCreateInput(t *testing.T) {
	t.Parallel()
	e := newTestEncoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Check(t, r.Method == http.MethodPost)
		assert.Check(t, r.URL.Path == "/v1/inputs")
		var req InputRequest
		assert.Check(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Check(t, req.Type == InputTypeRTMPPush)
		json.NewEncoder(w).Encode(Input{
			ID: "in-1",
			Destinations: []InputDestination{
				{StreamName: req.Destinations[0].StreamName, URL: "rtmp://203.0.113.1:1935/host/abc123"},
			},
		})
	})
	input, err := e.CreateInput(context.Background(), InputRequest{
		Name:         "shelcaster-input-abc123",
		Type:         InputTypeRTMPPush,
		Destinations: []InputDestination{{StreamName: "host/abc123"}},
	})
	assert.NilError(t, err)
	assert.Equal(t, input.ID, "in-1")
	assert.Equal(t, input.PushURL(), "rtmp://203.0.113.1:1935/host/abc123")
}

func TestCreateChannelWithoutID(t *testing.T) {
	t.Parallel()
	e := newTestEncoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := e.CreateChannel(context.Background(), ChannelRequest{Name: "x"})
	assert.ErrorContains(t, err, "without id")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", http.StatusConflict, ErrConflict},
		{"not found", http.StatusNotFound, ErrNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEncoder(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Check(t, r.URL.Path == "/v1/channels/ch-1/start")
				w.WriteHeader(tc.status)
			})
			err := e.StartChannel(context.Background(), "ch-1")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestServerErrorIsNotConflict(t *testing.T) {
	t.Parallel()
	e := newTestEncoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := e.StopChannel(context.Background(), "ch-1")
	assert.Assert(t, err != nil)
	assert.Assert(t, !rest.IsStatus(err, http.StatusConflict))
	assert.ErrorContains(t, err, "stop channel")
}

func TestCreateNotRetried(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	api, err := rest.New("encoder", config.UpstreamConfig{
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxAttempts: 3,
	})
	assert.NilError(t, err)
	e := NewHTTPEncoder(api)

	_, err = e.CreateInput(context.Background(), InputRequest{Name: "shelcaster-input-abc123"})
	assert.ErrorContains(t, err, "create input")
	assert.Equal(t, atomic.LoadInt32(&calls), int32(1))

	_, err = e.CreateChannel(context.Background(), ChannelRequest{Name: "shelcaster-channel-abc123"})
	assert.ErrorContains(t, err, "create channel")
	assert.Equal(t, atomic.LoadInt32(&calls), int32(2))

	assert.ErrorContains(t, e.StartChannel(context.Background(), "ch-1"), "start channel")
	assert.Equal(t, atomic.LoadInt32(&calls), int32(5))
}

func TestScheduleActions(t *testing.T) {
	t.Parallel()
	var updates []scheduleUpdate
	e := newTestEncoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Check(t, r.URL.Path == "/v1/channels/ch-1/schedule")
		var update scheduleUpdate
		assert.Check(t, json.NewDecoder(r.Body).Decode(&update))
		updates = append(updates, update)
	})
	ctx := context.Background()
	assert.NilError(t, e.CreateScheduleAction(ctx, "ch-1", ScheduleAction{
		Name:           "start-recording-abc123",
		ImmediateStart: true,
		OutputSettings: HLSOutputSettings{DestinationRef: "storage-destination"},
	}))
	assert.NilError(t, e.DeleteScheduleAction(ctx, "ch-1", "start-recording-abc123"))

	assert.Equal(t, len(updates), 2)
	assert.Equal(t, updates[0].Creates[0].Name, "start-recording-abc123")
	assert.Equal(t, updates[0].Creates[0].OutputSettings.DestinationRef, "storage-destination")
	assert.DeepEqual(t, updates[1].Deletes, []string{"start-recording-abc123"})
}
