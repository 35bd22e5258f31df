package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

type pinger struct {
	err error
}

func (p pinger) Ping(context.Context) error {
	return p.err
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, rec.Code, 200)
	body, err := io.ReadAll(rec.Body)
	assert.NilError(t, err)
	return string(body)
}

func TestRequestMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("start_stream", 200, 15*time.Millisecond)
	m.ObserveRequest("start_stream", 404, time.Millisecond)
	m.Upstream("encoder")("start_channel", "ok")

	body := scrape(t, m)
	assert.Assert(t, strings.Contains(body, `session_api_requests_total{code="200",operation="start_stream"} 1`))
	assert.Assert(t, strings.Contains(body, `session_api_requests_total{code="404",operation="start_stream"} 1`))
	assert.Assert(t, strings.Contains(body, `session_api_request_duration_seconds_count{operation="start_stream"} 2`))
	assert.Assert(t, strings.Contains(body, `session_api_upstream_requests_total{operation="start_channel",result="ok",service="encoder"} 1`))
	assert.Assert(t, strings.Contains(body, "go_goroutines"))
}

func TestStoreCollector(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"up", nil, "session_api_store_up 1"},
		{"down", errors.New("unreachable"), "session_api_store_up 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := New()
			m.Register(NewStoreCollector(pinger{tc.err}, time.Second))
			assert.Assert(t, strings.Contains(scrape(t, m), tc.want))
		})
	}
}
