package ingest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/voc/session-api/rest"
)

// HTTPIngest is the Ingest of the ingest service REST api.
type HTTPIngest struct {
	api *rest.Client
}

func NewHTTPIngest(api *rest.Client) *HTTPIngest {
	return &HTTPIngest{api: api}
}

func (i *HTTPIngest) CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error) {
	var channel Channel
	if err := i.api.Create(ctx, "create_channel", "/v1/channels", req, &channel); err != nil {
		return nil, wrap(err, "create channel")
	}
	if channel.IngestEndpoint == "" {
		return nil, errors.New("create channel: response without ingest endpoint")
	}
	return &channel, nil
}

func (i *HTTPIngest) StartChannel(ctx context.Context, channelRef string) error {
	path := "/v1/channels/" + url.PathEscape(channelRef) + "/start"
	return wrap(i.api.Post(ctx, "start_channel", path, nil, nil), "start channel")
}

func (i *HTTPIngest) StopChannel(ctx context.Context, channelRef string) error {
	path := "/v1/channels/" + url.PathEscape(channelRef) + "/stop"
	return wrap(i.api.Post(ctx, "stop_channel", path, nil, nil), "stop channel")
}

func (i *HTTPIngest) Health(ctx context.Context) error {
	return wrap(i.api.Get(ctx, "health", "/healthz", nil), "health")
}

func wrap(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case rest.IsStatus(err, http.StatusConflict):
		return errors.Wrapf(ErrConflict, "%s: %v", msg, err)
	case rest.IsStatus(err, http.StatusNotFound):
		return errors.Wrapf(ErrNotFound, "%s: %v", msg, err)
	default:
		return errors.Wrap(err, msg)
	}
}
