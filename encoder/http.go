package encoder

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/voc/session-api/rest"
)

type scheduleUpdate struct {
	Creates []ScheduleAction `json:"creates,omitempty"`
	Deletes []string         `json:"deletes,omitempty"`
}

// HTTPEncoder is the Encoder of the encoding service REST api.
type HTTPEncoder struct {
	api *rest.Client
}

func NewHTTPEncoder(api *rest.Client) *HTTPEncoder {
	return &HTTPEncoder{api: api}
}

func channelPath(channelRef string, action string) string {
	return "/v1/channels/" + url.PathEscape(channelRef) + "/" + action
}

func (e *HTTPEncoder) CreateInput(ctx context.Context, req InputRequest) (*Input, error) {
	var input Input
	if err := e.api.Create(ctx, "create_input", "/v1/inputs", req, &input); err != nil {
		return nil, wrap(err, "create input")
	}
	if input.ID == "" {
		return nil, errors.New("create input: response without id")
	}
	return &input, nil
}

func (e *HTTPEncoder) CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error) {
	var channel Channel
	if err := e.api.Create(ctx, "create_channel", "/v1/channels", req, &channel); err != nil {
		return nil, wrap(err, "create channel")
	}
	if channel.ID == "" {
		return nil, errors.New("create channel: response without id")
	}
	return &channel, nil
}

func (e *HTTPEncoder) StartChannel(ctx context.Context, channelRef string) error {
	err := e.api.Post(ctx, "start_channel", channelPath(channelRef, "start"), nil, nil)
	return wrap(err, "start channel")
}

func (e *HTTPEncoder) StopChannel(ctx context.Context, channelRef string) error {
	err := e.api.Post(ctx, "stop_channel", channelPath(channelRef, "stop"), nil, nil)
	return wrap(err, "stop channel")
}

func (e *HTTPEncoder) CreateScheduleAction(ctx context.Context, channelRef string, action ScheduleAction) error {
	update := scheduleUpdate{Creates: []ScheduleAction{action}}
	err := e.api.Post(ctx, "create_schedule", channelPath(channelRef, "schedule"), update, nil)
	return wrap(err, "create schedule action")
}

func (e *HTTPEncoder) DeleteScheduleAction(ctx context.Context, channelRef string, actionName string) error {
	update := scheduleUpdate{Deletes: []string{actionName}}
	err := e.api.Post(ctx, "delete_schedule", channelPath(channelRef, "schedule"), update, nil)
	return wrap(err, "delete schedule action")
}

func (e *HTTPEncoder) Health(ctx context.Context) error {
	return wrap(e.api.Get(ctx, "health", "/healthz", nil), "health")
}

// wrap maps status codes to the package errors
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
