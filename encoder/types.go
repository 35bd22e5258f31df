package encoder

import (
	"context"
	"errors"
)

var (
	// ErrConflict is returned when the channel is already in the requested
	// state or a resource with the same identity exists.
	ErrConflict = errors.New("encoder: conflict")
	ErrNotFound = errors.New("encoder: not found")
)

// Encoder manages push inputs and encoding channels.
type Encoder interface {
	CreateInput(ctx context.Context, req InputRequest) (*Input, error)
	CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error)
	StartChannel(ctx context.Context, channelRef string) error
	StopChannel(ctx context.Context, channelRef string) error
	CreateScheduleAction(ctx context.Context, channelRef string, action ScheduleAction) error
	DeleteScheduleAction(ctx context.Context, channelRef string, actionName string) error
	Health(ctx context.Context) error
}

const InputTypeRTMPPush = "RTMP_PUSH"

type InputDestination struct {
	StreamName string `json:"streamName"`
	URL        string `json:"url,omitempty"`
}

type InputRequest struct {
	Name           string             `json:"name"`
	Type           string             `json:"type"`
	SecurityGroups []string           `json:"inputSecurityGroups,omitempty"`
	Destinations   []InputDestination `json:"destinations"`
}

type Input struct {
	ID           string             `json:"id"`
	Destinations []InputDestination `json:"destinations"`
}

// PushURL is the url of the first input destination.
func (i *Input) PushURL() string {
	if len(i.Destinations) == 0 {
		return ""
	}
	return i.Destinations[0].URL
}

type InputAttachment struct {
	Name              string `json:"inputAttachmentName"`
	InputID           string `json:"inputId"`
	SourceEndBehavior string `json:"sourceEndBehavior"`
}

type InputSpecification struct {
	Codec          string `json:"codec"`
	Resolution     string `json:"resolution"`
	MaximumBitrate string `json:"maximumBitrate"`
}

type DestinationSettings struct {
	URL        string `json:"url"`
	StreamName string `json:"streamName,omitempty"`
}

type OutputDestination struct {
	ID       string                `json:"id"`
	Settings []DestinationSettings `json:"settings"`
}

type ChannelRequest struct {
	Name               string              `json:"name"`
	RoleRef            string              `json:"roleArn,omitempty"`
	ChannelClass       string              `json:"channelClass"`
	InputSpecification InputSpecification  `json:"inputSpecification"`
	InputAttachments   []InputAttachment   `json:"inputAttachments"`
	Destinations       []OutputDestination `json:"destinations"`
	Settings           Settings            `json:"encoderSettings"`
}

type Channel struct {
	ID    string `json:"id"`
	State string `json:"state,omitempty"`
}

// ScheduleAction is executed by the channel immediately when created with
// ImmediateStart.
type ScheduleAction struct {
	Name           string            `json:"actionName"`
	ImmediateStart bool              `json:"immediateStart"`
	OutputSettings HLSOutputSettings `json:"hlsOutputSettings"`
}

type HLSOutputSettings struct {
	DestinationRef string `json:"destinationRefId"`
}
