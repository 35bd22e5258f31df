package provision

import (
	"fmt"

	"github.com/voc/session-api/encoder"
)

// output destinations of every encoding channel
const (
	IngestDestination  = "ingest-destination"
	StorageDestination = "storage-destination"
)

const (
	audioName = "audio_1"
	videoName = "video_1080p"
)

// ingestURL is the push url of an ingest endpoint host
func ingestURL(endpoint string) string {
	return fmt.Sprintf("rtmps://%s:443/app/", endpoint)
}

func recordingURL(bucket string, id string) string {
	return fmt.Sprintf("s3ssl://%s/recordings/%s/index", bucket, id)
}

func (p *Provisioner) resourceName(kind string, id string) string {
	return fmt.Sprintf("%s-%s-%s", p.conf.NamePrefix, kind, id)
}

func (p *Provisioner) inputRequest(id string) encoder.InputRequest {
	req := encoder.InputRequest{
		Name: p.resourceName("input", id),
		Type: encoder.InputTypeRTMPPush,
		Destinations: []encoder.InputDestination{
			{StreamName: "host/" + id},
		},
	}
	if p.conf.InputSecurityGroup != "" {
		req.SecurityGroups = []string{p.conf.InputSecurityGroup}
	}
	return req
}

func (p *Provisioner) channelRequest(id string, inputID string, ingestEndpoint string) encoder.ChannelRequest {
	return encoder.ChannelRequest{
		Name:         p.resourceName("channel", id),
		RoleRef:      p.conf.RoleRef,
		ChannelClass: "SINGLE_PIPELINE",
		InputSpecification: encoder.InputSpecification{
			Codec:          "AVC",
			Resolution:     "HD",
			MaximumBitrate: "MAX_10_MBPS",
		},
		InputAttachments: []encoder.InputAttachment{{
			Name:              "host-input",
			InputID:           inputID,
			SourceEndBehavior: "CONTINUE",
		}},
		Destinations: []encoder.OutputDestination{
			{
				ID:       IngestDestination,
				Settings: []encoder.DestinationSettings{{URL: ingestEndpoint, StreamName: "live"}},
			},
			{
				ID:       StorageDestination,
				Settings: []encoder.DestinationSettings{{URL: recordingURL(p.conf.RecordingBucket, id)}},
			},
		},
		Settings: encoderSettings(),
	}
}

// encoderSettings is the fixed 1080p30 profile: one rtmp output to the ingest
// channel and one hls output for recordings.
func encoderSettings() encoder.Settings {
	return encoder.Settings{
		AudioDescriptions: []encoder.AudioDescription{{
			Name:         audioName,
			SelectorName: "default",
			Codec:        "AAC",
			Bitrate:      128000,
			CodingMode:   "CODING_MODE_2_0",
			SampleRate:   48000,
		}},
		VideoDescriptions: []encoder.VideoDescription{{
			Name:           videoName,
			Codec:          "H264",
			Profile:        "HIGH",
			Level:          "H264_LEVEL_4_1",
			Bitrate:        5000000,
			RateControl:    "CBR",
			FramerateNum:   30,
			FramerateDenom: 1,
			Width:          1920,
			Height:         1080,
		}},
		OutputGroups: []encoder.OutputGroup{
			{
				Name: "rtmp",
				RTMP: &encoder.RTMPGroupSettings{
					AuthenticationScheme: "COMMON",
					CacheFullBehavior:    "DISCONNECT_IMMEDIATELY",
					CacheLength:          30,
					CaptionData:          "ALL",
					RestartDelay:         15,
				},
				Outputs: []encoder.Output{{
					Name:                    "ingest",
					VideoDescription:        videoName,
					AudioDescriptions:       []string{audioName},
					DestinationRef:          IngestDestination,
					ConnectionRetryInterval: 2,
					NumRetries:              10,
				}},
			},
			{
				Name: "hls",
				HLS: &encoder.HLSGroupSettings{
					DestinationRef:          StorageDestination,
					SegmentLength:           6,
					ManifestDurationFormat:  "INTEGER",
					ConnectionRetryInterval: 1,
					NumRetries:              10,
				},
				Outputs: []encoder.Output{{
					Name:               "recording",
					VideoDescription:   videoName,
					AudioDescriptions:  []string{audioName},
					NameModifier:       "_recording",
					AudioFramesPerPes:  4,
					PcrControl:         "PCR_EVERY_PES_PACKET",
					AudioRenditionSets: "program_audio",
				}},
			},
		},
		TimecodeSource: "EMBEDDED",
	}
}
