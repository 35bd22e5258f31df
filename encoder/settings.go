package encoder

// Settings is the encoder configuration of a channel.
type Settings struct {
	AudioDescriptions []AudioDescription `json:"audioDescriptions"`
	VideoDescriptions []VideoDescription `json:"videoDescriptions"`
	OutputGroups      []OutputGroup      `json:"outputGroups"`
	TimecodeSource    string             `json:"timecodeSource"`
}

type AudioDescription struct {
	Name         string `json:"name"`
	SelectorName string `json:"audioSelectorName"`
	Codec        string `json:"codec"`
	Bitrate      int    `json:"bitrate"`
	CodingMode   string `json:"codingMode"`
	SampleRate   int    `json:"sampleRate"`
}

type VideoDescription struct {
	Name           string `json:"name"`
	Codec          string `json:"codec"`
	Profile        string `json:"profile"`
	Level          string `json:"level"`
	Bitrate        int    `json:"bitrate"`
	RateControl    string `json:"rateControlMode"`
	FramerateNum   int    `json:"framerateNumerator"`
	FramerateDenom int    `json:"framerateDenominator"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type OutputGroup struct {
	Name    string             `json:"name"`
	RTMP    *RTMPGroupSettings `json:"rtmpGroupSettings,omitempty"`
	HLS     *HLSGroupSettings  `json:"hlsGroupSettings,omitempty"`
	Outputs []Output           `json:"outputs"`
}

type RTMPGroupSettings struct {
	AuthenticationScheme string `json:"authenticationScheme"`
	CacheFullBehavior    string `json:"cacheFullBehavior"`
	CacheLength          int    `json:"cacheLength"`
	CaptionData          string `json:"captionData"`
	RestartDelay         int    `json:"restartDelay"`
}

type HLSGroupSettings struct {
	DestinationRef          string `json:"destinationRefId"`
	SegmentLength           int    `json:"segmentLength"`
	ManifestDurationFormat  string `json:"manifestDurationFormat"`
	ConnectionRetryInterval int    `json:"connectionRetryInterval"`
	NumRetries              int    `json:"numRetries"`
}

type Output struct {
	Name              string   `json:"outputName"`
	VideoDescription  string   `json:"videoDescriptionName"`
	AudioDescriptions []string `json:"audioDescriptionNames"`

	// rtmp outputs
	DestinationRef          string `json:"destinationRefId,omitempty"`
	ConnectionRetryInterval int    `json:"connectionRetryInterval,omitempty"`
	NumRetries              int    `json:"numRetries,omitempty"`

	// hls outputs
	NameModifier       string `json:"nameModifier,omitempty"`
	AudioFramesPerPes  int    `json:"audioFramesPerPes,omitempty"`
	PcrControl         string `json:"pcrControl,omitempty"`
	AudioRenditionSets string `json:"audioRenditionSets,omitempty"`
}
