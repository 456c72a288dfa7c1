package media

import (
	"encoding/json"
	"os/exec"
	"strconv"
)

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"` // video, audio, subtitle
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// AudioInfo describes the audio stream of a media file.
type AudioInfo struct {
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Duration   float64 `json:"duration"` // seconds
}

// Probe inspects a media file with ffprobe and returns its audio stream
// parameters. Used after normalization to log and record audio duration.
func Probe(filePath string) (*AudioInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, err
	}

	info := &AudioInfo{}
	info.Duration, _ = strconv.ParseFloat(result.Format.Duration, 64)

	for _, s := range result.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.Codec = s.CodecName
		info.Channels = s.Channels
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		break
	}

	return info, nil
}
