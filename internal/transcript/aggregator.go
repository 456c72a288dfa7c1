// Package transcript consumes a lazy segment stream, formats each segment
// and maintains the monotonically growing transcript for one request.
package transcript

import (
	"errors"
	"io"
	"strings"

	"github.com/dixon2004/audio-transcriber/internal/whisper"
)

// ErrNoSpeech is the explicit "processing succeeded, no speech found"
// outcome. It is a first-class result, not a failure; callers distinguish
// it with errors.Is.
var ErrNoSpeech = errors.New("no speech detected")

// Sink receives the entire transcript buffer after every appended line.
// Forwarding the whole buffer rather than a delta keeps the sink stateless:
// each snapshot is a strict prefix-superset of the previous one.
type Sink interface {
	Update(snapshot string)
}

// Artifact is the final downloadable transcript.
type Artifact struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// ArtifactFilename derives the download filename from the upload's base name.
func ArtifactFilename(baseName string) string {
	return baseName + "_transcript.txt"
}

// Run pulls segments one at a time, appends one formatted line per segment
// and forwards the buffer to the sink after every append. It returns the
// final artifact, ErrNoSpeech when the stream produced no lines, or the
// engine's error unchanged. Lines already forwarded before a mid-stream
// failure stay at the sink; nothing is rolled back.
func Run(stream whisper.SegmentStream, baseName string, sink Sink) (*Artifact, error) {
	var buf strings.Builder

	for {
		seg, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		buf.WriteString(FormatLine(seg.Start, seg.End, seg.Text))
		buf.WriteString("\n")
		sink.Update(buf.String())
	}

	if buf.Len() == 0 {
		return nil, ErrNoSpeech
	}

	return &Artifact{
		Content:  buf.String(),
		Filename: ArtifactFilename(baseName),
	}, nil
}
