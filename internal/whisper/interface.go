package whisper

import (
	"context"
	"fmt"
)

// Segment is a time-bounded span of recognized speech.
type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// SegmentStream is a lazy, single-pass sequence of segments. Each call to
// Next may block while the engine decodes the next speech span. The stream
// is not restartable; Close must be called when the consumer is done.
type SegmentStream interface {
	// Next returns the next segment, or io.EOF when the engine has no
	// more segments for the audio. Whitespace-only segments are dropped
	// by the stream, never yielded.
	Next() (Segment, error)
	Close() error
}

// Engine is the common interface for all transcription engines.
type Engine interface {
	// Stream starts transcribing the given canonical WAV file and returns
	// a lazy segment stream. The caller owns the audio file and releases
	// it after the stream is fully consumed.
	Stream(ctx context.Context, audioPath string) (SegmentStream, error)
	// Name returns the engine name
	Name() string
}

// Fixed decoding parameters, chosen for batch (non real-time) use:
// VAD suppresses silence and non-speech spans, beam width 5 trades a
// little latency for accuracy.
const (
	vadFilter = true
	beamSize  = 5
)

// TranscriptionError wraps an engine failure with its underlying cause.
type TranscriptionError struct {
	Engine string
	Cause  error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (%s): %v", e.Engine, e.Cause)
}

func (e *TranscriptionError) Unwrap() error { return e.Cause }
