package whisper

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient uses the OpenAI transcription API. The API returns all
// segments in one verbose-JSON response, so the stream is slice-backed;
// callers still consume it through the same lazy SegmentStream contract.
// VAD filtering and beam width are not tunable on the hosted API.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

func (c *OpenAIClient) Stream(ctx context.Context, audioPath string) (SegmentStream, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Cause: fmt.Errorf("OpenAI API request: %w", err)}
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: text})
	}

	return &sliceStream{segments: segments}, nil
}

// sliceStream serves pre-materialized segments through the stream contract.
type sliceStream struct {
	segments []Segment
	pos      int
}

func (s *sliceStream) Next() (Segment, error) {
	if s.pos >= len(s.segments) {
		return Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

func (s *sliceStream) Close() error {
	s.pos = len(s.segments)
	return nil
}
