package whisper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dixon2004/audio-transcriber/internal/logging"
)

// FasterWhisperClient talks to a faster-whisper sidecar server that streams
// transcription results as NDJSON, one segment object per line. Segments are
// read lazily off the response body, so the first lines of a long file are
// available while the tail is still being decoded.
type FasterWhisperClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewFasterWhisperClient creates a client for the faster-whisper server
func NewFasterWhisperClient(baseURL string) *FasterWhisperClient {
	return &FasterWhisperClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // transcription can be very long
		},
	}
}

func (c *FasterWhisperClient) Name() string {
	return "faster-whisper"
}

// Stream uploads the canonical WAV and returns a stream over the server's
// NDJSON response.
func (c *FasterWhisperClient) Stream(ctx context.Context, audioPath string) (SegmentStream, error) {
	// Build multipart form
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Cause: fmt.Errorf("open audio: %w", err)}
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Cause: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Cause: fmt.Errorf("copy audio data: %w", err)}
	}

	writer.WriteField("response_format", "jsonl")
	writer.WriteField("vad_filter", strconv.FormatBool(vadFilter))
	writer.WriteField("beam_size", strconv.Itoa(beamSize))
	writer.Close()

	url := c.baseURL + "/v1/transcribe"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Cause: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	logger := logging.WithComponent("whisper")
	logger.Debug().Str("url", url).Str("audio", audioPath).Msg("sending transcription request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Cause: fmt.Errorf("whisper server request: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &TranscriptionError{
			Engine: c.Name(),
			Cause:  fmt.Errorf("whisper server error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &ndjsonStream{
		engine:  c.Name(),
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// ndjsonStream reads one segment per line off the live response body.
type ndjsonStream struct {
	engine  string
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// segmentLine is one NDJSON line from the server. The server reports
// mid-stream failures as a final line carrying an error field.
type segmentLine struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Error string  `json:"error,omitempty"`
}

func (s *ndjsonStream) Next() (Segment, error) {
	if s.done {
		return Segment{}, io.EOF
	}

	for {
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return Segment{}, &TranscriptionError{Engine: s.engine, Cause: fmt.Errorf("read segment stream: %w", err)}
			}
			return Segment{}, io.EOF
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var seg segmentLine
		if err := json.Unmarshal(line, &seg); err != nil {
			s.done = true
			return Segment{}, &TranscriptionError{Engine: s.engine, Cause: fmt.Errorf("parse segment: %w", err)}
		}
		if seg.Error != "" {
			s.done = true
			return Segment{}, &TranscriptionError{Engine: s.engine, Cause: fmt.Errorf("engine: %s", seg.Error)}
		}

		// VAD suppresses most non-speech, but the model can still emit
		// whitespace-only hypotheses; drop them instead of yielding.
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		return Segment{Start: seg.Start, End: seg.End, Text: text}, nil
	}
}

func (s *ndjsonStream) Close() error {
	s.done = true
	return s.body.Close()
}
