package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dixon2004/audio-transcriber/internal/history"
	"github.com/dixon2004/audio-transcriber/internal/media"
	"github.com/dixon2004/audio-transcriber/internal/whisper"
)

// stubStream serves fixed segments, optionally failing after they run out.
type stubStream struct {
	segments []whisper.Segment
	pos      int
	err      error
}

func (s *stubStream) Next() (whisper.Segment, error) {
	if s.pos >= len(s.segments) {
		if s.err != nil {
			return whisper.Segment{}, s.err
		}
		return whisper.Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

func (s *stubStream) Close() error { return nil }

// stubEngine hands out a fresh stream per request.
type stubEngine struct {
	segments  []whisper.Segment
	streamErr error // error from Stream itself
	midErr    error // error surfaced mid-stream after the segments
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Stream(ctx context.Context, audioPath string) (whisper.SegmentStream, error) {
	if e.streamErr != nil {
		return nil, e.streamErr
	}
	return &stubStream{segments: e.segments, err: e.midErr}, nil
}

// stubNormalizer skips ffmpeg and hands back a file it creates in workDir.
type stubNormalizer struct {
	workDir string
	err     error
}

func (n *stubNormalizer) Normalize(ctx context.Context, upload io.Reader, filename string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	f, err := os.CreateTemp(n.workDir, "canonical-*.wav")
	if err != nil {
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

func newTestHandler(t *testing.T, engine whisper.Engine, norm Normalizer) (*TranscribeHandler, *history.Store) {
	t.Helper()
	store, err := history.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	service := whisper.NewService("", "")
	service.RegisterEngine("stub", engine)

	return NewTranscribeHandler(service, norm, store, "stub", 64), store
}

func uploadRequest(t *testing.T, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("fake-media-bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data map[string]interface{}
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		ev := sseEvent{data: map[string]interface{}{}}
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.data); err != nil {
					t.Fatalf("parse event data %q: %v", line, err)
				}
			}
		}
		events = append(events, ev)
	}
	return events
}

func TestTranscribe_Success(t *testing.T) {
	engine := &stubEngine{segments: []whisper.Segment{
		{Start: 0.0, End: 2.0, Text: "hi"},
		{Start: 5.5, End: 7.0, Text: "world"},
	}}
	h, store := newTestHandler(t, engine, &stubNormalizer{workDir: t.TempDir()})

	rec := httptest.NewRecorder()
	h.Transcribe(rec, uploadRequest(t, "meeting.wav"))

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE response, got content-type %q (body: %s)", ct, rec.Body.String())
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 2 transcript events + done, got %d: %s", len(events), rec.Body.String())
	}

	if events[0].name != "transcript" || events[1].name != "transcript" {
		t.Errorf("expected transcript events first, got %q %q", events[0].name, events[1].name)
	}
	first, _ := events[0].data["transcript"].(string)
	second, _ := events[1].data["transcript"].(string)
	if first != "[00:00 - 00:02] hi\n" {
		t.Errorf("first snapshot = %q", first)
	}
	if !strings.HasPrefix(second, first) {
		t.Errorf("snapshots must grow monotonically: %q then %q", first, second)
	}

	done := events[2]
	if done.name != "done" {
		t.Fatalf("expected done event, got %q", done.name)
	}
	if got := done.data["filename"]; got != "meeting_transcript.txt" {
		t.Errorf("artifact filename = %v, want meeting_transcript.txt", got)
	}
	if got := done.data["content"]; got != "[00:00 - 00:02] hi\n[00:05 - 00:07] world\n" {
		t.Errorf("artifact content = %v", got)
	}

	// History record is terminal.
	records, err := store.List(1)
	if err != nil || len(records) != 1 {
		t.Fatalf("List: %v (%d records)", err, len(records))
	}
	if records[0].Status != history.StatusCompleted {
		t.Errorf("history status = %q, want completed", records[0].Status)
	}
	if records[0].Segments != 2 {
		t.Errorf("history segments = %d, want 2", records[0].Segments)
	}
}

func TestTranscribe_NoSpeech(t *testing.T) {
	h, store := newTestHandler(t, &stubEngine{}, &stubNormalizer{workDir: t.TempDir()})

	rec := httptest.NewRecorder()
	h.Transcribe(rec, uploadRequest(t, "silence.wav"))

	events := parseSSE(t, rec.Body.String())
	if len(events) != 1 || events[0].name != "empty" {
		t.Fatalf("expected single empty event, got %s", rec.Body.String())
	}

	records, _ := store.List(1)
	if records[0].Status != history.StatusEmpty {
		t.Errorf("history status = %q, want empty", records[0].Status)
	}
}

func TestTranscribe_MidStreamErrorKeepsLines(t *testing.T) {
	engine := &stubEngine{
		segments: []whisper.Segment{
			{Start: 0, End: 1, Text: "kept one"},
			{Start: 1, End: 2, Text: "kept two"},
		},
		midErr: &whisper.TranscriptionError{Engine: "stub", Cause: io.ErrUnexpectedEOF},
	}
	h, store := newTestHandler(t, engine, &stubNormalizer{workDir: t.TempDir()})

	rec := httptest.NewRecorder()
	h.Transcribe(rec, uploadRequest(t, "broken.mp3"))

	events := parseSSE(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 2 transcript events + error, got %s", rec.Body.String())
	}
	if events[0].name != "transcript" || events[1].name != "transcript" {
		t.Errorf("the lines sent before the failure must remain")
	}
	if events[2].name != "error" {
		t.Fatalf("expected trailing error event, got %q", events[2].name)
	}
	msg, _ := events[2].data["error"].(string)
	if !strings.Contains(msg, "transcription failed") {
		t.Errorf("error event should carry the cause, got %q", msg)
	}

	records, _ := store.List(1)
	if records[0].Status != history.StatusFailed {
		t.Errorf("history status = %q, want failed", records[0].Status)
	}
}

func TestTranscribe_NormalizeFailure(t *testing.T) {
	norm := &stubNormalizer{err: &media.ProcessingError{Filename: "bad.mp4", Cause: io.ErrUnexpectedEOF}}
	h, store := newTestHandler(t, &stubEngine{}, norm)

	rec := httptest.NewRecorder()
	h.Transcribe(rec, uploadRequest(t, "bad.mp4"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if !strings.Contains(resp["error"], "bad.mp4") {
		t.Errorf("error should name the file, got %q", resp["error"])
	}

	records, _ := store.List(1)
	if records[0].Status != history.StatusFailed {
		t.Errorf("history status = %q, want failed", records[0].Status)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	h, _ := newTestHandler(t, &stubEngine{}, &stubNormalizer{workDir: t.TempDir()})

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTranscribe_UnknownEngine(t *testing.T) {
	h, _ := newTestHandler(t, &stubEngine{}, &stubNormalizer{workDir: t.TempDir()})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "a.wav")
	part.Write([]byte("x"))
	writer.WriteField("engine", "does-not-exist")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown engine, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stub") {
		t.Errorf("error should list available engines, got %s", rec.Body.String())
	}
}

func TestEngines(t *testing.T) {
	h, _ := newTestHandler(t, &stubEngine{}, &stubNormalizer{workDir: t.TempDir()})

	rec := httptest.NewRecorder()
	h.Engines(rec, httptest.NewRequest(http.MethodGet, "/api/transcribe/engines", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Engines []string `json:"engines"`
		Default string   `json:"default"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(resp.Engines) != 1 || resp.Engines[0] != "stub" {
		t.Errorf("engines = %v, want [stub]", resp.Engines)
	}
	if resp.Default != "stub" {
		t.Errorf("default = %q, want stub", resp.Default)
	}
}
