package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dixon2004/audio-transcriber/internal/history"
	"github.com/dixon2004/audio-transcriber/internal/logging"
	"github.com/dixon2004/audio-transcriber/internal/media"
	"github.com/dixon2004/audio-transcriber/internal/metrics"
	"github.com/dixon2004/audio-transcriber/internal/storage"
	"github.com/dixon2004/audio-transcriber/internal/transcript"
	"github.com/dixon2004/audio-transcriber/internal/whisper"
)

// Normalizer converts an upload into a canonical mono 16kHz WAV on disk.
// Satisfied by *media.Normalizer.
type Normalizer interface {
	Normalize(ctx context.Context, upload io.Reader, filename string) (string, error)
}

type TranscribeHandler struct {
	service        *whisper.Service
	normalizer     Normalizer
	store          *history.Store
	defaultEngine  string
	maxUploadBytes int64
}

func NewTranscribeHandler(service *whisper.Service, normalizer Normalizer, store *history.Store, defaultEngine string, maxUploadMB int64) *TranscribeHandler {
	return &TranscribeHandler{
		service:        service,
		normalizer:     normalizer,
		store:          store,
		defaultEngine:  defaultEngine,
		maxUploadBytes: maxUploadMB << 20,
	}
}

// Engines lists the registered transcription engines.
func (h *TranscribeHandler) Engines(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"engines": h.service.EngineNames(),
		"default": h.defaultEngine,
	}, http.StatusOK)
}

// Transcribe accepts one uploaded media file and answers with a
// Server-Sent-Events stream. After every transcribed segment the full
// transcript so far is sent as a `transcript` event; the stream ends with
// exactly one of `done` (download artifact), `empty` (no speech detected)
// or `error`. Errors before the pipeline starts are plain JSON responses.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file upload required (multipart field \"file\")", http.StatusBadRequest)
		return
	}
	defer file.Close()

	engineName := r.FormValue("engine")
	if engineName == "" {
		engineName = h.defaultEngine
	}
	engine, err := h.service.Engine(engineName)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	start := time.Now()

	requestID, err := h.store.Create(header.Filename, engineName)
	if err != nil {
		jsonError(w, "failed to record request", http.StatusInternalServerError)
		return
	}
	logger := logging.WithRequest(requestID, header.Filename)
	logger.Info().
		Str("engine", engineName).
		Str("kind", string(storage.Classify(header.Filename))).
		Msg("transcription request accepted")

	// Normalize the upload to mono 16kHz PCM WAV. The canonical file is
	// owned by this request and removed unconditionally once the engine
	// stream has been consumed (or the pipeline failed).
	audioPath, err := h.normalizer.Normalize(r.Context(), file, header.Filename)
	if err != nil {
		metrics.NormalizeFailures.Inc()
		h.finish(requestID, history.StatusFailed, 0, err.Error(), start)
		logger.Error().Err(err).Msg("media normalization failed")
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer os.Remove(audioPath)

	// Best-effort: record the audio duration for the history view.
	if info, err := media.Probe(audioPath); err == nil {
		h.store.SetAudioDuration(requestID, info.Duration)
	}

	stream, err := engine.Stream(r.Context(), audioPath)
	if err != nil {
		h.finish(requestID, history.StatusFailed, 0, err.Error(), start)
		logger.Error().Err(err).Msg("engine refused audio")
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := &sseSink{w: w, flusher: flusher, requestID: requestID}
	baseName := storage.SanitizeBaseName(header.Filename)

	artifact, err := transcript.Run(stream, baseName, sink)
	switch {
	case errors.Is(err, transcript.ErrNoSpeech):
		h.finish(requestID, history.StatusEmpty, 0, "", start)
		logger.Info().Msg("no speech detected")
		sink.event("empty", map[string]string{
			"request_id": requestID,
			"message":    "no speech detected",
		})

	case err != nil:
		// Lines already sent stay visible at the client; the failure is
		// surfaced as its own event.
		h.finish(requestID, history.StatusFailed, sink.lines, err.Error(), start)
		logger.Error().Err(err).Int("lines", sink.lines).Msg("transcription failed mid-stream")
		sink.event("error", map[string]string{
			"request_id": requestID,
			"error":      err.Error(),
		})

	default:
		h.finish(requestID, history.StatusCompleted, sink.lines, "", start)
		metrics.SegmentsEmitted.WithLabelValues(engineName).Add(float64(sink.lines))
		logger.Info().
			Int("lines", sink.lines).
			Dur("took", time.Since(start)).
			Msg("transcription complete")
		sink.event("done", map[string]string{
			"request_id": requestID,
			"filename":   artifact.Filename,
			"content":    artifact.Content,
		})
	}
}

// finish records the terminal state of a request and its metrics.
func (h *TranscribeHandler) finish(requestID string, status history.Status, segments int, errMsg string, start time.Time) {
	h.store.Complete(requestID, status, segments, errMsg)
	metrics.TranscribeRequests.WithLabelValues(string(status)).Inc()
	metrics.TranscribeDuration.Observe(time.Since(start).Seconds())
}

// sseSink forwards transcript snapshots to the client as SSE events.
// It is the presentation side of the pipeline: one `transcript` event per
// appended line, each carrying the whole buffer so far.
type sseSink struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	requestID string
	lines     int
}

func (s *sseSink) Update(snapshot string) {
	s.lines++
	s.event("transcript", map[string]interface{}{
		"request_id": s.requestID,
		"transcript": snapshot,
		"lines":      s.lines,
	})
}

func (s *sseSink) event(name string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data)
	s.flusher.Flush()
}
