package whisper

import (
	"fmt"
	"sort"

	"github.com/dixon2004/audio-transcriber/internal/logging"
)

// Service holds the process-wide set of initialized transcription engines.
// Engines are expensive to set up, so the service is built once at startup
// and treated as read-only afterwards; requests share the same instances.
type Service struct {
	engines map[string]Engine
}

// NewService creates a whisper service with available engines
func NewService(whisperURL, openAIKey string) *Service {
	s := &Service{engines: make(map[string]Engine)}
	logger := logging.WithComponent("whisper")

	if whisperURL != "" {
		s.engines["faster-whisper"] = NewFasterWhisperClient(whisperURL)
		logger.Info().Str("url", whisperURL).Msg("registered faster-whisper engine")
	}

	if openAIKey != "" {
		s.engines["openai"] = NewOpenAIClient(openAIKey)
		logger.Info().Msg("registered OpenAI engine")
	}

	return s
}

// RegisterEngine adds an engine under the given name.
func (s *Service) RegisterEngine(name string, engine Engine) {
	s.engines[name] = engine
}

// Engine returns the engine with the given name, or an error listing the
// available engines.
func (s *Service) Engine(name string) (Engine, error) {
	engine, ok := s.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown whisper engine: %s (available: %v)", name, s.EngineNames())
	}
	return engine, nil
}

// EngineNames returns the registered engine names, sorted.
func (s *Service) EngineNames() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
