package storage

import (
	"path/filepath"
	"strings"
)

// SourceKind classifies an upload by its declared extension.
type SourceKind string

const (
	KindAudio           SourceKind = "audio"      // uncompressed audio container
	KindCompressedAudio SourceKind = "compressed" // lossy audio
	KindVideo           SourceKind = "video"      // video container, audio track extracted
	KindUnknown         SourceKind = "unknown"    // handed to ffmpeg auto-detection
)

var extensionKinds = map[string]SourceKind{
	".wav": KindAudio,
	".mp3": KindCompressedAudio,
	".mp4": KindVideo,
}

// Classify maps a filename to its source kind. Unrecognized extensions
// fall back to KindUnknown rather than being rejected.
func Classify(name string) SourceKind {
	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return KindUnknown
}

// BaseName strips the directory and extension from an uploaded filename.
func BaseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SanitizeBaseName makes an upload's base name safe to embed in an
// artifact filename. Path separators and control characters are replaced.
func SanitizeBaseName(name string) string {
	base := BaseName(name)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return "transcript"
	}
	return s
}
