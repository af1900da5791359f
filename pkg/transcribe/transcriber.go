// Package transcribe turns stored lecture audio into text.
//
// Supported backends:
//   - http: an OpenAI-compatible transcription server (faster-whisper-server,
//     whisper.cpp server, LocalAI) reached over HTTP
//   - cli: whisper.cpp invoked as a local binary, with ffmpeg for decoding
package transcribe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"lecture-notes/pkg/config"
	"lecture-notes/pkg/executor"
)

// Segment is one time-ordered span of recognized speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Result is what the pipeline stores for a lecture. Language and duration are
// best-effort and may be nil.
type Result struct {
	Text            string
	Language        *string
	DurationSeconds *float64
}

// Transcriber converts an audio file on local disk into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber for the configured backend.
func New(cfg config.TranscriberConfig, exec executor.Executor) (Transcriber, error) {
	switch cfg.Backend {
	case "http", "":
		return NewHTTPTranscriber(cfg, nil), nil
	case "cli":
		return NewCLITranscriber(cfg, exec), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: http, cli)", cfg.Backend)
	}
}

// JoinSegments concatenates trimmed segment text in start-time order with
// single spaces. Empty segments are skipped.
func JoinSegments(segments []Segment) string {
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	parts := make([]string, 0, len(ordered))
	for _, seg := range ordered {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalDuration(d float64) *float64 {
	if d <= 0 {
		return nil
	}
	return &d
}
