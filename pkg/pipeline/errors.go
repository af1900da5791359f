package pipeline

import (
	"errors"
	"fmt"

	"lecture-notes/pkg/export"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidID    = fmt.Errorf("%w: invalid lecture id", ErrInvalidInput)
	ErrNoTranscript = fmt.Errorf("%w: transcript not available", ErrInvalidInput)
	ErrNoNotes      = fmt.Errorf("%w: notes not available", ErrInvalidInput)
	ErrNotFound     = errors.New("lecture not found")

	ErrStorage         = errors.New("storage failure")
	ErrTranscription   = errors.New("transcription failed")
	ErrNotesGeneration = errors.New("notes generation failed")
)

type Stage string

const (
	StageAudioStorage  Stage = "audio_storage"
	StageTranscription Stage = "transcription"
	StageNotes         Stage = "notes_generation"
)

// sentinel is the error class a failure in this stage reports.
func (s Stage) sentinel() error {
	switch s {
	case StageTranscription:
		return ErrTranscription
	case StageNotes:
		return ErrNotesGeneration
	default:
		return ErrStorage
	}
}

// StageError is returned when a pipeline stage fails after the lecture record
// has been moved to ERROR. It matches both the stage sentinel and the cause
// under errors.Is.
type StageError struct {
	Stage     Stage
	LectureID string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s for lecture %s: %v", e.Stage.sentinel(), e.LectureID, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindStorage
	KindEngine
)

// Kind classifies err for callers that map failures onto a transport.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput), errors.Is(err, export.ErrUnsupportedFormat):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTranscription), errors.Is(err, ErrNotesGeneration):
		return KindEngine
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}
