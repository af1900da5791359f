package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lecture-notes/pkg/export"
	"lecture-notes/pkg/logger"
	"lecture-notes/pkg/models"
	"lecture-notes/pkg/notes"
	"lecture-notes/pkg/storage"
	"lecture-notes/pkg/transcribe"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	MaxConcurrentTranscriptions int
	MaxConcurrentGenerations    int
	// Zero means wait for the engine indefinitely.
	TranscriptionTimeout time.Duration
	GenerationTimeout    time.Duration
}

// Manager drives lectures through
// UPLOADED -> TRANSCRIBING -> TRANSCRIBED -> GENERATING_NOTES -> COMPLETED,
// or into ERROR at any stage. Every transition is persisted before and after
// each blocking engine call.
//
// Calls for the same lecture are not serialized: two concurrent
// GenerateNotes calls both run and the last write wins.
type Manager struct {
	config      Config
	store       storage.LectureStore
	audio       storage.AudioStore
	transcriber transcribe.Transcriber
	generator   notes.Generator
	log         *logger.Logger
	tracer      trace.Tracer

	transcriptions *limiter
	generations    *limiter

	now func() time.Time
}

// IngestRequest is one uploaded recording with its metadata.
type IngestRequest struct {
	Metadata models.LectureMetadata
	Audio    []byte
	Filename string
}

func NewManager(
	cfg Config,
	store storage.LectureStore,
	audio storage.AudioStore,
	transcriber transcribe.Transcriber,
	generator notes.Generator,
	log *logger.Logger,
) *Manager {
	return &Manager{
		config:         cfg,
		store:          store,
		audio:          audio,
		transcriber:    transcriber,
		generator:      generator,
		log:            log,
		tracer:         otel.Tracer("lecture-notes/pipeline"),
		transcriptions: newLimiter(cfg.MaxConcurrentTranscriptions),
		generations:    newLimiter(cfg.MaxConcurrentGenerations),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the timestamp source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Ingest creates the lecture, stores its audio and transcribes it before
// returning. The returned lecture is TRANSCRIBED on success. On a stage
// failure the lecture is returned in ERROR together with a *StageError.
func (m *Manager) Ingest(ctx context.Context, req IngestRequest) (*models.Lecture, error) {
	req.Metadata.Title = strings.TrimSpace(req.Metadata.Title)
	if req.Metadata.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("%w: audio file is empty", ErrInvalidInput)
	}

	ctx, span := m.tracer.Start(ctx, "pipeline.ingest")
	defer span.End()

	lecture := models.NewLecture(req.Metadata, m.now())
	span.SetAttributes(attribute.String("lecture.id", lecture.ID), attribute.Int("audio.bytes", len(req.Audio)))

	if err := m.store.Create(lecture); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("%w: create lecture: %v", ErrStorage, err)
	}
	m.log.Info("lecture created", "lecture_id", lecture.ID, "title", lecture.Title, "audio_bytes", len(req.Audio))

	lecture, err := m.storeAudio(ctx, lecture.ID, req.Filename, req.Audio)
	if err != nil {
		recordSpanError(span, err)
		return lecture, err
	}

	lecture, err = m.transcribe(ctx, lecture)
	if err != nil {
		recordSpanError(span, err)
		return lecture, err
	}
	return lecture, nil
}

// GenerateNotes produces notes from the stored transcript. It may be called
// again after ERROR or COMPLETED; a repeat call regenerates and overwrites
// the notes.
func (m *Manager) GenerateNotes(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !lecture.HasTranscript() {
		return nil, ErrNoTranscript
	}

	ctx, span := m.tracer.Start(ctx, "pipeline.generate_notes", trace.WithAttributes(attribute.String("lecture.id", id)))
	defer span.End()

	lecture, err = m.generateNotes(ctx, lecture)
	if err != nil {
		recordSpanError(span, err)
		return lecture, err
	}
	return lecture, nil
}

// Export renders the stored notes. It never mutates the lecture.
func (m *Manager) Export(ctx context.Context, id, format string) (*export.Artifact, error) {
	lecture, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !lecture.HasNotes() {
		return nil, ErrNoNotes
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	_, span := m.tracer.Start(ctx, "pipeline.export", trace.WithAttributes(
		attribute.String("lecture.id", id),
		attribute.String("export.format", string(f)),
	))
	defer span.End()

	title := lecture.Title
	if title == "" {
		title = "Lecture Notes"
	}
	artifact, err := export.Render(f, title, *lecture.NotesText)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("export lecture %s: %w", id, err)
	}
	return artifact, nil
}

func (m *Manager) Get(id string) (*models.Lecture, error) {
	if !models.ValidID(id) {
		return nil, ErrInvalidID
	}
	lecture, err := m.store.Get(id)
	if errors.Is(err, storage.ErrLectureNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get lecture: %v", ErrStorage, err)
	}
	return lecture, nil
}

// List returns lecture summaries, newest first.
func (m *Manager) List() ([]models.LectureSummary, error) {
	lectures, err := m.store.List()
	if err != nil {
		return nil, fmt.Errorf("%w: list lectures: %v", ErrStorage, err)
	}
	summaries := make([]models.LectureSummary, 0, len(lectures))
	for _, l := range lectures {
		summaries = append(summaries, l.Summary())
	}
	return summaries, nil
}

// Delete removes the lecture record and then its audio file. A failure to
// remove the audio is logged, not returned.
func (m *Manager) Delete(id string) error {
	lecture, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := m.store.Delete(id); err != nil {
		if errors.Is(err, storage.ErrLectureNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: delete lecture: %v", ErrStorage, err)
	}
	if err := m.audio.Remove(lecture.AudioFilePath); err != nil {
		m.log.Warn("failed to remove lecture audio", "lecture_id", id, "path", lecture.AudioFilePath, "error", err)
	}
	m.log.Info("lecture deleted", "lecture_id", id)
	return nil
}

// Close releases the engines. Stores are owned by the caller.
func (m *Manager) Close() error {
	return m.transcriber.Close()
}
