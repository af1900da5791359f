package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/notes"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// storeAudio writes the upload and advances the lecture to TRANSCRIBING.
func (m *Manager) storeAudio(ctx context.Context, id, filename string, data []byte) (*models.Lecture, error) {
	_, span := m.tracer.Start(ctx, "pipeline.store_audio", trace.WithAttributes(attribute.String("lecture.id", id)))
	defer span.End()

	path, err := m.audio.Save(id, filename, data)
	if err != nil {
		recordSpanError(span, err)
		return m.failStage(id, StageAudioStorage, err, fmt.Sprintf("Failed to save audio: %v", err))
	}

	lecture, err := m.store.Update(id, func(l *models.Lecture) error {
		l.AudioFilePath = path
		l.SetStatus(models.StatusTranscribing, m.now())
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return m.failStage(id, StageAudioStorage, err, fmt.Sprintf("Failed to record audio path: %v", err))
	}

	m.log.Debug("audio stored", "lecture_id", id, "path", path)
	return lecture, nil
}

// transcribe runs the speech-to-text engine and stores the transcript.
func (m *Manager) transcribe(ctx context.Context, lecture *models.Lecture) (*models.Lecture, error) {
	ctx, span := m.tracer.Start(ctx, "pipeline.transcribe", trace.WithAttributes(attribute.String("lecture.id", lecture.ID)))
	defer span.End()

	// Waiting for a slot follows the caller; the engine call itself does not.
	if err := m.transcriptions.acquire(ctx); err != nil {
		err = fmt.Errorf("wait for transcription slot: %w", err)
		recordSpanError(span, err)
		return m.failStage(lecture.ID, StageTranscription, err, fmt.Sprintf("Transcription failed: %v", err))
	}
	defer m.transcriptions.release()

	engineCtx, cancel := m.engineContext(ctx, m.config.TranscriptionTimeout)
	defer cancel()

	start := time.Now()
	result, err := m.transcriber.Transcribe(engineCtx, lecture.AudioFilePath)
	if err != nil {
		recordSpanError(span, err)
		return m.failStage(lecture.ID, StageTranscription, err,
			engineFailureMessage(engineCtx, "Transcription", m.config.TranscriptionTimeout, err))
	}

	updated, err := m.store.Update(lecture.ID, func(l *models.Lecture) error {
		text := result.Text
		l.TranscriptText = &text
		l.TranscriptLanguage = result.Language
		l.DurationSeconds = result.DurationSeconds
		l.SetStatus(models.StatusTranscribed, m.now())
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return m.failStage(lecture.ID, StageTranscription, err, fmt.Sprintf("Failed to save transcript: %v", err))
	}

	span.SetAttributes(attribute.Int("transcript.chars", len(result.Text)))
	m.log.Info("transcription complete",
		"lecture_id", lecture.ID,
		"language", deref(result.Language),
		"duration_seconds", derefFloat(result.DurationSeconds),
		"elapsed", time.Since(start).String(),
	)
	return updated, nil
}

// generateNotes moves the lecture to GENERATING_NOTES, calls the LLM and
// stores its output as COMPLETED.
func (m *Manager) generateNotes(ctx context.Context, lecture *models.Lecture) (*models.Lecture, error) {
	if err := m.generations.acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: wait for generation slot: %v", ErrNotesGeneration, err)
	}
	defer m.generations.release()

	if _, err := m.store.Update(lecture.ID, func(l *models.Lecture) error {
		l.SetStatus(models.StatusGeneratingNotes, m.now())
		return nil
	}); err != nil {
		return m.failStage(lecture.ID, StageNotes, fmt.Errorf("%w: mark generating notes: %v", ErrStorage, err),
			fmt.Sprintf("Failed to update lecture status: %v", err))
	}

	engineCtx, cancel := m.engineContext(ctx, m.config.GenerationTimeout)
	defer cancel()

	start := time.Now()
	text, err := m.generator.GenerateNotes(engineCtx, notes.Request{
		Transcript:  *lecture.TranscriptText,
		Title:       lecture.Title,
		Course:      lecture.Course,
		Lecturer:    lecture.Lecturer,
		LectureDate: lecture.LectureDate,
	})
	if err != nil {
		return m.failStage(lecture.ID, StageNotes, err,
			engineFailureMessage(engineCtx, "Notes generation", m.config.GenerationTimeout, err))
	}

	updated, err := m.store.Update(lecture.ID, func(l *models.Lecture) error {
		l.NotesText = &text
		l.SetStatus(models.StatusCompleted, m.now())
		return nil
	})
	if err != nil {
		return m.failStage(lecture.ID, StageNotes, err, fmt.Sprintf("Failed to save notes: %v", err))
	}

	m.log.Info("notes generated", "lecture_id", lecture.ID, "notes_chars", len(text), "elapsed", time.Since(start).String())
	return updated, nil
}

// engineContext detaches engine work from the caller's cancellation and
// applies the configured bound instead.
func (m *Manager) engineContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// failStage persists ERROR with message, logs the cause and returns the
// lecture as stored together with a *StageError.
func (m *Manager) failStage(id string, stage Stage, cause error, message string) (*models.Lecture, error) {
	m.log.Error("pipeline stage failed", "lecture_id", id, "stage", string(stage), "error", cause)

	lecture, err := m.store.Update(id, func(l *models.Lecture) error {
		l.Fail(message, m.now())
		return nil
	})
	if err != nil {
		m.log.Error("failed to persist error state", "lecture_id", id, "stage", string(stage), "error", err)
		return nil, &StageError{Stage: stage, LectureID: id, Err: errors.Join(cause, err)}
	}
	return lecture, &StageError{Stage: stage, LectureID: id, Err: cause}
}

func engineFailureMessage(ctx context.Context, what string, timeout time.Duration, err error) string {
	if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out after %s", what, timeout)
	}
	return fmt.Sprintf("%s failed: %v", what, err)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
