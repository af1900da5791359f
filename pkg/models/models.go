package models

import (
	"time"

	"github.com/google/uuid"
)

type LectureStatus string

const (
	StatusUploaded        LectureStatus = "UPLOADED"
	StatusTranscribing    LectureStatus = "TRANSCRIBING"
	StatusTranscribed     LectureStatus = "TRANSCRIBED"
	StatusGeneratingNotes LectureStatus = "GENERATING_NOTES"
	StatusCompleted       LectureStatus = "COMPLETED"
	StatusError           LectureStatus = "ERROR"
)

// Valid reports whether s is one of the known lecture states.
func (s LectureStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusTranscribing, StatusTranscribed,
		StatusGeneratingNotes, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transition follows s.
func (s LectureStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type Lecture struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Course             *string       `json:"course"`
	Lecturer           *string       `json:"lecturer"`
	LectureDate        *string       `json:"lecture_date"`
	AudioFilePath      string        `json:"audio_file_path"`
	TranscriptText     *string       `json:"transcript_text"`
	TranscriptLanguage *string       `json:"transcript_language"`
	DurationSeconds    *float64      `json:"duration_seconds"`
	NotesText          *string       `json:"notes_text"`
	Status             LectureStatus `json:"status"`
	ErrorMessage       *string       `json:"error_message"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

type LectureSummary struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Course      *string       `json:"course"`
	Lecturer    *string       `json:"lecturer"`
	LectureDate *string       `json:"lecture_date"`
	Status      LectureStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type NotesGenerationResponse struct {
	NotesText string        `json:"notes_text"`
	Status    LectureStatus `json:"status"`
}

// LectureMetadata is the user-supplied description of a lecture.
type LectureMetadata struct {
	Title       string
	Course      *string
	Lecturer    *string
	LectureDate *string
}

func NewLecture(meta LectureMetadata, now time.Time) *Lecture {
	return &Lecture{
		ID:          uuid.New().String(),
		Title:       meta.Title,
		Course:      meta.Course,
		Lecturer:    meta.Lecturer,
		LectureDate: meta.LectureDate,
		Status:      StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ValidID reports whether id has the shape of a lecture identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (l *Lecture) Summary() LectureSummary {
	return LectureSummary{
		ID:          l.ID,
		Title:       l.Title,
		Course:      l.Course,
		Lecturer:    l.Lecturer,
		LectureDate: l.LectureDate,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// SetStatus moves the lecture to a non-error state and clears any previous
// failure message.
func (l *Lecture) SetStatus(status LectureStatus, now time.Time) {
	l.Status = status
	l.ErrorMessage = nil
	l.UpdatedAt = now
}

// Fail moves the lecture to ERROR with msg as the failure description.
func (l *Lecture) Fail(msg string, now time.Time) {
	l.Status = StatusError
	l.ErrorMessage = &msg
	l.UpdatedAt = now
}

// HasTranscript reports whether a non-empty transcript is stored.
func (l *Lecture) HasTranscript() bool {
	return l.TranscriptText != nil && *l.TranscriptText != ""
}

// HasNotes reports whether non-empty notes are stored.
func (l *Lecture) HasNotes() bool {
	return l.NotesText != nil && *l.NotesText != ""
}

// Clone returns a deep copy so callers never share pointer fields with a store.
func (l *Lecture) Clone() *Lecture {
	if l == nil {
		return nil
	}
	c := *l
	c.Course = cloneString(l.Course)
	c.Lecturer = cloneString(l.Lecturer)
	c.LectureDate = cloneString(l.LectureDate)
	c.TranscriptText = cloneString(l.TranscriptText)
	c.TranscriptLanguage = cloneString(l.TranscriptLanguage)
	c.NotesText = cloneString(l.NotesText)
	c.ErrorMessage = cloneString(l.ErrorMessage)
	if l.DurationSeconds != nil {
		d := *l.DurationSeconds
		c.DurationSeconds = &d
	}
	return &c
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
