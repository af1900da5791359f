package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewLecture(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewLecture(LectureMetadata{Title: "Linear Algebra", Course: StringPtr("MATH 221")}, now)

	if !ValidID(l.ID) {
		t.Errorf("ID %q is not a valid lecture id", l.ID)
	}
	if l.Status != StatusUploaded {
		t.Errorf("Status = %v, want %v", l.Status, StatusUploaded)
	}
	if !l.CreatedAt.Equal(now) || !l.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", l.CreatedAt, l.UpdatedAt, now)
	}
	if l.Course == nil || *l.Course != "MATH 221" || l.Lecturer != nil {
		t.Errorf("metadata = course %v lecturer %v", l.Course, l.Lecturer)
	}

	other := NewLecture(LectureMetadata{Title: "Linear Algebra"}, now)
	if other.ID == l.ID {
		t.Error("lecture ids should be unique")
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"6f1c1b9e-3a7e-4df4-9e3c-7d7f1e0a2b11", true},
		{"", false},
		{"42", false},
		{"not-a-uuid", false},
	}

	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewLecture(LectureMetadata{Title: "Optics"}, t0)

	l.Fail("Transcription failed: boom", t0.Add(time.Minute))
	if l.Status != StatusError || l.ErrorMessage == nil || *l.ErrorMessage != "Transcription failed: boom" {
		t.Fatalf("after Fail status=%v error=%v", l.Status, l.ErrorMessage)
	}

	l.SetStatus(StatusGeneratingNotes, t0.Add(2*time.Minute))
	if l.Status != StatusGeneratingNotes {
		t.Errorf("Status = %v", l.Status)
	}
	if l.ErrorMessage != nil {
		t.Error("SetStatus should clear the error message")
	}
	if !l.UpdatedAt.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("UpdatedAt = %v", l.UpdatedAt)
	}
	if !l.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt changed to %v", l.CreatedAt)
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   LectureStatus
		valid    bool
		terminal bool
	}{
		{StatusUploaded, true, false},
		{StatusTranscribing, true, false},
		{StatusTranscribed, true, false},
		{StatusGeneratingNotes, true, false},
		{StatusCompleted, true, true},
		{StatusError, true, true},
		{"PROCESSING", false, false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("%s.Valid() = %v, want %v", tt.status, got, tt.valid)
		}
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestHasTranscriptAndNotes(t *testing.T) {
	empty := ""
	text := "content"

	l := &Lecture{}
	if l.HasTranscript() || l.HasNotes() {
		t.Error("nil fields should report absent")
	}
	l.TranscriptText, l.NotesText = &empty, &empty
	if l.HasTranscript() || l.HasNotes() {
		t.Error("empty strings should report absent")
	}
	l.TranscriptText, l.NotesText = &text, &text
	if !l.HasTranscript() || !l.HasNotes() {
		t.Error("non-empty fields should report present")
	}
}

func TestClone(t *testing.T) {
	dur := 12.5
	l := NewLecture(LectureMetadata{Title: "Genetics", Lecturer: StringPtr("Prof. Lin")}, time.Now())
	l.TranscriptText = StringPtr("alleles")
	l.DurationSeconds = &dur

	c := l.Clone()
	*c.Lecturer = "someone else"
	*c.TranscriptText = "changed"
	*c.DurationSeconds = 1

	if *l.Lecturer != "Prof. Lin" || *l.TranscriptText != "alleles" || *l.DurationSeconds != 12.5 {
		t.Error("Clone shares pointer fields with the original")
	}
	if (*Lecture)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestLectureJSON(t *testing.T) {
	l := NewLecture(LectureMetadata{Title: "Ethics"}, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{"id", "title", "course", "lecturer", "lecture_date", "audio_file_path",
		"transcript_text", "transcript_language", "duration_seconds", "notes_text", "status",
		"error_message", "created_at", "updated_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("JSON is missing %q", key)
		}
	}
	if fields["course"] != nil || fields["status"] != "UPLOADED" {
		t.Errorf("course=%v status=%v", fields["course"], fields["status"])
	}
}

func TestStringPtr(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("StringPtr(\"\") should be nil")
	}
	if p := StringPtr("x"); p == nil || *p != "x" {
		t.Errorf("StringPtr(\"x\") = %v", p)
	}
}
