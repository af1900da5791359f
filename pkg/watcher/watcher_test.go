package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lecture-notes/pkg/logger"
	"lecture-notes/pkg/models"
	"lecture-notes/pkg/pipeline"
)

type fakeIngester struct {
	mu       sync.Mutex
	requests []pipeline.IngestRequest
	fail     error
	noRecord bool
}

func (f *fakeIngester) Ingest(ctx context.Context, req pipeline.IngestRequest) (*models.Lecture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.noRecord {
		return nil, f.fail
	}
	lecture := models.NewLecture(req.Metadata, time.Now())
	if f.fail != nil {
		lecture.Fail("Transcription failed", time.Now())
		return lecture, f.fail
	}
	lecture.Status = models.StatusTranscribed
	return lecture, nil
}

func (f *fakeIngester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestIsAudioFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/in/lecture.mp3", true},
		{"/in/Lecture.WAV", true},
		{"/in/week1.m4a", true},
		{"/in/recording.webm", true},
		{"/in/talk.ogg", true},
		{"/in/talk.flac", true},
		{"/in/screen.mp4", true},
		{"/in/notes.txt", false},
		{"/in/archived", false},
		{"/in/.DS_Store", false},
	}

	for _, tt := range tests {
		if got := isAudioFile(tt.path); got != tt.want {
			t.Errorf("isAudioFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIngestHandler(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "archived")
	path := filepath.Join(dir, "Week 3 - Entropy.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	ingester := &fakeIngester{}
	handler := NewIngestHandler(ingester, archiveDir, logger.NewNop())
	if err := handler(context.Background(), path); err != nil {
		t.Fatalf("handler() error = %v", err)
	}

	req := ingester.requests[0]
	if req.Metadata.Title != "Week 3 - Entropy" || req.Filename != "Week 3 - Entropy.mp3" || string(req.Audio) != "ID3" {
		t.Errorf("ingest request = %+v", req)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("source file should be moved out of the drop folder")
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "Week 3 - Entropy.mp3")); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestIngestHandlerArchiveCollision(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "archived")
	ingester := &fakeIngester{}
	handler := NewIngestHandler(ingester, archiveDir, logger.NewNop())

	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "repeat.wav")
		if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := handler(context.Background(), path); err != nil {
			t.Fatalf("handler() run %d error = %v", i, err)
		}
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("archive has %d files, want 2", len(entries))
	}
}

func TestIngestHandlerFailures(t *testing.T) {
	t.Run("stage failure archives", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "broken.mp3")
		os.WriteFile(path, []byte("x"), 0o644)

		ingester := &fakeIngester{fail: errors.New("transcription failed")}
		err := NewIngestHandler(ingester, filepath.Join(dir, "archived"), logger.NewNop())(context.Background(), path)
		if err == nil {
			t.Fatal("handler() should report the ingest failure")
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Error("file with a lecture record should be archived")
		}
	})

	t.Run("rejected file stays", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "empty.mp3")
		os.WriteFile(path, nil, 0o644)

		ingester := &fakeIngester{noRecord: true, fail: pipeline.ErrInvalidInput}
		err := NewIngestHandler(ingester, filepath.Join(dir, "archived"), logger.NewNop())(context.Background(), path)
		if !errors.Is(err, pipeline.ErrInvalidInput) {
			t.Fatalf("handler() error = %v, want ErrInvalidInput", err)
		}
		if _, statErr := os.Stat(path); statErr != nil {
			t.Error("rejected file should stay in the drop folder")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		err := NewIngestHandler(&fakeIngester{}, t.TempDir(), logger.NewNop())(context.Background(), "/nonexistent/x.mp3")
		if err == nil {
			t.Error("handler() should fail for a missing file")
		}
	})
}

func TestWatcherIngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "archived")
	ingester := &fakeIngester{}

	w, err := New(dir, NewIngestHandler(ingester, archiveDir, logger.NewNop()), logger.NewNop(), 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.(*implWatcher).settleDelay = 20 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lecture.mp3"), []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(archiveDir, "lecture.mp3")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dropped file was not ingested and archived")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
	if ingester.count() != 1 {
		t.Errorf("ingested %d files, want 1", ingester.count())
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), nil, logger.NewNop(), 1); err == nil {
		t.Error("New() should fail for a missing directory")
	}
}
