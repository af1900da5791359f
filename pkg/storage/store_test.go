package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lecture-notes/pkg/models"
)

func newStores(t *testing.T) map[string]LectureStore {
	t.Helper()

	disk, err := NewInMemoryDiskStore()
	if err != nil {
		t.Fatalf("NewInMemoryDiskStore() error = %v", err)
	}
	stores := map[string]LectureStore{
		"memory": NewMemoryStore(),
		"badger": disk,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func newTestLecture(title string, createdAt time.Time) *models.Lecture {
	return models.NewLecture(models.LectureMetadata{Title: title}, createdAt)
}

func TestCreateAndGet(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			lecture := newTestLecture("Linear Algebra", time.Now())
			lecture.Course = models.StringPtr("MATH 221")

			if err := store.Create(lecture); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			got, err := store.Get(lecture.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Title != "Linear Algebra" {
				t.Errorf("Title = %q, want %q", got.Title, "Linear Algebra")
			}
			if got.Course == nil || *got.Course != "MATH 221" {
				t.Errorf("Course = %v, want MATH 221", got.Course)
			}
			if got.Status != models.StatusUploaded {
				t.Errorf("Status = %v, want %v", got.Status, models.StatusUploaded)
			}

			if err := store.Create(lecture); !errors.Is(err, ErrLectureExists) {
				t.Errorf("second Create() error = %v, want %v", err, ErrLectureExists)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get("missing"); !errors.Is(err, ErrLectureNotFound) {
				t.Errorf("Get() error = %v, want %v", err, ErrLectureNotFound)
			}
			_, err := store.Update("missing", func(*models.Lecture) error { return nil })
			if !errors.Is(err, ErrLectureNotFound) {
				t.Errorf("Update() error = %v, want %v", err, ErrLectureNotFound)
			}
			if err := store.Delete("missing"); !errors.Is(err, ErrLectureNotFound) {
				t.Errorf("Delete() error = %v, want %v", err, ErrLectureNotFound)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			lecture := newTestLecture("Thermodynamics", time.Now())
			if err := store.Create(lecture); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			updated, err := store.Update(lecture.ID, func(l *models.Lecture) error {
				l.AudioFilePath = "/data/audio/x.wav"
				l.SetStatus(models.StatusTranscribing, time.Now())
				l.ID = "tampered"
				return nil
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if updated.ID != lecture.ID {
				t.Errorf("Update() changed id to %q", updated.ID)
			}

			got, _ := store.Get(lecture.ID)
			if got.Status != models.StatusTranscribing || got.AudioFilePath != "/data/audio/x.wav" {
				t.Errorf("Get() after Update = %+v", got)
			}
		})
	}
}

func TestUpdateAbortLeavesRecord(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			lecture := newTestLecture("Optics", time.Now())
			if err := store.Create(lecture); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			abort := errors.New("abort")
			_, err := store.Update(lecture.ID, func(l *models.Lecture) error {
				l.Title = "changed"
				return abort
			})
			if !errors.Is(err, abort) {
				t.Fatalf("Update() error = %v, want %v", err, abort)
			}

			got, _ := store.Get(lecture.ID)
			if got.Title != "Optics" {
				t.Errorf("Title = %q, want unchanged %q", got.Title, "Optics")
			}
		})
	}
}

func TestGetReturnsCopy(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			lecture := newTestLecture("Genetics", time.Now())
			if err := store.Create(lecture); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			lecture.Title = "mutated after create"

			got, _ := store.Get(lecture.ID)
			got.Title = "mutated after get"

			again, _ := store.Get(lecture.ID)
			if again.Title != "Genetics" {
				t.Errorf("Title = %q, want %q", again.Title, "Genetics")
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
			var ids []string
			for i := 0; i < 3; i++ {
				l := newTestLecture(fmt.Sprintf("L%d", i+1), base.Add(time.Duration(i)*time.Minute))
				if err := store.Create(l); err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				ids = append(ids, l.ID)
			}

			lectures, err := store.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(lectures) != 3 {
				t.Fatalf("List() len = %d, want 3", len(lectures))
			}
			want := []string{ids[2], ids[1], ids[0]}
			for i, l := range lectures {
				if l.ID != want[i] {
					t.Errorf("List()[%d] = %s (%s), want %s", i, l.ID, l.Title, want[i])
				}
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			lecture := newTestLecture("Ethics", time.Now())
			if err := store.Create(lecture); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := store.Delete(lecture.ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(lecture.ID); !errors.Is(err, ErrLectureNotFound) {
				t.Errorf("Get() after Delete error = %v, want %v", err, ErrLectureNotFound)
			}
		})
	}
}

func TestConcurrentUpdatesDifferentLectures(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			var lectures []*models.Lecture
			for i := 0; i < 8; i++ {
				l := newTestLecture(fmt.Sprintf("lecture-%d", i), time.Now())
				if err := store.Create(l); err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				lectures = append(lectures, l)
			}

			var wg sync.WaitGroup
			for _, l := range lectures {
				wg.Add(1)
				go func(l *models.Lecture) {
					defer wg.Done()
					notes := "notes for " + l.Title
					if _, err := store.Update(l.ID, func(cur *models.Lecture) error {
						cur.NotesText = &notes
						return nil
					}); err != nil {
						t.Errorf("Update(%s) error = %v", l.ID, err)
					}
				}(l)
			}
			wg.Wait()

			for _, l := range lectures {
				got, _ := store.Get(l.ID)
				if got.NotesText == nil || *got.NotesText != "notes for "+l.Title {
					t.Errorf("lecture %s notes = %v", l.Title, got.NotesText)
				}
			}
		})
	}
}
