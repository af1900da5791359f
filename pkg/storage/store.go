package storage

import (
	"errors"
	"sort"

	"lecture-notes/pkg/models"
)

var (
	ErrLectureNotFound = errors.New("lecture not found")
	ErrLectureExists   = errors.New("lecture already exists")
)

// UpdateFunc mutates a lecture inside a single-document transaction.
// Returning an error aborts the update and leaves the stored record untouched.
type UpdateFunc func(l *models.Lecture) error

// LectureStore persists lecture documents keyed by id.
type LectureStore interface {
	Create(lecture *models.Lecture) error
	Get(id string) (*models.Lecture, error)
	Update(id string, fn UpdateFunc) (*models.Lecture, error)
	List() ([]*models.Lecture, error)
	Delete(id string) error
	Close() error
}

// sortNewestFirst orders lectures by descending created_at, breaking ties by id
// so listings are stable.
func sortNewestFirst(lectures []*models.Lecture) {
	sort.SliceStable(lectures, func(i, j int) bool {
		a, b := lectures[i], lectures[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
