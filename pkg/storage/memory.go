package storage

import (
	"sync"

	"lecture-notes/pkg/models"
)

type memoryStore struct {
	lectures map[string]*models.Lecture
	mu       sync.RWMutex
}

// NewMemoryStore returns a LectureStore that keeps everything in process memory.
func NewMemoryStore() LectureStore {
	return &memoryStore{
		lectures: make(map[string]*models.Lecture),
	}
}

func (s *memoryStore) Create(lecture *models.Lecture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lectures[lecture.ID]; exists {
		return ErrLectureExists
	}
	s.lectures[lecture.ID] = lecture.Clone()
	return nil
}

func (s *memoryStore) Get(id string) (*models.Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lecture, exists := s.lectures[id]
	if !exists {
		return nil, ErrLectureNotFound
	}
	return lecture.Clone(), nil
}

func (s *memoryStore) Update(id string, fn UpdateFunc) (*models.Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.lectures[id]
	if !exists {
		return nil, ErrLectureNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	s.lectures[id] = next
	return next.Clone(), nil
}

func (s *memoryStore) List() ([]*models.Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lectures := make([]*models.Lecture, 0, len(s.lectures))
	for _, lecture := range s.lectures {
		lectures = append(lectures, lecture.Clone())
	}
	sortNewestFirst(lectures)
	return lectures, nil
}

func (s *memoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lectures[id]; !exists {
		return ErrLectureNotFound
	}
	delete(s.lectures, id)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
