package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lecture-notes/pkg/models"

	"github.com/dgraph-io/badger/v3"
)

const (
	lecturePrefix      = "lecture/"
	maxConflictRetries = 5
)

type diskStore struct {
	db *badger.DB
}

// NewDiskStore opens (or creates) a badger database under path.
func NewDiskStore(path string) (LectureStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	return openDiskStore(opts)
}

// NewInMemoryDiskStore opens a badger database that never touches the filesystem.
func NewInMemoryDiskStore() (LectureStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openDiskStore(opts)
}

func openDiskStore(opts badger.Options) (LectureStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &diskStore{db: db}, nil
}

func lectureKey(id string) []byte {
	return []byte(lecturePrefix + id)
}

func (s *diskStore) Create(lecture *models.Lecture) error {
	data, err := json.Marshal(lecture)
	if err != nil {
		return fmt.Errorf("failed to marshal lecture: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := lectureKey(lecture.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrLectureExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *diskStore) Get(id string) (*models.Lecture, error) {
	var lecture *models.Lecture

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		lecture, err = readLecture(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lecture, nil
}

// Update runs fn inside a badger read-write transaction. Concurrent writers to
// the same key surface as badger.ErrConflict and are retried against the
// fresh document, so the last committed write wins.
func (s *diskStore) Update(id string, fn UpdateFunc) (*models.Lecture, error) {
	var updated *models.Lecture

	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			lecture, err := readLecture(txn, id)
			if err != nil {
				return err
			}
			if err := fn(lecture); err != nil {
				return err
			}
			lecture.ID = id

			data, err := json.Marshal(lecture)
			if err != nil {
				return fmt.Errorf("failed to marshal lecture: %w", err)
			}
			if err := txn.Set(lectureKey(id), data); err != nil {
				return err
			}
			updated = lecture
			return nil
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
}

func (s *diskStore) List() ([]*models.Lecture, error) {
	var lectures []*models.Lecture

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(lecturePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var lecture models.Lecture
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &lecture)
			}); err != nil {
				return fmt.Errorf("failed to decode lecture: %w", err)
			}
			lectures = append(lectures, &lecture)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lectures: %w", err)
	}

	sortNewestFirst(lectures)
	return lectures, nil
}

func (s *diskStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := lectureKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrLectureNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *diskStore) Close() error {
	return s.db.Close()
}

func readLecture(txn *badger.Txn, id string) (*models.Lecture, error) {
	item, err := txn.Get(lectureKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrLectureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lecture: %w", err)
	}

	var lecture models.Lecture
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &lecture)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode lecture: %w", err)
	}
	return &lecture, nil
}
