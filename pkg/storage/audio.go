package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultAudioExtension = ".webm"

// AudioStore persists uploaded audio bytes under paths derived from lecture ids.
type AudioStore interface {
	Save(lectureID, originalFilename string, data []byte) (string, error)
	Remove(path string) error
}

type fileAudioStore struct {
	dir string
}

func NewFileAudioStore(dir string) (AudioStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &fileAudioStore{dir: dir}, nil
}

// AudioFilename returns the stored file name for a lecture: the id plus the
// original file's extension, or DefaultAudioExtension when it has none.
func AudioFilename(lectureID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalFilename)))
	if ext == "" || ext == "." {
		ext = DefaultAudioExtension
	}
	return lectureID + ext
}

func (s *fileAudioStore) Save(lectureID, originalFilename string, data []byte) (string, error) {
	path := filepath.Join(s.dir, AudioFilename(lectureID, originalFilename))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("sync audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close audio file: %w", err)
	}
	return path, nil
}

func (s *fileAudioStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove audio file: %w", err)
	}
	return nil
}
