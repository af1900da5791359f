package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lecture-notes/pkg/logger"
	"lecture-notes/pkg/models"
	"lecture-notes/pkg/pipeline"
)

// Ingester is the part of the pipeline the watcher drives.
type Ingester interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (*models.Lecture, error)
}

// NewIngestHandler returns a handler that ingests a dropped file as a lecture
// titled after its base name, then moves it into archiveDir. A file whose
// lecture record was never created stays where it is.
func NewIngestHandler(ingester Ingester, archiveDir string, log *logger.Logger) EventHandler {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		base := filepath.Base(path)
		title := strings.TrimSuffix(base, filepath.Ext(base))

		lecture, ingestErr := ingester.Ingest(ctx, pipeline.IngestRequest{
			Metadata: models.LectureMetadata{Title: title},
			Audio:    data,
			Filename: base,
		})
		if lecture == nil {
			return fmt.Errorf("ingest %s: %w", base, ingestErr)
		}

		archived, err := archive(path, archiveDir, lecture.ID)
		if err != nil {
			return errors.Join(ingestErr, err)
		}
		if ingestErr != nil {
			return fmt.Errorf("ingest %s (archived to %s): %w", base, archived, ingestErr)
		}

		log.Info("recording ingested", "lecture_id", lecture.ID, "title", title, "status", string(lecture.Status), "archived", archived)
		return nil
	}
}

func archive(path, archiveDir, lectureID string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	target := filepath.Join(archiveDir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(archiveDir, lectureID+"-"+filepath.Base(path))
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("archive %s: %w", path, err)
	}
	return target, nil
}
