package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lecture-notes/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".webm": true,
	".ogg":  true,
	".flac": true,
	".mp4":  true,
}

type implWatcher struct {
	inputDir      string
	handler       EventHandler
	log           *logger.Logger
	watcher       *fsnotify.Watcher
	maxConcurrent int
	semaphore     chan struct{}
	// settleDelay gives the writer time to finish before the file is read.
	settleDelay time.Duration
	wg          sync.WaitGroup
}

// Start blocks until ctx is done, then waits for in-flight files.
func (w *implWatcher) Start(ctx context.Context) error {
	w.log.Info("folder watcher started", "dir", w.inputDir, "max_concurrent", w.maxConcurrent)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("waiting for in-flight lectures to finish")
			w.wg.Wait()
			w.log.Info("folder watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !isAudioFile(event.Name) {
				w.log.Debug("ignoring non-audio file", "path", event.Name)
				continue
			}
			w.log.Info("new recording detected", "path", event.Name)

			select {
			case <-time.After(w.settleDelay):
			case <-ctx.Done():
				continue
			}

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()

					if err := w.handler(ctx, path); err != nil {
						w.log.Error("failed to ingest recording", "path", path, "error", err)
					}
				}(event.Name)
			case <-ctx.Done():
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

func isAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}
