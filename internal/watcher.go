package internal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileHandler processes one newly created audio file
type FileHandler func(ctx context.Context, path string) error

// Watcher runs a handler for every audio file created in a directory
type Watcher struct {
	dir       string
	handler   FileHandler
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	settle    time.Duration
	wg        sync.WaitGroup
}

// NewWatcher starts watching dir; at most maxConcurrent handlers run at once
func NewWatcher(dir string, handler FileHandler, maxConcurrent int) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Watcher{
		dir:       dir,
		handler:   handler,
		watcher:   fw,
		semaphore: make(chan struct{}, maxConcurrent),
		settle:    500 * time.Millisecond,
	}, nil
}

// Start blocks until ctx is cancelled, waiting for in-flight handlers before returning
func (w *Watcher) Start(ctx context.Context) error {
	LogInfo("Watching %s (max concurrent: %d, formats: %v)", w.dir, cap(w.semaphore), AllowedUploadExtensions())

	for {
		select {
		case <-ctx.Done():
			LogInfo("Waiting for ongoing processing to complete...")
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !IsAllowedUpload(event.Name) {
				LogDebug("Ignoring non-audio file: %s", event.Name)
				continue
			}

			LogInfo("New audio detected: %s", event.Name)

			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				if err := waitForStableSize(ctx, path, w.settle); err != nil {
					if ctx.Err() == nil {
						LogWarn("Skipping %s: %v", path, err)
					}
					return
				}

				if err := w.handler(ctx, path); err != nil {
					LogError("Failed to process %s: %v", path, err)
				}
			}(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			LogError("Watcher error: %v", err)
		}
	}
}

// waitForStableSize polls path every interval until two consecutive stats
// report the same non-zero size, so a file still being copied is not picked up
func waitForStableSize(ctx context.Context, path string, interval time.Duration) error {
	last := int64(-1)
	for {
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		size := info.Size()
		if size == last {
			if size == 0 {
				return fmt.Errorf("file is empty")
			}
			return nil
		}
		last = size
	}
}

// Stop closes the file watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
