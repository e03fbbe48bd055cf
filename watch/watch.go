package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceDelay coalesces bursts of file events (editors and export tools
// write many files in quick succession) into a single pipeline run.
const debounceDelay = 500 * time.Millisecond

// Watcher monitors an input tree and re-runs the pipeline when it changes.
type Watcher struct {
	input string
	run   func(context.Context) error
	fsw   *fsnotify.Watcher
}

// New creates a watcher over input that invokes run after changes settle.
func New(input string, run func(context.Context) error) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{input: input, run: run, fsw: fsw}
	if err := w.addRecursive(input); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive watches dir and every directory below it. fsnotify has no
// recursive mode, so new directories are added as their create events
// arrive.
func (w *Watcher) addRecursive(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat input: %w", err)
	}
	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(dir))
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Start blocks until ctx is cancelled, re-running the pipeline whenever
// the input tree changes. Run failures are logged and watching continues.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			// Skip editor temp files
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
					}
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			log.Info().Str("input", w.input).Msg("input changed, re-running pipeline")
			if err := w.run(ctx); err != nil {
				log.Error().Err(err).Msg("pipeline run failed")
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}
