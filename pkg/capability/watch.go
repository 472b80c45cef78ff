package capability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReadReducedMotion reads a system motion preference file. The file holds
// "reduce", "no-preference" or a boolean. A missing file means no preference.
func ReadReducedMotion(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ParseReducedMotion(string(data))
}

// ParseReducedMotion parses the content of a preference file
func ParseReducedMotion(s string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "reduce":
		return true, nil
	case "", "no-preference":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("capability: invalid motion preference %q", v)
	}
	return b, nil
}

// WatchReducedMotion calls fn with the new preference every time the file at
// path changes. Only the preference is re-read; the rest of the snapshot
// stays as detected. The returned stop function detaches the watcher and
// returns after the watch goroutine exited; it is safe to call twice.
func WatchReducedMotion(ctx context.Context, path string, logger *slog.Logger, fn func(bool)) (stop func(), err error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("capability: create watcher: %w", err)
	}

	// The baseline is taken before the watch starts so a write racing the
	// return of this function is compared against the old value.
	last, _ := ReadReducedMotion(path)

	// Watch the directory so editors that replace the file are still seen
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("capability: watch %s: %w", dir, err)
	}

	name := filepath.Clean(path)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				reduced, err := ReadReducedMotion(path)
				if err != nil {
					logger.Warn("ignoring unreadable motion preference", "path", path, "error", err)
					continue
				}
				if reduced == last {
					continue
				}
				last = reduced
				logger.Info("system motion preference changed", "reducedMotion", reduced)
				fn(reduced)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("motion preference watcher error", "error", err)
			}
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			watcher.Close()
			<-done
		})
	}
	return stop, nil
}
