// Package prefs persists the user's reduce-motion preference. The store
// holds one boolean; until the user sets it, the system preference applies.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/recera/netgraph/pkg/reactive"
)

// DefaultFile is the preference file name inside the config directory
const DefaultFile = "prefs.json"

// File is the on-disk layout of the preference file
type File struct {
	// ReduceMotion is nil while the user has not chosen
	ReduceMotion *bool `json:"reduceMotion,omitempty"`
}

// Store is the reduce-motion preference. Reads go through a reactive state
// so the render gate can subscribe to changes.
type Store struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	explicit *bool
	system   bool

	// pub serializes publishes so the state always ends on the latest value
	pub   sync.Mutex
	state *reactive.State[bool]
}

// DefaultPath returns the preference file in the user config directory
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultFile
	}
	return filepath.Join(dir, "netgraph", DefaultFile)
}

// Open loads the preference file at path. A missing file is not an error;
// the store then follows systemDefault. An empty path gives a memory-only
// store.
func Open(path string, systemDefault bool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger, system: systemDefault}

	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.explicit = f.ReduceMotion
	s.state = reactive.NewState(s.effective())
	return s, nil
}

func readFile(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("prefs: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("prefs: parse %s: %w", path, err)
	}
	return f, nil
}

// effective must be called with mu held or before the store is shared
func (s *Store) effective() bool {
	if s.explicit != nil {
		return *s.explicit
	}
	return s.system
}

// ReduceMotion returns the effective preference
func (s *Store) ReduceMotion() bool {
	return s.state.Get()
}

// Explicit reports whether the user has chosen a value
func (s *Store) Explicit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explicit != nil
}

// State exposes the effective preference as a signal
func (s *Store) State() reactive.Signal[bool] {
	return s.state
}

// Subscribe registers fn for changes of the effective preference
func (s *Store) Subscribe(fn func(bool)) func() {
	return s.state.Subscribe(fn)
}

// SetReduceMotion records the user's choice and persists it
func (s *Store) SetReduceMotion(v bool) error {
	s.mu.Lock()
	s.explicit = &v
	err := s.save()
	s.mu.Unlock()

	s.publish()
	return err
}

// Toggle flips the effective preference and persists the result
func (s *Store) Toggle() (bool, error) {
	v := !s.ReduceMotion()
	return v, s.SetReduceMotion(v)
}

// Reset forgets the user's choice so the system preference applies again
func (s *Store) Reset() error {
	s.mu.Lock()
	s.explicit = nil
	err := s.save()
	s.mu.Unlock()

	s.publish()
	return err
}

// SetSystemDefault updates the system preference. It only changes the
// effective value while the user has not chosen one.
func (s *Store) SetSystemDefault(v bool) {
	s.mu.Lock()
	s.system = v
	s.mu.Unlock()

	s.publish()
}

// publish pushes the current effective value to subscribers. The value is
// read under pub, so of two racing writers the later publish carries the
// newer value. Listeners must not call back into the setters.
func (s *Store) publish() {
	s.pub.Lock()
	defer s.pub.Unlock()

	s.mu.Lock()
	v := s.effective()
	s.mu.Unlock()

	s.state.Set(v)
}

// save must be called with mu held
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(File{ReduceMotion: s.explicit}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("prefs: create dir: %w", err)
	}

	// Write then rename so watchers never see a half-written file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("prefs: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("prefs: replace %s: %w", s.path, err)
	}
	s.logger.Debug("saved motion preference", "path", s.path, "explicit", s.explicit != nil)
	return nil
}

// reload re-reads the file after an external change
func (s *Store) reload() {
	f, err := readFile(s.path)
	if err != nil {
		s.logger.Warn("ignoring unreadable preference file", "error", err)
		return
	}

	s.mu.Lock()
	s.explicit = f.ReduceMotion
	s.mu.Unlock()

	s.publish()
}

// Watch reloads the store when another process edits the preference file.
// The returned stop function waits for the watch goroutine to exit.
func (s *Store) Watch(ctx context.Context) (stop func(), err error) {
	if s.path == "" {
		return func() {}, nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prefs: create dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("prefs: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("prefs: watch %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
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
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					s.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("preference watcher error", "error", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			watcher.Close()
			<-done
		})
	}, nil
}
