package reactive

import (
	"sync"
)

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Listener is called with the new value after a change
type Listener[T any] func(T)

// Signal is the interface for reactive values
type Signal[T any] interface {
	Get() T
	Set(T)
	Subscribe(fn Listener[T]) (unsubscribe func())
}

// State represents a reactive state value. Listeners run on the goroutine
// that called Set, outside the state's locks.
type State[T comparable] struct {
	value T
	mu    sync.RWMutex

	deps   map[uint32]Listener[T]
	nextID uint32
	depsMu sync.RWMutex
}

// NewState creates a new reactive state
func NewState[T comparable](initial T) *State[T] {
	return &State[T]{
		value: initial,
		deps:  make(map[uint32]Listener[T]),
	}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and notifies listeners if it changed
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	changed := s.value != value
	s.value = value
	s.mu.Unlock()

	if !changed {
		return
	}
	if debugLog != nil {
		debugLog("[State] Set changed value to:", value)
	}
	s.notify(value)
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	oldValue := s.value
	s.value = fn(oldValue)
	newValue := s.value
	s.mu.Unlock()

	if oldValue == newValue {
		return
	}
	if debugLog != nil {
		debugLog("[State] Update called, old:", oldValue, "new:", newValue)
	}
	s.notify(newValue)
}

// Subscribe registers fn for future changes. The returned function removes
// the listener and is safe to call more than once.
func (s *State[T]) Subscribe(fn Listener[T]) func() {
	if fn == nil {
		return func() {}
	}

	s.depsMu.Lock()
	s.nextID++
	id := s.nextID
	s.deps[id] = fn
	if debugLog != nil {
		debugLog("[State] Subscribed listener", id, "total deps:", len(s.deps))
	}
	s.depsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.depsMu.Lock()
			delete(s.deps, id)
			s.depsMu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners
func (s *State[T]) Listeners() int {
	s.depsMu.RLock()
	defer s.depsMu.RUnlock()
	return len(s.deps)
}

func (s *State[T]) notify(value T) {
	s.depsMu.RLock()
	deps := make([]Listener[T], 0, len(s.deps))
	for _, fn := range s.deps {
		deps = append(deps, fn)
	}
	s.depsMu.RUnlock()

	// Call listeners outside the lock to allow them to unsubscribe
	for _, fn := range deps {
		fn(value)
	}
}
