package surface

import (
	"sort"
	"sync"
)

// Listener receives lifecycle events of a drawing surface
type Listener interface {
	// SurfaceLost is called when the surface can no longer be drawn on
	SurfaceLost(reason string)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(reason string)

// SurfaceLost implements Listener
func (f ListenerFunc) SurfaceLost(reason string) { f(reason) }

// Hub keeps the listeners attached to one surface
type Hub struct {
	mu        sync.Mutex
	listeners map[uint32]Listener
	nextID    uint32
}

// Attach registers l until the returned detach function is called.
// Calling detach more than once has no further effect.
func (h *Hub) Attach(l Listener) (detach func()) {
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[uint32]Listener)
	}
	h.nextID++
	id := h.nextID
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Attached returns the number of attached listeners
func (h *Hub) Attached() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Lost notifies every attached listener, in attach order, outside the lock
func (h *Hub) Lost(reason string) {
	h.mu.Lock()
	ids := make([]uint32, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, h.listeners[id])
	}
	h.mu.Unlock()

	for _, l := range ls {
		l.SurfaceLost(reason)
	}
}
