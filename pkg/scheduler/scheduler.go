package scheduler

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when work is posted to a scheduler that is not running
var ErrStopped = errors.New("scheduler: stopped")

// FrameFunc is called once per frame with the time elapsed since Start
type FrameFunc func(elapsed time.Duration)

// ErrorHandler handles panics during a frame callback or posted task.
// Returns true to keep the frame subscription, false to cancel it.
type ErrorHandler func(err error) bool

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Subscription is a frame callback registered with a scheduler
type Subscription struct {
	id        uint32
	fn        FrameFunc
	sched     *Scheduler
	cancelled atomic.Bool
}

// ID returns the subscription's unique ID
func (sub *Subscription) ID() uint32 {
	return sub.id
}

// Cancel removes the subscription. Called on the loop goroutine (from a frame
// callback or posted task) no further frame reaches fn once Cancel returns.
func (sub *Subscription) Cancel() {
	if sub == nil || !sub.cancelled.CompareAndSwap(false, true) {
		return
	}
	sub.sched.mu.Lock()
	delete(sub.sched.subs, sub.id)
	sub.sched.mu.Unlock()
	if debugLog != nil {
		debugLog("[Scheduler] Subscription", sub.id, "cancelled")
	}
}

// Active reports whether the subscription still receives frames
func (sub *Subscription) Active() bool {
	return sub != nil && !sub.cancelled.Load()
}

// Scheduler drives frame callbacks at a fixed rate and runs posted tasks on
// the same goroutine, so everything it calls is serialized.
type Scheduler struct {
	mu       sync.Mutex
	subs     map[uint32]*Subscription
	nextID   uint32
	interval time.Duration

	tasks   chan func()
	stopCh  chan struct{}
	doneCh  chan struct{}
	running atomic.Bool
	started time.Time

	onError ErrorHandler
	now     func() time.Time
}

// NewScheduler creates a scheduler delivering fps frames per second
func NewScheduler(fps int) *Scheduler {
	if fps <= 0 {
		fps = 60
	}
	return &Scheduler{
		subs:     make(map[uint32]*Subscription),
		nextID:   1,
		interval: time.Second / time.Duration(fps),
		tasks:    make(chan func(), 256), // buffered so input bursts never block the host
		now:      time.Now,
	}
}

// Interval returns the time between frames
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// SetErrorHandler sets the handler for panics in callbacks
func (s *Scheduler) SetErrorHandler(handler ErrorHandler) {
	s.onError = handler
}

// RequestFrames subscribes fn to every frame until cancelled
func (s *Scheduler) RequestFrames(fn FrameFunc) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{id: s.nextID, fn: fn, sched: s}
	s.nextID++
	s.subs[sub.id] = sub
	return sub
}

// SubscriptionCount returns the number of active frame subscriptions
func (s *Scheduler) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Post queues fn to run on the loop goroutine
func (s *Scheduler) Post(fn func()) error {
	if !s.running.Load() {
		return ErrStopped
	}
	select {
	case s.tasks <- fn:
		return nil
	case <-s.stopCh:
		return ErrStopped
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		if debugLog != nil {
			debugLog("[Scheduler] Scheduler already running")
		}
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.started = s.now()
	if debugLog != nil {
		debugLog("[Scheduler] Starting scheduler loop at", s.interval)
	}
	go s.loop(s.stopCh, s.doneCh)
}

// Stop stops the loop and waits for it to exit, so no callback runs after
// Stop returns. Stop must not be called from a callback; use RequestStop.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

// RequestStop stops the loop without waiting. Safe from callbacks.
func (s *Scheduler) RequestStop() {
	if s.running.CompareAndSwap(true, false) {
		close(s.stopCh)
	}
}

// Done is closed once the loop goroutine has exited
func (s *Scheduler) Done() <-chan struct{} {
	return s.doneCh
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// loop is the main scheduler event loop
func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			if debugLog != nil {
				debugLog("[Scheduler] Loop ended")
			}
			return
		case fn := <-s.tasks:
			s.runTask(fn)
		case <-ticker.C:
			s.RunFrame(s.now().Sub(s.started))
		}
	}
}

// RunFrame delivers one frame to every subscription in subscription order.
// The loop calls it on every tick; tests may call it directly on a
// scheduler that was never started.
func (s *Scheduler) RunFrame(elapsed time.Duration) {
	s.mu.Lock()
	batch := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		batch = append(batch, sub)
	}
	s.mu.Unlock()
	sort.Slice(batch, func(i, j int) bool { return batch[i].id < batch[j].id })

	for _, sub := range batch {
		// An earlier callback in this frame may have cancelled it
		if sub.cancelled.Load() {
			continue
		}
		s.runFrameFunc(sub, elapsed)
	}
}

// runFrameFunc wraps a frame callback in panic recovery
func (s *Scheduler) runFrameFunc(sub *Subscription, elapsed time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			if !s.handlePanic(r) {
				sub.Cancel()
			}
		}
	}()
	sub.fn(elapsed)
}

func (s *Scheduler) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.handlePanic(r)
		}
	}()
	fn()
}

// handlePanic converts a recovered value into an error for the handler
func (s *Scheduler) handlePanic(r interface{}) bool {
	err := fmt.Errorf("scheduler: callback panic: %v\n%s", r, debug.Stack())
	if debugLog != nil {
		debugLog("[Scheduler]", err)
	}
	if s.onError != nil {
		return s.onError(err)
	}
	return false
}
