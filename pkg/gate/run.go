package gate

import (
	"context"
	"errors"

	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/scheduler"
)

// Run drives the gate from sched until ctx is done. Frames come from the
// scheduler loop; the probe result and surface callbacks are posted onto
// the same loop. When ctx ends, the gate is unmounted on the loop and the
// scheduler is stopped before Run returns.
//
// sched must not be running yet; Run starts it. Hosts feed input with
// sched.Post so it is serialized with frames.
func (g *Gate) Run(ctx context.Context, sched *scheduler.Scheduler, probe <-chan capability.Snapshot) error {
	g.exec = func(fn func()) {
		if err := sched.Post(fn); err != nil {
			g.logger.Debug("dropping surface event", "error", err)
		}
	}
	sched.SetErrorHandler(func(err error) bool {
		g.logger.Error("scheduler callback failed", "error", err)
		return true
	})
	g.frames = sched.RequestFrames(g.Frame)
	sched.Start()
	close(g.ready)

	for probe != nil {
		select {
		case snap, ok := <-probe:
			if !ok {
				snap = capability.Conservative()
			}
			probe = nil
			if err := sched.Post(func() { g.Resolve(snap) }); err != nil {
				return err
			}
		case <-ctx.Done():
			g.shutdown(sched)
			return ctx.Err()
		case <-sched.Done():
			return scheduler.ErrStopped
		}
	}

	select {
	case <-ctx.Done():
		g.shutdown(sched)
		return ctx.Err()
	case <-sched.Done():
		return scheduler.ErrStopped
	}
}

// Ready is closed once Run has started the scheduler, after which input may
// be posted to it
func (g *Gate) Ready() <-chan struct{} { return g.ready }

// shutdown unmounts on the loop, then stops it
func (g *Gate) shutdown(sched *scheduler.Scheduler) {
	done := make(chan struct{})
	err := sched.Post(func() {
		g.Unmount()
		close(done)
	})
	if err == nil {
		select {
		case <-done:
		case <-sched.Done():
		}
	}
	sched.Stop()
	if !errors.Is(err, scheduler.ErrStopped) && err != nil {
		g.logger.Warn("gate shutdown", "error", err)
	}
	if !g.unmounted {
		// The loop is gone, so unmounting here cannot race with it
		g.Unmount()
	}
}
