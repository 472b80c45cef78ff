package live

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/gate"
	"github.com/recera/netgraph/pkg/metrics"
	"github.com/recera/netgraph/pkg/scheduler"
	"github.com/recera/netgraph/pkg/surface"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Session represents a live connection session
type Session struct {
	ID      string
	conn    *websocket.Conn
	logger  *slog.Logger
	metrics *metrics.Registry

	fps      int
	viewport surface.Viewport
	gateOpts gate.Options

	lastSeq   atomic.Uint64
	sendChan  chan []byte
	closeChan chan struct{}
	// done ends waits for room in sendChan
	done <-chan struct{}
}

// Seq returns the number of frames queued so far
func (s *Session) Seq() uint64 {
	return s.lastSeq.Load()
}

// run owns the connection until the client leaves or ctx ends
func (s *Session) run(ctx context.Context, env capability.Environment) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.done = ctx.Done()

	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()
	s.logger.Info("live session started", "remote", s.conn.RemoteAddr().String())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writer()
	}()

	s.deliver("control", EncodeHello(s.ID, s.Seq()))

	surf := surface.NewSVGSurface(s.viewport, s.emit)
	opts := s.gateOpts
	user := opts.OnTransition
	opts.OnTransition = func(from, to gate.State) {
		s.deliver("control", EncodeControl(ControlState, to.String()))
		if user != nil {
			user(from, to)
		}
	}
	g := gate.New(surf, opts)
	// The client reports later changes as events
	g.SetReduceMotion(env.PrefersReducedMotion())
	sched := scheduler.NewScheduler(s.fps)

	gateDone := make(chan error, 1)
	go func() {
		gateDone <- g.Run(ctx, sched, capability.NewProber(env, s.logger).ProbeAsync(ctx))
	}()

	// A blocked read only ends when the connection closes
	go func() {
		select {
		case <-ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			s.conn.Close()
		case <-writerDone:
			s.conn.Close()
		}
	}()

	select {
	case <-g.Ready():
		s.readLoop(sched, surf, g)
	case <-gateDone:
		gateDone <- nil
	}

	cancel()
	if err := <-gateDone; err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("gate stopped", "error", err)
	}
	close(s.closeChan)
	<-writerDone
	s.conn.Close()
	s.logger.Info("live session ended", "frames", s.Seq(), "state", g.State().String())
}

// readLoop decodes client frames and posts their effects to the gate's loop
func (s *Session) readLoop(sched *scheduler.Scheduler, surf *surface.SVGSurface, g *gate.Gate) {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info("live connection closed unexpectedly", "error", err)
			} else {
				s.logger.Debug("live read ended", "error", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		switch MessageType(data[0]) {
		case FrameEvent:
			event, err := DecodeEvent(data)
			if err != nil {
				s.logger.Warn("bad event frame", "error", err)
				continue
			}
			s.metrics.RecordEvent(event.Type.String())
			s.handleEvent(event, sched, surf, g)

		case FrameControl:
			s.handleControl(data)
		}
	}
}

// handleEvent routes a client event. Surface loss goes through the surface
// so the gate only hears it while it is listening.
func (s *Session) handleEvent(event *Event, sched *scheduler.Scheduler, surf *surface.SVGSurface, g *gate.Gate) {
	var task func()
	switch event.Type {
	case EventScroll:
		scroll := float64(event.Scroll)
		task = func() { g.SetScroll(scroll) }
	case EventReduceMotion:
		on := event.On
		task = func() { g.SetReduceMotion(on) }
	case EventPointer:
		x, y := float64(event.X), float64(event.Y)
		task = func() { g.SetPointer(x, y) }
	case EventSurfaceLost:
		reason := event.Message
		if reason == "" {
			reason = "client reported context loss"
		}
		surf.Lost(reason)
		return
	case EventSurfaceRestored:
		task = g.SurfaceRestored
	case EventRenderError:
		err := errors.New(event.Message)
		task = func() { g.RenderError(err) }
	default:
		return
	}
	if err := sched.Post(task); err != nil {
		s.logger.Debug("dropping client event", "event", event.Type.String(), "error", err)
	}
}

func (s *Session) handleControl(data []byte) {
	decoder := NewDecoder(bytes.NewReader(data[1:]))
	msgType, err := decoder.ReadString()
	if err != nil {
		s.logger.Warn("bad control frame", "error", err)
		return
	}

	switch msgType {
	case ControlPing:
		s.enqueue("control", EncodeControl(ControlPong))
	case ControlHello:
		s.logger.Debug("client hello")
	}
}

// emit is the SVG surface's output; it runs on the gate's loop. Mounts
// wait for room in the send buffer. A patch frame that does not fit is
// dropped and reported as surface.ErrDropped, so the surface remounts.
func (s *Session) emit(u surface.Update) error {
	if u.Root != nil {
		data, err := EncodeMount(u.Mode.String(), u.Root)
		if err != nil {
			return err
		}
		return s.deliver("mount", data)
	}
	if len(u.Patches) == 0 {
		return nil
	}
	data, err := EncodePatches(u.Patches)
	if err != nil {
		return err
	}
	if err := s.enqueue("patches", data); err != nil {
		return fmt.Errorf("%w: %w", surface.ErrDropped, err)
	}
	return nil
}

// enqueue hands a frame to the writer without blocking
func (s *Session) enqueue(kind string, data []byte) error {
	select {
	case <-s.closeChan:
		return ErrSessionClosed
	default:
	}
	select {
	case s.sendChan <- data:
		s.sent(kind, data)
		return nil
	default:
		s.logger.Debug("send buffer full, dropping frame", "kind", kind)
		return ErrSendBufferFull
	}
}

// deliver queues a frame the client cannot do without: mounts and state
// changes. It waits up to writeWait for the writer to make room.
func (s *Session) deliver(kind string, data []byte) error {
	if err := s.enqueue(kind, data); !errors.Is(err, ErrSendBufferFull) {
		return err
	}
	timer := time.NewTimer(writeWait)
	defer timer.Stop()

	select {
	case s.sendChan <- data:
		s.sent(kind, data)
		return nil
	case <-s.closeChan:
		return ErrSessionClosed
	case <-s.done:
		return ErrSessionClosed
	case <-timer.C:
		s.logger.Warn("client not reading, dropping frame", "kind", kind)
		return ErrSendBufferFull
	}
}

func (s *Session) sent(kind string, data []byte) {
	s.lastSeq.Add(1)
	s.metrics.RecordFrameSent(kind, len(data))
}

// writer handles writing messages to the WebSocket
func (s *Session) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				s.logger.Debug("live write failed", "error", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.closeChan:
			return
		}
	}
}
