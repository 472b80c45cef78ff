package live

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/gate"
	"github.com/recera/netgraph/pkg/metrics"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/surface"
)

// DefaultPrefix is the path the live endpoint is mounted under
const DefaultPrefix = "/live/"

// NewSessionID asks the server to allocate the session id
const NewSessionID = "new"

var (
	// ErrSessionExists is returned when a session id is already connected
	ErrSessionExists = errors.New("live: session already connected")
	// ErrSendBufferFull is returned when a client does not keep up with frames
	ErrSendBufferFull = errors.New("live: send buffer full")
	// ErrSessionClosed is returned when sending on a finished session
	ErrSessionClosed = errors.New("live: session closed")
)

// Query parameters a client may use to report capabilities its connection
// headers cannot carry
var queryHints = map[string]string{
	"graphics": capability.HeaderGraphics,
	"cores":    capability.HeaderCores,
	"touch":    capability.HeaderTouch,
	"dpr":      capability.HeaderDPR,
	"memory":   capability.HeaderDeviceMemory,
	"motion":   capability.HeaderReducedMotion,
	"mobile":   capability.HeaderMobile,
}

// Options configures a live server
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Registry

	// Prefix is stripped from the request path to find the session id
	Prefix string
	// FPS is the frame rate of every session's scheduler
	FPS int
	// Viewport sizes the SVG surface
	Viewport surface.Viewport
	// Gate is the template for every session's gate. Generator and
	// OnTransition are replaced per session.
	Gate gate.Options
	// Seed makes scenes reproducible; 0 seeds every session from the clock
	Seed int64
	// SendBuffer is the number of frames queued per client
	SendBuffer int
	// CheckOrigin overrides the websocket origin check
	CheckOrigin func(r *http.Request) bool
}

// Server handles WebSocket connections for live updates. Every session owns
// one gate running on its own scheduler.
type Server struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewServer creates a new live protocol server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.Viewport == (surface.Viewport{}) {
		opts.Viewport = surface.DefaultViewport
	}
	if opts.Gate.Metrics == nil {
		opts.Gate.Metrics = opts.Metrics
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = sameOrigin
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:   opts,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// sameOrigin accepts requests without an Origin header and requests whose
// Origin host matches the Host header
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, host, ok := strings.Cut(origin, "://")
	return ok && strings.EqualFold(host, r.Host)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.HandleWebSocket(w, r)
}

// HandleWebSocket handles WebSocket upgrade and session management
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Extract session ID from path
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, s.opts.Prefix), "/")
	switch sessionID {
	case "", NewSessionID:
		sessionID = uuid.NewString()
	default:
		if _, err := uuid.Parse(sessionID); err != nil {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}
	}
	if s.ctx.Err() != nil {
		http.Error(w, "server closing", http.StatusServiceUnavailable)
		return
	}
	if _, exists := s.GetSession(sessionID); exists {
		http.Error(w, ErrSessionExists.Error(), http.StatusConflict)
		return
	}

	env := capability.RequestEnvironment{Header: hintHeaders(r)}

	// Upgrade connection
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := s.newSession(sessionID, conn)
	if err := s.register(session); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.RemoveSession(sessionID)
		session.run(s.ctx, env)
	}()
}

// hintHeaders merges capability query parameters into a copy of the
// request headers. Headers sent by the browser win.
func hintHeaders(r *http.Request) http.Header {
	h := r.Header.Clone()
	q := r.URL.Query()
	for param, header := range queryHints {
		if v := q.Get(param); v != "" && h.Get(header) == "" {
			h.Set(header, v)
		}
	}
	return h
}

func (s *Server) newSession(id string, conn *websocket.Conn) *Session {
	opts := s.opts.Gate
	opts.Logger = s.logger.With("session", id)
	opts.Generator = scene.NewGenerator(s.source())

	return &Session{
		ID:        id,
		conn:      conn,
		logger:    opts.Logger,
		metrics:   s.opts.Metrics,
		fps:       s.opts.FPS,
		viewport:  s.opts.Viewport,
		gateOpts:  opts,
		sendChan:  make(chan []byte, s.opts.SendBuffer),
		closeChan: make(chan struct{}),
	}
}

func (s *Server) source() rand.Source {
	if s.opts.Seed == 0 {
		return nil
	}
	return rand.NewSource(s.opts.Seed)
}

func (s *Server) register(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return ErrSessionExists
	}
	s.sessions[session.ID] = session
	return nil
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// RemoveSession removes a session
func (s *Server) RemoveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// SessionCount returns the number of connected sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close disconnects every session and waits for their gates to unmount
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}
