package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
)

var (
	// ErrStop is a sentinel error used by middleware to stop the chain
	ErrStop = errors.New("netgraph: stop middleware chain")
)

// Stop returns the sentinel error to halt middleware chain execution
func Stop() error {
	return ErrStop
}

// Ctx is the canonical interface passed through routing, middleware, and page handlers
type Ctx interface {
	// === Request ===
	Request() *http.Request  // raw request pointer (read-only)
	Path() string            // path without query string
	Method() string          // GET, POST, etc.
	Query() url.Values       // parsed query params
	Param(key string) string // route param, panics if missing

	// === Response ===
	Status(code int)                                    // set HTTP status (default 200)
	StatusCode() int                                    // current status
	Header() http.Header                                // writeable headers
	SetHeader(key, val string)                          // convenience
	Redirect(url string, code int)                      // sets 30x + Location header
	JSON(code int, v any) error                         // serialise & write JSON
	Text(code int, msg string) error                    // write text/plain
	Write(code int, contentType string, b []byte) error // write a raw body
	Written() bool                                      // whether the response has started

	// === Request-scoped values ===
	Set(key string, v any)
	Get(key string) (any, bool)

	// === Internal ===
	Done() <-chan struct{} // cancellation signal (ctx.Context style)
	Logger() *slog.Logger  // structured logger
}

// ctxImpl is the internal implementation of Ctx
type ctxImpl struct {
	req           *http.Request
	w             http.ResponseWriter
	params        map[string]string
	values        map[string]any
	statusCode    int
	logger        *slog.Logger
	headerWritten bool
	mu            sync.RWMutex
}

// NewContext creates a new context for handling a request
func NewContext(w http.ResponseWriter, r *http.Request, logger *slog.Logger) Ctx {
	if logger == nil {
		logger = slog.Default()
	}
	return &ctxImpl{
		req:        r,
		w:          w,
		params:     make(map[string]string),
		statusCode: http.StatusOK,
		logger: logger.With(
			"path", r.URL.Path,
			"method", r.Method,
		),
	}
}

// WithParams returns a new context with route parameters set
func WithParams(ctx Ctx, params map[string]string) Ctx {
	if impl, ok := ctx.(*ctxImpl); ok {
		impl.mu.Lock()
		impl.params = params
		impl.mu.Unlock()
	}
	return ctx
}

// === Request Methods ===

func (c *ctxImpl) Request() *http.Request {
	return c.req
}

func (c *ctxImpl) Path() string {
	return c.req.URL.Path
}

func (c *ctxImpl) Method() string {
	return c.req.Method
}

func (c *ctxImpl) Query() url.Values {
	return c.req.URL.Query()
}

func (c *ctxImpl) Param(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.params[key]
	if !ok {
		panic("netgraph: route parameter '" + key + "' not found")
	}
	return val
}

// === Response Methods ===

func (c *ctxImpl) Status(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.headerWritten {
		c.logger.Warn("attempted to set status after headers written", "code", code)
		return
	}
	c.statusCode = code
}

func (c *ctxImpl) StatusCode() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusCode
}

func (c *ctxImpl) Header() http.Header {
	return c.w.Header()
}

func (c *ctxImpl) SetHeader(key, val string) {
	c.w.Header().Set(key, val)
}

func (c *ctxImpl) Written() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headerWritten
}

// begin marks the response as started; false means it already was
func (c *ctxImpl) begin(code int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.headerWritten {
		c.logger.Warn("response already written", "code", code)
		return false
	}
	c.statusCode = code
	c.headerWritten = true
	return true
}

func (c *ctxImpl) Redirect(url string, code int) {
	if !c.begin(code) {
		return
	}
	http.Redirect(c.w, c.req, url, code)
}

func (c *ctxImpl) JSON(code int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(code, "application/json", append(body, '\n'))
}

func (c *ctxImpl) Text(code int, msg string) error {
	return c.Write(code, "text/plain; charset=utf-8", []byte(msg))
}

func (c *ctxImpl) Write(code int, contentType string, b []byte) error {
	if !c.begin(code) {
		return nil
	}
	c.w.Header().Set("Content-Type", contentType)
	c.w.WriteHeader(code)

	_, err := c.w.Write(b)
	return err
}

// === Values ===

func (c *ctxImpl) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

func (c *ctxImpl) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *ctxImpl) Done() <-chan struct{} {
	return c.req.Context().Done()
}

func (c *ctxImpl) Logger() *slog.Logger {
	return c.logger
}
