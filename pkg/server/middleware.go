package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/metrics"
)

// ClientHints asks browsers for the hints the capability probe reads
type ClientHints struct{}

// Before implements Middleware
func (ClientHints) Before(ctx Ctx) error {
	ctx.SetHeader("Accept-CH", capability.AcceptCH)
	ctx.Header().Add("Vary", capability.AcceptCH)
	return nil
}

// After implements Middleware
func (ClientHints) After(Ctx) error { return nil }

const startKey = "netgraph.start"

// RequestLog logs every routed request at debug level
type RequestLog struct{}

// Before implements Middleware
func (RequestLog) Before(ctx Ctx) error {
	ctx.Set(startKey, time.Now())
	return nil
}

// After implements Middleware
func (RequestLog) After(ctx Ctx) error {
	start, _ := ctx.Get(startKey)
	since, _ := start.(time.Time)
	ctx.Logger().Debug("request handled",
		"status", ctx.StatusCode(),
		"duration", time.Since(since))
	return nil
}

// Instrument records request counts and latencies for every request the
// router receives, including mounted handlers. Paths are labelled by route
// pattern.
func Instrument(reg *metrics.Registry, r *Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		r.ServeHTTP(sw, req)

		pattern := r.Pattern(req.URL.Path)
		if pattern == "" {
			pattern = "unmatched"
		}
		reg.RecordHTTPRequest(req.Method, pattern, strconv.Itoa(sw.status), time.Since(start))
	})
}

// statusWriter captures the response status
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades through
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: response writer cannot be hijacked")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return h.Hijack()
}

// Unwrap is used by http.ResponseController
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
