package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/recera/netgraph/pkg/renderer/html"
	"github.com/recera/netgraph/pkg/vdom"
)

// HandlerFunc is the signature for route handlers. The returned tree is
// rendered as the response body; nil means the handler wrote the response.
type HandlerFunc func(ctx Ctx) (*vdom.VNode, error)

// APIHandlerFunc is the signature for API route handlers
type APIHandlerFunc func(ctx Ctx) (any, error)

// Middleware interface for before/after hooks
type Middleware interface {
	Before(ctx Ctx) error // return Stop() to abort chain
	After(ctx Ctx) error  // always called if Before succeeded
}

// RouteNode represents a node in the radix tree
type RouteNode struct {
	segment    string
	pattern    string
	param      bool
	catchAll   bool
	paramName  string
	paramType  string // "string", "int", "uuid"
	handler    HandlerFunc
	apiHandler APIHandlerFunc
	raw        http.Handler
	children   []*RouteNode
	middleware []Middleware
}

// Router manages all routes and middleware
type Router struct {
	root       *RouteNode
	notFound   HandlerFunc
	errorPage  HandlerFunc
	middleware []Middleware
	logger     *slog.Logger
	mu         sync.RWMutex
}

// NewRouter creates a new router instance
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		root: &RouteNode{
			children: make([]*RouteNode, 0),
		},
		middleware: make([]Middleware, 0),
		logger:     logger,
	}
}

// AddRoute registers a page handler for a path
func (r *Router) AddRoute(path string, handler HandlerFunc, middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node := r.insert(path)
	node.handler = handler
	node.middleware = middleware
}

// AddAPIRoute registers an API handler for a path
func (r *Router) AddAPIRoute(path string, handler APIHandlerFunc, middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node := r.insert(path)
	node.apiHandler = handler
	node.middleware = middleware
}

// Mount registers a plain http.Handler. Router middleware does not run for
// mounted handlers since they own the connection, which matters for
// websocket upgrades.
func (r *Router) Mount(path string, handler http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insert(path).raw = handler
}

func (r *Router) insert(path string) *RouteNode {
	node := r.root
	for _, segment := range splitPath(path) {
		node = r.findOrCreateChild(node, segment)
	}
	node.pattern = "/" + strings.Join(splitPath(path), "/")
	return node
}

// Use adds global middleware
func (r *Router) Use(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// SetNotFound sets the 404 handler
func (r *Router) SetNotFound(handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = handler
}

// SetErrorPage sets the 500 error handler
func (r *Router) SetErrorPage(handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorPage = handler
}

// Match finds a handler for the given path
func (r *Router) Match(path string) (HandlerFunc, map[string]string, []Middleware) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	params := make(map[string]string)

	node, matched := r.matchNode(r.root, splitPath(path), params)
	if !matched || (node.handler == nil && node.apiHandler == nil) {
		return r.notFound, params, r.middleware
	}

	// Collect middleware from root to matched node
	allMiddleware := append([]Middleware{}, r.middleware...)
	allMiddleware = append(allMiddleware, node.middleware...)

	// Wrap API handler as regular handler if needed
	if node.apiHandler != nil {
		return wrapAPIHandler(node.apiHandler), params, allMiddleware
	}

	return node.handler, params, allMiddleware
}

// Pattern returns the registered pattern matching path, or "" when no
// route matches. Metrics label requests by pattern.
func (r *Router) Pattern(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, matched := r.matchNode(r.root, splitPath(path), map[string]string{})
	if !matched || (node.handler == nil && node.apiHandler == nil && node.raw == nil) {
		return ""
	}
	return node.pattern
}

func (r *Router) mounted(path string) http.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, matched := r.matchNode(r.root, splitPath(path), map[string]string{})
	if !matched {
		return nil
	}
	return node.raw
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if raw := r.mounted(req.URL.Path); raw != nil {
		raw.ServeHTTP(w, req)
		return
	}

	ctx := NewContext(w, req, r.logger)

	// Find matching route
	handler, params, middleware := r.Match(req.URL.Path)

	// If no handler found, return 404
	if handler == nil {
		ctx.Text(http.StatusNotFound, "Not Found")
		return
	}

	// Set route parameters
	ctx = WithParams(ctx, params)

	// Handle panics
	defer func() {
		if err := recover(); err != nil {
			ctx.Logger().Error("panic in handler", "error", err)
			r.handleError(ctx, fmt.Errorf("internal server error: %v", err))
		}
	}()

	// Build middleware chain
	finalHandler := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := finalHandler
		finalHandler = func(c Ctx) (*vdom.VNode, error) {
			// Execute Before hook
			if err := mw.Before(c); err != nil {
				if err == ErrStop {
					return nil, nil // Middleware handled response
				}
				return nil, err
			}

			// Execute handler
			result, err := next(c)

			// Execute After hook
			if afterErr := mw.After(c); afterErr != nil {
				c.Logger().Error("error in After middleware", "error", afterErr)
			}

			return result, err
		}
	}

	// Execute final handler
	vnode, err := finalHandler(ctx)
	if err != nil {
		r.handleError(ctx, err)
		return
	}

	// If vnode is nil, assume middleware handled the response
	if vnode == nil {
		return
	}

	if err := r.write(ctx, ctx.StatusCode(), vnode); err != nil {
		r.handleError(ctx, err)
	}
}

// write renders vnode with the handler's content type, defaulting to HTML
func (r *Router) write(ctx Ctx, code int, vnode *vdom.VNode) error {
	markup, err := html.RenderToString(vnode)
	if err != nil {
		return fmt.Errorf("failed to render VNode: %w", err)
	}

	contentType := ctx.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	if vnode.Kind == vdom.KindElement && vnode.Tag == "html" {
		markup = "<!DOCTYPE html>" + markup
	}
	return ctx.Write(code, contentType, []byte(markup))
}

// findOrCreateChild finds or creates a child node
func (r *Router) findOrCreateChild(parent *RouteNode, segment string) *RouteNode {
	// Check if it's a parameter segment
	if strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]") {
		paramDef := segment[1 : len(segment)-1]

		// Check for catch-all
		if strings.HasPrefix(paramDef, "...") {
			paramName := paramDef[3:]
			for _, child := range parent.children {
				if child.catchAll && child.paramName == paramName {
					return child
				}
			}
			node := &RouteNode{
				segment:   segment,
				catchAll:  true,
				paramName: paramName,
				paramType: "string",
				children:  make([]*RouteNode, 0),
			}
			parent.children = append(parent.children, node)
			return node
		}

		// Parse param type
		paramName, paramType := parseParamDef(paramDef)

		// Look for existing param node
		for _, child := range parent.children {
			if child.param && child.paramName == paramName {
				return child
			}
		}

		// Create new param node
		node := &RouteNode{
			segment:   segment,
			param:     true,
			paramName: paramName,
			paramType: paramType,
			children:  make([]*RouteNode, 0),
		}
		parent.children = append(parent.children, node)
		return node
	}

	// Static segment
	for _, child := range parent.children {
		if !child.param && !child.catchAll && child.segment == segment {
			return child
		}
	}

	// Create new static node
	node := &RouteNode{
		segment:  segment,
		children: make([]*RouteNode, 0),
	}
	parent.children = append(parent.children, node)
	return node
}

// matchNode attempts to match a path against the tree
func (r *Router) matchNode(node *RouteNode, segments []string, params map[string]string) (*RouteNode, bool) {
	// Base case: no more segments
	if len(segments) == 0 {
		return node, true
	}

	segment := segments[0]
	remaining := segments[1:]

	// Try static match first (highest priority)
	for _, child := range node.children {
		if !child.param && !child.catchAll && child.segment == segment {
			return r.matchNode(child, remaining, params)
		}
	}

	// Try parameter match
	for _, child := range node.children {
		if child.param && validateParam(segment, child.paramType) {
			params[child.paramName] = segment
			if result, ok := r.matchNode(child, remaining, params); ok {
				return result, true
			}
			delete(params, child.paramName)
		}
	}

	// Try catch-all match (lowest priority)
	for _, child := range node.children {
		if child.catchAll {
			params[child.paramName] = strings.Join(segments, "/")
			return child, true
		}
	}

	return nil, false
}

// handleError renders the error page
func (r *Router) handleError(ctx Ctx, err error) {
	ctx.Logger().Error("handler error", "error", err)

	if r.errorPage != nil {
		if vnode, pageErr := r.errorPage(ctx); pageErr == nil && vnode != nil {
			if r.write(ctx, http.StatusInternalServerError, vnode) == nil {
				return
			}
		}
	}

	// Fallback error response
	ctx.Text(http.StatusInternalServerError, "Internal Server Error")
}

// Helper functions

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return []string{}
	}
	return strings.Split(path, "/")
}

func parseParamDef(def string) (name, paramType string) {
	name, paramType, ok := strings.Cut(def, ":")
	if !ok {
		paramType = "string"
	}
	return name, paramType
}

func validateParam(value, paramType string) bool {
	switch paramType {
	case "int":
		for _, r := range value {
			if r < '0' || r > '9' {
				return false
			}
		}
		return len(value) > 0
	case "uuid":
		// Format: 8-4-4-4-12
		if len(value) != 36 {
			return false
		}
		return value[8] == '-' && value[13] == '-' && value[18] == '-' && value[23] == '-'
	default:
		// String accepts anything except empty
		return len(value) > 0
	}
}

func wrapAPIHandler(handler APIHandlerFunc) HandlerFunc {
	return func(ctx Ctx) (*vdom.VNode, error) {
		result, err := handler(ctx)
		if err != nil {
			return nil, err
		}

		// Serialize to JSON
		if err := ctx.JSON(ctx.StatusCode(), result); err != nil {
			return nil, err
		}

		// Return nil to indicate response was handled
		return nil, nil
	}
}
