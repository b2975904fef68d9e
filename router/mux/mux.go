// Package mux implements a router matching requests by exact path and method.
package mux

import (
	"strings"

	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/method"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/router"
)

type routesMapEntry struct {
	methods [method.Count]router.Handler
	allow   string
}

// Mux is a synchronous router. Routes must be registered before the server starts.
type Mux struct {
	routes   map[string]*routesMapEntry
	notFound router.Handler
}

func New() *Mux {
	return &Mux{
		routes: make(map[string]*routesMapEntry),
		notFound: func(_ *http.Request, resp *http.Response) {
			resp.Error(status.ErrNotFound)
		},
	}
}

// Handle registers a handler for the method and path. Registering the same pair twice
// overrides the previous handler.
func (m *Mux) Handle(meth method.Method, path string, handler router.Handler) *Mux {
	entry, found := m.routes[path]
	if !found {
		entry = new(routesMapEntry)
		m.routes[path] = entry
	}

	entry.methods[meth] = handler
	entry.allow = getAllowString(entry)

	return m
}

func (m *Mux) Get(path string, handler router.Handler) *Mux {
	return m.Handle(method.GET, path, handler)
}

func (m *Mux) Post(path string, handler router.Handler) *Mux {
	return m.Handle(method.POST, path, handler)
}

// NotFound overrides the handler for unknown paths.
func (m *Mux) NotFound(handler router.Handler) *Mux {
	m.notFound = handler
	return m
}

// Route implements router.Router. HEAD requests fall back to GET handlers.
func (m *Mux) Route(req *http.Request, resp *http.Response) {
	m.dispatch(req, resp)
	resp.Complete()
}

func (m *Mux) dispatch(req *http.Request, resp *http.Response) {
	entry, found := m.routes[req.Path]
	if !found {
		m.notFound(req, resp)
		return
	}

	handler := entry.methods[req.Method]
	if handler == nil && req.Method == method.HEAD {
		handler = entry.methods[method.GET]
	}

	if handler == nil {
		resp.
			Error(status.ErrMethodNotAllowed).
			Header("Allow", entry.allow)
		return
	}

	handler(req, resp)
}

func getAllowString(entry *routesMapEntry) string {
	allowed := make([]string, 0, len(entry.methods))

	for i, handler := range entry.methods {
		if handler == nil {
			continue
		}

		allowed = append(allowed, method.Method(i).String())
	}

	return strings.Join(allowed, ",")
}
