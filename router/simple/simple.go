// Package simple provides the most primitive router, calling the same handler for
// every request.
package simple

import (
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/router"
)

type (
	Handler      = router.Handler
	ErrorHandler func(req *http.Request, resp *http.Response, err error)
)

type Router struct {
	handler    Handler
	errHandler ErrorHandler
}

// New returns a router, calling handler for every request. The errHandler may be nil.
func New(handler Handler, errHandler ErrorHandler) *Router {
	return &Router{
		handler:    handler,
		errHandler: errHandler,
	}
}

func (r *Router) Route(req *http.Request, resp *http.Response) {
	r.handler(req, resp)
	resp.Complete()
}

func (r *Router) OnError(req *http.Request, resp *http.Response, err error) {
	if r.errHandler == nil {
		resp.Error(err)
		return
	}

	r.errHandler(req, resp, err)
}
