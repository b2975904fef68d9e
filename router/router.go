package router

import (
	"github.com/indigo-web/turnstile/http"
)

// Router maps a filtered request to the application logic. The router is responsible for
// populating the response and must eventually call resp.Complete(), either synchronously
// or from any other goroutine. The connection stays suspended until it does.
type Router interface {
	Route(req *http.Request, resp *http.Response)
}

// ErrorHandler may optionally be implemented by a Router in order to customize responses
// to malformed requests. The connection is closed after such a response anyway.
type ErrorHandler interface {
	OnError(req *http.Request, resp *http.Response, err error)
}

// Handler is a synchronous request handler. Unlike Router, it doesn't need to care about
// completing the response.
type Handler func(req *http.Request, resp *http.Response)

// Func is an asynchronous Router in a form of a function.
type Func func(req *http.Request, resp *http.Response)

func (f Func) Route(req *http.Request, resp *http.Response) {
	f(req, resp)
}

// Sync wraps a synchronous handler, so the response is completed as soon as the handler
// returns.
func Sync(handler Handler) Router {
	return Func(func(req *http.Request, resp *http.Response) {
		handler(req, resp)
		resp.Complete()
	})
}

// OnError fills the response for a request failed with err, consulting the router if it
// implements ErrorHandler.
func OnError(r Router, req *http.Request, resp *http.Response, err error) {
	if handler, ok := r.(ErrorHandler); ok {
		handler.OnError(req, resp, err)
		return
	}

	resp.Error(err)
}
