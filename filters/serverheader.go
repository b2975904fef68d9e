// Package filters provides commonly used request and response filters.
package filters

import (
	"strings"

	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
)

const DefaultServerHeader = "turnstile"

// ServerHeader is a response filter, setting the Server header.
func ServerHeader(names ...string) filter.Filter {
	value := strings.Join(names, " ")
	if len(value) == 0 {
		value = DefaultServerHeader
	}

	return filter.Func(func(req *http.Request, resp *http.Response) filter.Outcome {
		return filter.Continue(req, resp.Header("Server", value))
	})
}
