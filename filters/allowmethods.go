package filters

import (
	"strings"

	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/method"
	"github.com/indigo-web/turnstile/http/status"
)

// AllowMethods is a request filter, rejecting requests with methods not listed with
// 405 Method Not Allowed without routing them.
func AllowMethods(methods ...method.Method) filter.Filter {
	var (
		allowed [method.Count]bool
		names   []string
	)

	for _, m := range methods {
		if !allowed[m] {
			names = append(names, m.String())
		}

		allowed[m] = true
	}

	allow := strings.Join(names, ",")

	return filter.Func(func(req *http.Request, resp *http.Response) filter.Outcome {
		if allowed[req.Method] {
			return filter.Continue(req, resp)
		}

		return filter.Halt(req, resp.
			Error(status.ErrMethodNotAllowed).
			Header("Allow", allow),
		)
	})
}
