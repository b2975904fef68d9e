package filters

import (
	"context"

	"github.com/google/uuid"
	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
)

const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID is a request filter, assigning every request an identifier. An identifier sent
// by the client is propagated, if it's a valid UUID. The identifier is echoed in the
// response and can be obtained from the request context via RequestIDFrom.
func RequestID() filter.Filter {
	return filter.Func(func(req *http.Request, resp *http.Response) filter.Outcome {
		id := req.Headers.Value(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			req.Headers.Set(RequestIDHeader, id)
		}

		req.Ctx = context.WithValue(req.Ctx, requestIDKey{}, id)

		return filter.Continue(req, resp.Header(RequestIDHeader, id))
	})
}

// RequestIDFrom returns the identifier assigned by RequestID.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
