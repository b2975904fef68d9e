package filters

import (
	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/metrics"
)

// Metrics is a response filter, counting responses by their status codes.
func Metrics(collector *metrics.Collector) filter.Filter {
	return filter.Func(func(req *http.Request, resp *http.Response) filter.Outcome {
		fields := resp.Reveal()
		collector.ResponseSent(fields.Code, len(fields.Body))

		return filter.Continue(req, resp)
	})
}
