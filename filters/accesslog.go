package filters

import (
	"log/slog"

	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
)

// AccessLog is a response filter, logging every response at the info level.
func AccessLog(logger *slog.Logger) filter.Filter {
	if logger == nil {
		logger = slog.Default()
	}

	return filter.Func(func(req *http.Request, resp *http.Response) filter.Outcome {
		fields := resp.Reveal()
		logger.Info("request",
			"conn", req.Env.ConnID,
			"method", req.Method.String(),
			"path", req.Path,
			"proto", req.Protocol.String(),
			"code", int(fields.Code),
			"bytes", len(fields.Body),
		)

		return filter.Continue(req, resp)
	})
}
