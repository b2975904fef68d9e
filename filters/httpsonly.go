package filters

import (
	"net"
	"strings"

	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/status"
)

type HTTPSOnlyParams struct {
	// RedirectTo defines the host, where the user will be redirected.
	// If empty, value from Host header will be used
	RedirectTo string
	// Port is added to the host value, if set.
	Port string
}

// HTTPSOnly is a request filter, redirecting all plain requests to https. In case no Host
// header is provided, 400 Bad Request is returned instead.
func HTTPSOnly(optionalParams ...HTTPSOnlyParams) filter.Filter {
	params := optional(optionalParams, HTTPSOnlyParams{})

	return filter.Func(func(req *http.Request, resp *http.Response) filter.Outcome {
		if req.Env.Encryption != 0 {
			return filter.Continue(req, resp)
		}

		host := params.RedirectTo
		if len(host) == 0 {
			host = removePort(req.Headers.Value("host"))
			if len(host) == 0 {
				return filter.Halt(req, resp.
					Code(status.BadRequest).
					String("no Host header"),
				)
			}
		}

		switch {
		case len(params.Port) > 0:
			host = net.JoinHostPort(host, params.Port)
		case strings.IndexByte(host, ':') != -1:
			host = "[" + host + "]"
		}

		location := "https://" + host + req.Path
		if len(req.Query) > 0 {
			location += "?" + req.Query
		}

		return filter.Halt(req, resp.
			Code(status.MovedPermanently).
			Header("Location", location),
		)
	})
}

// removePort returns the host without the port. IPv6 literals are returned unbracketed.
func removePort(str string) string {
	if host, _, err := net.SplitHostPort(str); err == nil {
		return host
	}

	if strings.HasPrefix(str, "[") && strings.HasSuffix(str, "]") {
		return str[1 : len(str)-1]
	}

	return str
}

func optional[T any](custom []T, default_ T) T {
	if len(custom) == 0 {
		return default_
	}

	return custom[0]
}
