package simple

import (
	"errors"
	"testing"

	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/kv"
	"github.com/indigo-web/turnstile/router"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	t.Run("route completes the response", func(t *testing.T) {
		r := New(func(_ *http.Request, resp *http.Response) {
			resp.Code(status.Teapot)
		}, nil)

		var completed int
		resp := http.NewResponse()
		resp.OnComplete(func() { completed++ })
		r.Route(http.NewRequest(kv.New(), nil), resp)

		require.Equal(t, status.Teapot, resp.Reveal().Code)
		require.Equal(t, 1, completed)
	})

	t.Run("default error handler", func(t *testing.T) {
		resp := http.NewResponse()
		router.OnError(New(nil, nil), http.NewRequest(kv.New(), nil), resp, status.ErrBadRequest)
		require.Equal(t, status.BadRequest, resp.Reveal().Code)
	})

	t.Run("custom error handler", func(t *testing.T) {
		r := New(nil, func(_ *http.Request, resp *http.Response, err error) {
			resp.Code(status.ServiceUnavailable).String("custom: " + err.Error())
		})

		resp := http.NewResponse()
		router.OnError(r, http.NewRequest(kv.New(), nil), resp, errors.New("boom"))
		require.Equal(t, status.ServiceUnavailable, resp.Reveal().Code)
		require.Equal(t, "custom: boom", string(resp.Reveal().Body))
	})
}
