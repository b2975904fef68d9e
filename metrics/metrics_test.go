package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("connections", func(t *testing.T) {
		c := NewCollector(config.Default().Metrics, nil)
		c.ConnectionOpened()
		c.ConnectionOpened()
		c.ConnectionClosed()

		require.Equal(t, 2.0, testutil.ToFloat64(c.connectionsAccepted))
		require.Equal(t, 1.0, testutil.ToFloat64(c.connectionsActive))
	})

	t.Run("requests and responses", func(t *testing.T) {
		c := NewCollector(config.Default().Metrics, nil)
		c.RequestRead("ok")
		c.RequestRead("ok")
		c.RequestRead("malformed")
		c.ResponseSent(status.OK, 100)
		c.ResponseSent(status.NotFound, 0)
		c.FlushFailed()

		require.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("ok")))
		require.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("malformed")))
		require.Equal(t, 1.0, testutil.ToFloat64(c.responses.WithLabelValues("404")))
		require.Equal(t, 1.0, testutil.ToFloat64(c.flushFailures))
		require.Equal(t, 1, testutil.CollectAndCount(c.responseSize))
	})

	t.Run("handler", func(t *testing.T) {
		c := NewCollector(config.Default().Metrics, nil)
		c.ConnectionOpened()

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		require.True(t, strings.Contains(string(body), "turnstile_connections_accepted_total 1"))
	})
}
