package filter

import (
	"testing"

	"github.com/indigo-web/turnstile/http"
	"github.com/stretchr/testify/require"
)

type named string

func (named) Apply(req *http.Request, resp *http.Response) Outcome {
	return Continue(req, resp)
}

func names(filters []Filter) (out []string) {
	for _, f := range filters {
		out = append(out, string(f.(named)))
	}

	return out
}

func TestPipeline(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p := NewPipeline()
		require.True(t, p.Empty())
		require.Zero(t, p.Len())
		require.Empty(t, p.Flatten())

		var nilPipeline *Pipeline
		require.True(t, nilPipeline.Empty())
	})

	t.Run("ordering", func(t *testing.T) {
		p := NewPipeline(
			With(named("l1"), Low),
			With(named("h1"), High),
			With(named("m1"), Medium),
			With(named("h2"), High),
			With(named("l2"), Low),
		)

		require.Equal(t, []string{"h1", "h2", "m1", "l1", "l2"}, names(p.Flatten()))
		require.Len(t, p.Buckets(), 3)
	})

	t.Run("empty buckets are omitted", func(t *testing.T) {
		p := NewPipeline(
			With(named("l1"), Low),
			With(named("h1"), High),
		)

		buckets := p.Buckets()
		require.Len(t, buckets, 2)
		require.Equal(t, High, buckets[0].Priority)
		require.Equal(t, Low, buckets[1].Priority)
	})

	t.Run("registrations are never merged", func(t *testing.T) {
		p := NewPipeline(With(named("l1"), Low))
		p.Register(With(named("h1"), High), With(named("l2"), Low))

		buckets := p.Buckets()
		require.Len(t, buckets, 3)
		require.Equal(t, []Priority{Low, High, Low}, []Priority{
			buckets[0].Priority, buckets[1].Priority, buckets[2].Priority,
		})
		require.Equal(t, []string{"l1", "h1", "l2"}, names(p.Flatten()))
	})

	t.Run("unknown priority is rejected", func(t *testing.T) {
		p := NewPipeline(With(named("a"), High))

		require.Panics(t, func() {
			p.Register(With(named("b"), Low), Entry{Filter: named("x")})
		})
		require.Equal(t, []string{"a"}, names(p.Flatten()), "nothing of the batch is registered")
	})

	t.Run("validate", func(t *testing.T) {
		require.NoError(t, Validate(With(named("a"), High), With(named("b"), Low)))
		require.ErrorIs(t, Validate(With(named("a"), High), Entry{Filter: named("x")}), ErrUnknownPriority)
		require.ErrorIs(t, Validate(With(named("a"), Priority(4))), ErrUnknownPriority)
		require.ErrorIs(t, Validate(With(nil, Medium)), ErrNilFilter)
	})
}
