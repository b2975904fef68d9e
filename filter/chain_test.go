package filter

import (
	"testing"

	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/kv"
	"github.com/indigo-web/turnstile/router"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	visited []string
	routed  int
}

func (r *recorder) filter(name string, kind Kind) Filter {
	return Func(func(req *http.Request, resp *http.Response) Outcome {
		r.visited = append(r.visited, name)
		return Outcome{Kind: kind, Request: req, Response: resp}
	})
}

func (r *recorder) Route(*http.Request, *http.Response) {
	r.visited = append(r.visited, "route")
	r.routed++
}

func newPair() (*http.Request, *http.Response, *int) {
	completed := new(int)
	resp := http.NewResponse()
	resp.OnComplete(func() { *completed++ })

	return http.NewRequest(kv.New(), nil), resp, completed
}

func TestChain(t *testing.T) {
	t.Run("continue through buckets", func(t *testing.T) {
		rec := new(recorder)
		p := NewPipeline(
			With(rec.filter("B", KindContinue), Low),
			With(rec.filter("A", KindContinue), High),
		)
		req, resp, completed := newPair()

		require.Equal(t, Exhausted, NewChain(p, rec).Run(req, resp))
		require.Equal(t, []string{"A", "B", "route"}, rec.visited)
		require.Zero(t, *completed)
	})

	t.Run("execute skips the rest", func(t *testing.T) {
		rec := new(recorder)
		p := NewPipeline(
			With(rec.filter("A", KindExecute), High),
			With(rec.filter("B", KindContinue), Low),
		)
		req, resp, _ := newPair()

		require.Equal(t, Executed, NewChain(p, rec).Run(req, resp))
		require.Equal(t, []string{"A", "route"}, rec.visited)
	})

	t.Run("execute in the middle of a bucket", func(t *testing.T) {
		rec := new(recorder)
		p := NewPipeline(
			With(rec.filter("h1", KindContinue), High),
			With(rec.filter("h2", KindExecute), High),
			With(rec.filter("h3", KindContinue), High),
			With(rec.filter("l1", KindContinue), Low),
		)
		req, resp, _ := newPair()

		NewChain(p, rec).Run(req, resp)
		require.Equal(t, []string{"h1", "h2", "route"}, rec.visited)
		require.Equal(t, 1, rec.routed)
	})

	t.Run("halt never routes", func(t *testing.T) {
		rec := new(recorder)
		p := NewPipeline(
			With(rec.filter("A", KindHalt), High),
			With(rec.filter("B", KindContinue), High),
			With(rec.filter("C", KindContinue), Low),
		)
		req, resp, completed := newPair()

		require.Equal(t, Halted, NewChain(p, rec).Run(req, resp))
		require.Equal(t, []string{"A"}, rec.visited)
		require.Zero(t, rec.routed)
		require.Equal(t, 1, *completed)
	})

	t.Run("empty pipeline routes immediately", func(t *testing.T) {
		rec := new(recorder)
		req, resp, _ := newPair()

		require.Equal(t, Exhausted, NewChain(NewPipeline(), rec).Run(req, resp))
		require.Equal(t, []string{"route"}, rec.visited)
	})

	t.Run("pair is passed along", func(t *testing.T) {
		req, resp, _ := newPair()
		replacement := http.NewRequest(kv.New(), nil)
		replacement.Path = "/replaced"

		p := NewPipeline(
			With(Func(func(_ *http.Request, resp *http.Response) Outcome {
				return Continue(replacement, resp)
			}), High),
			With(Func(func(req *http.Request, resp *http.Response) Outcome {
				require.Same(t, replacement, req)
				return Continue(nil, nil)
			}), Low),
		)

		var routed *http.Request
		r := router.Func(func(req *http.Request, _ *http.Response) {
			routed = req
		})

		NewChain(p, r).Run(req, resp)
		require.Same(t, replacement, routed)
	})

	t.Run("substituted response inherits the completion", func(t *testing.T) {
		req, resp, completed := newPair()
		replacement := http.NewResponse()

		p := NewPipeline(With(Func(func(req *http.Request, _ *http.Response) Outcome {
			return Halt(req, replacement)
		}), High))

		require.Equal(t, Halted, NewChain(p, new(recorder)).Run(req, resp))
		require.Equal(t, 1, *completed)
		require.Nil(t, resp.Completion())
	})

	t.Run("substitute with its own completion keeps both", func(t *testing.T) {
		req, resp, completed := newPair()
		replacement := http.NewResponse()

		var order []string
		resp.OnComplete(func() { order = append(order, "connection"); *completed++ })
		replacement.OnComplete(func() { order = append(order, "own") })

		p := NewPipeline(With(Func(func(req *http.Request, _ *http.Response) Outcome {
			return Halt(req, replacement)
		}), High))

		require.Equal(t, Halted, NewChain(p, new(recorder)).Run(req, resp))
		require.Equal(t, 1, *completed)
		require.Equal(t, []string{"own", "connection"}, order)
		require.Nil(t, resp.Completion())
	})

	t.Run("routed substitute with its own completion", func(t *testing.T) {
		req, resp, completed := newPair()
		replacement := http.NewResponse()
		var own int
		replacement.OnComplete(func() { own++ })

		p := NewPipeline(With(Func(func(req *http.Request, _ *http.Response) Outcome {
			return Continue(req, replacement)
		}), Medium))

		r := router.Func(func(_ *http.Request, resp *http.Response) {
			resp.Complete()
		})

		require.Equal(t, Exhausted, NewChain(p, r).Run(req, resp))
		require.Equal(t, 1, *completed)
		require.Equal(t, 1, own)
	})

	t.Run("dispatch settles the final pair", func(t *testing.T) {
		req, resp, _ := newPair()
		replacement := http.NewRequest(kv.New(), nil)

		p := NewPipeline(With(Func(func(_ *http.Request, resp *http.Response) Outcome {
			return Execute(replacement, resp)
		}), Medium))

		var (
			settledReq  *http.Request
			settledResp *http.Response
		)

		rec := new(recorder)
		terminal := NewChain(p, rec).Dispatch(req, resp, func(req *http.Request, resp *http.Response) {
			require.Zero(t, rec.routed, "must be settled before routing")
			settledReq, settledResp = req, resp
		})

		require.Equal(t, Executed, terminal)
		require.Equal(t, 1, rec.routed)
		require.Same(t, replacement, settledReq)
		require.Same(t, resp, settledResp)
	})

	t.Run("ordering across registrations", func(t *testing.T) {
		rec := new(recorder)
		p := NewPipeline(With(rec.filter("l1", KindContinue), Low))
		p.Register(
			With(rec.filter("m1", KindContinue), Medium),
			With(rec.filter("h1", KindContinue), High),
		)
		req, resp, _ := newPair()

		NewChain(p, rec).Run(req, resp)
		require.Equal(t, []string{"l1", "h1", "m1", "route"}, rec.visited)
	})
}

func TestTraverse(t *testing.T) {
	rec := new(recorder)
	p := NewPipeline(
		With(rec.filter("A", KindContinue), High),
		With(rec.filter("B", KindHalt), Medium),
		With(rec.filter("C", KindContinue), Low),
	)
	req, resp, completed := newPair()

	terminal, _, _ := Traverse(p, req, resp)
	require.Equal(t, Halted, terminal)
	require.Equal(t, []string{"A", "B"}, rec.visited)
	require.Zero(t, *completed, "traversal alone must not complete the response")
}
