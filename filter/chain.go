package filter

import (
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/router"
)

// Terminal describes how the traversal ended.
type Terminal uint8

const (
	// Exhausted means every filter reported Continue. For request chains, the pair was routed.
	Exhausted Terminal = iota + 1
	// Executed means a filter short-circuited by Execute. For request chains, the pair was routed.
	Executed
	// Halted means a filter reported Halt. The pair was never routed and the response was
	// completed directly.
	Halted
)

func (t Terminal) String() string {
	switch t {
	case Exhausted:
		return "exhausted"
	case Executed:
		return "executed"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Chain drives request/response pairs through a request-side pipeline and hands them over
// to the router. It holds no per-request state, so a single instance is shared between all
// the connections.
type Chain struct {
	pipeline *Pipeline
	router   router.Router
}

func NewChain(pipeline *Pipeline, r router.Router) *Chain {
	return &Chain{
		pipeline: pipeline,
		router:   r,
	}
}

// Run traverses the pipeline. Unless halted, the resulting pair is routed exactly once.
// Run performs no I/O by itself and returns as soon as the router returns, which doesn't
// necessarily mean the response is complete.
func (c *Chain) Run(req *http.Request, resp *http.Response) Terminal {
	return c.Dispatch(req, resp, nil)
}

// Dispatch does the same as Run does, except settle is called with the final pair right
// before it's routed or completed. Nil settle is allowed.
func (c *Chain) Dispatch(
	req *http.Request, resp *http.Response, settle func(*http.Request, *http.Response),
) Terminal {
	terminal := Exhausted
	if !c.pipeline.Empty() {
		terminal, req, resp = Traverse(c.pipeline, req, resp)
	}

	if settle != nil {
		settle(req, resp)
	}

	switch terminal {
	case Halted:
		resp.Complete()
	default:
		c.router.Route(req, resp)
	}

	return terminal
}

// Traverse invokes the filters of the pipeline in order until one of them reports Execute
// or Halt, or the pipeline is exhausted. The returned pair is the one reported by the
// last invoked filter. A substituted response takes over the completion slot of the one
// it replaces, see handOver.
func Traverse(p *Pipeline, req *http.Request, resp *http.Response) (Terminal, *http.Request, *http.Response) {
	cur := newCursor(p)

	for {
		filter, ok := cur.current()
		if !ok {
			return Exhausted, req, resp
		}

		outcome := filter.Apply(req, resp)
		if outcome.Request != nil {
			req = outcome.Request
		}
		if outcome.Response != nil && outcome.Response != resp {
			handOver(resp, outcome.Response)
			resp = outcome.Response
		}

		switch outcome.Kind {
		case KindContinue:
			cur.advance()
		case KindExecute:
			return Executed, req, resp
		case KindHalt:
			return Halted, req, resp
		default:
			panic("BUG: filter returned an outcome of unknown kind")
		}
	}
}

// handOver moves the completion slot from the replaced response onto its substitute. If the
// substitute already has a callback of its own, it's invoked first and the moved one right
// after it, so neither of them is lost.
func handOver(from, to *http.Response) {
	moved := from.Completion()
	if moved == nil {
		return
	}

	from.OnComplete(nil)

	own := to.Completion()
	if own == nil {
		to.OnComplete(moved)
		return
	}

	to.OnComplete(func() {
		own()
		moved()
	})
}
