package filter

import "github.com/indigo-web/turnstile/http"

type Kind uint8

const (
	// KindContinue passes the pair to the next filter.
	KindContinue Kind = iota + 1
	// KindExecute skips all the remaining filters and proceeds to routing.
	KindExecute
	// KindHalt terminates the chain. The response is considered complete and routing
	// never happens.
	KindHalt
)

func (k Kind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindExecute:
		return "execute"
	case KindHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Outcome is the result of a single filter invocation. It carries the pair the chain
// proceeds with, which may differ from the one the filter was invoked with. Nil members
// mean the pair is left unchanged.
type Outcome struct {
	Kind     Kind
	Request  *http.Request
	Response *http.Response
}

func Continue(req *http.Request, resp *http.Response) Outcome {
	return Outcome{Kind: KindContinue, Request: req, Response: resp}
}

func Execute(req *http.Request, resp *http.Response) Outcome {
	return Outcome{Kind: KindExecute, Request: req, Response: resp}
}

func Halt(req *http.Request, resp *http.Response) Outcome {
	return Outcome{Kind: KindHalt, Request: req, Response: resp}
}
