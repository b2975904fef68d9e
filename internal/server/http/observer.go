package http

import (
	"github.com/indigo-web/turnstile/internal/protocol/http1"
)

// Observer is notified about what happens on the connection. Methods are called from the
// connection's goroutine or the one the response was completed on.
type Observer interface {
	// OnRead is called after every attempt to read a request.
	OnRead(status http1.ReadStatus)
	// OnFlush is called after every attempt to write a response out.
	OnFlush(err error)
}

type nopObserver struct{}

func (nopObserver) OnRead(http1.ReadStatus) {}
func (nopObserver) OnFlush(error)           {}

// NopObserver ignores everything.
var NopObserver Observer = nopObserver{}
