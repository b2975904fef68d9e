package http

import (
	"fmt"
	"log/slog"

	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/internal/protocol/http1"
	"github.com/indigo-web/turnstile/internal/tcp"
	"github.com/indigo-web/turnstile/router"
)

// Setup holds everything shared between the connections. Nothing in there is mutated by
// the server.
type Setup struct {
	Config          *config.Config
	Chain           *filter.Chain
	ResponseFilters *filter.Pipeline
	Router          router.Router
	Observer        Observer
	Logger          *slog.Logger
}

// Server drives a single connection through its whole lifetime. It's not safe to be used
// by multiple goroutines, except of the response completion, which may happen on any.
type Server struct {
	setup    Setup
	client   tcp.Client
	reader   *http1.Reader
	writer   *http1.Writer
	logger   *slog.Logger
	observer Observer
	// request and response are those the connection owns, while req and resp are the pair
	// the request filters settled on. Unless a filter substituted them, they're the same.
	request  *http.Request
	response *http.Response
	req      *http.Request
	resp     *http.Response
	state    state
	next     chan state
}

func NewServer(setup Setup, client tcp.Client, request *http.Request) *Server {
	observer := setup.Observer
	if observer == nil {
		observer = NopObserver
	}

	logger := setup.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		setup:    setup,
		client:   client,
		reader:   http1.NewReader(client, request, setup.Config),
		writer:   http1.NewWriter(client, make([]byte, 0, setup.Config.NET.WriteBufferSize)),
		logger:   logger.With("conn", request.Env.ConnID, "remote", client.Remote()),
		observer: observer,
		request:  request,
		response: http.NewResponse(),
		state:    eIdle,
		next:     make(chan state, 1),
	}
}

// Serve runs the connection until it's closed. The connection is always closed when Serve
// returns.
func (s *Server) Serve() {
	s.transition(eReadingRequest)

	for {
		switch s.state {
		case eReadingRequest:
			s.transition(s.read())
		case eFiltering:
			s.dispatch()
			s.transition(eResponding)
		case eResponding:
			// the router may complete the response from any goroutine, so just wait for it.
			s.transition(<-s.next)
		case eClosed:
			if err := s.client.Close(); err != nil {
				s.logger.Debug("closing connection", "err", err)
			}

			return
		default:
			panic(fmt.Sprintf("BUG: connection is in unexpected state: %s", s.state))
		}
	}
}

func (s *Server) transition(to state) {
	s.logger.Debug("connection state", "from", s.state, "to", to)
	s.state = to
}

func (s *Server) read() state {
	request := s.request
	st, err := s.reader.Read(request)
	s.observer.OnRead(st)

	switch st {
	case http1.ReadOK:
		return eFiltering
	case http1.ReadMalformed:
		s.logger.Debug("malformed request", "err", err)
		request.Env.Error = err
		s.respondError(err)
	case http1.ReadTimeout:
		s.logger.Debug("client stayed idle for too long")
	case http1.ReadClosed:
		s.logger.Debug("connection closed by peer", "err", err)
	default:
		panic(fmt.Sprintf("BUG: unexpected read status: %s", st))
	}

	return eClosed
}

// respondError writes a best-effort response to a malformed request. The connection is going
// to be closed anyway, so neither filters nor the completion protocol are involved.
func (s *Server) respondError(err error) {
	resp := s.response.Clear()
	router.OnError(s.setup.Router, s.request, resp, err)
	resp.SetKeepAlive(false)

	ferr := s.writer.Flush(s.request, resp)
	s.observer.OnFlush(ferr)
}

// dispatch installs the completion protocol and passes the request to the filters and the
// router. It returns as soon as the router does.
func (s *Server) dispatch() {
	request, response := s.request, s.response.Clear()
	response.SetKeepAlive(http1.KeepAlive(request))
	s.req, s.resp = request, response

	// stage 1 is only meaningful if the connection may be reused at all. Handlers may
	// still revoke keep-alive later on, so it checks the flag once again.
	var reuse func()
	if response.KeepAlive() {
		reuse = s.reuseOrClose
	}

	// stage 2 wraps stage 1, so the response is guaranteed to be flushed before the
	// connection is either reused or closed.
	response.OnComplete(func() {
		s.flushThenProceed(reuse)
	})

	s.setup.Chain.Dispatch(request, response, s.settle)
}

func (s *Server) settle(req *http.Request, resp *http.Response) {
	s.req, s.resp = req, resp
}

func (s *Server) reuseOrClose() {
	if s.resp.KeepAlive() {
		s.next <- eReadingRequest
		return
	}

	s.next <- eClosed
}

func (s *Server) flushThenProceed(reuse func()) {
	s.resp.OnComplete(nil)
	req, resp := s.req, s.resp

	if !s.setup.ResponseFilters.Empty() {
		// response filters can't route anything, so both Execute and Halt just stop
		// the traversal.
		_, req, resp = filter.Traverse(s.setup.ResponseFilters, req, resp)
		s.req, s.resp = req, resp
	}

	err := s.writer.Flush(req, resp)
	s.observer.OnFlush(err)
	if err != nil {
		s.logger.Debug("flushing response", "err", err)
		s.next <- eClosed
		return
	}

	if reuse == nil {
		s.next <- eClosed
		return
	}

	reuse()
}
