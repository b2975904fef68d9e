package http1

import (
	"errors"
	"io"
	"net"

	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/internal/tcp"
)

// ReadStatus is the outcome of an attempt to read a request.
type ReadStatus uint8

const (
	// ReadOK means a complete request was read.
	ReadOK ReadStatus = iota + 1
	// ReadMalformed means the data received doesn't form a valid request. The error
	// returned alongside is a status.HTTPError describing the problem.
	ReadMalformed
	// ReadTimeout means the client stayed silent for too long.
	ReadTimeout
	// ReadClosed means the peer closed the connection or it broke.
	ReadClosed
)

func (r ReadStatus) String() string {
	switch r {
	case ReadOK:
		return "ok"
	case ReadMalformed:
		return "malformed"
	case ReadTimeout:
		return "timeout"
	case ReadClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reader reads complete requests, including their bodies, from the client.
type Reader struct {
	client tcp.Client
	parser *Parser
	body   *body
}

func NewReader(client tcp.Client, request *http.Request, cfg *config.Config) *Reader {
	return &Reader{
		client: client,
		parser: NewParser(request, cfg),
		body:   newBody(client, cfg.Body.MaxSize),
	}
}

// Read resets the request and fills it with the next one received from the client.
func (r *Reader) Read(request *http.Request) (ReadStatus, error) {
	request.Reset()
	r.parser.Reset()

	for {
		data, err := r.client.Read()
		if err != nil {
			return classify(err), err
		}

		done, extra, err := r.parser.Parse(data)
		if err != nil {
			return ReadMalformed, err
		}

		if done {
			r.client.Unread(extra)
			break
		}
	}

	if err := r.body.read(request); err != nil {
		return classify(err), err
	}

	return ReadOK, nil
}

func classify(err error) ReadStatus {
	switch {
	case tcp.IsTimeout(err):
		return ReadTimeout
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return ReadClosed
	case isProtocolError(err):
		return ReadMalformed
	default:
		return ReadClosed
	}
}

func isProtocolError(err error) bool {
	var httpErr status.HTTPError
	return errors.As(err, &httpErr)
}
