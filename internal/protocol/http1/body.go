package http1

import (
	"io"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/internal/tcp"
)

// body reads the whole request body into the request, either by Content-Length or by
// decoding the chunked transfer coding. Pipelined data following the body is returned
// back into the client.
type body struct {
	client  tcp.Client
	chunked *chunkedbody.Parser
	maxSize uint64
}

func newBody(client tcp.Client, maxSize uint64) *body {
	return &body{
		client:  client,
		chunked: chunkedbody.NewParser(chunkedbody.DefaultSettings()),
		maxSize: maxSize,
	}
}

func (b *body) read(request *http.Request) error {
	switch {
	case request.Chunked:
		return b.readChunked(request)
	case request.ContentLength > 0:
		return b.readPlain(request)
	default:
		return nil
	}
}

func (b *body) readPlain(request *http.Request) error {
	bytesLeft := uint64(request.ContentLength)
	if bytesLeft > b.maxSize {
		return status.ErrBodyTooLarge
	}

	for bytesLeft > 0 {
		data, err := b.client.Read()
		if err != nil {
			return err
		}

		if uint64(len(data)) > bytesLeft {
			b.client.Unread(data[bytesLeft:])
			data = data[:bytesLeft]
		}

		request.Body = append(request.Body, data...)
		bytesLeft -= uint64(len(data))
	}

	return nil
}

func (b *body) readChunked(request *http.Request) error {
	trailer := request.Headers.Has("trailer")

	for {
		data, err := b.client.Read()
		if err != nil {
			return err
		}

		for len(data) > 0 {
			chunk, extra, err := b.chunked.Parse(data, trailer)
			switch err {
			case nil:
			case io.EOF:
				request.Body = append(request.Body, chunk...)
				b.client.Unread(extra)
				return b.checkSize(request)
			default:
				b.chunked = chunkedbody.NewParser(chunkedbody.DefaultSettings())
				return status.ErrBadChunk
			}

			request.Body = append(request.Body, chunk...)
			if err = b.checkSize(request); err != nil {
				return err
			}

			data = extra
		}
	}
}

func (b *body) checkSize(request *http.Request) error {
	if uint64(len(request.Body)) > b.maxSize {
		return status.ErrBodyTooLarge
	}

	return nil
}
