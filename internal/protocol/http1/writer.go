package http1

import (
	"strconv"

	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/method"
	"github.com/indigo-web/turnstile/http/proto"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/internal/tcp"
	"github.com/indigo-web/utils/strcomp"
)

// Writer serializes responses and writes them to the client in a single call.
type Writer struct {
	client tcp.Client
	buff   []byte
}

func NewWriter(client tcp.Client, buff []byte) *Writer {
	return &Writer{
		client: client,
		buff:   buff[:0],
	}
}

// Flush serializes the response to the request and writes it out. The response body is
// omitted for HEAD requests, though Content-Length still reflects its size.
func (w *Writer) Flush(request *http.Request, response *http.Response) error {
	fields := response.Reveal()

	w.appendProtocol(request.Protocol)
	w.appendStatus(fields.Code, fields.Status)

	if len(fields.ContentType) > 0 && hasBody(fields.Code) {
		w.appendKnownHeader("Content-Type: ", fields.ContentType)
	}

	for _, header := range fields.Headers {
		if isManagedHeader(header.Key) {
			continue
		}

		w.buff = append(w.buff, header.Key...)
		w.buff = append(w.buff, ':', ' ')
		w.buff = append(w.buff, header.Value...)
		w.crlf()
	}

	if hasBody(fields.Code) {
		w.buff = append(w.buff, "Content-Length: "...)
		w.buff = strconv.AppendUint(w.buff, uint64(len(fields.Body)), 10)
		w.crlf()
	}

	w.appendConnection(request.Protocol, response.KeepAlive())
	w.crlf()

	if request.Method != method.HEAD && hasBody(fields.Code) {
		w.buff = append(w.buff, fields.Body...)
	}

	err := w.client.Write(w.buff)
	w.buff = w.buff[:0]

	return err
}

func (w *Writer) appendProtocol(protocol proto.Protocol) {
	if protocol == proto.Unknown {
		// the request line might be malformed, so the parser had no chance to reach the protocol.
		protocol = proto.HTTP11
	}

	w.buff = append(w.buff, protocol.String()...)
	w.buff = append(w.buff, ' ')
}

func (w *Writer) appendStatus(code status.Code, text string) {
	if str := status.StringCode(code); len(str) > 0 {
		w.buff = append(w.buff, str...)
	} else {
		// some non-standard code
		w.buff = strconv.AppendUint(w.buff, uint64(code), 10)
	}

	w.buff = append(w.buff, ' ')

	if len(text) == 0 {
		text = status.Text(code)
	}

	w.buff = append(w.buff, text...)
	w.crlf()
}

// appendConnection makes the keep-alive decision explicit for the client. HTTP/1.1 connections
// are persistent by default, and HTTP/1.0 ones are not.
func (w *Writer) appendConnection(protocol proto.Protocol, keepAlive bool) {
	switch {
	case !keepAlive:
		w.appendKnownHeader("Connection: ", "close")
	case protocol == proto.HTTP10:
		w.appendKnownHeader("Connection: ", "keep-alive")
	}
}

func (w *Writer) appendKnownHeader(key, value string) {
	w.buff = append(w.buff, key...)
	w.buff = append(w.buff, value...)
	w.crlf()
}

func (w *Writer) crlf() {
	w.buff = append(w.buff, '\r', '\n')
}

// isManagedHeader reports headers, whose values are derived by the writer itself.
func isManagedHeader(key string) bool {
	return strcomp.EqualFold(key, "content-length") ||
		strcomp.EqualFold(key, "connection") ||
		strcomp.EqualFold(key, "transfer-encoding")
}

// hasBody reports whether responses with the code may carry a body.
func hasBody(code status.Code) bool {
	return code >= 200 && code != status.NoContent && code != status.NotModified
}
