package http1

import (
	"bytes"
	"strconv"

	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/method"
	"github.com/indigo-web/turnstile/http/proto"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// Parser is a stream-based HTTP/1.x request head parser. It accumulates the head until the
// empty line is met, and then fills the request in one pass. Strings in the request point
// directly into the parser's buffer, so they're valid only until the next request is parsed.
// The body isn't touched by the parser at all.
type Parser struct {
	request     *http.Request
	head        []byte
	maxHead     int
	maxLine     int
	maxHeaders  int
	headersSeen int
}

func NewParser(request *http.Request, cfg *config.Config) *Parser {
	return &Parser{
		request:    request,
		head:       make([]byte, 0, cfg.Headers.Space.Default),
		maxHead:    cfg.Headers.Space.Maximal,
		maxLine:    cfg.URI.RequestLineSize,
		maxHeaders: cfg.Headers.Number.Maximal,
	}
}

// Parse feeds the next piece of data. When the head is complete, done is set and extra
// holds the rest of the data, which belongs to the body or to the next request.
func (p *Parser) Parse(data []byte) (done bool, extra []byte, err error) {
	if len(p.head) == 0 {
		// empty lines preceding the request line are ignored
		data = bytes.TrimLeft(data, "\r\n")
		if len(data) == 0 {
			return false, nil, nil
		}
	}

	scanFrom := max(len(p.head)-3, 0)
	consumed := len(p.head)
	p.head = append(p.head, data...)

	end := headEnd(p.head, scanFrom)
	if end == -1 {
		if len(p.head) > p.maxHead {
			p.Reset()
			return false, nil, status.ErrHeaderFieldsTooLarge
		}

		return false, nil, nil
	}

	if end > p.maxHead {
		p.Reset()
		return false, nil, status.ErrHeaderFieldsTooLarge
	}

	extra = data[end-consumed:]
	err = p.parseHead(p.head[:end])
	p.head = p.head[:0]

	return true, extra, err
}

// Reset discards a partially received head.
func (p *Parser) Reset() {
	p.head = p.head[:0]
	p.headersSeen = 0
}

// headEnd returns the offset right after the empty line terminating the head, or -1 if
// there's none yet. Bare LF line endings are tolerated.
func headEnd(b []byte, from int) int {
	for {
		lf := bytes.IndexByte(b[from:], '\n')
		if lf == -1 {
			return -1
		}

		lf += from
		switch {
		case lf+1 < len(b) && b[lf+1] == '\n':
			return lf + 2
		case lf+2 < len(b) && b[lf+1] == '\r' && b[lf+2] == '\n':
			return lf + 3
		}

		from = lf + 1
	}
}

func (p *Parser) parseHead(head []byte) error {
	request := p.request
	p.headersSeen = 0

	lf := bytes.IndexByte(head, '\n')
	requestLine := trimCR(head[:lf])
	if len(requestLine) > p.maxLine {
		return status.ErrTooLongRequestLine
	}

	if err := p.parseRequestLine(requestLine); err != nil {
		return err
	}

	head = head[lf+1:]
	var contentLength []byte

	for {
		lf = bytes.IndexByte(head, '\n')
		line := trimCR(head[:lf])
		head = head[lf+1:]
		if len(line) == 0 {
			break
		}

		if line[0] == ' ' || line[0] == '\t' {
			// obsolete line folding
			return status.ErrBadRequest
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return status.ErrBadRequest
		}

		p.headersSeen++
		if p.headersSeen > p.maxHeaders {
			return status.ErrTooManyHeaders
		}

		key := uf.B2S(line[:colon])
		value := bytes.TrimSpace(line[colon+1:])
		request.Headers.Add(key, uf.B2S(value))

		switch {
		case strcomp.EqualFold(key, "content-length"):
			if contentLength != nil && !bytes.Equal(contentLength, value) {
				return status.ErrBadContentLength
			}

			contentLength = value
		case strcomp.EqualFold(key, "transfer-encoding"):
			if err := p.parseTransferEncoding(uf.B2S(value)); err != nil {
				return err
			}
		case strcomp.EqualFold(key, "connection"):
			request.Connection = uf.B2S(value)
		}
	}

	if contentLength != nil {
		if request.Chunked {
			return status.ErrBadRequest
		}

		length, err := strconv.ParseUint(uf.B2S(contentLength), 10, 63)
		if err != nil || contentLength[0] == '+' {
			return status.ErrBadContentLength
		}

		request.ContentLength = int(length)
	}

	return nil
}

func (p *Parser) parseRequestLine(line []byte) error {
	request := p.request

	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return status.ErrBadRequest
	}

	request.Method = method.Parse(uf.B2S(line[:sp]))
	if request.Method == method.Unknown {
		return status.ErrMethodNotImplemented
	}

	line = line[sp+1:]
	sp = bytes.LastIndexByte(line, ' ')
	if sp == -1 {
		return status.ErrBadRequest
	}

	target, protocol := line[:sp], line[sp+1:]
	request.Protocol = proto.FromBytes(protocol)
	if request.Protocol == proto.Unknown {
		request.Protocol = proto.HTTP11
		return status.ErrHTTPVersionNotSupported
	}

	if query := bytes.IndexByte(target, '?'); query != -1 {
		request.Query = uf.B2S(target[query+1:])
		target = target[:query]
	}

	target = stripAbsoluteForm(target)
	switch {
	case len(target) == 0:
		return status.ErrBadRequest
	case target[0] == '*' && len(target) == 1:
	case target[0] != '/':
		return status.ErrBadRequest
	}

	path, err := decodeURI(target)
	if err != nil {
		return err
	}

	request.Path = uf.B2S(path)
	return nil
}

// parseTransferEncoding accepts only chunked, the only transfer coding the server supports.
// Chunked must be the last coding applied.
func (p *Parser) parseTransferEncoding(value string) error {
	for len(value) > 0 {
		var token string
		token, value = cutToken(value)
		if len(token) == 0 {
			continue
		}

		if !strcomp.EqualFold(token, "chunked") || p.request.Chunked {
			return status.NewError(status.NotImplemented, "unsupported transfer encoding")
		}

		p.request.Chunked = true
	}

	return nil
}

// stripAbsoluteForm turns http://host/path into /path.
func stripAbsoluteForm(target []byte) []byte {
	scheme := bytes.Index(target, []byte("://"))
	if scheme == -1 || bytes.IndexByte(target[:scheme], '/') != -1 {
		return target
	}

	rest := target[scheme+3:]
	slash := bytes.IndexByte(rest, '/')
	if slash == -1 {
		return []byte("/")
	}

	return rest[slash:]
}

func decodeURI(src []byte) ([]byte, error) {
	if bytes.IndexByte(src, '%') == -1 {
		return src, nil
	}

	dst := src[:0]
	for i := 0; i < len(src); i++ {
		if src[i] != '%' {
			dst = append(dst, src[i])
			continue
		}

		if i+2 >= len(src) {
			return nil, status.ErrURLDecoding
		}

		hi, lo := unhex(src[i+1]), unhex(src[i+2])
		if hi == 0xff || lo == 0xff {
			return nil, status.ErrURLDecoding
		}

		dst = append(dst, hi<<4|lo)
		i += 2
	}

	return dst, nil
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	default:
		return 0xff
	}
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}

	return line
}
