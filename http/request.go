package http

import (
	"context"
	"net"

	"github.com/indigo-web/turnstile/http/method"
	"github.com/indigo-web/turnstile/http/proto"
	"github.com/indigo-web/turnstile/kv"
)

var zeroContext = context.Background()

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// Request represents HTTP request. A single instance is allocated per connection and reused
// for every request made over it, so nothing must be retained after the response is completed,
// unless it was explicitly copied.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path is the decoded request path, without the query.
	Path string
	// Query holds the raw (still urlencoded) query string, excluding the leading question mark.
	Query string
	// Protocol is the enum of a protocol used for the request.
	Protocol proto.Protocol
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive.
	Headers Headers
	commonHeaders
	// Body holds the whole request body. It is empty if the request had none.
	Body []byte
	// Remote holds the remote address.
	Remote net.Addr
	// Ctx is user-managed context. It's reset after each request.
	Ctx context.Context
	// Env contains a fixed set of contextual values describing the connection and the server.
	Env Environment
}

func NewRequest(headers Headers, remote net.Addr) *Request {
	return &Request{
		Method:   method.Unknown,
		Protocol: proto.HTTP11,
		Headers:  headers,
		Remote:   remote,
		Ctx:      zeroContext,
	}
}

// Reset prepares the request for being filled by the next one. Connection-wide environment
// values are preserved.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	r.Query = ""
	r.Protocol = proto.HTTP11
	r.Headers.Clear()
	r.commonHeaders = commonHeaders{}
	r.Body = r.Body[:0]
	r.Ctx = zeroContext
	r.Env.Error = nil
}

type Environment struct {
	// ConnID uniquely identifies the connection the request came from.
	ConnID string
	// Encryption represents the cryptographic protocol on top of the connection. They're
	// comparable against the tls.Version... enums. Zero value means no encryption.
	Encryption uint16
	// ServerName is the canonical name of the server.
	ServerName string
	// DocumentRoot is the configured document root of the server.
	DocumentRoot string
	// Error contains an error, if occurred while reading the request.
	Error error
}

type commonHeaders struct {
	// ContentLength obtains the value from Content-Length header. It holds the value of 0
	// if isn't presented.
	ContentLength int
	// Chunked is set if the body is transferred with chunked Transfer-Encoding.
	Chunked bool
	// Connection holds the Connection header value. It isn't normalized, so it must be
	// compared case-insensitively.
	Connection string
}
