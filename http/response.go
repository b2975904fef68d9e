package http

import (
	"errors"

	"github.com/indigo-web/turnstile/http/mime"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/kv"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

const (
	preallocRespHeaders = 7
	defaultContentType  = mime.HTML
)

// Fields are the values filled by the Response builder.
type Fields struct {
	Code        status.Code
	Status      string
	ContentType mime.MIME
	Headers     []kv.Pair
	Body        []byte
}

func (f *Fields) Clear() {
	f.Code = status.OK
	f.Status = ""
	f.ContentType = defaultContentType
	f.Headers = f.Headers[:0]
	f.Body = nil
}

// Response is paired with a Request and reused in the same manner. Besides the
// message itself, it carries the keep-alive decision and a completion slot: a callback
// which must be invoked exactly once when the response is logically complete.
type Response struct {
	fields     *Fields
	keepAlive  bool
	completion func()
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK,
// pre-allocated space for response headers and text/html content-type.
func NewResponse() *Response {
	return &Response{
		fields: &Fields{
			Code:        status.OK,
			Headers:     make([]kv.Pair, 0, preallocRespHeaders),
			ContentType: defaultContentType,
		},
	}
}

// Code sets a Response code.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom status text.
func (r *Response) Status(status string) *Response {
	r.fields.Status = status
	return r
}

// ContentType sets a custom Content-Type header value.
func (r *Response) ContentType(value mime.MIME) *Response {
	r.fields.ContentType = value
	return r
}

// Header sets header values to a key. In case it already exists the value will
// be appended.
func (r *Response) Header(key string, values ...string) *Response {
	if strcomp.EqualFold(key, "content-type") && len(values) > 0 {
		return r.ContentType(values[0])
	}

	for _, value := range values {
		r.fields.Headers = append(r.fields.Headers, kv.Pair{
			Key:   key,
			Value: value,
		})
	}

	return r
}

// String sets the response's body to the passed string
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) Bytes(body []byte) *Response {
	r.fields.Body = body
	return r
}

// Write implements io.Writer interface. It always returns n=len(b) and err=nil
func (r *Response) Write(b []byte) (n int, err error) {
	r.fields.Body = append(r.fields.Body, b...)
	return len(b), nil
}

// TryJSON receives a model and serializes it into the body.
func (r *Response) TryJSON(model any) (*Response, error) {
	r.fields.Body = r.fields.Body[:0]
	stream := json.ConfigDefault.BorrowStream(r)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	return r.ContentType(mime.JSON), err
}

// JSON does the same as TryJSON does, except returned error is being implicitly wrapped
// by Error
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error sets the response to represent the error. If an instance of status.HTTPError is
// passed, its code is used, otherwise 500 Internal Server Error. Nil errors are ignored.
func (r *Response) Error(err error) *Response {
	if err == nil {
		return r
	}

	code := status.InternalServerError
	var httpErr status.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
	}

	return r.
		Code(code).
		ContentType(mime.Plain).
		String(err.Error())
}

// Reveal returns a struct with values, filled by builder. Used mostly in internal purposes
func (r *Response) Reveal() *Fields {
	return r.fields
}

// KeepAlive reports whether the connection may be reused after this response.
func (r *Response) KeepAlive() bool {
	return r.keepAlive
}

// SetKeepAlive overrides the keep-alive decision. Setting it to false forces the connection
// to be closed after the response is flushed.
func (r *Response) SetKeepAlive(keepAlive bool) *Response {
	r.keepAlive = keepAlive
	return r
}

// OnComplete installs the completion callback, replacing the previous one. Passing nil
// clears the slot.
func (r *Response) OnComplete(cb func()) {
	r.completion = cb
}

// Completion returns the currently installed completion callback, if any.
func (r *Response) Completion() func() {
	return r.completion
}

// Complete marks the response as logically complete by invoking the installed
// completion callback. It's a no-op if the slot is empty.
func (r *Response) Complete() {
	if cb := r.completion; cb != nil {
		cb()
	}
}

// Clear discards everything was done with Response object before, except the completion slot.
func (r *Response) Clear() *Response {
	r.fields.Clear()
	r.keepAlive = false
	return r
}
