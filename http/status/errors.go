package status

// HTTPError is an error, which also knows what status code is the most appropriate
// to respond with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrTooLongRequestLine      = NewError(RequestURITooLong, "request line is too long")
	ErrURLDecoding             = NewError(BadRequest, "invalid urlencoded sequence")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
	ErrBadContentLength        = NewError(BadRequest, "invalid Content-Length value")
	ErrNotFound                = NewError(NotFound, "not found")
	ErrMethodNotAllowed        = NewError(MethodNotAllowed, "method not allowed")
	ErrMethodNotImplemented    = NewError(NotImplemented, "request method is not supported")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrRequestTimeout          = NewError(RequestTimeout, "request timeout")
	ErrInternalServerError     = NewError(InternalServerError, "internal server error")
)
