package transport

import (
	"errors"
	"fmt"
	"syscall"
)

// Codes reported by NetworkError when the failure carries no system error number. System
// error numbers are always positive, so these never collide with them.
const (
	CodeUnknown = -(iota + 1)
	CodeAddress
	CodeNotBound
	CodeCipherPreference
	CodeCertificateChain
	CodePrivateKey
	CodeKeyMismatch
	CodeNoCertificate
)

var errUnsupportedKey = errors.New("unsupported private key type")

var codeMessages = map[int]string{
	CodeUnknown:          "unknown error",
	CodeAddress:          "invalid listening address",
	CodeNotBound:         "endpoint is not bound",
	CodeCipherPreference: "unsupported cipher suite",
	CodeCertificateChain: "no valid certificates in chain",
	CodePrivateKey:       "no valid private key",
	CodeKeyMismatch:      "private key does not match the certificate",
	CodeNoCertificate:    "no certificate is configured",
}

// NetworkError describes a failed endpoint operation.
type NetworkError struct {
	// Op is the operation that failed, e.g. "bind" or "load private key".
	Op string
	// Reason is a human-readable description of the failure.
	Reason string
	// Code is the system error number if one is available, or one of the Code... constants.
	Code int
	// Err is the underlying error, if any.
	Err error
}

func (n *NetworkError) Error() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %s (code %d): %s", n.Op, n.Reason, n.Code, n.Err)
	}

	return fmt.Sprintf("%s: %s (code %d)", n.Op, n.Reason, n.Code)
}

func (n *NetworkError) Unwrap() error {
	return n.Err
}

// newNetworkError builds the error of the failed step. If err carries a system error number,
// it becomes the Code and the Reason names both the step and the system error, so failures
// of different steps never read the same.
func newNetworkError(op string, fallback int, err error) *NetworkError {
	code := errno(err, fallback)
	reason := ErrorMessage(code)
	if code != fallback && fallback != CodeUnknown {
		reason = ErrorMessage(fallback) + ": " + reason
	}

	return &NetworkError{
		Op:     op,
		Reason: reason,
		Code:   code,
		Err:    err,
	}
}

func errno(err error, fallback int) int {
	var no syscall.Errno
	if errors.As(err, &no) && no != 0 {
		return int(no)
	}

	return fallback
}

// ErrorMessage returns the description of an error code, be it a system error number or
// one of the Code... constants.
func ErrorMessage(code int) string {
	switch {
	case code == 0:
		return ""
	case code > 0:
		return syscall.Errno(code).Error()
	}

	if msg, ok := codeMessages[code]; ok {
		return msg
	}

	return codeMessages[CodeUnknown]
}
