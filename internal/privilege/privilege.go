// Package privilege drops the process privileges after the listening socket is opened.
package privilege

import (
	"errors"
)

var ErrUnsupported = errors.New("switching user is not supported on this platform")
