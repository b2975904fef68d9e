package http1

import (
	"strings"

	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/proto"
	"github.com/indigo-web/utils/strcomp"
)

// cutToken returns the first comma-separated token, trimmed, and the rest of the list.
func cutToken(list string) (token, rest string) {
	token, rest, _ = strings.Cut(list, ",")
	return strings.TrimSpace(token), rest
}

func hasToken(list, token string) bool {
	for len(list) > 0 {
		var t string
		t, list = cutToken(list)
		if strcomp.EqualFold(t, token) {
			return true
		}
	}

	return false
}

// KeepAlive tells whether the connection may be reused after responding to the request.
// HTTP/1.1 connections are persistent unless the client asked to close it, and HTTP/1.0
// ones are persistent only if the client explicitly asked for it.
func KeepAlive(req *http.Request) bool {
	switch req.Protocol {
	case proto.HTTP11:
		return !hasToken(req.Connection, "close")
	case proto.HTTP10:
		return hasToken(req.Connection, "keep-alive")
	default:
		return false
	}
}
