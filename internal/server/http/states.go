package http

type state uint8

const (
	eIdle state = iota
	eReadingRequest
	eFiltering
	// eResponding covers both routing and responding: the connection is suspended until
	// the response is completed, and flushed as a part of the completion.
	eResponding
	eClosed
)

func (s state) String() string {
	switch s {
	case eIdle:
		return "idle"
	case eReadingRequest:
		return "reading request"
	case eFiltering:
		return "filtering"
	case eResponding:
		return "responding"
	case eClosed:
		return "closed"
	default:
		return "unknown"
	}
}
