package transport

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const maxAcceptDelay = time.Second

// Endpoint is a listening socket, accepting connections until closed.
type Endpoint interface {
	// Bind resolves the address the endpoint is going to listen on. Empty address means
	// all the interfaces.
	Bind(port uint16, address string) error
	// Listen opens the socket.
	Listen() error
	// AcceptForever accepts connections and runs onAccept for each of them in a separate
	// goroutine. onAccept owns the connection and is responsible for closing it. It returns
	// nil if the endpoint was closed via Close, and the error otherwise.
	AcceptForever(onAccept func(net.Conn)) error
	// Close stops accepting new connections. Connections being served are not interrupted.
	Close() error
	// Addr returns the address the endpoint listens on, or nil if it doesn't yet.
	Addr() net.Addr
	// Wait blocks until all the connections being served are done.
	Wait()
}

type bound struct {
	net.Listener
}

// TCP is a plain TCP endpoint.
type TCP struct {
	addr     *net.TCPAddr
	listener atomic.Pointer[bound]
	closed   atomic.Bool
	lastErr  atomic.Pointer[NetworkError]
	wg       sync.WaitGroup
	// wrap is applied to a freshly opened listener.
	wrap func(net.Listener) net.Listener
}

func NewTCP() *TCP {
	return new(TCP)
}

func (t *TCP) Bind(port uint16, address string) error {
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(address, strconv.Itoa(int(port))))
	if err != nil {
		return t.fail(newNetworkError("bind", CodeAddress, err))
	}

	t.addr = addr
	return nil
}

func (t *TCP) Listen() error {
	if t.addr == nil {
		return t.fail(newNetworkError("listen", CodeNotBound, nil))
	}

	l, err := net.ListenTCP("tcp", t.addr)
	if err != nil {
		return t.fail(newNetworkError("listen", CodeUnknown, err))
	}

	var listener net.Listener = l
	if t.wrap != nil {
		listener = t.wrap(l)
	}

	t.listener.Store(&bound{listener})
	return nil
}

func (t *TCP) AcceptForever(onAccept func(net.Conn)) error {
	var delay time.Duration

	for {
		l := t.listener.Load()
		if l == nil {
			if t.closed.Load() {
				return nil
			}

			return t.fail(newNetworkError("accept", CodeNotBound, nil))
		}

		conn, err := l.Accept()
		if err != nil {
			if t.closed.Load() {
				return nil
			}

			if isTemporary(err) {
				delay = min(max(delay*2, 5*time.Millisecond), maxAcceptDelay)
				time.Sleep(delay)
				continue
			}

			return t.fail(newNetworkError("accept", CodeUnknown, err))
		}

		delay = 0
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			onAccept(conn)
		}()
	}
}

// Close stops the accept loop. Calling it more than once is no-op.
func (t *TCP) Close() error {
	t.closed.Store(true)

	if l := t.listener.Swap(nil); l != nil {
		return l.Close()
	}

	return nil
}

func (t *TCP) Addr() net.Addr {
	if l := t.listener.Load(); l != nil {
		return l.Addr()
	}

	return nil
}

func (t *TCP) Wait() {
	t.wg.Wait()
}

// LastErrorCode returns the code of the last failed operation, or 0 if nothing failed.
func (t *TCP) LastErrorCode() int {
	if err := t.lastErr.Load(); err != nil {
		return err.Code
	}

	return 0
}

// LastErrorMessage describes an error code returned by LastErrorCode.
func (t *TCP) LastErrorMessage(code int) string {
	return ErrorMessage(code)
}

func (t *TCP) fail(err *NetworkError) error {
	t.lastErr.Store(err)
	return err
}

func isTemporary(err error) bool {
	var temp interface{ Temporary() bool }
	return errors.As(err, &temp) && temp.Temporary() && !errors.Is(err, net.ErrClosed)
}
