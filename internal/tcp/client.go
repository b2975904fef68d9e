package tcp

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// Client wraps a connection, providing buffered reads with a deadline and the ability
// to return the unconsumed part of the data back.
type Client interface {
	// Read returns either pending data previously returned via Unread, or reads a new
	// piece from the connection. The returned slice is valid until the next call.
	Read() ([]byte, error)
	Unread([]byte)
	Write([]byte) error
	Remote() net.Addr
	// Close closes the underlying connection. Subsequent calls are no-op.
	Close() error
}

type client struct {
	conn      net.Conn
	buff      []byte
	pending   []byte
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
}

func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		buff:    buff,
		conn:    conn,
		timeout: timeout,
	}
}

func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)

	return c.buff[:n], err
}

func (c *client) Unread(b []byte) {
	c.pending = b
}

func (c *client) Write(b []byte) error {
	_, err := c.conn.Write(b)

	return err
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}

// IsTimeout reports whether the error was caused by an exceeded deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
