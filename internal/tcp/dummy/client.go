// Package dummy provides scripted tcp.Client implementations for tests.
package dummy

import (
	"errors"
	"io"
	"net"
)

var ErrWriteFailed = errors.New("dummy: write failed")

// Client returns the chunks it was initialised with, one per Read call, and io.EOF after
// they are exhausted. Everything written is recorded.
type Client struct {
	data     [][]byte
	pending  []byte
	written  [][]byte
	pointer  int
	failFrom int
	writes   int
	closed   int
}

func NewClient(data ...[]byte) *Client {
	return &Client{
		data:     data,
		failFrom: -1,
	}
}

// FailWrites makes every write starting from the n-th one (zero-based) fail.
func (c *Client) FailWrites(n int) *Client {
	c.failFrom = n
	return c
}

func (c *Client) Read() ([]byte, error) {
	if c.closed > 0 {
		return nil, net.ErrClosed
	}

	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.pointer >= len(c.data) {
		return nil, io.EOF
	}

	c.pointer++
	return c.data[c.pointer-1], nil
}

func (c *Client) Unread(b []byte) {
	c.pending = b
}

func (c *Client) Write(b []byte) error {
	defer func() { c.writes++ }()

	if c.failFrom >= 0 && c.writes >= c.failFrom {
		return ErrWriteFailed
	}

	c.written = append(c.written, append([]byte(nil), b...))
	return nil
}

// Written returns all the successfully written chunks.
func (c *Client) Written() [][]byte {
	return c.written
}

// Closes returns how many times Close was called.
func (c *Client) Closes() int {
	return c.closed
}

// Consumed reports whether all the chunks were returned.
func (c *Client) Consumed() bool {
	return c.pointer >= len(c.data) && len(c.pending) == 0
}

func (*Client) Remote() net.Addr {
	return nil
}

func (c *Client) Close() error {
	c.closed++
	return nil
}
