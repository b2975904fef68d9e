package transport

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func listenLocal(t *testing.T, e interface {
	Bind(uint16, string) error
	Listen() error
}) {
	require.NoError(t, e.Bind(0, "127.0.0.1"))
	require.NoError(t, e.Listen())
}

func acceptInBackground(e Endpoint, onAccept func(net.Conn)) <-chan error {
	errch := make(chan error, 1)
	go func() {
		errch <- e.AcceptForever(onAccept)
	}()

	return errch
}

func waitErr(t *testing.T, errch <-chan error) error {
	select {
	case err := <-errch:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "accept loop didn't return")
		return nil
	}
}

type countingListener struct {
	net.Listener
	closes *atomic.Int32
}

func (c countingListener) Accept() (net.Conn, error) {
	conn, err := c.Listener.Accept()
	if err != nil {
		return nil, err
	}

	return countingConn{Conn: conn, closes: c.closes}, nil
}

type countingConn struct {
	net.Conn
	closes *atomic.Int32
}

func (c countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

func TestTCP(t *testing.T) {
	t.Run("serve and stop", func(t *testing.T) {
		tcp := NewTCP()
		listenLocal(t, tcp)

		var served atomic.Int32
		errch := acceptInBackground(tcp, func(conn net.Conn) {
			served.Add(1)
			_, _ = conn.Write([]byte("hello"))
			_ = conn.Close()
		})

		for i := 0; i < 3; i++ {
			conn, err := net.Dial("tcp", tcp.Addr().String())
			require.NoError(t, err)
			data, err := io.ReadAll(conn)
			require.NoError(t, err)
			require.Equal(t, "hello", string(data))
			require.NoError(t, conn.Close())
		}

		require.NoError(t, tcp.Close())
		require.NoError(t, waitErr(t, errch))
		tcp.Wait()
		require.Equal(t, int32(3), served.Load())
		require.Nil(t, tcp.Addr())
		require.NoError(t, tcp.Close(), "closing twice must be safe")
	})

	t.Run("wait blocks on in-flight connections", func(t *testing.T) {
		tcp := NewTCP()
		listenLocal(t, tcp)

		release := make(chan struct{})
		accepted := make(chan struct{})
		errch := acceptInBackground(tcp, func(conn net.Conn) {
			defer conn.Close()
			close(accepted)
			<-release
		})

		conn, err := net.Dial("tcp", tcp.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		<-accepted

		require.NoError(t, tcp.Close())
		require.NoError(t, waitErr(t, errch))

		done := make(chan struct{})
		go func() {
			tcp.Wait()
			close(done)
		}()

		select {
		case <-done:
			require.FailNow(t, "in-flight connection must be waited for")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		<-done
	})

	t.Run("connection is closed by its owner only", func(t *testing.T) {
		var closes atomic.Int32
		tcp := NewTCP()
		tcp.wrap = func(l net.Listener) net.Listener {
			return countingListener{Listener: l, closes: &closes}
		}
		listenLocal(t, tcp)

		errch := acceptInBackground(tcp, func(conn net.Conn) {
			_, _ = conn.Write([]byte("bye"))
			require.NoError(t, conn.Close())
		})

		conn, err := net.Dial("tcp", tcp.Addr().String())
		require.NoError(t, err)
		data, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Equal(t, "bye", string(data))
		require.NoError(t, conn.Close())

		require.NoError(t, tcp.Close())
		require.NoError(t, waitErr(t, errch))
		tcp.Wait()
		require.Equal(t, int32(1), closes.Load())
	})

	t.Run("listen without bind", func(t *testing.T) {
		tcp := NewTCP()
		err := tcp.Listen()

		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		require.Equal(t, "listen", netErr.Op)
		require.Equal(t, CodeNotBound, tcp.LastErrorCode())
		require.Equal(t, "endpoint is not bound", tcp.LastErrorMessage(tcp.LastErrorCode()))
	})

	t.Run("address in use", func(t *testing.T) {
		first := NewTCP()
		listenLocal(t, first)
		defer first.Close()

		port := first.Addr().(*net.TCPAddr).Port
		second := NewTCP()
		require.NoError(t, second.Bind(uint16(port), "127.0.0.1"))
		err := second.Listen()
		require.ErrorIs(t, err, syscall.EADDRINUSE)

		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		require.Equal(t, int(syscall.EADDRINUSE), netErr.Code)
		require.Equal(t, syscall.EADDRINUSE.Error(), second.LastErrorMessage(second.LastErrorCode()))
	})

	t.Run("accept without listening", func(t *testing.T) {
		err := NewTCP().AcceptForever(func(net.Conn) {})
		require.Error(t, err)
	})

	t.Run("accept after close", func(t *testing.T) {
		tcp := NewTCP()
		listenLocal(t, tcp)
		require.NoError(t, tcp.Close())
		require.NoError(t, tcp.AcceptForever(func(net.Conn) {}))
	})
}

func TestErrorMessage(t *testing.T) {
	require.Empty(t, ErrorMessage(0))
	require.Equal(t, "unknown error", ErrorMessage(-1000))
	require.Equal(t, syscall.ECONNRESET.Error(), ErrorMessage(int(syscall.ECONNRESET)))
	require.Equal(t, "private key does not match the certificate", ErrorMessage(CodeKeyMismatch))
}
