package transport

import (
	"crypto/tls"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, op string, code int) {
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, op, netErr.Op)
	require.Equal(t, code, netErr.Code)
}

func TestTLS(t *testing.T) {
	dir := t.TempDir()
	cert, key := generateSelfSignedCert(t, dir, "localhost")
	_, otherKey := generateSelfSignedCert(t, dir, "other")

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not PEM"), 0600))

	t.Run("missing certificate file", func(t *testing.T) {
		e := NewTLS()
		err := e.LoadCertificateChain(filepath.Join(dir, "nonexistent.crt"))
		requireCode(t, err, "load certificate chain", int(syscall.ENOENT))
		require.Equal(t, int(syscall.ENOENT), e.LastErrorCode())
	})

	t.Run("missing files are told apart", func(t *testing.T) {
		var certErr, keyErr *NetworkError
		require.ErrorAs(t, NewTLS().LoadCertificateChain(filepath.Join(dir, "nonexistent.crt")), &certErr)
		require.ErrorAs(t, NewTLS().LoadPrivateKey(filepath.Join(dir, "nonexistent.key")), &keyErr)

		require.Equal(t, certErr.Code, keyErr.Code)
		require.Equal(t, "no valid certificates in chain: "+syscall.ENOENT.Error(), certErr.Reason)
		require.Equal(t, "no valid private key: "+syscall.ENOENT.Error(), keyErr.Reason)
	})

	t.Run("malformed certificate", func(t *testing.T) {
		err := NewTLS().LoadCertificateChain(garbage)
		requireCode(t, err, "load certificate chain", CodeCertificateChain)
	})

	t.Run("certificate instead of key", func(t *testing.T) {
		err := NewTLS().LoadPrivateKey(cert)
		requireCode(t, err, "load private key", CodePrivateKey)
	})

	t.Run("mismatching key", func(t *testing.T) {
		e := NewTLS()
		require.NoError(t, e.LoadCertificateChain(cert))
		require.NoError(t, e.LoadPrivateKey(otherKey))
		requireCode(t, e.ValidatePrivateKey(), "validate private key", CodeKeyMismatch)
		require.Equal(t, CodeKeyMismatch, e.LastErrorCode())
	})

	t.Run("validate without loading", func(t *testing.T) {
		requireCode(t, NewTLS().ValidatePrivateKey(), "validate private key", CodeCertificateChain)
	})

	t.Run("listen without certificate", func(t *testing.T) {
		e := NewTLS()
		require.NoError(t, e.Bind(0, "127.0.0.1"))
		requireCode(t, e.Listen(), "listen", CodeNoCertificate)
	})

	t.Run("unsupported cipher", func(t *testing.T) {
		e := NewTLS()
		require.NoError(t, e.SetCipherPreference(DefaultCipherSuites))
		requireCode(t, e.SetCipherPreference([]uint16{0xffff}), "set cipher preference", CodeCipherPreference)
	})

	t.Run("handshake", func(t *testing.T) {
		e := NewTLS()
		require.NoError(t, e.SetCipherPreference(DefaultCipherSuites))
		require.NoError(t, e.LoadCertificateChain(cert))
		require.NoError(t, e.LoadPrivateKey(key))
		require.NoError(t, e.ValidatePrivateKey())
		require.NoError(t, e.Bind(0, "127.0.0.1"))
		require.NoError(t, e.Listen())

		errch := acceptInBackground(e, func(conn net.Conn) {
			_, _ = conn.Write([]byte("secure"))
			_ = conn.Close()
		})

		conn, err := tls.Dial("tcp", e.Addr().String(), &tls.Config{
			InsecureSkipVerify: true,
			MaxVersion:         tls.VersionTLS12,
		})
		require.NoError(t, err)

		data, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Equal(t, "secure", string(data))

		state := conn.ConnectionState()
		require.Equal(t, uint16(tls.VersionTLS12), state.Version)
		require.Contains(t, DefaultCipherSuites, state.CipherSuite)
		require.NoError(t, conn.Close())

		require.NoError(t, e.Close())
		require.NoError(t, waitErr(t, errch))
		e.Wait()
	})
}
