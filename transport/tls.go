package transport

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"slices"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// DefaultCipherSuites is the preferred cipher list for TLS 1.2 connections: forward-secret
// AEAD suites first, then CBC ones for older clients. TLS 1.3 suites aren't configurable.
var DefaultCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
}

// TLS is a TCP endpoint, which wraps every accepted connection into TLS. Certificates are
// loaded in steps, each reporting its own error: LoadCertificateChain, LoadPrivateKey and
// ValidatePrivateKey. Alternatively, certificates may be obtained automatically via ACME.
type TLS struct {
	TCP
	config  *tls.Config
	certPEM []byte
	keyPEM  []byte
}

func NewTLS() *TLS {
	t := &TLS{
		config: &tls.Config{
			MinVersion:   tls.VersionTLS12,
			CipherSuites: slices.Clone(DefaultCipherSuites),
			NextProtos:   []string{"http/1.1"},
		},
	}
	t.wrap = func(l net.Listener) net.Listener {
		return tls.NewListener(l, t.config)
	}

	return t
}

// SetCipherPreference replaces the list of allowed TLS 1.2 cipher suites.
func (t *TLS) SetCipherPreference(suites []uint16) error {
	if len(suites) == 0 {
		return t.fail(newNetworkError("set cipher preference", CodeCipherPreference, nil))
	}

	for _, id := range suites {
		if !knownSuite(id) {
			return t.fail(newNetworkError("set cipher preference", CodeCipherPreference, nil))
		}
	}

	t.config.CipherSuites = slices.Clone(suites)
	return nil
}

// LoadCertificateChain reads a PEM file containing the leaf certificate optionally followed
// by intermediates.
func (t *TLS) LoadCertificateChain(path string) error {
	const op = "load certificate chain"

	data, err := os.ReadFile(path)
	if err != nil {
		return t.fail(newNetworkError(op, CodeCertificateChain, err))
	}

	var certs int
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		if _, err = x509.ParseCertificate(block.Bytes); err != nil {
			return t.fail(newNetworkError(op, CodeCertificateChain, err))
		}

		certs++
	}

	if certs == 0 {
		return t.fail(newNetworkError(op, CodeCertificateChain, nil))
	}

	t.certPEM = data
	return nil
}

// LoadPrivateKey reads a PEM file containing the private key in PKCS #1, PKCS #8 or SEC 1 form.
func (t *TLS) LoadPrivateKey(path string) error {
	const op = "load private key"

	data, err := os.ReadFile(path)
	if err != nil {
		return t.fail(newNetworkError(op, CodePrivateKey, err))
	}

	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return t.fail(newNetworkError(op, CodePrivateKey, nil))
		}

		if parsePrivateKey(block) == nil {
			t.keyPEM = data
			return nil
		}
	}
}

// ValidatePrivateKey checks the loaded private key against the loaded certificate and
// installs them both.
func (t *TLS) ValidatePrivateKey() error {
	const op = "validate private key"

	if t.certPEM == nil {
		return t.fail(newNetworkError(op, CodeCertificateChain, nil))
	}

	if t.keyPEM == nil {
		return t.fail(newNetworkError(op, CodePrivateKey, nil))
	}

	cert, err := tls.X509KeyPair(t.certPEM, t.keyPEM)
	if err != nil {
		return t.fail(newNetworkError(op, CodeKeyMismatch, err))
	}

	t.config.Certificates = []tls.Certificate{cert}
	return nil
}

// UseAutocert makes certificates be obtained and renewed by the manager.
func (t *TLS) UseAutocert(m *autocert.Manager) {
	t.config.GetCertificate = m.GetCertificate
	t.config.NextProtos = append(t.config.NextProtos, acme.ALPNProto)
}

func (t *TLS) Listen() error {
	if len(t.config.Certificates) == 0 && t.config.GetCertificate == nil {
		return t.fail(newNetworkError("listen", CodeNoCertificate, nil))
	}

	return t.TCP.Listen()
}

func parsePrivateKey(block *pem.Block) error {
	switch block.Type {
	case "PRIVATE KEY":
		_, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		return err
	case "RSA PRIVATE KEY":
		_, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		return err
	case "EC PRIVATE KEY":
		_, err := x509.ParseECPrivateKey(block.Bytes)
		return err
	default:
		return errUnsupportedKey
	}
}

func knownSuite(id uint16) bool {
	for _, suite := range tls.CipherSuites() {
		if suite.ID == id {
			return true
		}
	}

	for _, suite := range tls.InsecureCipherSuites() {
		if suite.ID == id {
			return true
		}
	}

	return false
}
