package config

import (
	"time"
)

type (
	HeadersNumber struct {
		Default int `yaml:"default"`
		Maximal int `yaml:"maximal"`
	}

	HeadersSpace struct {
		Default int `yaml:"default"`
		Maximal int `yaml:"maximal"`
	}
)

type (
	// Server holds the identity of the server. DocumentRoot is fixed at construction time
	// and can't be changed afterward.
	Server struct {
		// Port is the listening port.
		Port uint16 `yaml:"port"`
		// Address is the listening address. Empty string means all the interfaces.
		Address string `yaml:"address" test:"nullable"`
		// Name is the canonical server name, reported in the Server header.
		Name string `yaml:"name"`
		// DocumentRoot is the directory the application serves its documents from.
		DocumentRoot string `yaml:"document_root"`
		// RunAs is the unprivileged user to switch to after the socket is bound. Empty
		// value disables the switch.
		RunAs string `yaml:"run_as" test:"nullable"`
	}

	TLS struct {
		// CertFile is the path to the PEM-encoded certificate chain. If both CertFile and
		// KeyFile are set, the server is started in TLS mode.
		CertFile string `yaml:"cert_file" test:"nullable"`
		// KeyFile is the path to the PEM-encoded private key.
		KeyFile string `yaml:"key_file" test:"nullable"`
	}

	URI struct {
		// RequestLineSize limits the length of the request line, including the method
		// and the protocol.
		RequestLineSize int `yaml:"request_line_size"`
	}

	Headers struct {
		// Number is responsible for headers storage size.
		// Default value is an initial size of allocated headers storage.
		// Maximal value is maximum number of headers allowed to be presented
		Number HeadersNumber `yaml:"number"`
		// Space limits the amount of memory occupied by the whole request head.
		Space HeadersSpace `yaml:"space"`
	}

	Body struct {
		// MaxSize describes the maximal size of a body, that can be processed. Requests
		// with bigger bodies are rejected with 413 Request Entity Too Large.
		MaxSize uint64 `yaml:"max_size"`
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int `yaml:"read_buffer_size"`
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration `yaml:"read_timeout"`
		// WriteBufferSize is the initial capacity of the buffer the response is
		// serialized into.
		WriteBufferSize int `yaml:"write_buffer_size"`
	}

	Log struct {
		// Level is one of debug, info, warn, error.
		Level string `yaml:"level"`
		// Format is either text or json.
		Format string `yaml:"format"`
	}

	Metrics struct {
		// Enabled turns on the Prometheus collector.
		Enabled bool `yaml:"enabled" test:"nullable"`
		// Address is where the metrics endpoint is served, when enabled.
		Address string `yaml:"address"`
		// Namespace prefixes all the metric names.
		Namespace string `yaml:"namespace"`
	}
)

// Config holds settings used across various parts of the server, mainly restrictions,
// limitations and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Server  Server  `yaml:"server"`
	TLS     TLS     `yaml:"tls"`
	URI     URI     `yaml:"uri"`
	Headers Headers `yaml:"headers"`
	Body    Body    `yaml:"body"`
	NET     NET     `yaml:"net"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:         8080,
			Name:         "turnstile",
			DocumentRoot: ".",
		},
		URI: URI{
			// allow at most 16kb of request line, which is effectively pretty much tolerant,
			// considering most web-entities limit it to 4-8kb.
			RequestLineSize: 16 * 1024,
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 50,
			},
			Space: HeadersSpace{
				Default: 1 * 1024,  // 1kb for headers must be fairly enough in most cases.
				Maximal: 64 * 1024, // However, there also might be extremely long cookies.
			},
		},
		Body: Body{
			MaxSize: 16 * 1024 * 1024,
		},
		NET: NET{
			ReadBufferSize:  4 * 1024,
			ReadTimeout:     90 * time.Second,
			WriteBufferSize: 4 * 1024,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Metrics: Metrics{
			Address:   "localhost:9090",
			Namespace: "turnstile",
		},
	}
}

// IsTLS reports whether both certificate and key are configured.
func (c *Config) IsTLS() bool {
	return len(c.TLS.CertFile) > 0 && len(c.TLS.KeyFile) > 0
}
