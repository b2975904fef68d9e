// Package turnstile is an HTTP/1.x server core: it accepts plain or TLS connections, runs
// every request through priority-bucketed filter pipelines and a router, and keeps the
// connection alive while the client permits it.
package turnstile

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/indigo-web/turnstile/config"
	"github.com/indigo-web/turnstile/filter"
	"github.com/indigo-web/turnstile/http"
	"github.com/indigo-web/turnstile/http/status"
	"github.com/indigo-web/turnstile/internal/privilege"
	"github.com/indigo-web/turnstile/internal/protocol/http1"
	serverhttp "github.com/indigo-web/turnstile/internal/server/http"
	"github.com/indigo-web/turnstile/internal/tcp"
	"github.com/indigo-web/turnstile/kv"
	"github.com/indigo-web/turnstile/metrics"
	"github.com/indigo-web/turnstile/router"
	"github.com/indigo-web/turnstile/router/simple"
	"github.com/indigo-web/turnstile/transport"
)

var ErrAlreadyStarted = errors.New("turnstile: server is already started")

// App is a single server instance. It may be started only once.
type App struct {
	cfg             *config.Config
	router          router.Router
	documentRoot    string
	requestFilters  *filter.Pipeline
	responseFilters *filter.Pipeline
	logger          *slog.Logger
	collector       *metrics.Collector
	hooks           hooks

	mu       sync.Mutex
	started  bool
	stopped  bool
	endpoint transport.Endpoint
}

// New returns a new App instance. Nil config means config.Default(), and nil router
// responds 404 Not Found to everything.
func New(cfg *config.Config, r router.Router) *App {
	if cfg == nil {
		cfg = config.Default()
	}

	if r == nil {
		r = simple.New(func(_ *http.Request, resp *http.Response) {
			resp.Error(status.ErrNotFound)
		}, nil)
	}

	return &App{
		cfg:             cfg,
		router:          r,
		documentRoot:    cfg.Server.DocumentRoot,
		requestFilters:  filter.NewPipeline(),
		responseFilters: filter.NewPipeline(),
		logger:          slog.Default(),
	}
}

// WithLogger replaces the default logger.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMetrics makes the server report its connections, requests and flush failures to
// the collector. Responses are counted by filters.Metrics.
func (a *App) WithMetrics(collector *metrics.Collector) *App {
	a.collector = collector
	return a
}

// NotifyOnStart calls the callback at the moment the server starts accepting connections.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback as soon as the server stopped accepting connections.
// Connections being served at the moment may still be running, see Wait.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// RegisterRequestFilters appends the entries to the request-side pipeline. Filters can't
// be registered after the server is started. An entry with a nil filter or a priority other
// than High, Medium or Low rejects the whole batch.
func (a *App) RegisterRequestFilters(entries ...filter.Entry) error {
	return a.register(a.requestFilters, entries)
}

// RegisterResponseFilters appends the entries to the response-side pipeline. Filters can't
// be registered after the server is started.
func (a *App) RegisterResponseFilters(entries ...filter.Entry) error {
	return a.register(a.responseFilters, entries)
}

func (a *App) register(p *filter.Pipeline, entries []filter.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}

	if err := filter.Validate(entries...); err != nil {
		return err
	}

	p.Register(entries...)
	return nil
}

// DocumentRoot returns the document root the App was constructed with.
func (a *App) DocumentRoot() string {
	return a.documentRoot
}

// Addr returns the address the server listens on, or nil if it doesn't.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	e := a.endpoint
	a.mu.Unlock()

	if e == nil {
		return nil
	}

	return e.Addr()
}

// Start serves plain HTTP. It blocks until the server is stopped, returning nil in that case.
func (a *App) Start(port uint16, address string) error {
	return a.serve(transport.NewTCP(), port, address)
}

// StartTLS serves HTTPS using the PEM-encoded certificate chain and private key.
func (a *App) StartTLS(port uint16, certPath, keyPath, address string) error {
	e, err := newTLSEndpoint(certPath, keyPath)
	if err != nil {
		a.logger.Error("loading certificate", "err", err)
		return err
	}

	return a.serve(e, port, address)
}

func newTLSEndpoint(certPath, keyPath string) (*transport.TLS, error) {
	e := transport.NewTLS()
	if err := e.SetCipherPreference(transport.DefaultCipherSuites); err != nil {
		return nil, err
	}

	if err := e.LoadCertificateChain(certPath); err != nil {
		return nil, err
	}

	if err := e.LoadPrivateKey(keyPath); err != nil {
		return nil, err
	}

	if err := e.ValidatePrivateKey(); err != nil {
		return nil, err
	}

	return e, nil
}

// Stop stops accepting new connections. Connections being served are not interrupted
// and run until they're naturally closed. It's safe to call Stop before or concurrently
// with Start.
func (a *App) Stop() error {
	a.mu.Lock()
	a.stopped = true
	e := a.endpoint
	a.mu.Unlock()

	if e == nil {
		return nil
	}

	return e.Close()
}

// Wait blocks until all the connections are closed.
func (a *App) Wait() {
	a.mu.Lock()
	e := a.endpoint
	a.mu.Unlock()

	if e != nil {
		e.Wait()
	}
}

func (a *App) serve(e transport.Endpoint, port uint16, address string) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}

	a.started = true
	a.mu.Unlock()

	if err := e.Bind(port, address); err != nil {
		a.logger.Error("binding", "port", port, "address", address, "err", err)
		return err
	}

	if err := e.Listen(); err != nil {
		a.logger.Error("listening", "port", port, "address", address, "err", err)
		return err
	}

	a.mu.Lock()
	a.endpoint = e
	stopped := a.stopped
	a.mu.Unlock()

	if stopped {
		_ = e.Close()
		a.logger.Info("server stopped before accepting connections")
		callIfNotNil(a.hooks.OnStop)

		return nil
	}

	if user := a.cfg.Server.RunAs; len(user) > 0 {
		if err := privilege.SwitchToUser(user); err != nil {
			_ = e.Close()
			a.logger.Error("dropping privileges", "user", user, "err", err)
			return fmt.Errorf("turnstile: run as %q: %w", user, err)
		}
	}

	setup := serverhttp.Setup{
		Config:          a.cfg,
		Chain:           filter.NewChain(a.requestFilters, a.router),
		ResponseFilters: a.responseFilters,
		Router:          a.router,
		Observer:        a.observer(),
		Logger:          a.logger,
	}

	a.logger.Info("server started", "addr", e.Addr(), "name", a.cfg.Server.Name)
	callIfNotNil(a.hooks.OnStart)

	err := e.AcceptForever(a.newConnCallback(setup))
	if err != nil {
		a.logger.Error("accepting connections", "err", err)
	} else {
		a.logger.Info("server stopped")
	}

	callIfNotNil(a.hooks.OnStop)

	return err
}

// newConnCallback returns the handler for accepted connections. The connection is closed
// exactly once: by the lifecycle manager, or here if it never gets that far.
func (a *App) newConnCallback(setup serverhttp.Setup) func(net.Conn) {
	cfg := a.cfg

	return func(conn net.Conn) {
		if a.collector != nil {
			a.collector.ConnectionOpened()
			defer a.collector.ConnectionClosed()
		}

		request := http.NewRequest(kv.NewPrealloc(cfg.Headers.Number.Default), conn.RemoteAddr())
		request.Env = http.Environment{
			ConnID:       uuid.NewString(),
			ServerName:   cfg.Server.Name,
			DocumentRoot: a.documentRoot,
		}

		if tlsConn, ok := conn.(*tls.Conn); ok {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.NET.ReadTimeout)
			err := tlsConn.HandshakeContext(ctx)
			cancel()
			if err != nil {
				a.logger.Debug("tls handshake", "conn", request.Env.ConnID, "err", err)
				_ = conn.Close()
				return
			}

			request.Env.Encryption = tlsConn.ConnectionState().Version
		}

		client := tcp.NewClient(conn, cfg.NET.ReadTimeout, make([]byte, cfg.NET.ReadBufferSize))
		serverhttp.NewServer(setup, client, request).Serve()
	}
}

func (a *App) observer() serverhttp.Observer {
	if a.collector == nil {
		return serverhttp.NopObserver
	}

	return collectorObserver{a.collector}
}

type collectorObserver struct {
	collector *metrics.Collector
}

func (c collectorObserver) OnRead(st http1.ReadStatus) {
	c.collector.RequestRead(st.String())
}

func (c collectorObserver) OnFlush(err error) {
	if err != nil {
		c.collector.FlushFailed()
	}
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
