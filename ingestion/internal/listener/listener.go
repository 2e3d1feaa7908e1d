// Package listener runs the ingestion TCP accept loop. Each accepted
// connection carries exactly one payload and is handled on its own
// goroutine; a weighted semaphore caps how many are in flight.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/telhawk-systems/relay/common/logging"
	"github.com/telhawk-systems/relay/common/wire"
	"github.com/telhawk-systems/relay/ingestion/internal/metrics"
)

const (
	DefaultIdleTimeout     = 10 * time.Second
	DefaultMaxPayloadBytes = 1 << 20
	DefaultMaxConnections  = 64

	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second

	outcomePanic = "panic"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("listener: server closed")

// Handler consumes one payload read from a connection.
type Handler interface {
	Ingest(ctx context.Context, raw []byte, remote string) error
}

type Config struct {
	Addr            string
	IdleTimeout     time.Duration
	MaxPayloadBytes int
	MaxConnections  int
}

type Server struct {
	addr        string
	idleTimeout time.Duration
	maxPayload  int
	maxConns    int64
	handler     Handler
	logger      *logging.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu       sync.Mutex
	ln       net.Listener
	closing  bool
	stopLoop context.CancelFunc
}

func New(cfg Config, h Handler, logger *logging.Logger) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		addr:        cfg.Addr,
		idleTimeout: cfg.IdleTimeout,
		maxPayload:  cfg.MaxPayloadBytes,
		maxConns:    int64(cfg.MaxConnections),
		handler:     h,
		logger:      logger,
		sem:         semaphore.NewWeighted(int64(cfg.MaxConnections)),
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Addr returns the bound address once serving, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Serve accepts connections on ln until Shutdown. A slot is taken before
// each Accept, so when every slot is busy new peers wait in the kernel
// backlog instead of being read.
func (s *Server) Serve(ln net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.stopLoop = cancel
	s.mu.Unlock()

	s.logger.Info("ingestion listener accepting connections",
		logging.Addr(ln.Addr().String()),
		"max_connections", s.maxConns,
		"idle_timeout", s.idleTimeout.String(),
	)

	var backoff time.Duration
	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return ErrServerClosed
		}

		conn, err := ln.Accept()
		if err != nil {
			s.sem.Release(1)
			if s.isClosing() {
				return ErrServerClosed
			}
			if isTemporary(err) {
				if backoff == 0 {
					backoff = minAcceptBackoff
				} else {
					backoff *= 2
				}
				if backoff > maxAcceptBackoff {
					backoff = maxAcceptBackoff
				}
				metrics.AcceptErrors.Inc()
				s.logger.Warn("accept error, retrying",
					logging.Error(err),
					"backoff", backoff.String(),
				)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return ErrServerClosed
				}
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		// Add must not race with the Wait in Shutdown, so it happens under
		// the same lock that sets closing.
		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			conn.Close()
			s.sem.Release(1)
			return ErrServerClosed
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			defer s.recoverConn(conn)
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting and waits for in-flight connections to finish
// or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	if s.stopLoop != nil {
		s.stopLoop()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// recoverConn keeps a panic in one connection's handling from taking the
// process down with it.
func (s *Server) recoverConn(conn net.Conn) {
	p := recover()
	if p == nil {
		return
	}
	conn.Close()
	metrics.PayloadsTotal.WithLabelValues(outcomePanic).Inc()
	s.logger.Error("recovered panic while handling connection",
		logging.Remote(conn.RemoteAddr().String()),
		"panic", fmt.Sprint(p),
		"stack", string(debug.Stack()),
	)
}

func (s *Server) handleConn(conn net.Conn) {
	metrics.ConnectionsTotal.Inc()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	remote := conn.RemoteAddr().String()

	raw, err := wire.ReadFrame(&idleTimeoutReader{conn: conn, timeout: s.idleTimeout}, s.maxPayload)
	conn.Close()
	if err != nil {
		reason := readErrorReason(err)
		metrics.ReadErrors.WithLabelValues(reason).Inc()
		s.logger.Warn("discarding unreadable payload",
			logging.Remote(remote),
			"reason", reason,
			logging.Error(err),
		)
		return
	}

	// The payload is fully read; persisting it is not tied to shutdown.
	_ = s.handler.Ingest(context.Background(), raw, remote)
}

// idleTimeoutReader refreshes the read deadline before every read, so a
// peer is dropped after idleTimeout of silence rather than after a fixed
// total duration.
type idleTimeoutReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		return 0, err
	}
	return r.conn.Read(p)
}

func readErrorReason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, wire.ErrFrameTooLarge):
		return "too_large"
	case errors.Is(err, wire.ErrShortFrame):
		return "short_frame"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "idle_timeout"
	default:
		return "io"
	}
}

// isTemporary reports accept errors worth retrying, such as running out of
// file descriptors.
func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
