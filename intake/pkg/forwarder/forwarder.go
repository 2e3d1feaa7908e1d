// Package forwarder delivers records from the intake service to the
// ingestion service: one TCP connection per record, one frame per
// connection, no acknowledgement, no retry.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/telhawk-systems/relay/common/models"
	"github.com/telhawk-systems/relay/common/wire"
)

// DefaultTimeout bounds dial plus write for one record.
const DefaultTimeout = 3 * time.Second

// ForwardUnavailableError reports that a record could not be handed to the
// ingestion service. Callers log it and move on.
type ForwardUnavailableError struct {
	Addr string
	// Op is the step that failed: "encode", "dial", "write" or "close".
	Op  string
	Err error
}

func (e *ForwardUnavailableError) Error() string {
	return fmt.Sprintf("forward to %s: %s: %v", e.Addr, e.Op, e.Err)
}

func (e *ForwardUnavailableError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline being hit.
func (e *ForwardUnavailableError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Dialer opens connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds forwarding client settings.
type Config struct {
	Addr    string
	Timeout time.Duration
	Framing wire.Framing
}

// Client forwards records to a fixed address.
type Client struct {
	addr    string
	timeout time.Duration
	framing wire.Framing
	dialer  Dialer
}

// New constructs a Client. A zero Timeout selects DefaultTimeout.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		addr:    cfg.Addr,
		timeout: timeout,
		framing: cfg.Framing,
		dialer:  &net.Dialer{},
	}
}

// WithDialer replaces the dialer. Intended for tests.
func (c *Client) WithDialer(d Dialer) *Client {
	c.dialer = d
	return c
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Timeout() time.Duration { return c.timeout }

// Forward sends rec as a single frame on a fresh connection. Every failure
// is returned as *ForwardUnavailableError.
func (c *Client) Forward(ctx context.Context, rec models.Record) error {
	payload, err := models.EncodePayload(rec)
	if err != nil {
		return &ForwardUnavailableError{Addr: c.addr, Op: "encode", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &ForwardUnavailableError{Addr: c.addr, Op: "dial", Err: err}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := wire.WriteFrame(conn, c.framing, payload); err != nil {
		conn.Close()
		return &ForwardUnavailableError{Addr: c.addr, Op: "write", Err: err}
	}

	// Closing is the end-of-payload signal for close-delimited framing.
	if err := conn.Close(); err != nil {
		return &ForwardUnavailableError{Addr: c.addr, Op: "close", Err: err}
	}
	return nil
}
