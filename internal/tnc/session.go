// Package tnc delivers KISS frames to a network TNC.
package tnc

import (
	"context"
	"fmt"
	"net"
	"time"
)

// InitSequence puts the TNC into a known state before every frame: flow
// control off, half duplex, KISS mode on, restart.
const InitSequence = "\r\rXFLOW OFF\rFULLDUP OFF\rKISS ON\rRESTART\r"

// TransportError is a failed connect, write or close against the TNC.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tnc %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Session opens one TCP connection per Send. It holds no connection
// between calls.
type Session struct {
	Addr    string
	Timeout time.Duration
}

func NewSession(addr string, timeout time.Duration) *Session {
	return &Session{Addr: addr, Timeout: timeout}
}

// Send connects, writes InitSequence and frame, and closes. The whole
// exchange is bounded by Timeout and by ctx.
func (s *Session) Send(ctx context.Context, frame []byte) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return &TransportError{Op: "dial", Addr: s.Addr, Err: err}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return &TransportError{Op: "deadline", Addr: s.Addr, Err: err}
		}
	}

	if err := write(conn, []byte(InitSequence)); err != nil {
		_ = conn.Close()
		return &TransportError{Op: "write init", Addr: s.Addr, Err: err}
	}
	if err := write(conn, frame); err != nil {
		_ = conn.Close()
		return &TransportError{Op: "write frame", Addr: s.Addr, Err: err}
	}
	if err := conn.Close(); err != nil {
		return &TransportError{Op: "close", Addr: s.Addr, Err: err}
	}
	return nil
}

func write(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
