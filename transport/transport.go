// Package transport is the websocket capability the client engine runs on:
// open a connection, send a text frame, receive text frames, observe the close
// code, close. Two implementations are provided, gobwas/ws (the default) and
// gorilla/websocket (which honours HTTP proxy settings).
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gobwas/ws/wsutil"
)

// Close codes the engine cares about.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
	CloseAbnormal  = 1006
)

// ErrClosed is returned by operations on a connection that was closed locally.
var ErrClosed = errors.New("transport: connection closed")

// ErrInvalidUTF8 marks a text message whose payload is not valid UTF-8.
var ErrInvalidUTF8 = wsutil.ErrInvalidUTF8

// MessageError is a message that arrived intact but cannot be used. The
// connection is unaffected and the next ReadMessage may succeed.
type MessageError struct {
	Data []byte
	Err  error
}

func (e *MessageError) Error() string { return "transport: bad message: " + e.Err.Error() }

func (e *MessageError) Unwrap() error { return e.Err }

// checkText validates the payload of a text message.
func checkText(data []byte) error {
	if !utf8.Valid(data) {
		return &MessageError{Data: data, Err: ErrInvalidUTF8}
	}
	return nil
}

// CloseError reports that the remote side ended the connection. Code is the
// close code from the close frame, or CloseAbnormal when the stream ended
// without one.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transport: connection closed with code %d", e.Code)
	}
	return fmt.Sprintf("transport: connection closed with code %d: %s", e.Code, e.Reason)
}

// Dialer opens websocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is one open websocket connection. ReadMessage and WriteMessage may be
// used concurrently with each other, but each by a single goroutine at a time.
// Cancelling ctx interrupts a blocked call promptly. A *MessageError from
// ReadMessage concerns that message only; any other error ends the
// connection.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// DialOptions configure either dialer.
type DialOptions struct {
	// TLSConfig overrides the trust store or client certificates for wss.
	TLSConfig *tls.Config
	// Timeout bounds the TCP connect plus handshake. Zero means no limit
	// beyond the caller's context.
	Timeout time.Duration
	Header  http.Header
}

// pastDeadline is used to unblock a pending read or write on cancellation.
var pastDeadline = time.Unix(1, 0)
