package archipelago

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/gobwas/ws"
	"github.com/gorilla/websocket"

	"github.com/NeboLoop/archipelago-go-sdk/frame"
	"github.com/NeboLoop/archipelago-go-sdk/transport"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

var (
	ErrAlreadyStarted    = errors.New("archipelago: client already started")
	ErrClientStopped     = errors.New("archipelago: client stopped")
	ErrThresholdExceeded = errors.New("archipelago: reconnect threshold exceeded")
	ErrInvalidAddress    = errors.New("archipelago: invalid server address")
	ErrUnknownTransport  = errors.New("archipelago: unknown transport")
)

// Kind categorises an error by how the client reacts to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindDecode is a malformed inbound frame. Reported, never fatal.
	KindDecode
	// KindTransport is a refusal, timeout or I/O failure. Retried when
	// AutoReconnect is set.
	KindTransport
	// KindConfig is a bad address, TLS failure or handshake rejection.
	// Always fatal.
	KindConfig
	// KindRefused is a ConnectionRefused packet from the server.
	KindRefused
	// KindThreshold means too many closes inside the accumulation period.
	KindThreshold
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindTransport:
		return "transport"
	case KindConfig:
		return "config"
	case KindRefused:
		return "refused"
	case KindThreshold:
		return "threshold"
	default:
		return "unknown"
	}
}

// Error is the error type handed to Handler.OnConnectError.
type Error struct {
	Kind Kind
	Op   string // "dial", "read", "write", "reconnect", ...
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archipelago: %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the reconnect policy may retry after err.
func (e *Error) Retryable() bool { return e.Kind == KindTransport }

func newError(op string, err error) *Error {
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// Classify sorts an arbitrary error into a Kind. Anything that cannot be
// recognised as a transient network failure is treated as configuration.
// The client uses it for dial errors only; read and write failures on an
// open connection are always KindTransport.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrThresholdExceeded) {
		return KindThreshold
	}
	var refused *wire.ConnectionRefused
	if errors.As(err, &refused) {
		return KindRefused
	}
	var decodeErr *frame.DecodeError
	if errors.As(err, &decodeErr) {
		return KindDecode
	}
	if isConfigError(err) {
		return KindConfig
	}
	if isTransientError(err) {
		return KindTransport
	}
	return KindConfig
}

func isConfigError(err error) bool {
	if errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrUnknownTransport) {
		return true
	}
	if errors.Is(err, ws.ErrHandshakeBadProtocol) ||
		errors.Is(err, ws.ErrHandshakeBadConnection) ||
		errors.Is(err, ws.ErrHandshakeBadUpgrade) ||
		errors.Is(err, ws.ErrHandshakeBadSecAccept) ||
		errors.Is(err, websocket.ErrBadHandshake) {
		return true
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalidCert      x509.CertificateInvalidError
		verifyErr        *tls.CertificateVerificationError
		recordErr        tls.RecordHeaderError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr)
}

func isTransientError(err error) bool {
	var closeErr *transport.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, transport.ErrClosed) {
		return true
	}
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
