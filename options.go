package archipelago

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/NeboLoop/archipelago-go-sdk/transport"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records client metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for connection spans. Default: the global
// provider's "archipelago" tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithDialer replaces the transport selected by Config.Transport.
func WithDialer(d transport.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithClock replaces time.Now for the close-frequency window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithUUID sets the client identifier filled into Connect packets that
// leave UUID empty. Default: a random UUID.
func WithUUID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.uuid = id
		}
	}
}
