package archipelago

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NeboLoop/archipelago-go-sdk/reconnect"
	"github.com/NeboLoop/archipelago-go-sdk/transport"
)

const (
	DefaultHost = "archipelago.gg"
	DefaultPort = 38281

	TransportGobwas  = "gobwas"
	TransportGorilla = "gorilla"
)

// Config holds connection parameters.
type Config struct {
	Host      string      // server host, default "archipelago.gg"
	Port      int         // room port, required
	Insecure  bool        // ws:// instead of wss://
	TLSConfig *tls.Config // trust store override for wss

	// AutoReconnect retries transport errors. Remote closes are always
	// retried, subject to Threshold.
	AutoReconnect bool

	AccumulationPeriod time.Duration // close-counting window, default 60s
	Threshold          int           // closes inside the window that stop the client; 0 = 5, <0 = never
	BackoffUnit        time.Duration // default 1s
	MaxBackoff         time.Duration // default 60s

	DialTimeout time.Duration
	Transport   string // "gobwas" (default) or "gorilla"
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.AccumulationPeriod <= 0 {
		c.AccumulationPeriod = reconnect.DefaultPeriod
	}
	if c.Threshold == 0 {
		c.Threshold = reconnect.DefaultThreshold
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = reconnect.DefaultUnit
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = reconnect.DefaultMax
	}
	if c.Transport == "" {
		c.Transport = TransportGobwas
	}
	return c
}

// URL returns the websocket address, e.g. "wss://archipelago.gg:38281".
func (c Config) URL() (string, error) {
	c = c.withDefaults()
	host := strings.TrimSpace(c.Host)
	if host == "" || host != c.Host || strings.ContainsAny(host, "/?#@ ") {
		return "", fmt.Errorf("%w: host %q", ErrInvalidAddress, c.Host)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return "", fmt.Errorf("%w: port %d", ErrInvalidAddress, c.Port)
	}
	scheme := "wss"
	if c.Insecure {
		scheme = "ws"
	}
	raw := scheme + "://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, raw)
	}
	return raw, nil
}

func (c Config) dialer() (transport.Dialer, error) {
	opts := transport.DialOptions{TLSConfig: c.TLSConfig, Timeout: c.DialTimeout}
	switch c.Transport {
	case TransportGobwas, "":
		return transport.NewDialer(opts), nil
	case TransportGorilla:
		return transport.NewGorillaDialer(opts), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownTransport, c.Transport)
	}
}

func (c Config) policy() *reconnect.Policy {
	c = c.withDefaults()
	return &reconnect.Policy{
		Backoff:   reconnect.Backoff{Unit: c.BackoffUnit, Max: c.MaxBackoff},
		Window:    reconnect.NewWindow(c.AccumulationPeriod),
		Threshold: c.Threshold,
	}
}
