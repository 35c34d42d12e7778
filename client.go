// Package archipelago is a Go client for the Archipelago multiworld room
// protocol. A Client keeps one websocket connection to a room alive: it
// reconnects with exponential backoff, replays the last accepted Connect
// after a reconnect, and hands every inbound packet to a Handler.
package archipelago

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NeboLoop/archipelago-go-sdk/frame"
	"github.com/NeboLoop/archipelago-go-sdk/queue"
	"github.com/NeboLoop/archipelago-go-sdk/reconnect"
	"github.com/NeboLoop/archipelago-go-sdk/transport"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

const tracerName = "github.com/NeboLoop/archipelago-go-sdk"

// State is the connection state of a Client.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateReady
	StateDraining
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Client connects to an Archipelago room.
type Client struct {
	cfg       Config
	handler   Handler
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	dialer    transport.Dialer
	dialerErr error
	now       func() time.Time
	uuid      string

	queue  *queue.Queue[outbound]
	policy *reconnect.Policy

	authMu       sync.Mutex
	queuedAuth   int            // Connects waiting in the queue
	inflightAuth []wire.Connect // written on this connection, unanswered, oldest first
	lastGoodAuth *wire.Connect  // most recently answered with Connected

	state atomic.Int32

	mu       sync.Mutex
	started  bool
	stopping atomic.Bool
	cancel   context.CancelFunc

	stopOnce sync.Once
	stopped  chan struct{}
}

// outbound is one encoded frame. auth is set when the frame is a Connect.
type outbound struct {
	data []byte
	auth *wire.Connect
}

// New creates a client. Nothing happens on the network until Start.
func New(cfg Config, h Handler, opts ...Option) *Client {
	if h == nil {
		h = BaseHandler{}
	}
	c := &Client{
		cfg:     cfg.withDefaults(),
		handler: h,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
		uuid:    uuid.NewString(),
		queue:   queue.New[outbound](),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer, c.dialerErr = c.cfg.dialer()
	}
	c.policy = c.cfg.policy()
	c.logger = c.logger.With("addr", net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)), "client_id", c.uuid)
	return c
}

// UUID returns the identifier used for Connect packets without one.
func (c *Client) UUID() string { return c.uuid }

// State returns the current connection state.
func (c *Client) State() State { return State(c.state.Load()) }

// Done is closed once the client has stopped for good, either through Stop
// or because reconnecting was given up.
func (c *Client) Done() <-chan struct{} { return c.stopped }

// Start begins connecting in the background.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping.Load() {
		return ErrClientStopped
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)
	return nil
}

// Stop shuts the client down. It returns immediately, is safe to call from
// handlers and may be called any number of times. Use Done, Wait or Close to
// wait for the shutdown to finish.
func (c *Client) Stop() {
	c.stopping.Store(true)
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		return
	}
	// never started: nothing will close the stop signal but us
	c.finish()
}

// Close stops the client and waits until the socket is closed and every
// goroutine has exited. It must not be called from a Handler.
func (c *Client) Close() error {
	c.Stop()
	<-c.stopped
	return nil
}

// Wait blocks until the client stops or task is closed, whichever happens
// first. A nil task waits for the client alone. It returns ctx.Err() if ctx
// ends first.
func (c *Client) Wait(ctx context.Context, task <-chan struct{}) error {
	select {
	case <-c.stopped:
		return nil
	case <-task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send queues a packet. It never blocks on the network: packets are written
// in call order by the sender goroutine once a connection is up, and packets
// queued while disconnected go out after the reconnect.
//
// A Connect with an empty UUID gets the client's UUID. The Connect is
// remembered and replayed after a reconnect once the server accepted it.
// While a Connect is still queued, a reconnect does not replay the older one.
func (c *Client) Send(p wire.ClientPacket) error {
	if c.stopping.Load() {
		return ErrClientStopped
	}
	var auth *wire.Connect
	switch v := p.(type) {
	case wire.Connect:
		v = c.withUUID(v)
		p, auth = v, &v
	case *wire.Connect:
		if v == nil {
			return errors.New("archipelago: nil Connect")
		}
		cp := c.withUUID(*v)
		p, auth = cp, &cp
	}

	data, err := frame.Encode(p)
	if err != nil {
		return err
	}
	if auth != nil {
		c.authMu.Lock()
		c.queuedAuth++
		c.authMu.Unlock()
	}
	c.queue.Push(outbound{data: data, auth: auth})
	c.metrics.setQueueDepth(c.queue.Len())
	return nil
}

// LastConnect returns the Connect the server most recently accepted.
func (c *Client) LastConnect() (wire.Connect, bool) {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	if c.lastGoodAuth == nil {
		return wire.Connect{}, false
	}
	return *c.lastGoodAuth, true
}

// --- Authentication bookkeeping ---

func (c *Client) withUUID(p wire.Connect) wire.Connect {
	if p.UUID == "" {
		p.UUID = c.uuid
	}
	return p
}

// authSent moves a Connect from the queue to the in-flight list. It runs
// before the write so a fast Connected reply always finds it.
func (c *Client) authSent(p wire.Connect) {
	c.authMu.Lock()
	c.queuedAuth--
	c.inflightAuth = append(c.inflightAuth, p)
	c.authMu.Unlock()
}

// authRequeued undoes authSent after a failed write.
func (c *Client) authRequeued() {
	c.authMu.Lock()
	c.queuedAuth++
	if n := len(c.inflightAuth); n > 0 {
		c.inflightAuth = c.inflightAuth[:n-1]
	}
	c.authMu.Unlock()
}

// replayAuth starts the bookkeeping for a new connection and returns the
// accepted Connect to resend, or nil when there is none or a newer Connect
// is still queued.
func (c *Client) replayAuth() *wire.Connect {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	c.inflightAuth = nil
	if c.lastGoodAuth == nil || c.queuedAuth > 0 {
		return nil
	}
	p := *c.lastGoodAuth
	c.inflightAuth = append(c.inflightAuth, p)
	return &p
}

// acknowledgeAuth records that the oldest in-flight Connect was accepted.
func (c *Client) acknowledgeAuth() bool {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	if len(c.inflightAuth) == 0 {
		return false
	}
	p := c.inflightAuth[0]
	c.inflightAuth = c.inflightAuth[1:]
	c.lastGoodAuth = &p
	return true
}

// refuseAuth drops the oldest in-flight Connect and forgets the accepted one.
func (c *Client) refuseAuth() {
	c.authMu.Lock()
	if len(c.inflightAuth) > 0 {
		c.inflightAuth = c.inflightAuth[1:]
	}
	c.lastGoodAuth = nil
	c.authMu.Unlock()
}

// --- Connection loop ---

func (c *Client) run(ctx context.Context) {
	defer c.finish()

	if c.dialerErr != nil {
		c.reportConnectError(newError("dial", c.dialerErr))
		return
	}
	addr, err := c.cfg.URL()
	if err != nil {
		c.reportConnectError(newError("dial", err))
		return
	}

	for {
		c.setState(StateConnecting)
		retry := c.session(ctx, addr)
		if ctx.Err() != nil || !retry {
			return
		}
		c.setState(StateReconnecting)
		if !c.backoff(ctx) {
			return
		}
	}
}

// session runs one connection from dial to teardown and reports whether the
// reconnect policy should be consulted.
func (c *Client) session(ctx context.Context, addr string) bool {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		e := newError("dial", err)
		c.reportConnectError(e)
		return e.Retryable() && c.cfg.AutoReconnect
	}
	c.metrics.connected()
	c.logger.Info("connected to room", "url", addr)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if auth := c.replayAuth(); auth != nil {
		if err := c.writeAuth(connCtx, conn, auth); err != nil {
			conn.Close()
			return c.disconnected(ctx, "write", err)
		}
	}

	c.setState(StateReady)
	c.safe("OnReady", func() { c.handler.OnReady(connCtx) })

	err = c.pump(connCtx, conn)
	c.setState(StateDraining)
	conn.Close()
	return c.disconnected(ctx, "io", err)
}

func (c *Client) dial(ctx context.Context, addr string) (transport.Conn, error) {
	ctx, span := c.tracer.Start(ctx, "archipelago.connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("server.address", c.cfg.Host),
			attribute.Int("server.port", c.cfg.Port),
			attribute.String("archipelago.transport", c.cfg.Transport),
		),
	)
	defer span.End()

	conn, err := c.dialer.Dial(ctx, addr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return conn, nil
}

func (c *Client) writeAuth(ctx context.Context, conn transport.Conn, auth *wire.Connect) error {
	data, err := frame.Encode(*auth)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(ctx, data); err != nil {
		return err
	}
	c.metrics.frameSent()
	c.logger.Info("reauthenticating", "slot", auth.Name, "game", auth.Game)
	return nil
}

// pump runs the sender and receiver until one of them fails. The other is
// cancelled and awaited before pump returns.
func (c *Client) pump(ctx context.Context, conn transport.Conn) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.sendLoop(ctx, conn) })
	g.Go(func() error { return c.receiveLoop(ctx, conn) })
	return g.Wait()
}

func (c *Client) sendLoop(ctx context.Context, conn transport.Conn) error {
	for {
		item, err := c.queue.Pop(ctx)
		if err != nil {
			return err
		}
		if item.auth != nil {
			c.authSent(*item.auth)
		}
		if err := conn.WriteMessage(ctx, item.data); err != nil {
			c.queue.PushFront(item)
			if item.auth != nil {
				c.authRequeued()
			}
			return err
		}
		c.metrics.frameSent()
		c.metrics.setQueueDepth(c.queue.Len())
		c.logger.Debug("frame sent", "bytes", len(item.data))
	}
}

func (c *Client) receiveLoop(ctx context.Context, conn transport.Conn) error {
	for {
		raw, err := conn.ReadMessage(ctx)
		var bad *transport.MessageError
		if errors.As(err, &bad) {
			c.metrics.frameReceived()
			c.reject(ctx, bad)
			continue
		}
		if err != nil {
			return err
		}
		c.metrics.frameReceived()
		c.dispatch(ctx, raw)
	}
}

// disconnected reports why a live connection ended and decides whether to
// retry. Server closes always go through the reconnect policy; any other
// read or write failure is a transport error, retried when AutoReconnect is
// set.
func (c *Client) disconnected(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var closeErr *transport.CloseError
	if errors.As(err, &closeErr) {
		c.metrics.remoteClose(closeErr.Code)
		c.logger.Info("connection closed by server", "code", closeErr.Code, "reason", closeErr.Reason)
		if closeErr.Code == transport.CloseGoingAway {
			c.safe("OnServerShutdown", c.handler.OnServerShutdown)
		}
		c.safe("OnConnectionClosed", func() { c.handler.OnConnectionClosed(closeErr.Code) })
		return true
	}

	e := &Error{Kind: KindTransport, Op: op, Err: err}
	c.reportConnectError(e)
	return c.cfg.AutoReconnect
}

// backoff applies the reconnect policy and sleeps. It returns false when the
// client must stop.
func (c *Client) backoff(ctx context.Context) bool {
	d := c.policy.Next(c.now())
	if d.Stop {
		c.reportConnectError(&Error{Kind: KindThreshold, Op: "reconnect", Err: ErrThresholdExceeded})
		return false
	}

	c.metrics.reconnect(d.Wait.Seconds())
	c.logger.Info("reconnecting", "attempt", d.Attempt, "wait", d.Wait)

	t := time.NewTimer(d.Wait)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) reportConnectError(e *Error) {
	c.metrics.connectError(e.Kind)
	c.logger.Warn("connection error", "op", e.Op, "kind", e.Kind.String(), "error", e.Err)
	c.safe("OnConnectError", func() { c.handler.OnConnectError(e) })
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// finish fires the stop signal exactly once.
func (c *Client) finish() {
	c.stopOnce.Do(func() {
		c.stopping.Store(true)
		c.setState(StateStopped)
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.logger.Info("client stopped")
		close(c.stopped)
	})
}
