package archipelago

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NeboLoop/archipelago-go-sdk/transport"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

const waitTimeout = 2 * time.Second

// Literal fixtures as a room would send them.
const (
	roomInfoFrame = `[{"cmd":"RoomInfo","version":{"major":0,"minor":5,"build":1,"class":"Version"},` +
		`"generator_version":{"major":0,"minor":5,"build":1,"class":"Version"},` +
		`"permissions":{"release":2,"collect":2,"remaining":1},"datapackage_checksums":{"Clique":"0c5c0ba2"},` +
		`"tags":["AP"],"games":["Clique"],"seed_name":"11223344","time":1717000000.25,` +
		`"hint_cost":10,"location_check_points":1,"password":false}]`
	connectedFrame = `[{"cmd":"Connected","team":0,"slot":1,"hint_points":0,` +
		`"slot_info":{"1":{"type":1,"group_members":[],"name":"Player1","game":"Clique","class":"NetworkSlot"}},` +
		`"players":[{"team":0,"slot":1,"alias":"Player1","name":"Player1","class":"NetworkPlayer"}],` +
		`"missing_locations":[69696969],"checked_locations":[],"slot_data":{}}]`
	refusedFrame   = `[{"cmd":"ConnectionRefused","errors":["InvalidSlot"]}]`
	printJSONFrame = `[{"cmd":"PrintJSON","type":"Chat","data":[{"text":"Player1: hello"}],"team":0,"slot":1,"message":"hello"}]`
)

// loopServer is an in-memory room. Every Dial creates a loopConn and hands
// it to the test through conns.
type loopServer struct {
	conns chan *loopConn
	dials atomic.Int32

	// fail, when set, decides the outcome of dial attempt n (1-based).
	fail func(n int) error
	// hold, when set, admits one dial attempt after the first per value
	// received on it.
	hold chan struct{}
}

func newLoopServer() *loopServer {
	return &loopServer{conns: make(chan *loopConn, 16)}
}

func (s *loopServer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	n := int(s.dials.Add(1))
	if s.hold != nil && n > 1 {
		select {
		case <-s.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail != nil {
		if err := s.fail(n); err != nil {
			return nil, err
		}
	}
	c := &loopConn{
		toClient:    make(chan inbound, 64),
		fromClient:  make(chan []byte, 64),
		remoteClose: make(chan int, 1),
		closed:      make(chan struct{}),
	}
	s.conns <- c
	return c, nil
}

func (s *loopServer) accept(t *testing.T) *loopConn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the client to connect")
		return nil
	}
}

// inbound is what the next ReadMessage returns.
type inbound struct {
	data []byte
	err  error
}

type loopConn struct {
	toClient    chan inbound
	fromClient  chan []byte
	remoteClose chan int

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *loopConn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case in := <-c.toClient:
		return in.data, in.err
	default:
	}
	select {
	case in := <-c.toClient:
		return in.data, in.err
	case code := <-c.remoteClose:
		return nil, &transport.CloseError{Code: code}
	case <-c.closed:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *loopConn) WriteMessage(ctx context.Context, data []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	select {
	case c.fromClient <- data:
		return nil
	case <-c.closed:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *loopConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *loopConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// send delivers a frame to the client.
func (c *loopConn) send(frame string) {
	c.toClient <- inbound{data: []byte(frame)}
}

// fail makes the client's next read fail with err, in order with send.
func (c *loopConn) fail(err error) {
	c.toClient <- inbound{err: err}
}

// closeWith simulates the server closing with code.
func (c *loopConn) closeWith(code int) {
	c.remoteClose <- code
}

// expect returns the next frame written by the client.
func (c *loopConn) expect(t *testing.T) string {
	t.Helper()
	select {
	case b := <-c.fromClient:
		return string(b)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a frame from the client")
		return ""
	}
}

// expectNothing checks that the client writes nothing for a short while.
func (c *loopConn) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case b := <-c.fromClient:
		t.Fatalf("unexpected frame: %s", b)
	case <-time.After(50 * time.Millisecond):
	}
}

// recorder is a Handler that logs every callback as a string event.
type recorder struct {
	BaseHandler

	events chan string

	mu   sync.Mutex
	errs []error

	roomInfo  func(context.Context, *wire.RoomInfo)
	printJSON func(context.Context, *wire.PrintJSON)
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 512)}
}

func (r *recorder) add(ev string) { r.events <- ev }

func (r *recorder) connectErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) OnReady(context.Context) { r.add("OnReady") }
func (r *recorder) OnConnectError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.add("OnConnectError")
}
func (r *recorder) OnConnectionClosed(code int) {
	r.add("OnConnectionClosed:" + strconv.Itoa(code))
}
func (r *recorder) OnServerShutdown()                               { r.add("OnServerShutdown") }
func (r *recorder) OnReceived(context.Context, []byte)              { r.add("OnReceived") }
func (r *recorder) OnDecodeError([]byte, error)                     { r.add("OnDecodeError") }
func (r *recorder) OnPacket(_ context.Context, p wire.ServerPacket) { r.add("OnPacket:" + p.Cmd()) }
func (r *recorder) OnConnected(context.Context, *wire.Connected)    { r.add("OnConnected") }
func (r *recorder) OnConnectionRefused(context.Context, *wire.ConnectionRefused) {
	r.add("OnConnectionRefused")
}

func (r *recorder) OnRoomInfo(ctx context.Context, p *wire.RoomInfo) {
	r.add("OnRoomInfo")
	if r.roomInfo != nil {
		r.roomInfo(ctx, p)
	}
}

func (r *recorder) OnPrintJSON(ctx context.Context, p *wire.PrintJSON) {
	r.add("OnPrintJSON")
	if r.printJSON != nil {
		r.printJSON(ctx, p)
	}
}

// next returns the next event.
func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a handler event")
		return ""
	}
}

// waitFor skips events until want arrives.
func (r *recorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev := <-r.events:
			if ev == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func waitDone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatal("client did not stop")
	}
}

// testConfig reconnects fast.
func testConfig() Config {
	return Config{
		Host:          "room.test",
		Port:          38281,
		AutoReconnect: true,
		BackoffUnit:   time.Millisecond,
		MaxBackoff:    5 * time.Millisecond,
	}
}
