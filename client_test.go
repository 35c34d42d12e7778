package archipelago

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NeboLoop/archipelago-go-sdk/frame"
	"github.com/NeboLoop/archipelago-go-sdk/transport"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

func newTestClient(t *testing.T, cfg Config, h Handler, srv *loopServer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDialer(srv),
	}, opts...)
	c := New(cfg, h, opts...)
	t.Cleanup(func() { c.Close() })
	return c
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (s *loopServer) release(t *testing.T) {
	t.Helper()
	select {
	case s.hold <- struct{}{}:
	case <-time.After(waitTimeout):
		t.Fatal("client never tried to reconnect")
	}
}

func sayFrame(text string) string {
	return fmt.Sprintf(`[{"cmd":"Say","text":%q}]`, text)
}

// joinFrames merges two single-array frames into one.
func joinFrames(a, b string) string {
	return strings.TrimSuffix(a, "]") + "," + strings.TrimPrefix(b, "[")
}

func slotConnect() wire.Connect {
	return wire.Connect{
		Game:          "Clique",
		Name:          "Player1",
		Version:       wire.Version{Major: 0, Minor: 5, Build: 1},
		ItemsHandling: wire.ItemsHandlingAll,
		Tags:          []string{wire.TagAP},
	}
}

// connectSlot drives RoomInfo → Connect → Connected on conn and returns the
// Connect frame the client sent.
func connectSlot(t *testing.T, c *Client, r *recorder, conn *loopConn) string {
	t.Helper()
	conn.send(roomInfoFrame)
	sent := conn.expect(t)
	conn.send(connectedFrame)
	r.waitFor(t, "OnConnected")
	eventually(t, func() bool { _, ok := c.LastConnect(); return ok }, "Connected to be acknowledged")
	return sent
}

func TestSendOrdering(t *testing.T) {
	srv := newLoopServer()
	c := newTestClient(t, testConfig(), newRecorder(), srv)

	if err := c.Send(wire.Say{Text: "early"}); err != nil {
		t.Fatalf("send before start: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := srv.accept(t)

	const n = 50
	for i := 0; i < n; i++ {
		if err := c.Send(wire.Say{Text: fmt.Sprintf("msg-%d", i)}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	if got := conn.expect(t); got != sayFrame("early") {
		t.Fatalf("first frame: got %s", got)
	}
	for i := 0; i < n; i++ {
		want := sayFrame(fmt.Sprintf("msg-%d", i))
		if got := conn.expect(t); got != want {
			t.Fatalf("frame %d: got %s, want %s", i, got, want)
		}
	}
}

func TestRoomInfoConnectConnected(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	var c *Client
	r.roomInfo = func(_ context.Context, p *wire.RoomInfo) {
		if p.SeedName != "11223344" {
			t.Errorf("seed name: got %q", p.SeedName)
		}
		c.Send(slotConnect())
	}
	c = newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	r.waitFor(t, "OnReady")

	conn.send(roomInfoFrame)
	sent := conn.expect(t)

	packets, err := frame.DecodeClient([]byte(sent))
	if err != nil {
		t.Fatalf("decode connect: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("packets in frame: got %d, want 1", len(packets))
	}
	connect, ok := packets[0].(wire.Connect)
	if !ok {
		t.Fatalf("packet: got %T, want wire.Connect", packets[0])
	}
	if connect.Name != "Player1" || connect.Game != "Clique" {
		t.Errorf("connect: got %+v", connect)
	}
	if connect.UUID != c.UUID() {
		t.Errorf("uuid: got %q, want %q", connect.UUID, c.UUID())
	}
	if _, ok := c.LastConnect(); ok {
		t.Fatal("Connect must not count as accepted before Connected")
	}

	conn.send(connectedFrame)
	r.waitFor(t, "OnConnected")
	eventually(t, func() bool { _, ok := c.LastConnect(); return ok }, "Connected to be acknowledged")

	last, _ := c.LastConnect()
	if last.Name != "Player1" || last.UUID != c.UUID() {
		t.Errorf("last connect: got %+v", last)
	}
	if c.State() != StateReady {
		t.Errorf("state: got %s, want ready", c.State())
	}
}

func TestReauthenticationAfterReconnect(t *testing.T) {
	srv := newLoopServer()
	srv.hold = make(chan struct{})
	r := newRecorder()
	var c *Client
	r.roomInfo = func(context.Context, *wire.RoomInfo) { c.Send(slotConnect()) }
	c = newTestClient(t, testConfig(), r, srv)
	c.Start()

	conn := srv.accept(t)
	first := connectSlot(t, c, r, conn)

	conn.closeWith(transport.CloseNormal)
	r.waitFor(t, "OnConnectionClosed:1000")
	if !conn.isClosed() {
		t.Error("socket should be closed after the remote close")
	}

	// queued while disconnected; must go out after the replayed Connect
	c.Send(wire.Say{Text: "queued"})
	srv.release(t)

	conn2 := srv.accept(t)
	if got := conn2.expect(t); got != first {
		t.Fatalf("first frame after reconnect: got %s, want %s", got, first)
	}
	if got := conn2.expect(t); got != sayFrame("queued") {
		t.Fatalf("second frame after reconnect: got %s", got)
	}
	r.waitFor(t, "OnReady")
}

func TestRefusalClearsAuth(t *testing.T) {
	srv := newLoopServer()
	srv.hold = make(chan struct{})
	r := newRecorder()
	var c *Client
	r.roomInfo = func(context.Context, *wire.RoomInfo) { c.Send(slotConnect()) }
	c = newTestClient(t, testConfig(), r, srv)
	c.Start()

	conn := srv.accept(t)
	first := connectSlot(t, c, r, conn)
	conn.closeWith(transport.CloseNormal)
	r.waitFor(t, "OnConnectionClosed:1000")
	srv.release(t)

	// the replayed Connect is refused this time
	conn2 := srv.accept(t)
	if got := conn2.expect(t); got != first {
		t.Fatalf("replay: got %s", got)
	}
	conn2.send(refusedFrame)
	r.waitFor(t, "OnConnectionRefused")
	conn2.closeWith(transport.CloseNormal)
	r.waitFor(t, "OnConnectionClosed:1000")

	if _, ok := c.LastConnect(); ok {
		t.Fatal("refusal should clear the accepted Connect")
	}

	c.Send(wire.Say{Text: "after refusal"})
	srv.release(t)
	conn3 := srv.accept(t)
	if got := conn3.expect(t); got != sayFrame("after refusal") {
		t.Fatalf("refused Connect was replayed: got %s", got)
	}
	conn3.expectNothing(t)
}

func TestGoingAwayReconnects(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()

	conn := srv.accept(t)
	r.waitFor(t, "OnReady")
	conn.closeWith(transport.CloseGoingAway)

	if ev := r.next(t); ev != "OnServerShutdown" {
		t.Fatalf("event: got %s, want OnServerShutdown", ev)
	}
	if ev := r.next(t); ev != "OnConnectionClosed:1001" {
		t.Fatalf("event: got %s, want OnConnectionClosed:1001", ev)
	}
	srv.accept(t)
	r.waitFor(t, "OnReady")
}

func TestThresholdStopsClient(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	cfg := testConfig()
	cfg.AutoReconnect = false // server closes are retried regardless
	cfg.Threshold = 3
	c := newTestClient(t, cfg, r, srv)

	go func() {
		for {
			select {
			case conn := <-srv.conns:
				conn.closeWith(transport.CloseNormal)
			case <-c.Done():
				return
			}
		}
	}()
	c.Start()
	waitDone(t, c)

	if got := srv.dials.Load(); got != 3 {
		t.Errorf("connection attempts: got %d, want 3", got)
	}
	errs := r.connectErrors()
	if len(errs) == 0 {
		t.Fatal("expected a threshold error")
	}
	last := errs[len(errs)-1]
	if !errors.Is(last, ErrThresholdExceeded) || Classify(last) != KindThreshold {
		t.Errorf("last error: got %v", last)
	}
	if c.State() != StateStopped {
		t.Errorf("state: got %s", c.State())
	}
}

func TestQuietPeriodResetsThreshold(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Unix(1000, 0).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	srv := newLoopServer()
	r := newRecorder()
	cfg := testConfig()
	cfg.Threshold = 3
	cfg.AccumulationPeriod = 10 * time.Second
	c := newTestClient(t, cfg, r, srv, WithClock(clock))
	c.Start()

	srv.accept(t).closeWith(transport.CloseNormal)
	srv.accept(t).closeWith(transport.CloseNormal)
	conn3 := srv.accept(t)
	now.Add(int64(11 * time.Second))
	conn3.closeWith(transport.CloseNormal)

	srv.accept(t)
	select {
	case <-c.Done():
		t.Fatal("client stopped although the window had emptied")
	default:
	}
	for _, err := range r.connectErrors() {
		if errors.Is(err, ErrThresholdExceeded) {
			t.Fatalf("unexpected threshold error: %v", err)
		}
	}
}

func TestDecodeErrorKeepsReceiving(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	r.waitFor(t, "OnReady")

	conn.send(joinFrames(`[{"cmd":"PrintJSON"}]`, printJSONFrame))
	conn.send("garbage")
	conn.send(printJSONFrame)

	want := []string{
		"OnReceived", "OnDecodeError", "OnPacket:PrintJSON", "OnPrintJSON",
		"OnReceived", "OnDecodeError",
		"OnReceived", "OnPacket:PrintJSON", "OnPrintJSON",
	}
	for i, w := range want {
		if got := r.next(t); got != w {
			t.Fatalf("event %d: got %s, want %s", i, got, w)
		}
	}
	if c.State() != StateReady {
		t.Errorf("state: got %s, want ready", c.State())
	}
}

func TestDispatchOrder(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	r.waitFor(t, "OnReady")

	conn.send(joinFrames(roomInfoFrame, printJSONFrame))
	want := []string{"OnReceived", "OnPacket:RoomInfo", "OnPacket:PrintJSON", "OnRoomInfo", "OnPrintJSON"}
	for i, w := range want {
		if got := r.next(t); got != w {
			t.Fatalf("event %d: got %s, want %s", i, got, w)
		}
	}
}

func TestConfigErrorIsTerminal(t *testing.T) {
	srv := newLoopServer()
	srv.fail = func(int) error { return ws.ErrHandshakeBadUpgrade }
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()
	waitDone(t, c)

	if got := srv.dials.Load(); got != 1 {
		t.Errorf("dial attempts: got %d, want 1", got)
	}
	errs := r.connectErrors()
	if len(errs) != 1 {
		t.Fatalf("errors: got %d, want 1", len(errs))
	}
	if Classify(errs[0]) != KindConfig || !errors.Is(errs[0], ws.ErrHandshakeBadUpgrade) {
		t.Errorf("error: got %v", errs[0])
	}
}

func refusedDial() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func TestTransportErrorRetried(t *testing.T) {
	srv := newLoopServer()
	srv.fail = func(n int) error {
		if n <= 2 {
			return refusedDial()
		}
		return nil
	}
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()

	srv.accept(t)
	r.waitFor(t, "OnReady")
	errs := r.connectErrors()
	if len(errs) != 2 {
		t.Fatalf("errors: got %d, want 2", len(errs))
	}
	for _, err := range errs {
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindTransport || e.Op != "dial" {
			t.Errorf("error: got %v", err)
		}
	}
}

func TestTransportErrorWithoutAutoReconnect(t *testing.T) {
	srv := newLoopServer()
	srv.fail = func(int) error { return refusedDial() }
	r := newRecorder()
	cfg := testConfig()
	cfg.AutoReconnect = false
	c := newTestClient(t, cfg, r, srv)
	c.Start()
	waitDone(t, c)

	if got := srv.dials.Load(); got != 1 {
		t.Errorf("dial attempts: got %d, want 1", got)
	}
	if errs := r.connectErrors(); len(errs) != 1 || Classify(errs[0]) != KindTransport {
		t.Errorf("errors: got %v", errs)
	}
}

func TestBrokenSocketRequeuesAndReconnects(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	r.waitFor(t, "OnReady")

	conn.Close()
	c.Send(wire.Say{Text: "survives"})

	conn2 := srv.accept(t)
	if got := conn2.expect(t); got != sayFrame("survives") {
		t.Fatalf("frame: got %s", got)
	}
	errs := r.connectErrors()
	if len(errs) == 0 {
		t.Fatal("expected an I/O error report")
	}
	if Classify(errs[0]) != KindTransport {
		t.Errorf("error kind: got %s", Classify(errs[0]))
	}
}

func TestInvalidAddressIsTerminal(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	cfg := testConfig()
	cfg.Port = 0
	c := newTestClient(t, cfg, r, srv)
	c.Start()
	waitDone(t, c)

	if srv.dials.Load() != 0 {
		t.Error("should not dial an invalid address")
	}
	errs := r.connectErrors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidAddress) || Classify(errs[0]) != KindConfig {
		t.Errorf("errors: got %v", errs)
	}
}

func TestUnknownTransport(t *testing.T) {
	r := newRecorder()
	cfg := testConfig()
	cfg.Transport = "carrier-pigeon"
	c := New(cfg, r, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	c.Start()
	waitDone(t, c)

	errs := r.connectErrors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnknownTransport) {
		t.Errorf("errors: got %v", errs)
	}
}

func TestStopBeforeStart(t *testing.T) {
	c := newTestClient(t, testConfig(), nil, newLoopServer())
	c.Stop()
	c.Stop()
	waitDone(t, c)

	if err := c.Start(); !errors.Is(err, ErrClientStopped) {
		t.Errorf("start after stop: got %v", err)
	}
	if err := c.Send(wire.Sync{}); !errors.Is(err, ErrClientStopped) {
		t.Errorf("send after stop: got %v", err)
	}
	if c.State() != StateStopped {
		t.Errorf("state: got %s", c.State())
	}
}

func TestStartTwice(t *testing.T) {
	srv := newLoopServer()
	c := newTestClient(t, testConfig(), nil, srv)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second start: got %v", err)
	}
}

func TestStopFromHandler(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	var c *Client
	r.roomInfo = func(context.Context, *wire.RoomInfo) { c.Stop() }
	c = newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	conn.send(roomInfoFrame)

	waitDone(t, c)
	if !conn.isClosed() {
		t.Error("socket left open after stop")
	}
	if srv.dials.Load() != 1 {
		t.Errorf("client reconnected after stop: %d dials", srv.dials.Load())
	}
}

func TestStopInterruptsBackoff(t *testing.T) {
	srv := newLoopServer()
	cfg := testConfig()
	cfg.BackoffUnit = time.Hour
	cfg.MaxBackoff = time.Hour
	c := newTestClient(t, cfg, nil, srv)
	c.Start()
	srv.accept(t).closeWith(transport.CloseNormal)
	eventually(t, func() bool { return c.State() == StateReconnecting }, "backoff")

	start := time.Now()
	c.Close()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("close took %v", elapsed)
	}
}

func TestWait(t *testing.T) {
	srv := newLoopServer()
	c := newTestClient(t, testConfig(), nil, srv)
	c.Start()

	task := make(chan struct{})
	close(task)
	if err := c.Wait(context.Background(), task); err != nil {
		t.Errorf("wait on finished task: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Wait(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait with deadline: got %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Stop()
	}()
	if err := c.Wait(context.Background(), nil); err != nil {
		t.Errorf("wait for stop: %v", err)
	}
}

func TestConnectUUID(t *testing.T) {
	srv := newLoopServer()
	const id = "5b1e0c6c-6a4f-4e8e-9d1c-1f0a3e6b2c11"
	c := newTestClient(t, testConfig(), nil, srv, WithUUID(id))
	c.Start()
	conn := srv.accept(t)

	c.Send(wire.Connect{Name: "A"})
	c.Send(&wire.Connect{Name: "B", UUID: "own"})

	for _, want := range []string{id, "own"} {
		packets, err := frame.DecodeClient([]byte(conn.expect(t)))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := packets[0].(wire.Connect).UUID; got != want {
			t.Errorf("uuid: got %q, want %q", got, want)
		}
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	srv := newLoopServer()
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	r := newRecorder()
	r.printJSON = func(context.Context, *wire.PrintJSON) { panic("boom") }
	c := newTestClient(t, testConfig(), r, srv, WithMetrics(m))
	c.Start()
	conn := srv.accept(t)

	conn.send(printJSONFrame)
	conn.send(roomInfoFrame)
	r.waitFor(t, "OnRoomInfo")

	if got := testutil.ToFloat64(m.handlerPanics); got != 1 {
		t.Errorf("handler panics: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.packetsReceived.WithLabelValues("PrintJSON")); got != 1 {
		t.Errorf("PrintJSON packets: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.framesReceived); got != 2 {
		t.Errorf("frames received: got %v, want 2", got)
	}
}

func TestMetricsRecordTraffic(t *testing.T) {
	srv := newLoopServer()
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv, WithMetrics(m))
	c.Start()
	conn := srv.accept(t)

	for i := 0; i < 3; i++ {
		c.Send(wire.Sync{})
		conn.expect(t)
	}
	eventually(t, func() bool { return testutil.ToFloat64(m.framesSent) == 3 }, "frames_sent_total to reach 3")

	conn.closeWith(transport.CloseGoingAway)
	r.waitFor(t, "OnConnectionClosed:1001")
	if got := testutil.ToFloat64(m.remoteCloses.WithLabelValues("1001")); got != 1 {
		t.Errorf("remote closes: got %v", got)
	}

	srv.accept(t)
	r.waitFor(t, "OnReady")
	if got := testutil.ToFloat64(m.reconnects); got != 1 {
		t.Errorf("reconnects: got %v", got)
	}
	if got := testutil.ToFloat64(m.connects); got != 2 {
		t.Errorf("connects: got %v", got)
	}

	count, err := testutil.GatherAndCount(reg, "test_client_backoff_seconds")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Errorf("backoff series: got %d, want 1", count)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.frameSent()
	m.packetReceived("RoomInfo")
	m.connectError(KindConfig)
	m.setQueueDepth(3)
}

func TestBadMessageKeepsConnection(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	r.waitFor(t, "OnReady")

	conn.fail(&transport.MessageError{Data: []byte("[{\"cmd\":\"Say\xff\"}]"), Err: transport.ErrInvalidUTF8})
	conn.send(printJSONFrame)

	want := []string{"OnReceived", "OnDecodeError", "OnReceived", "OnPacket:PrintJSON", "OnPrintJSON"}
	for i, w := range want {
		if got := r.next(t); got != w {
			t.Fatalf("event %d: got %s, want %s", i, got, w)
		}
	}
	if got := srv.dials.Load(); got != 1 {
		t.Errorf("dials: got %d, want 1", got)
	}
	if errs := r.connectErrors(); len(errs) != 0 {
		t.Errorf("connect errors: got %v", errs)
	}
	if c.State() != StateReady {
		t.Errorf("state: got %s, want ready", c.State())
	}
}

func TestUnrecognisedReadErrorIsRetried(t *testing.T) {
	srv := newLoopServer()
	r := newRecorder()
	c := newTestClient(t, testConfig(), r, srv)
	c.Start()
	conn := srv.accept(t)
	r.waitFor(t, "OnReady")

	conn.fail(errors.New("stream corrupted"))
	srv.accept(t)
	r.waitFor(t, "OnReady")

	errs := r.connectErrors()
	if len(errs) != 1 {
		t.Fatalf("errors: got %v", errs)
	}
	var e *Error
	if !errors.As(errs[0], &e) || e.Kind != KindTransport || e.Op != "io" {
		t.Errorf("error: got %v", errs[0])
	}
}

func TestQueuedConnectSupersedesReplay(t *testing.T) {
	srv := newLoopServer()
	srv.hold = make(chan struct{})
	r := newRecorder()
	var c *Client
	r.roomInfo = func(context.Context, *wire.RoomInfo) { c.Send(slotConnect()) }
	c = newTestClient(t, testConfig(), r, srv)
	c.Start()

	conn := srv.accept(t)
	connectSlot(t, c, r, conn)
	conn.closeWith(transport.CloseNormal)
	r.waitFor(t, "OnConnectionClosed:1000")

	second := slotConnect()
	second.Name = "Player2"
	c.Send(second)
	srv.release(t)

	conn2 := srv.accept(t)
	sent := conn2.expect(t)
	packets, err := frame.DecodeClient([]byte(sent))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := packets[0].(wire.Connect).Name; got != "Player2" {
		t.Fatalf("first frame after reconnect: got Connect for %q, want Player2", got)
	}
	conn2.expectNothing(t)

	conn2.send(connectedFrame)
	eventually(t, func() bool {
		last, ok := c.LastConnect()
		return ok && last.Name == "Player2"
	}, "Player2 to be the accepted Connect")

	conn2.closeWith(transport.CloseNormal)
	r.waitFor(t, "OnConnectionClosed:1000")
	srv.release(t)
	if got := srv.accept(t).expect(t); got != sent {
		t.Errorf("replay: got %s, want %s", got, sent)
	}
}

func TestConnectedAnswersConnectsInOrder(t *testing.T) {
	srv := newLoopServer()
	c := newTestClient(t, testConfig(), nil, srv)
	c.Start()
	conn := srv.accept(t)

	first, second := slotConnect(), slotConnect()
	second.Name = "Player2"
	c.Send(first)
	c.Send(second)
	conn.expect(t)
	conn.expect(t)

	conn.send(connectedFrame)
	eventually(t, func() bool {
		last, ok := c.LastConnect()
		return ok && last.Name == "Player1"
	}, "Player1 to be accepted first")

	conn.send(connectedFrame)
	eventually(t, func() bool {
		last, _ := c.LastConnect()
		return last.Name == "Player2"
	}, "Player2 to be accepted second")
}
