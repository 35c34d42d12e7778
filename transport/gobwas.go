package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const closeWriteTimeout = time.Second

// gobwasDialer dials with github.com/gobwas/ws.
type gobwasDialer struct {
	d ws.Dialer
}

// NewDialer returns the default dialer.
func NewDialer(opts DialOptions) Dialer {
	d := ws.Dialer{
		Timeout:   opts.Timeout,
		TLSConfig: opts.TLSConfig,
	}
	if len(opts.Header) > 0 {
		d.Header = ws.HandshakeHeaderHTTP(opts.Header)
	}
	return &gobwasDialer{d: d}
}

func (g *gobwasDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, br, _, err := g.d.Dial(ctx, url)
	if err != nil {
		return nil, err
	}

	c := &gobwasConn{conn: conn}
	// The server may have sent frames right behind the handshake response;
	// those bytes sit in br and must be read before the raw conn.
	var src io.Reader = conn
	if br != nil {
		src = io.MultiReader(br, conn)
	}
	c.rd = wsutil.Reader{
		Source:    src,
		State:     ws.StateClientSide,
		CheckUTF8: false, // checked per message in ReadMessage
		OnIntermediate: func(h ws.Header, r io.Reader) error {
			return c.control(h, r)
		},
	}
	return c, nil
}

type gobwasConn struct {
	conn net.Conn
	rd   wsutil.Reader

	// wmu serialises every write so control replies never interleave with
	// data frames.
	wmu  sync.Mutex
	ctrl bytes.Buffer

	closeOnce sync.Once
}

func (c *gobwasConn) ReadMessage(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(pastDeadline)
	})
	defer stop()

	for {
		h, err := c.rd.NextFrame()
		if err != nil {
			return nil, c.readErr(ctx, err)
		}
		if h.OpCode.IsControl() {
			if err := c.control(h, &c.rd); err != nil {
				return nil, c.readErr(ctx, err)
			}
			continue
		}
		if h.OpCode != ws.OpText && h.OpCode != ws.OpBinary {
			if err := c.rd.Discard(); err != nil {
				return nil, c.readErr(ctx, err)
			}
			continue
		}
		data, err := io.ReadAll(&c.rd)
		if err != nil {
			return nil, c.readErr(ctx, err)
		}
		if h.OpCode == ws.OpText {
			if err := checkText(data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
}

func (c *gobwasConn) WriteMessage(ctx context.Context, data []byte) error {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetWriteDeadline(pastDeadline)
	})
	defer stop()

	var buf bytes.Buffer
	if err := wsutil.WriteClientMessage(&buf, ws.OpText, data); err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Close sends a normal close frame, best effort, and closes the socket.
func (c *gobwasConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		var buf bytes.Buffer
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		if wsutil.WriteClientMessage(&buf, ws.OpClose, body) == nil {
			c.wmu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
			c.conn.Write(buf.Bytes())
			c.wmu.Unlock()
		}
		err = c.conn.Close()
	})
	return err
}

// control answers ping and close frames. Replies are built in a buffer and
// flushed under the write lock.
func (c *gobwasConn) control(h ws.Header, r io.Reader) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.ctrl.Reset()
	handle := wsutil.ControlFrameHandler(&c.ctrl, ws.StateClientSide)
	herr := handle(h, r)
	if c.ctrl.Len() > 0 {
		if _, err := c.conn.Write(c.ctrl.Bytes()); err != nil && herr == nil {
			herr = err
		}
	}
	return herr
}

func (c *gobwasConn) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		return &CloseError{Code: int(closed.Code), Reason: closed.Reason}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &CloseError{Code: CloseAbnormal}
	}
	return err
}
