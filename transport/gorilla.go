package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type gorillaDialer struct {
	d      *websocket.Dialer
	header http.Header
}

// NewGorillaDialer returns a dialer built on gorilla/websocket. Unlike the
// default dialer it goes through the proxy named by HTTP_PROXY/HTTPS_PROXY.
func NewGorillaDialer(opts DialOptions) Dialer {
	return &gorillaDialer{
		d: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.Timeout,
			TLSClientConfig:  opts.TLSConfig,
		},
		header: opts.Header,
	}
}

func (g *gorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := g.d.DialContext(ctx, url, g.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (c *gorillaConn) ReadMessage(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(pastDeadline)
	})
	defer stop()

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
			}
			return nil, err
		}
		switch typ {
		case websocket.TextMessage:
			if err := checkText(data); err != nil {
				return nil, err
			}
			return data, nil
		case websocket.BinaryMessage:
			return data, nil
		}
	}
}

func (c *gorillaConn) WriteMessage(ctx context.Context, data []byte) error {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetWriteDeadline(pastDeadline)
	})
	defer stop()

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (c *gorillaConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		err = c.conn.Close()
	})
	return err
}
