package archipelago

import (
	"context"

	"github.com/NeboLoop/archipelago-go-sdk/frame"
	"github.com/NeboLoop/archipelago-go-sdk/transport"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

// dispatch decodes one inbound frame and delivers it. Every packet goes to
// OnPacket first, in frame order; then each packet, in the same order, goes
// to its typed callback followed by the client's own bookkeeping.
func (c *Client) dispatch(ctx context.Context, raw []byte) {
	c.safe("OnReceived", func() { c.handler.OnReceived(ctx, raw) })

	packets, err := frame.Decode(raw)
	for _, de := range frame.DecodeErrors(err) {
		c.metrics.decodeError()
		c.logger.Warn("bad packet", "index", de.Index, "cmd", de.Cmd, "error", de.Err)
		c.safe("OnDecodeError", func() { c.handler.OnDecodeError(raw, de) })
	}

	for _, p := range packets {
		c.metrics.packetReceived(p.Cmd())
		c.logger.Debug("packet received", "cmd", p.Cmd())
		c.safe("OnPacket", func() { c.handler.OnPacket(ctx, p) })
	}
	for _, p := range packets {
		c.route(ctx, p)
		c.observe(p)
	}
}

// reject reports a message that arrived intact but is unusable, such as a
// text frame that is not valid UTF-8. The connection stays up.
func (c *Client) reject(ctx context.Context, bad *transport.MessageError) {
	c.safe("OnReceived", func() { c.handler.OnReceived(ctx, bad.Data) })
	de := &frame.DecodeError{Index: -1, Err: bad.Err}
	c.metrics.decodeError()
	c.logger.Warn("bad frame", "error", bad.Err, "bytes", len(bad.Data))
	c.safe("OnDecodeError", func() { c.handler.OnDecodeError(bad.Data, de) })
}

// route calls the typed callback for p's exact type.
func (c *Client) route(ctx context.Context, p wire.ServerPacket) {
	h := c.handler
	c.safe("On"+p.Cmd(), func() {
		switch p := p.(type) {
		case *wire.RoomInfo:
			h.OnRoomInfo(ctx, p)
		case *wire.RoomUpdate:
			h.OnRoomUpdate(ctx, p)
		case *wire.Connected:
			h.OnConnected(ctx, p)
		case *wire.ConnectionRefused:
			h.OnConnectionRefused(ctx, p)
		case *wire.DataPackage:
			h.OnDataPackage(ctx, p)
		case *wire.InvalidPacket:
			h.OnInvalidPacket(ctx, p)
		case *wire.LocationInfo:
			h.OnLocationInfo(ctx, p)
		case *wire.PrintJSON:
			h.OnPrintJSON(ctx, p)
		case *wire.ReceivedItems:
			h.OnReceivedItems(ctx, p)
		case *wire.Retrieved:
			h.OnRetrieved(ctx, p)
		case *wire.Bounced:
			h.OnBounced(ctx, p)
		case *wire.SetReply:
			h.OnSetReply(ctx, p)
		}
	})
}

// observe applies the client's reaction to authentication results.
func (c *Client) observe(p wire.ServerPacket) {
	switch p := p.(type) {
	case *wire.Connected:
		if c.acknowledgeAuth() {
			c.logger.Info("authenticated", "team", p.Team, "slot", p.Slot)
		}
	case *wire.ConnectionRefused:
		c.refuseAuth()
		c.logger.Warn("connection refused", "errors", p.Errors)
	case *wire.InvalidPacket:
		c.logger.Warn("server rejected packet", "type", p.Type, "text", p.Text)
	}
}

func (c *Client) safe(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.handlerPanic()
			c.logger.Error("handler panicked", "handler", name, "panic", r)
		}
	}()
	fn()
}
