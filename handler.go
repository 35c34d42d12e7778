package archipelago

import (
	"context"

	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

// Handler receives lifecycle events and inbound packets. Every method is
// called from the client's own goroutines, one at a time, in the order the
// events happened. A handler may call Send or Stop but must not call Close,
// which waits for the very goroutine running the handler.
//
// The ctx passed to packet callbacks is cancelled when the connection that
// delivered the packet goes away.
//
// Embed BaseHandler to implement only the callbacks you need.
type Handler interface {
	// OnReady fires once per successful connection, after any automatic
	// reauthentication and before the first inbound frame is read.
	OnReady(ctx context.Context)
	// OnConnectError receives every *Error that ends a connection attempt,
	// retried or not.
	OnConnectError(err error)
	// OnConnectionClosed fires when the server closes the connection.
	OnConnectionClosed(code int)
	// OnServerShutdown fires before OnConnectionClosed when the close code is
	// 1001, meaning the room went to standby.
	OnServerShutdown()
	// OnReceived fires with every raw frame before it is decoded.
	OnReceived(ctx context.Context, raw []byte)
	// OnDecodeError fires once for every packet in raw that failed to decode.
	OnDecodeError(raw []byte, err error)
	// OnPacket fires for every decoded packet before its typed callback.
	// Changes made to p are seen by the typed callback.
	OnPacket(ctx context.Context, p wire.ServerPacket)

	OnRoomInfo(ctx context.Context, p *wire.RoomInfo)
	OnRoomUpdate(ctx context.Context, p *wire.RoomUpdate)
	OnConnected(ctx context.Context, p *wire.Connected)
	OnConnectionRefused(ctx context.Context, p *wire.ConnectionRefused)
	OnDataPackage(ctx context.Context, p *wire.DataPackage)
	OnInvalidPacket(ctx context.Context, p *wire.InvalidPacket)
	OnLocationInfo(ctx context.Context, p *wire.LocationInfo)
	OnPrintJSON(ctx context.Context, p *wire.PrintJSON)
	OnReceivedItems(ctx context.Context, p *wire.ReceivedItems)
	OnRetrieved(ctx context.Context, p *wire.Retrieved)
	OnBounced(ctx context.Context, p *wire.Bounced)
	OnSetReply(ctx context.Context, p *wire.SetReply)
}

// BaseHandler implements Handler with no-ops.
type BaseHandler struct{}

func (BaseHandler) OnReady(context.Context)                                      {}
func (BaseHandler) OnConnectError(error)                                         {}
func (BaseHandler) OnConnectionClosed(int)                                       {}
func (BaseHandler) OnServerShutdown()                                            {}
func (BaseHandler) OnReceived(context.Context, []byte)                           {}
func (BaseHandler) OnDecodeError([]byte, error)                                  {}
func (BaseHandler) OnPacket(context.Context, wire.ServerPacket)                  {}
func (BaseHandler) OnRoomInfo(context.Context, *wire.RoomInfo)                   {}
func (BaseHandler) OnRoomUpdate(context.Context, *wire.RoomUpdate)               {}
func (BaseHandler) OnConnected(context.Context, *wire.Connected)                 {}
func (BaseHandler) OnConnectionRefused(context.Context, *wire.ConnectionRefused) {}
func (BaseHandler) OnDataPackage(context.Context, *wire.DataPackage)             {}
func (BaseHandler) OnInvalidPacket(context.Context, *wire.InvalidPacket)         {}
func (BaseHandler) OnLocationInfo(context.Context, *wire.LocationInfo)           {}
func (BaseHandler) OnPrintJSON(context.Context, *wire.PrintJSON)                 {}
func (BaseHandler) OnReceivedItems(context.Context, *wire.ReceivedItems)         {}
func (BaseHandler) OnRetrieved(context.Context, *wire.Retrieved)                 {}
func (BaseHandler) OnBounced(context.Context, *wire.Bounced)                     {}
func (BaseHandler) OnSetReply(context.Context, *wire.SetReply)                   {}

var _ Handler = BaseHandler{}
