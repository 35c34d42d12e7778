package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	archipelago "github.com/NeboLoop/archipelago-go-sdk"
	"github.com/NeboLoop/archipelago-go-sdk/datapackage"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

type sender interface {
	Send(wire.ClientPacket) error
	LastConnect() (wire.Connect, bool)
}

// session authenticates one slot and prints what the room says.
type session struct {
	archipelago.BaseHandler

	send    sender
	connect wire.Connect
	cache   *datapackage.Cache
	logger  *slog.Logger
	out     io.Writer

	mu      sync.Mutex
	slot    int
	lastErr error
}

func newSession(connect wire.Connect, cache *datapackage.Cache, logger *slog.Logger, out io.Writer) *session {
	return &session{connect: connect, cache: cache, logger: logger, out: out}
}

func (s *session) OnRoomInfo(_ context.Context, p *wire.RoomInfo) {
	s.logger.Info("room info",
		"seed", p.SeedName,
		"server_version", fmt.Sprintf("%d.%d.%d", p.Version.Major, p.Version.Minor, p.Version.Build),
		"password", p.Password,
	)
	if missing := s.cache.Outdated(p); len(missing) > 0 {
		s.logger.Info("requesting data packages", "games", missing)
		if err := s.send.Send(wire.GetDataPackage{Games: missing}); err != nil {
			s.logger.Warn("request data packages", "error", err)
		}
	}
	// After a reconnect the client has already replayed the accepted Connect.
	if last, ok := s.send.LastConnect(); ok {
		s.logger.Debug("slot already authenticated", "name", last.Name)
		return
	}
	if err := s.send.Send(s.connect); err != nil {
		s.logger.Warn("send connect", "error", err)
	}
}

func (s *session) OnDataPackage(_ context.Context, p *wire.DataPackage) {
	if err := s.cache.Store(p); err != nil {
		s.logger.Warn("store data package", "error", err)
		return
	}
	games, stored, raw := s.cache.Stats()
	s.logger.Debug("data packages cached", "games", games, "bytes", stored, "raw_bytes", raw)
}

func (s *session) OnConnected(_ context.Context, p *wire.Connected) {
	s.mu.Lock()
	s.slot = p.Slot
	s.mu.Unlock()
	s.logger.Info("slot authenticated",
		"team", p.Team,
		"slot", p.Slot,
		"players", len(p.Players),
		"missing_locations", len(p.MissingLocations),
	)
}

func (s *session) OnConnectionRefused(_ context.Context, p *wire.ConnectionRefused) {
	s.logger.Error("room refused the slot", "error", p.Error())
}

func (s *session) OnPrintJSON(_ context.Context, p *wire.PrintJSON) {
	fmt.Fprintln(s.out, p.PlainText())
}

func (s *session) OnReceivedItems(_ context.Context, p *wire.ReceivedItems) {
	items, _, _ := s.cache.Names(s.connect.Game)
	for i, it := range p.Items {
		name, ok := items[it.Item]
		if !ok {
			name = fmt.Sprintf("item %d", it.Item)
		}
		s.logger.Info("item received", "index", p.Index+i, "item", name, "from", it.Player, "flags", uint32(it.Flags))
	}
}

func (s *session) OnInvalidPacket(_ context.Context, p *wire.InvalidPacket) {
	s.logger.Warn("room rejected a packet", "type", p.Type, "text", p.Text)
}

func (s *session) OnConnectError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.logger.Warn("connection problem", "kind", archipelago.Classify(err).String(), "error", err)
}

func (s *session) OnConnectionClosed(code int) {
	s.logger.Info("room closed the connection", "code", code)
}

func (s *session) OnServerShutdown() {
	s.logger.Info("room is restarting")
}

func (s *session) slotNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot
}

// fatalError returns the error that stopped the client, if any.
func (s *session) fatalError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
