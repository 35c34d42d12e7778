// Package datapackage keeps game data packages for the life of the process,
// keyed by game and checksum, so a reconnecting client only requests the
// games whose checksum changed.
package datapackage

import (
	"fmt"
	"sync"

	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

// Cache stores one data package per game. Entries are held as JSON,
// zstd-compressed when large. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Put stores gd for game, replacing any previous entry.
func (c *Cache) Put(game string, gd wire.GameData) error {
	e, err := newEntry(gd)
	if err != nil {
		return fmt.Errorf("datapackage: encode %s: %w", game, err)
	}

	c.mu.Lock()
	c.entries[game] = e
	c.mu.Unlock()
	return nil
}

// Store puts every game of a DataPackage packet.
func (c *Cache) Store(p *wire.DataPackage) error {
	for game, gd := range p.Data.Games {
		if err := c.Put(game, gd); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the data for game if the cached checksum matches.
func (c *Cache) Get(game, checksum string) (wire.GameData, bool) {
	c.mu.RLock()
	e, ok := c.entries[game]
	c.mu.RUnlock()
	if !ok || e.checksum != checksum {
		return wire.GameData{}, false
	}
	gd, err := e.gameData()
	if err != nil {
		return wire.GameData{}, false
	}
	return gd, true
}

// Lookup returns whatever is cached for game, regardless of checksum.
func (c *Cache) Lookup(game string) (wire.GameData, bool) {
	c.mu.RLock()
	e, ok := c.entries[game]
	c.mu.RUnlock()
	if !ok {
		return wire.GameData{}, false
	}
	gd, err := e.gameData()
	return gd, err == nil
}

// Checksums returns a snapshot of game → cached checksum.
func (c *Cache) Checksums() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for g, e := range c.entries {
		out[g] = e.checksum
	}
	return out
}

// Outdated lists the games announced in room that must be requested again.
func (c *Cache) Outdated(room *wire.RoomInfo) []string {
	return room.OutdatedGames(c.Checksums())
}

// Names inverts a game's id tables for display.
func (c *Cache) Names(game string) (items, locations map[int64]string, ok bool) {
	gd, ok := c.Lookup(game)
	if !ok {
		return nil, nil, false
	}
	items = make(map[int64]string, len(gd.ItemNameToID))
	for name, id := range gd.ItemNameToID {
		items[id] = name
	}
	locations = make(map[int64]string, len(gd.LocationNameToID))
	for name, id := range gd.LocationNameToID {
		locations[id] = name
	}
	return items, locations, true
}

// Stats reports how many games are cached and the stored versus raw size.
func (c *Cache) Stats() (games, stored, raw int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		stored += len(e.blob)
		raw += e.rawSize
	}
	return len(c.entries), stored, raw
}
