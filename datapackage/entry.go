package datapackage

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

// Packages above packThreshold bytes of JSON are kept zstd-framed. Item and
// location tables of the larger games are several hundred KB each.
const packThreshold = 1 << 10

var (
	packer, _   = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression), zstd.WithEncoderConcurrency(1))
	unpacker, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// entry is one game's cached data package.
type entry struct {
	checksum string
	blob     []byte // JSON, or a zstd frame of it when packed
	packed   bool
	rawSize  int
}

func newEntry(gd wire.GameData) (entry, error) {
	raw, err := json.Marshal(gd)
	if err != nil {
		return entry{}, err
	}
	e := entry{checksum: gd.Checksum, blob: raw, rawSize: len(raw)}
	if len(raw) > packThreshold {
		if packed := packer.EncodeAll(raw, nil); len(packed) < len(raw) {
			e.blob, e.packed = packed, true
		}
	}
	return e, nil
}

// gameData rebuilds the package held by e.
func (e entry) gameData() (wire.GameData, error) {
	raw := e.blob
	if e.packed {
		var err error
		if raw, err = unpacker.DecodeAll(e.blob, make([]byte, 0, e.rawSize)); err != nil {
			return wire.GameData{}, fmt.Errorf("datapackage: unpack: %w", err)
		}
	}
	var gd wire.GameData
	if err := json.Unmarshal(raw, &gd); err != nil {
		return wire.GameData{}, fmt.Errorf("datapackage: decode: %w", err)
	}
	return gd, nil
}
