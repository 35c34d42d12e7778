package wire

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// RoomInfo is the first packet a server sends after the socket opens.
type RoomInfo struct {
	Version              Version           `json:"version"`
	GeneratorVersion     Version           `json:"generator_version"`
	Permissions          Permissions       `json:"permissions"`
	DatapackageChecksums map[string]string `json:"datapackage_checksums"`
	Tags                 []string          `json:"tags"`
	Games                []string          `json:"games"`
	SeedName             string            `json:"seed_name"`
	Time                 float64           `json:"time"`
	HintCost             int               `json:"hint_cost"`
	LocationCheckPoints  int               `json:"location_check_points"`
	Password             bool              `json:"password"`
}

// ServerTime converts the Unix timestamp in Time.
func (p *RoomInfo) ServerTime() time.Time {
	sec, frac := math.Modf(p.Time)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// OutdatedGames lists the room's games whose checksum differs from the one in
// cached, in the order the room announced them.
func (p *RoomInfo) OutdatedGames(cached map[string]string) []string {
	var out []string
	seen := make(map[string]bool, len(p.Games))
	for _, g := range p.Games {
		if seen[g] {
			continue
		}
		seen[g] = true
		sum, ok := p.DatapackageChecksums[g]
		if !ok || cached[g] != sum {
			out = append(out, g)
		}
	}
	return out
}

// RoomUpdate carries any subset of the RoomInfo and Connected fields.
type RoomUpdate struct {
	Version              *Version            `json:"version,omitempty"`
	GeneratorVersion     *Version            `json:"generator_version,omitempty"`
	Permissions          *Permissions        `json:"permissions,omitempty"`
	DatapackageChecksums map[string]string   `json:"datapackage_checksums,omitempty"`
	Tags                 []string            `json:"tags,omitempty"`
	Games                []string            `json:"games,omitempty"`
	SeedName             *string             `json:"seed_name,omitempty"`
	Time                 *float64            `json:"time,omitempty"`
	HintCost             *int                `json:"hint_cost,omitempty"`
	LocationCheckPoints  *int                `json:"location_check_points,omitempty"`
	Password             *bool               `json:"password,omitempty"`
	SlotData             json.RawMessage     `json:"slot_data,omitempty"`
	SlotInfo             map[int]NetworkSlot `json:"slot_info,omitempty"`
	Players              []NetworkPlayer     `json:"players,omitempty"`
	CheckedLocations     []int64             `json:"checked_locations,omitempty"`
	Team                 *int                `json:"team,omitempty"`
	Slot                 *int                `json:"slot,omitempty"`
	HintPoints           *int                `json:"hint_points,omitempty"`
}

// Connected acknowledges a Connect.
type Connected struct {
	Team             int                 `json:"team"`
	Slot             int                 `json:"slot"`
	HintPoints       int                 `json:"hint_points"`
	SlotInfo         map[int]NetworkSlot `json:"slot_info"`
	Players          []NetworkPlayer     `json:"players"`
	MissingLocations []int64             `json:"missing_locations,omitempty"`
	CheckedLocations []int64             `json:"checked_locations,omitempty"`
	SlotData         json.RawMessage     `json:"slot_data,omitempty"`
}

// ConnectionRefused rejects a Connect. It implements error so a handler can
// hand it straight to whatever reports failures.
type ConnectionRefused struct {
	Errors []ConnectionRefusedReason `json:"errors"`
}

func (p *ConnectionRefused) Error() string {
	if len(p.Errors) == 0 {
		return "connection refused"
	}
	reasons := make([]string, len(p.Errors))
	for i, r := range p.Errors {
		reasons[i] = string(r)
	}
	return "connection refused: " + strings.Join(reasons, ", ")
}

// DataPackageData is the payload of a DataPackage packet.
type DataPackageData struct {
	Games map[string]GameData `json:"games"`
}

// DataPackage answers GetDataPackage.
type DataPackage struct {
	Data DataPackageData `json:"data"`
}

// InvalidPacket reports a packet the server could not accept.
type InvalidPacket struct {
	Type        PacketProblemType `json:"type"`
	Text        string            `json:"text"`
	OriginalCmd *string           `json:"original_cmd,omitempty"`
}

// LocationInfo answers LocationScouts.
type LocationInfo struct {
	Locations []NetworkItem `json:"locations"`
}

// PrintJSON is a message meant for display.
type PrintJSON struct {
	Data      []JSONMessagePart `json:"data"`
	Type      PrintJSONType     `json:"type,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Item      *NetworkItem      `json:"item,omitempty"`
	Message   *string           `json:"message,omitempty"`
	Receiving *int              `json:"receiving,omitempty"`
	Team      *int              `json:"team,omitempty"`
	Slot      *int              `json:"slot,omitempty"`
	Countdown *int              `json:"countdown,omitempty"`
	Found     *bool             `json:"found,omitempty"`
}

// PlainText joins the text of every part, ignoring formatting.
func (p *PrintJSON) PlainText() string {
	var b strings.Builder
	for _, part := range p.Data {
		b.WriteString(part.Text)
	}
	return b.String()
}

// ReceivedItems delivers items to the client starting at Index.
type ReceivedItems struct {
	Index int           `json:"index"`
	Items []NetworkItem `json:"items"`
}

// Retrieved answers Get.
type Retrieved struct {
	Keys map[string]json.RawMessage `json:"keys"`
}

// Bounced relays a Bounce from another client.
type Bounced struct {
	Games []string        `json:"games,omitempty"`
	Slots []int           `json:"slots,omitempty"`
	Tags  []string        `json:"tags,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SetReply reports a data storage change to subscribers.
type SetReply struct {
	Key           string          `json:"key"`
	Value         json.RawMessage `json:"value"`
	OriginalValue json.RawMessage `json:"original_value"`
	Slot          int             `json:"slot"`
}

func (*RoomInfo) Cmd() string          { return "RoomInfo" }
func (*RoomUpdate) Cmd() string        { return "RoomUpdate" }
func (*Connected) Cmd() string         { return "Connected" }
func (*ConnectionRefused) Cmd() string { return "ConnectionRefused" }
func (*DataPackage) Cmd() string       { return "DataPackage" }
func (*InvalidPacket) Cmd() string     { return "InvalidPacket" }
func (*LocationInfo) Cmd() string      { return "LocationInfo" }
func (*PrintJSON) Cmd() string         { return "PrintJSON" }
func (*ReceivedItems) Cmd() string     { return "ReceivedItems" }
func (*Retrieved) Cmd() string         { return "Retrieved" }
func (*Bounced) Cmd() string           { return "Bounced" }
func (*SetReply) Cmd() string          { return "SetReply" }

func (*RoomInfo) serverPacket()          {}
func (*RoomUpdate) serverPacket()        {}
func (*Connected) serverPacket()         {}
func (*ConnectionRefused) serverPacket() {}
func (*DataPackage) serverPacket()       {}
func (*InvalidPacket) serverPacket()     {}
func (*LocationInfo) serverPacket()      {}
func (*PrintJSON) serverPacket()         {}
func (*ReceivedItems) serverPacket()     {}
func (*Retrieved) serverPacket()         {}
func (*Bounced) serverPacket()           {}
func (*SetReply) serverPacket()          {}

// Required returns the JSON keys that must be present for the packet to be
// accepted. Optional keys are not listed.
func (*RoomInfo) Required() []string {
	return []string{"version", "generator_version", "permissions", "datapackage_checksums",
		"tags", "games", "seed_name", "time", "hint_cost", "location_check_points", "password"}
}
func (*RoomUpdate) Required() []string { return nil }
func (*Connected) Required() []string {
	return []string{"team", "slot", "hint_points", "slot_info", "players"}
}
func (*ConnectionRefused) Required() []string { return []string{"errors"} }
func (*DataPackage) Required() []string       { return []string{"data"} }
func (*InvalidPacket) Required() []string     { return []string{"type", "text"} }
func (*LocationInfo) Required() []string      { return []string{"locations"} }
func (*PrintJSON) Required() []string         { return []string{"data"} }
func (*ReceivedItems) Required() []string     { return []string{"index", "items"} }
func (*Retrieved) Required() []string         { return []string{"keys"} }
func (*Bounced) Required() []string           { return nil }
func (*SetReply) Required() []string          { return []string{"key", "value", "original_value", "slot"} }
