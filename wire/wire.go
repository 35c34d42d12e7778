// Package wire defines the JSON packet types for the Archipelago room
// protocol. Every packet travels inside a JSON array frame and is identified by
// its "cmd" field; the frame package owns that envelope, this package only
// describes the payloads.
package wire

// Packet is any protocol message. Cmd returns the discriminator written to
// the "cmd" field on the wire.
type Packet interface {
	Cmd() string
}

// ClientPacket is a packet sent from the client to the server.
type ClientPacket interface {
	Packet
	clientPacket()
}

// ServerPacket is a packet sent from the server to the client.
type ServerPacket interface {
	Packet
	serverPacket()
}

// Version is an Archipelago version triple.
//
// Class is only set when the peer tagged the object with a "class" field, or
// when the caller wants the tag emitted.
type Version struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class,omitempty"`
}

// NetworkItem describes an item, where it was found and who owns it.
type NetworkItem struct {
	Item     int64            `json:"item"`
	Location int64            `json:"location"`
	Player   int              `json:"player"`
	Flags    NetworkItemFlags `json:"flags"`
}

// NetworkSlot describes a slot in the multiworld.
type NetworkSlot struct {
	Type         SlotType `json:"type"`
	GroupMembers []int    `json:"group_members"`
	Name         string   `json:"name"`
	Game         string   `json:"game"`
}

// NetworkPlayer identifies a player by team and slot.
type NetworkPlayer struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

// Permissions maps the room's command permissions.
type Permissions struct {
	Release   Permission `json:"release"`
	Collect   Permission `json:"collect"`
	Remaining Permission `json:"remaining"`
}

// GameData is one game's entry in a data package.
type GameData struct {
	Checksum         string           `json:"checksum"`
	ItemNameToID     map[string]int64 `json:"item_name_to_id"`
	LocationNameToID map[string]int64 `json:"location_name_to_id"`
}

// JSONMessagePart is a single fragment of a PrintJSON message.
type JSONMessagePart struct {
	Type       JSONMessagePartType `json:"type,omitempty"`
	Text       string              `json:"text,omitempty"`
	Color      string              `json:"color,omitempty"`
	Flags      NetworkItemFlags    `json:"flags,omitempty"`
	Player     *int                `json:"player,omitempty"`
	HintStatus *HintStatus         `json:"hint_status,omitempty"`
}

// DataStorageOperation is one step applied by a Set packet.
type DataStorageOperation struct {
	Operation Operation `json:"operation"`
	Value     any       `json:"value"`
}
