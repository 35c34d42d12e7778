package wire

import "encoding/json"

// Connect authenticates the client into a room slot.
type Connect struct {
	Password      string        `json:"password"`
	Game          string        `json:"game"`
	Name          string        `json:"name"`
	UUID          string        `json:"uuid"`
	Version       Version       `json:"version"`
	ItemsHandling ItemsHandling `json:"items_handling"`
	Tags          []string      `json:"tags"`
	SlotData      bool          `json:"slot_data"`
}

// MarshalJSON always emits tags as a list; the server rejects null.
func (p Connect) MarshalJSON() ([]byte, error) {
	type plain Connect
	v := plain(p)
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return json.Marshal(v)
}

// ConnectUpdate changes tags or item handling after authentication.
type ConnectUpdate struct {
	ItemsHandling ItemsHandling `json:"items_handling"`
	Tags          []string      `json:"tags"`
}

// Bounce asks the server to relay Data to the matching clients.
type Bounce struct {
	Games []string        `json:"games,omitempty"`
	Slots []int           `json:"slots,omitempty"`
	Tags  []string        `json:"tags,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Get reads keys from the server's data storage.
type Get struct {
	Keys []string `json:"keys"`
}

// GetDataPackage requests data packages, optionally only for Games.
type GetDataPackage struct {
	Games []string `json:"games,omitempty"`
}

// LocationChecks reports checked locations.
type LocationChecks struct {
	Locations []int64 `json:"locations"`
}

// LocationScouts asks which items sit at the given locations.
type LocationScouts struct {
	Locations    []int64           `json:"locations"`
	CreateAsHint LocationScoutHint `json:"create_as_hint"`
}

// Say sends a chat message.
type Say struct {
	Text string `json:"text"`
}

// Set writes a data storage key.
type Set struct {
	Key        string                 `json:"key"`
	Default    any                    `json:"default"`
	WantReply  bool                   `json:"want_reply"`
	Operations []DataStorageOperation `json:"operations"`
}

// SetNotify subscribes to changes of data storage keys.
type SetNotify struct {
	Keys []string `json:"keys"`
}

// StatusUpdate reports the client's status.
type StatusUpdate struct {
	Status ClientStatus `json:"status"`
}

// Sync requests a full ReceivedItems resend.
type Sync struct{}

// UpdateHint changes the status of a hint.
type UpdateHint struct {
	Player   int         `json:"player"`
	Location int64       `json:"location"`
	Status   *HintStatus `json:"status,omitempty"`
}

func (Connect) Cmd() string        { return "Connect" }
func (ConnectUpdate) Cmd() string  { return "ConnectUpdate" }
func (Bounce) Cmd() string         { return "Bounce" }
func (Get) Cmd() string            { return "Get" }
func (GetDataPackage) Cmd() string { return "GetDataPackage" }
func (LocationChecks) Cmd() string { return "LocationChecks" }
func (LocationScouts) Cmd() string { return "LocationScouts" }
func (Say) Cmd() string            { return "Say" }
func (Set) Cmd() string            { return "Set" }
func (SetNotify) Cmd() string      { return "SetNotify" }
func (StatusUpdate) Cmd() string   { return "StatusUpdate" }
func (Sync) Cmd() string           { return "Sync" }
func (UpdateHint) Cmd() string     { return "UpdateHint" }

func (Connect) clientPacket()        {}
func (ConnectUpdate) clientPacket()  {}
func (Bounce) clientPacket()         {}
func (Get) clientPacket()            {}
func (GetDataPackage) clientPacket() {}
func (LocationChecks) clientPacket() {}
func (LocationScouts) clientPacket() {}
func (Say) clientPacket()            {}
func (Set) clientPacket()            {}
func (SetNotify) clientPacket()      {}
func (StatusUpdate) clientPacket()   {}
func (Sync) clientPacket()           {}
func (UpdateHint) clientPacket()     {}
