package archipelago

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// WebHost types
// --------------------------------------------------------------------------

// RoomStatus is returned by GET /api/room_status/{room}.
type RoomStatus struct {
	Tracker      string         `json:"tracker"`
	Players      []RoomPlayer   `json:"players"`
	LastPort     int            `json:"last_port"`
	LastActivity string         `json:"last_activity"`
	Timeout      int            `json:"timeout"`
	Downloads    []SlotDownload `json:"downloads"`
}

// RoomPlayer is one slot in a room. The host sends it as a [name, game] pair.
type RoomPlayer struct {
	Name string
	Game string
}

func (p *RoomPlayer) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("room player: want [name, game], got %d elements", len(pair))
	}
	p.Name, p.Game = pair[0], pair[1]
	return nil
}

func (p RoomPlayer) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Name, p.Game})
}

// SlotDownload links a slot to its patch file.
type SlotDownload struct {
	Slot     int    `json:"slot"`
	Download string `json:"download"`
}

// APIError is a non-2xx response from the web host.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("archipelago: GET %s returned %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("archipelago: GET %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}
