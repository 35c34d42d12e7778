// Package frame translates websocket text frames to and from typed packets.
//
// A frame is a JSON array of one or more packet objects, each tagged with a
// "cmd" discriminator:
//
//	[{"cmd":"RoomInfo", ...}, {"cmd":"PrintJSON", ...}]
//
// Outbound frames always hold exactly one packet. Inbound frames are decoded
// element by element so one bad object does not cost the rest of the frame.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

var (
	ErrNotArray     = errors.New("frame: not a JSON array")
	ErrMissingCmd   = errors.New("frame: missing cmd")
	ErrUnknownCmd   = errors.New("frame: unknown cmd")
	ErrMissingField = errors.New("frame: missing required field")
	ErrNotObject    = errors.New("frame: packet is not a JSON object")
)

// DecodeError describes one packet that could not be decoded. Index is the
// element's position in the frame, or -1 when the frame itself is unusable.
type DecodeError struct {
	Index int
	Cmd   string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Index < 0:
		return e.Err.Error()
	case e.Cmd == "":
		return fmt.Sprintf("packet %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("packet %d (%s): %v", e.Index, e.Cmd, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// requirer is implemented by inbound packets that declare mandatory keys.
type requirer interface {
	Required() []string
}

var serverPackets = map[string]func() wire.ServerPacket{
	"RoomInfo":          func() wire.ServerPacket { return new(wire.RoomInfo) },
	"RoomUpdate":        func() wire.ServerPacket { return new(wire.RoomUpdate) },
	"Connected":         func() wire.ServerPacket { return new(wire.Connected) },
	"ConnectionRefused": func() wire.ServerPacket { return new(wire.ConnectionRefused) },
	"DataPackage":       func() wire.ServerPacket { return new(wire.DataPackage) },
	"InvalidPacket":     func() wire.ServerPacket { return new(wire.InvalidPacket) },
	"LocationInfo":      func() wire.ServerPacket { return new(wire.LocationInfo) },
	"PrintJSON":         func() wire.ServerPacket { return new(wire.PrintJSON) },
	"ReceivedItems":     func() wire.ServerPacket { return new(wire.ReceivedItems) },
	"Retrieved":         func() wire.ServerPacket { return new(wire.Retrieved) },
	"Bounced":           func() wire.ServerPacket { return new(wire.Bounced) },
	"SetReply":          func() wire.ServerPacket { return new(wire.SetReply) },
}

type clientDecoder func(json.RawMessage) (wire.ClientPacket, error)

func clientPacket[T wire.ClientPacket]() clientDecoder {
	return func(b json.RawMessage) (wire.ClientPacket, error) {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

var clientPackets = map[string]clientDecoder{
	"Connect":        clientPacket[wire.Connect](),
	"ConnectUpdate":  clientPacket[wire.ConnectUpdate](),
	"Bounce":         clientPacket[wire.Bounce](),
	"Get":            clientPacket[wire.Get](),
	"GetDataPackage": clientPacket[wire.GetDataPackage](),
	"LocationChecks": clientPacket[wire.LocationChecks](),
	"LocationScouts": clientPacket[wire.LocationScouts](),
	"Say":            clientPacket[wire.Say](),
	"Set":            clientPacket[wire.Set](),
	"SetNotify":      clientPacket[wire.SetNotify](),
	"StatusUpdate":   clientPacket[wire.StatusUpdate](),
	"Sync":           clientPacket[wire.Sync](),
	"UpdateHint":     clientPacket[wire.UpdateHint](),
}

// Decode parses an inbound frame. Packets that decode are returned in frame
// order; every element that does not is reported as a *DecodeError, joined
// into the returned error. A frame that is not a JSON array yields no
// packets and a single *DecodeError with Index -1.
func Decode(data []byte) ([]wire.ServerPacket, error) {
	elems, err := splitArray(data)
	if err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	packets := make([]wire.ServerPacket, 0, len(elems))
	var errs []error
	for i, elem := range elems {
		fields, cmd, err := header(elem)
		if err != nil {
			errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: err})
			continue
		}
		newPacket, ok := serverPackets[cmd]
		if !ok {
			errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: fmt.Errorf("%w %q", ErrUnknownCmd, cmd)})
			continue
		}
		p := newPacket()
		if r, ok := p.(requirer); ok {
			if err := checkRequired(fields, r.Required()); err != nil {
				errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: err})
				continue
			}
		}
		if err := json.Unmarshal(elem, p); err != nil {
			errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: err})
			continue
		}
		packets = append(packets, p)
	}
	return packets, errors.Join(errs...)
}

// DecodeClient parses an outbound frame. It is the server side of Encode and
// follows the same error rules as Decode.
func DecodeClient(data []byte) ([]wire.ClientPacket, error) {
	elems, err := splitArray(data)
	if err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	packets := make([]wire.ClientPacket, 0, len(elems))
	var errs []error
	for i, elem := range elems {
		_, cmd, err := header(elem)
		if err != nil {
			errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: err})
			continue
		}
		dec, ok := clientPackets[cmd]
		if !ok {
			errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: fmt.Errorf("%w %q", ErrUnknownCmd, cmd)})
			continue
		}
		p, err := dec(elem)
		if err != nil {
			errs = append(errs, &DecodeError{Index: i, Cmd: cmd, Err: err})
			continue
		}
		packets = append(packets, p)
	}
	return packets, errors.Join(errs...)
}

// Encode serialises a single packet as a one-element frame.
func Encode(p wire.ClientPacket) ([]byte, error) {
	if p == nil {
		return nil, errors.New("frame: nil packet")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("frame: encode %s: %w", p.Cmd(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("frame: encode %s: %w", p.Cmd(), ErrNotObject)
	}
	cmd, _ := json.Marshal(p.Cmd())

	buf := make([]byte, 0, len(body)+len(cmd)+10)
	buf = append(buf, `[{"cmd":`...)
	buf = append(buf, cmd...)
	if rest := body[1:]; len(rest) > 1 {
		buf = append(buf, ',')
		buf = append(buf, rest...)
	} else {
		buf = append(buf, '}')
	}
	buf = append(buf, ']')
	return buf, nil
}

// DecodeErrors flattens the error returned by Decode into its per-packet
// parts. It returns nil for a nil error.
func DecodeErrors(err error) []*DecodeError {
	if err == nil {
		return nil
	}
	var out []*DecodeError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, DecodeErrors(e)...)
		}
		return out
	}
	var de *DecodeError
	if errors.As(err, &de) {
		out = append(out, de)
	}
	return out
}

func splitArray(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	return elems, nil
}

// header reads the top-level keys of one element and its cmd.
func header(elem json.RawMessage) (map[string]json.RawMessage, string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return nil, "", ErrNotObject
	}
	raw, ok := fields["cmd"]
	if !ok {
		return fields, "", ErrMissingCmd
	}
	var cmd string
	if err := json.Unmarshal(raw, &cmd); err != nil || cmd == "" {
		return fields, "", ErrMissingCmd
	}
	return fields, cmd, nil
}

func checkRequired(fields map[string]json.RawMessage, keys []string) error {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || bytes.Equal(v, []byte("null")) {
			return fmt.Errorf("%w %q", ErrMissingField, k)
		}
	}
	return nil
}
