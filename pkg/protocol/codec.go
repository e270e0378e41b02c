package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode serializes an event into a JSON text frame, splicing in the
// "type" discriminator so event structs never carry it as a field.
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", ev.EventType(), err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", ev.EventType(), err)
	}
	tag, err := json.Marshal(ev.EventType())
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", ev.EventType(), err)
	}
	fields["type"] = tag

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", ev.EventType(), err)
	}
	return data, nil
}

// Decode parses a JSON text frame into its concrete event type.
// Frames with an unrecognized "type" decode to Unknown rather than an
// error; extra fields on known frames are ignored.
func Decode(data []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if probe.Type == "" {
		return nil, fmt.Errorf("failed to decode frame: missing type discriminator")
	}

	ev := newEvent(probe.Type)
	if ev == nil {
		return &Unknown{Type: probe.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s frame: %w", probe.Type, err)
	}
	return ev, nil
}

// newEvent returns a zero value for a known inbound frame type, or nil
// for types this client does not recognize.
func newEvent(frameType string) Event {
	switch frameType {
	case TypeConnected:
		return &Connected{}
	case TypeDisconnected:
		return &Disconnected{}
	case TypeMessage:
		return &Message{}
	case TypeNotice:
		return &Notice{}
	case TypeError:
		return &ErrorEvent{}
	case TypeSystem:
		return &System{}
	case TypeJoin:
		return &Join{}
	case TypePart:
		return &Part{}
	case TypeMessageSent:
		return &MessageSent{}
	case TypeRoomJoined:
		return &RoomJoined{}
	case TypeRoomParted:
		return &RoomParted{}
	case TypeActiveRoomChanged:
		return &ActiveRoomChanged{}
	case TypeState:
		return &State{}
	case TypeLatency:
		return &Latency{}
	case TypeUserListUpdate:
		return &UserListUpdate{}
	case TypeHubInfo:
		return &HubInfo{}
	case TypeHubDiscovered:
		return &HubDiscovered{}
	case TypeDiscoveredHubs:
		return &DiscoveredHubs{}
	case TypeNicknameSet:
		return &NicknameSet{}
	default:
		return nil
	}
}
