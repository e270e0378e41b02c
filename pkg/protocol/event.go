// Package protocol defines the JSON wire protocol spoken between the
// client core and the hub backend. Every frame is a UTF-8 JSON object
// carrying a "type" discriminator.
package protocol

import "encoding/json"

// Frame type discriminators sent by the client.
const (
	TypeConnect           = "connect"
	TypeDisconnect        = "disconnect"
	TypeGetState          = "get_state"
	TypeGetDiscoveredHubs = "get_discovered_hubs"
	TypeJoinRoom          = "join_room"
	TypePartRoom          = "part_room"
	TypeSendMessage       = "send_message"
	TypeSetNickname       = "set_nickname"
	TypeSetActiveRoom     = "set_active_room"
	TypeSendCommand       = "send_command"
)

// Frame type discriminators received from the backend.
const (
	TypeConnected         = "connected"
	TypeDisconnected      = "disconnected"
	TypeMessage           = "message"
	TypeNotice            = "notice"
	TypeError             = "error"
	TypeSystem            = "system"
	TypeJoin              = "join"
	TypePart              = "part"
	TypeMessageSent       = "message_sent"
	TypeRoomJoined        = "room_joined"
	TypeRoomParted        = "room_parted"
	TypeActiveRoomChanged = "active_room_changed"
	TypeState             = "state"
	TypeLatency           = "latency"
	TypeUserListUpdate    = "user_list_update"
	TypeHubInfo           = "hub_info"
	TypeHubDiscovered     = "hub_discovered"
	TypeDiscoveredHubs    = "discovered_hubs"
	TypeNicknameSet       = "nickname_set"
)

// Event is implemented by every wire frame, inbound and outbound.
type Event interface {
	// EventType returns the value of the "type" discriminator.
	EventType() string
}

// Connect asks the backend to open a hub session.
type Connect struct {
	IdentityPath string `json:"identity_path,omitempty"`
	DestName     string `json:"dest_name,omitempty"`
	HubHash      string `json:"hub_hash,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
}

func (Connect) EventType() string { return TypeConnect }

// Disconnect asks the backend to tear down the hub session.
type Disconnect struct{}

func (Disconnect) EventType() string { return TypeDisconnect }

// GetState requests a full-state sync.
type GetState struct{}

func (GetState) EventType() string { return TypeGetState }

// GetDiscoveredHubs requests the list of hubs seen on the network.
type GetDiscoveredHubs struct{}

func (GetDiscoveredHubs) EventType() string { return TypeGetDiscoveredHubs }

// JoinRoom requests membership in a room.
type JoinRoom struct {
	Room string `json:"room"`
}

func (JoinRoom) EventType() string { return TypeJoinRoom }

// PartRoom requests leaving a room.
type PartRoom struct {
	Room string `json:"room"`
}

func (PartRoom) EventType() string { return TypePartRoom }

// SendMessage sends chat text to a room.
type SendMessage struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

func (SendMessage) EventType() string { return TypeSendMessage }

// SetNickname changes the advertised nickname.
type SetNickname struct {
	Nickname string `json:"nickname"`
}

func (SetNickname) EventType() string { return TypeSetNickname }

// SetActiveRoom tells the backend which room the user is viewing, so
// hub-side state survives a page or client restart.
type SetActiveRoom struct {
	Room string `json:"room"`
}

func (SetActiveRoom) EventType() string { return TypeSetActiveRoom }

// SendCommand relays an opaque slash-command string to the server,
// tagged with the room the user is currently viewing.
type SendCommand struct {
	Command string `json:"command"`
	Room    string `json:"room"`
}

func (SendCommand) EventType() string { return TypeSendCommand }

// Connected confirms an established hub session.
type Connected struct {
	IdentityHash string `json:"identity_hash"`
	Nickname     string `json:"nickname"`
}

func (Connected) EventType() string { return TypeConnected }

// Disconnected reports that the hub session has ended.
type Disconnected struct{}

func (Disconnected) EventType() string { return TypeDisconnected }

// Message carries chat text for a room.
type Message struct {
	Room           string `json:"room"`
	User           string `json:"user"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
	MessageID      string `json:"message_id,omitempty"`
	SenderIdentity string `json:"sender_identity,omitempty"`
}

func (Message) EventType() string { return TypeMessage }

// Notice carries an informational server notice for a room.
type Notice struct {
	Room      string `json:"room"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func (Notice) EventType() string { return TypeNotice }

// ErrorEvent reports a server-side error. Request failures put the
// description in "error"; room-scoped errors put it in "text".
type ErrorEvent struct {
	Room      string `json:"room,omitempty"`
	Err       string `json:"error,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (ErrorEvent) EventType() string { return TypeError }

// Reason returns whichever error description the frame carries.
func (e ErrorEvent) Reason() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Err
}

// System carries a locally significant status line for a room.
type System struct {
	Room      string `json:"room"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func (System) EventType() string { return TypeSystem }

// Join announces another user joining a room the client is in.
type Join struct {
	Room      string `json:"room"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

func (Join) EventType() string { return TypeJoin }

// Part announces another user leaving a room the client is in.
type Part struct {
	Room      string `json:"room"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

func (Part) EventType() string { return TypePart }

// MessageSent acknowledges a send_message with the generated message id.
type MessageSent struct {
	MessageID string `json:"message_id"`
}

func (MessageSent) EventType() string { return TypeMessageSent }

// RoomJoined confirms the client's own join, with the full member list.
type RoomJoined struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

func (RoomJoined) EventType() string { return TypeRoomJoined }

// RoomParted confirms the client's own part.
type RoomParted struct {
	Room string `json:"room"`
}

func (RoomParted) EventType() string { return TypeRoomParted }

// ActiveRoomChanged confirms a set_active_room request.
type ActiveRoomChanged struct {
	Room string `json:"room"`
}

func (ActiveRoomChanged) EventType() string { return TypeActiveRoomChanged }

// RoomSnapshot is one room's portion of a full-state sync. Messages is
// limited server-side to recent history and may be empty.
type RoomSnapshot struct {
	Messages []HistoryEntry `json:"messages"`
	Users    []string       `json:"users"`
}

// HistoryEntry is a single replayed room entry inside a state frame.
// Type distinguishes message/notice/system/join/part entries.
type HistoryEntry struct {
	Type           string `json:"type"`
	Room           string `json:"room"`
	User           string `json:"user,omitempty"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
	MessageID      string `json:"message_id,omitempty"`
	SenderIdentity string `json:"sender_identity,omitempty"`
}

// ConnectionConfig echoes the persisted connection preferences.
type ConnectionConfig struct {
	DestName     string `json:"dest_name"`
	HubHash      string `json:"hub_hash"`
	Nickname     string `json:"nickname"`
	IdentityPath string `json:"identity_path"`
}

// State is the authoritative full-state sync pushed after (re)connects
// or in response to get_state.
type State struct {
	Connected    bool                    `json:"connected"`
	HubName      string                  `json:"hub_name"`
	Nickname     string                  `json:"nickname"`
	IdentityHash string                  `json:"identity_hash"`
	ActiveRoom   string                  `json:"active_room"`
	Config       ConnectionConfig        `json:"config"`
	Rooms        map[string]RoomSnapshot `json:"rooms"`
}

func (State) EventType() string { return TypeState }

// Latency reports the measured hub round-trip. LatencyMS is null while
// no measurement is available.
type Latency struct {
	LatencyMS *int `json:"latency_ms"`
}

func (Latency) EventType() string { return TypeLatency }

// UserListUpdate replaces a room's member list wholesale.
type UserListUpdate struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

func (UserListUpdate) EventType() string { return TypeUserListUpdate }

// HubInfo carries the connected hub's advertised name.
type HubInfo struct {
	HubName string `json:"hub_name"`
}

func (HubInfo) EventType() string { return TypeHubInfo }

// Hub describes a hub seen announcing on the network.
type Hub struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	LastSeen float64 `json:"last_seen"`
}

// HubDiscovered announces a single newly seen hub.
type HubDiscovered struct {
	Hub Hub `json:"hub"`
}

func (HubDiscovered) EventType() string { return TypeHubDiscovered }

// DiscoveredHubs lists all hubs currently known to the backend.
type DiscoveredHubs struct {
	Hubs []Hub `json:"hubs"`
}

func (DiscoveredHubs) EventType() string { return TypeDiscoveredHubs }

// NicknameSet confirms a nickname change.
type NicknameSet struct {
	Nickname string `json:"nickname"`
}

func (NicknameSet) EventType() string { return TypeNicknameSet }

// Unknown is the fallback for frame types this client does not
// recognize. It is accepted and ignored so that newer servers never
// break older clients.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (u Unknown) EventType() string { return u.Type }
