package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rrc-chat/rrc-client/pkg/protocol"
)

func newDispatcher(t *testing.T) (*Dispatcher, *Store) {
	t.Helper()
	s := NewStore()
	return NewDispatcher(s, zap.NewNop()), s
}

func TestDispatch_Connected(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.Connected{IdentityHash: "cafe", Nickname: "alice"})

	p := s.Presence()
	assert.True(t, p.Connected)
	assert.Equal(t, "cafe", p.IdentityHash)
	assert.Equal(t, "alice", p.Nickname)
}

func TestDispatch_Message(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.Message{
		Room: "general", User: "bob", Text: "hi",
		Timestamp: "12:00:00", MessageID: "m1", SenderIdentity: "bobhash",
	})

	view, ok := s.Room("general")
	require.True(t, ok)
	require.Len(t, view.Messages, 1)
	msg := view.Messages[0]
	assert.Equal(t, KindChat, msg.Kind)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.Own)
	assert.Equal(t, 1, view.Unread)
}

func TestDispatch_MessageWithoutRoomGoesToHub(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.Message{User: "bob", Text: "hub-wide"})

	view, _ := s.Room(HubRoom)
	require.Len(t, view.Messages, 1)
}

func TestDispatch_OwnMessageEcho(t *testing.T) {
	d, s := newDispatcher(t)
	d.Dispatch(&protocol.Connected{IdentityHash: "selfhash", Nickname: "alice"})

	// send_message was acknowledged with the generated id...
	d.Dispatch(&protocol.MessageSent{MessageID: "m42"})
	// ...and the hub later echoes the message back.
	d.Dispatch(&protocol.Message{
		Room: HubRoom, User: "alice", Text: "mine",
		MessageID: "m42", SenderIdentity: "selfhash",
	})
	// A spoofed frame reusing the id with a different identity is not
	// ours.
	d.Dispatch(&protocol.Message{
		Room: HubRoom, User: "mallory", Text: "fake",
		MessageID: "m42", SenderIdentity: "malloryhash",
	})

	view, _ := s.Room(HubRoom)
	require.Len(t, view.Messages, 2)
	assert.True(t, view.Messages[0].Own)
	assert.False(t, view.Messages[1].Own)
}

func TestDispatch_ErrorWithoutRoomSurfacesInViewedRoom(t *testing.T) {
	d, s := newDispatcher(t)
	s.SetCurrentRoom("general")

	d.Dispatch(&protocol.ErrorEvent{Err: "Not connected to hub"})

	view, _ := s.Room("general")
	require.Len(t, view.Messages, 1)
	assert.Equal(t, KindError, view.Messages[0].Kind)
	assert.Equal(t, "Not connected to hub", view.Messages[0].Text)
}

func TestDispatch_JoinAndPartEntries(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.Join{Room: "general", User: "carol", Timestamp: "12:00:00"})
	d.Dispatch(&protocol.Part{Room: "general", User: "carol", Timestamp: "12:00:05"})

	view, _ := s.Room("general")
	require.Len(t, view.Messages, 2)
	assert.Equal(t, KindJoin, view.Messages[0].Kind)
	assert.Equal(t, KindPart, view.Messages[1].Kind)
	assert.Equal(t, 0, view.Unread, "membership churn is not unread-worthy")
}

func TestDispatch_RoomJoinedSwitchesView(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.RoomJoined{Room: "lobby", Users: []string{"alice", "bob"}})

	assert.Equal(t, "lobby", s.CurrentRoom())
	view, _ := s.Room("lobby")
	assert.Equal(t, []string{"alice", "bob"}, view.Users)
}

func TestDispatch_RoomParted(t *testing.T) {
	d, s := newDispatcher(t)
	d.Dispatch(&protocol.RoomJoined{Room: "lobby", Users: nil})

	d.Dispatch(&protocol.RoomParted{Room: "lobby"})

	assert.False(t, s.HasRoom("lobby"))
	assert.Equal(t, HubRoom, s.CurrentRoom())
}

func TestDispatch_State(t *testing.T) {
	d, s := newDispatcher(t)
	s.AppendMessage("general", chatMsg("bob", "local-history"))

	d.Dispatch(&protocol.State{
		Connected:    true,
		HubName:      "The Hub",
		Nickname:     "alice",
		IdentityHash: "cafe",
		ActiveRoom:   "lobby",
		Rooms: map[string]protocol.RoomSnapshot{
			"general": {Users: []string{"bob"}},
			"lobby": {
				Messages: []protocol.HistoryEntry{
					{Type: "message", Room: "lobby", User: "bob", Text: "replayed", Timestamp: "11:00:00"},
					{Type: "system", Room: "lobby", Text: "Joined room: lobby"},
				},
				Users: []string{"alice", "bob"},
			},
		},
	})

	p := s.Presence()
	assert.True(t, p.Connected)
	assert.Equal(t, "The Hub", p.HubName)

	general, _ := s.Room("general")
	assert.Equal(t, []string{"local-history"}, texts(general.Messages),
		"rooms synced without history keep local messages")
	assert.Equal(t, 1, general.Unread)

	lobby, _ := s.Room("lobby")
	require.Len(t, lobby.Messages, 2)
	assert.Equal(t, KindChat, lobby.Messages[0].Kind)
	assert.Equal(t, KindSystem, lobby.Messages[1].Kind)

	assert.Equal(t, "lobby", s.CurrentRoom(), "sync restores the hub-side active room")
}

func TestDispatch_StateUnreadCheck(t *testing.T) {
	d, s := newDispatcher(t)
	s.AppendMessage("general", chatMsg("bob", "unseen"))

	d.Dispatch(&protocol.State{
		Connected:  true,
		ActiveRoom: "general",
		Rooms:      map[string]protocol.RoomSnapshot{"general": {}},
	})

	view, _ := s.Room("general")
	assert.Equal(t, 1, view.Unread, "restoring the active room must not clear unread")
}

func TestDispatch_ActiveRoomChanged(t *testing.T) {
	d, s := newDispatcher(t)
	s.AppendMessage("lobby", chatMsg("bob", "hi"))

	d.Dispatch(&protocol.ActiveRoomChanged{Room: "lobby"})

	assert.Equal(t, "lobby", s.CurrentRoom())
	view, _ := s.Room("lobby")
	assert.Equal(t, 0, view.Unread, "viewing a room clears its unread count")
}

func TestDispatch_Latency(t *testing.T) {
	d, s := newDispatcher(t)

	ms := 87
	d.Dispatch(&protocol.Latency{LatencyMS: &ms})
	require.NotNil(t, s.Presence().LatencyMS)
	assert.Equal(t, 87, *s.Presence().LatencyMS)

	d.Dispatch(&protocol.Latency{})
	assert.Nil(t, s.Presence().LatencyMS)
}

func TestDispatch_UserListUpdate(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.UserListUpdate{Room: "general", Users: []string{"alice"}})

	view, _ := s.Room("general")
	assert.Equal(t, []string{"alice"}, view.Users)
}

func TestDispatch_HubDiscovery(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.HubDiscovered{Hub: protocol.Hub{Hash: "aa", Name: "First", LastSeen: 10}})
	d.Dispatch(&protocol.DiscoveredHubs{Hubs: []protocol.Hub{
		{Hash: "aa", Name: "First", LastSeen: 20},
		{Hash: "bb", Name: "Second", LastSeen: 30},
	}})

	assert.Len(t, s.Hubs(), 2)
}

func TestDispatch_NicknameSetAndHubInfo(t *testing.T) {
	d, s := newDispatcher(t)

	d.Dispatch(&protocol.NicknameSet{Nickname: "neo"})
	d.Dispatch(&protocol.HubInfo{HubName: "Zion"})

	p := s.Presence()
	assert.Equal(t, "neo", p.Nickname)
	assert.Equal(t, "Zion", p.HubName)
}

func TestDispatch_UnknownEventIsIgnored(t *testing.T) {
	d, s := newDispatcher(t)

	fired := 0
	s.OnChange = func() { fired++ }
	d.Dispatch(&protocol.Unknown{Type: "hologram_update"})

	assert.Equal(t, 0, fired, "unknown events must cause no state change")
}
