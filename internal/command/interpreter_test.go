package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rrc-chat/rrc-client/internal/chat"
	"github.com/rrc-chat/rrc-client/pkg/protocol"
)

func newInterpreter() (*Interpreter, *chat.Store) {
	store := chat.NewStore()
	return NewInterpreter(store, zap.NewNop()), store
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		currentRoom string
		input       string
		want        Action
	}{
		{
			name:  "plain text goes to the viewed room",
			input: "hello",
			want:  SendText{Room: chat.HubRoom, Text: "hello"},
		},
		{
			name:        "plain text follows the viewed room",
			currentRoom: "general",
			input:       "hello there",
			want:        SendText{Room: "general", Text: "hello there"},
		},
		{
			name:  "join",
			input: "/join lobby",
			want:  JoinRoom{Room: "lobby"},
		},
		{
			name:  "join is case-insensitive",
			input: "/JOIN lobby",
			want:  JoinRoom{Room: "lobby"},
		},
		{
			name:  "join without argument",
			input: "/join",
			want:  LocalError{Text: "Usage: /join <room>"},
		},
		{
			name:        "part defaults to the viewed room",
			currentRoom: "general",
			input:       "/part",
			want:        PartRoom{Room: "general"},
		},
		{
			name:  "part with explicit room",
			input: "/part general",
			want:  PartRoom{Room: "general"},
		},
		{
			name:  "hub room is not partable",
			input: "/part [Hub]",
			want:  LocalError{Text: "Cannot part [Hub]"},
		},
		{
			name:  "part while viewing the hub room",
			input: "/part",
			want:  LocalError{Text: "Cannot part [Hub]"},
		},
		{
			name:  "nick",
			input: "/nick alice",
			want:  SetNickname{Nickname: "alice"},
		},
		{
			name:  "nick without argument",
			input: "/nick",
			want:  LocalError{Text: "Usage: /nick <name>"},
		},
		{
			name:  "msg to a specific room",
			input: "/msg general hello over there",
			want:  SendText{Room: "general", Text: "hello over there"},
		},
		{
			name:  "msg without text",
			input: "/msg general",
			want:  LocalError{Text: "Usage: /msg <room> <text>"},
		},
		{
			name:        "moderation command relays verbatim",
			currentRoom: "lobby",
			input:       "/kick general alice",
			want:        Relay{Command: "/kick general alice", Room: "lobby"},
		},
		{
			name:  "moderation command checks argument count",
			input: "/kick",
			want:  LocalError{Text: "Usage: /kick requires at least 1 argument(s)"},
		},
		{
			name:        "unknown command relays verbatim",
			currentRoom: "general",
			input:       "/bogus foo",
			want:        Relay{Command: "/bogus foo", Room: "general"},
		},
		{
			name:  "whitespace is collapsed to single spaces",
			input: "/kick   general    alice",
			want:  Relay{Command: "/kick general alice", Room: chat.HubRoom},
		},
		{
			name:  "empty input",
			input: "   ",
			want:  Nop{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp, store := newInterpreter()
			if tt.currentRoom != "" {
				store.SetCurrentRoom(tt.currentRoom)
			}
			assert.Equal(t, tt.want, interp.Parse(tt.input))
		})
	}
}

func TestParse_Switch(t *testing.T) {
	interp, store := newInterpreter()
	store.EnsureRoom("general")

	assert.Equal(t, SwitchRoom{Room: "general"}, interp.Parse("/switch general"))
	assert.Equal(t, LocalError{Text: "Usage: /switch <room>"}, interp.Parse("/switch"))
	assert.Equal(t, LocalError{Text: "No such room: nowhere"}, interp.Parse("/switch nowhere"))
}

func TestExecute_SwitchRoom(t *testing.T) {
	interp, store := newInterpreter()
	store.EnsureRoom("general")
	store.AppendMessage("general", chat.Message{Kind: chat.KindChat, User: "bob", Text: "hi"})

	var sent []protocol.Event
	interp.Handle("/switch general", func(ev protocol.Event) { sent = append(sent, ev) })

	assert.Equal(t, "general", store.CurrentRoom())
	view, _ := store.Room("general")
	assert.Equal(t, 0, view.Unread, "switching marks the room as viewed")
	require.Len(t, sent, 1)
	assert.Equal(t, &protocol.SetActiveRoom{Room: "general"}, sent[0])
}

func TestParse_HelpIsLocal(t *testing.T) {
	interp, _ := newInterpreter()

	action := interp.Parse("/help")

	notice, ok := action.(LocalNotice)
	require.True(t, ok, "help must stay local, got %T", action)
	assert.Contains(t, notice.Text, "/join")
}

func TestExecute_NetworkActions(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   protocol.Event
	}{
		{
			name:   "send text",
			action: SendText{Room: "general", Text: "hi"},
			want:   &protocol.SendMessage{Room: "general", Text: "hi"},
		},
		{
			name:   "join",
			action: JoinRoom{Room: "lobby"},
			want:   &protocol.JoinRoom{Room: "lobby"},
		},
		{
			name:   "part",
			action: PartRoom{Room: "lobby"},
			want:   &protocol.PartRoom{Room: "lobby"},
		},
		{
			name:   "nickname",
			action: SetNickname{Nickname: "alice"},
			want:   &protocol.SetNickname{Nickname: "alice"},
		},
		{
			name:   "relay",
			action: Relay{Command: "/kick general alice", Room: "[Hub]"},
			want:   &protocol.SendCommand{Command: "/kick general alice", Room: "[Hub]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp, _ := newInterpreter()
			var sent []protocol.Event
			interp.Execute(tt.action, func(ev protocol.Event) { sent = append(sent, ev) })

			require.Len(t, sent, 1)
			assert.Equal(t, tt.want, sent[0])
		})
	}
}

func TestExecute_LocalErrorNeverTouchesTheNetwork(t *testing.T) {
	interp, store := newInterpreter()
	store.SetCurrentRoom("general")

	var sent []protocol.Event
	interp.Handle("/part [Hub]", func(ev protocol.Event) { sent = append(sent, ev) })

	assert.Empty(t, sent)
	view, _ := store.Room("general")
	require.Len(t, view.Messages, 1)
	assert.Equal(t, chat.KindError, view.Messages[0].Kind)
}

func TestExecute_HelpAppendsNotice(t *testing.T) {
	interp, store := newInterpreter()

	var sent []protocol.Event
	interp.Handle("/help", func(ev protocol.Event) { sent = append(sent, ev) })

	assert.Empty(t, sent)
	view, _ := store.Room(chat.HubRoom)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, chat.KindNotice, view.Messages[0].Kind)
}
