package command

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rrc-chat/rrc-client/internal/chat"
	"github.com/rrc-chat/rrc-client/pkg/protocol"
)

// Prefix starts every command line.
const Prefix = "/"

// relayedCommands are server-operator and moderation commands the
// client forwards without duplicating server-side semantics. The value
// is the minimum argument count checked before relaying.
var relayedCommands = map[string]int{
	"/kick":  1,
	"/ban":   1,
	"/unban": 1,
	"/op":    1,
	"/deop":  1,
	"/mode":  1,
	"/topic": 1,
	"/motd":  0,
	"/admin": 0,
}

const helpText = `Commands:
  /join <room>        join a room
  /part [room]        leave a room (default: current)
  /switch <room>      view a room you have already joined
  /nick <name>        set your nickname
  /msg <room> <text>  send a message to a specific room
  /help               show this help
Anything else starting with / is sent to the server as-is.`

// Interpreter turns input lines into actions. It holds the store so
// local validation errors land in the room the user is viewing without
// any round trip.
type Interpreter struct {
	store *chat.Store
	log   *zap.Logger
}

// NewInterpreter creates an interpreter bound to the store.
func NewInterpreter(store *chat.Store, log *zap.Logger) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Interpreter{store: store, log: log}
}

// Parse interprets one input line. There is no quoting or escaping:
// tokens are whitespace-delimited and arguments past the fixed
// positional ones are rejoined with single spaces.
func (i *Interpreter) Parse(line string) Action {
	line = strings.TrimSpace(line)
	if line == "" {
		return Nop{}
	}
	if !strings.HasPrefix(line, Prefix) {
		return SendText{Room: i.store.CurrentRoom(), Text: line}
	}

	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	rest := strings.Join(args, " ")

	switch cmd {
	case "/join":
		if rest == "" {
			return LocalError{Text: "Usage: /join <room>"}
		}
		return JoinRoom{Room: rest}

	case "/part":
		target := rest
		if target == "" {
			target = i.store.CurrentRoom()
		}
		if target == chat.HubRoom {
			return LocalError{Text: fmt.Sprintf("Cannot part %s", chat.HubRoom)}
		}
		return PartRoom{Room: target}

	case "/switch":
		if rest == "" {
			return LocalError{Text: "Usage: /switch <room>"}
		}
		if !i.store.HasRoom(rest) {
			return LocalError{Text: fmt.Sprintf("No such room: %s", rest)}
		}
		return SwitchRoom{Room: rest}

	case "/nick":
		if rest == "" {
			return LocalError{Text: "Usage: /nick <name>"}
		}
		return SetNickname{Nickname: rest}

	case "/msg":
		if len(args) < 2 {
			return LocalError{Text: "Usage: /msg <room> <text>"}
		}
		return SendText{Room: args[0], Text: strings.Join(args[1:], " ")}

	case "/help":
		return LocalNotice{Text: helpText}
	}

	if minArgs, ok := relayedCommands[cmd]; ok && len(args) < minArgs {
		return LocalError{Text: fmt.Sprintf("Usage: %s requires at least %d argument(s)", cmd, minArgs)}
	}

	// Known moderation commands and anything unrecognized both go to
	// the server verbatim; it may support commands this parser does not
	// special-case.
	relayed := cmd
	if rest != "" {
		relayed += " " + rest
	}
	return Relay{Command: relayed, Room: i.store.CurrentRoom()}
}

// Execute applies an action: local entries go straight to the store,
// network actions are handed to send as protocol frames.
func (i *Interpreter) Execute(action Action, send func(protocol.Event)) {
	switch a := action.(type) {
	case SendText:
		send(&protocol.SendMessage{Room: a.Room, Text: a.Text})
	case JoinRoom:
		send(&protocol.JoinRoom{Room: a.Room})
	case PartRoom:
		send(&protocol.PartRoom{Room: a.Room})
	case SetNickname:
		send(&protocol.SetNickname{Nickname: a.Nickname})
	case SwitchRoom:
		// The view switches immediately; the server ack is idempotent.
		i.store.SetCurrentRoom(a.Room)
		send(&protocol.SetActiveRoom{Room: a.Room})
	case Relay:
		send(&protocol.SendCommand{Command: a.Command, Room: a.Room})
	case LocalNotice:
		i.store.AppendMessage(i.store.CurrentRoom(), chat.Message{
			Kind: chat.KindNotice,
			Text: a.Text,
		})
	case LocalError:
		i.log.Debug("rejected input", zap.String("reason", a.Text))
		i.store.AppendMessage(i.store.CurrentRoom(), chat.Message{
			Kind: chat.KindError,
			Text: a.Text,
		})
	case Nop:
	}
}

// Handle parses and executes one input line.
func (i *Interpreter) Handle(line string, send func(protocol.Event)) {
	i.Execute(i.Parse(line), send)
}
