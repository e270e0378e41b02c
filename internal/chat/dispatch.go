package chat

import (
	"go.uber.org/zap"

	"github.com/rrc-chat/rrc-client/pkg/protocol"
)

// Dispatcher routes decoded server events to store mutations. Each
// inbound event produces at most one room-state mutation; events the
// client does not recognize are ignored so newer servers never break
// older clients.
type Dispatcher struct {
	store *Store
	log   *zap.Logger
}

// NewDispatcher creates a dispatcher bound to a store.
func NewDispatcher(store *Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, log: log}
}

// Dispatch applies one inbound event to local state.
func (d *Dispatcher) Dispatch(ev protocol.Event) {
	switch e := ev.(type) {
	case *protocol.Connected:
		d.store.SetSession(true, e.IdentityHash, e.Nickname, "")

	case *protocol.Disconnected:
		d.store.SetConnected(false)

	case *protocol.Message:
		room := orHubRoom(e.Room)
		d.store.AppendMessage(room, Message{
			Kind:           KindChat,
			User:           e.User,
			Text:           e.Text,
			Timestamp:      e.Timestamp,
			MessageID:      e.MessageID,
			SenderIdentity: e.SenderIdentity,
			Own:            d.store.IsOwnMessage(e.MessageID, e.SenderIdentity),
		})

	case *protocol.Notice:
		d.store.AppendMessage(orHubRoom(e.Room), Message{
			Kind:      KindNotice,
			Text:      e.Text,
			Timestamp: e.Timestamp,
		})

	case *protocol.System:
		d.store.AppendMessage(orHubRoom(e.Room), Message{
			Kind:      KindSystem,
			Text:      e.Text,
			Timestamp: e.Timestamp,
		})

	case *protocol.ErrorEvent:
		// Server-reported errors are non-fatal; they surface where the
		// user is looking unless the server named a room.
		room := e.Room
		if room == "" {
			room = d.store.CurrentRoom()
		}
		d.store.AppendMessage(room, Message{
			Kind:      KindError,
			Text:      e.Reason(),
			Timestamp: e.Timestamp,
		})

	case *protocol.Join:
		d.store.AppendMessage(orHubRoom(e.Room), Message{
			Kind:      KindJoin,
			User:      e.User,
			Timestamp: e.Timestamp,
		})

	case *protocol.Part:
		d.store.AppendMessage(orHubRoom(e.Room), Message{
			Kind:      KindPart,
			User:      e.User,
			Timestamp: e.Timestamp,
		})

	case *protocol.MessageSent:
		d.store.RecordSent(e.MessageID)

	case *protocol.RoomJoined:
		d.store.JoinConfirmed(e.Room, e.Users)

	case *protocol.RoomParted:
		d.store.PartRoom(e.Room)

	case *protocol.State:
		d.store.ApplyFullSync(convertSnapshot(d.store, e.Rooms), e.ActiveRoom)
		d.store.SetSession(e.Connected, e.IdentityHash, e.Nickname, e.HubName)

	case *protocol.ActiveRoomChanged:
		d.store.SetCurrentRoom(e.Room)

	case *protocol.Latency:
		d.store.SetLatency(e.LatencyMS)

	case *protocol.UserListUpdate:
		d.store.SetUsers(e.Room, e.Users)

	case *protocol.HubInfo:
		d.store.SetHubName(e.HubName)

	case *protocol.HubDiscovered:
		d.store.UpsertHub(Hub(e.Hub))

	case *protocol.DiscoveredHubs:
		hubs := make([]Hub, 0, len(e.Hubs))
		for _, h := range e.Hubs {
			hubs = append(hubs, Hub(h))
		}
		d.store.MergeHubs(hubs)

	case *protocol.NicknameSet:
		d.store.SetNickname(e.Nickname)

	case *protocol.Unknown:
		d.log.Debug("ignoring unknown event", zap.String("type", e.Type))

	default:
		d.log.Debug("ignoring unhandled event", zap.String("type", ev.EventType()))
	}
}

// orHubRoom defaults unscoped traffic to the hub-wide room.
func orHubRoom(room string) string {
	if room == "" {
		return HubRoom
	}
	return room
}

// convertSnapshot turns the wire-form room map into store form,
// resolving self-authorship for replayed chat entries.
func convertSnapshot(store *Store, rooms map[string]protocol.RoomSnapshot) map[string]RoomSync {
	out := make(map[string]RoomSync, len(rooms))
	for name, snap := range rooms {
		msgs := make([]Message, 0, len(snap.Messages))
		for _, entry := range snap.Messages {
			msgs = append(msgs, historyMessage(store, entry))
		}
		out[name] = RoomSync{Messages: msgs, Users: snap.Users}
	}
	return out
}

func historyMessage(store *Store, entry protocol.HistoryEntry) Message {
	msg := Message{
		User:           entry.User,
		Text:           entry.Text,
		Timestamp:      entry.Timestamp,
		MessageID:      entry.MessageID,
		SenderIdentity: entry.SenderIdentity,
	}
	switch entry.Type {
	case protocol.TypeMessage:
		msg.Kind = KindChat
		msg.Own = store.IsOwnMessage(entry.MessageID, entry.SenderIdentity)
	case protocol.TypeJoin:
		msg.Kind = KindJoin
	case protocol.TypePart:
		msg.Kind = KindPart
	case protocol.TypeNotice:
		msg.Kind = KindNotice
	case protocol.TypeError:
		msg.Kind = KindError
	default:
		msg.Kind = KindSystem
	}
	return msg
}
