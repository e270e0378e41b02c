package chat

import (
	"sort"
	"sync"
)

// HubRoom is the implicit hub-wide room. It always exists and can
// never be parted.
const HubRoom = "[Hub]"

// sentSetCapacity bounds the sent-message correlation set.
const sentSetCapacity = 100

type room struct {
	messages []Message
	users    map[string]struct{}
	unread   int
}

// RoomView is a read-only copy of one room, safe to hand to the
// presentation layer.
type RoomView struct {
	Name     string
	Messages []Message
	Users    []string
	Unread   int
}

// RoomSync is one room's portion of a full-state sync, already
// converted out of wire form.
type RoomSync struct {
	Messages []Message
	Users    []string
}

// Store is the authoritative local mirror of hub/room/user/message
// state. It has one writer (the event dispatcher) and many readers;
// every mutation is atomic with respect to observers.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	current  string
	presence Presence
	hubs     map[string]Hub

	// Sent-message correlation set: FIFO over insertion order, oldest
	// evicted at capacity.
	sentOrder []string
	sentIDs   map[string]struct{}

	// OnChange, when set, runs after every completed mutation (outside
	// the lock). Intended for push-based UI refresh.
	OnChange func()
}

// NewStore creates a store containing only the hub room.
func NewStore() *Store {
	s := &Store{
		rooms:   make(map[string]*room),
		current: HubRoom,
		hubs:    make(map[string]Hub),
		sentIDs: make(map[string]struct{}),
	}
	s.rooms[HubRoom] = newRoom()
	return s
}

func newRoom() *room {
	return &room{users: make(map[string]struct{})}
}

func (s *Store) notify() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

// EnsureRoom creates the room empty if absent; no-op if present.
func (s *Store) EnsureRoom(name string) {
	s.mu.Lock()
	s.ensureRoomLocked(name)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) ensureRoomLocked(name string) *room {
	r, ok := s.rooms[name]
	if !ok {
		r = newRoom()
		s.rooms[name] = r
	}
	return r
}

// AppendMessage appends to the room's history, creating the room if
// needed. The unread count increments only for chat, notice and system
// entries landing in a room the user is not currently viewing.
func (s *Store) AppendMessage(name string, msg Message) {
	s.mu.Lock()
	r := s.ensureRoomLocked(name)
	if msg.Timestamp == "" {
		msg.Timestamp = LocalTimestamp()
	}
	r.messages = append(r.messages, msg)
	if name != s.current && countsAsUnread(msg.Kind) {
		r.unread++
	}
	s.mu.Unlock()
	s.notify()
}

func countsAsUnread(k Kind) bool {
	return k == KindChat || k == KindNotice || k == KindSystem
}

// SetUsers replaces the room's member set wholesale. Snapshots from the
// server are authoritative; there is no incremental add/remove.
func (s *Store) SetUsers(name string, users []string) {
	s.mu.Lock()
	r := s.ensureRoomLocked(name)
	r.users = make(map[string]struct{}, len(users))
	for _, u := range users {
		r.users[u] = struct{}{}
	}
	s.mu.Unlock()
	s.notify()
}

// PartRoom removes the room. The hub room is never removed. If the
// parted room was being viewed, the view falls back to the hub room.
func (s *Store) PartRoom(name string) {
	s.mu.Lock()
	if name != HubRoom {
		delete(s.rooms, name)
		if s.current == name {
			s.current = HubRoom
		}
	}
	s.mu.Unlock()
	s.notify()
}

// ApplyFullSync reconciles the room mapping against a server snapshot.
// Member lists are replaced wholesale. Message history is replaced only
// where the snapshot actually carries history; rooms the snapshot
// omitted, and rooms it resent without history, keep their local
// messages. Unread counts are preserved unconditionally: a sync must
// never silently clear unseen-message indicators. A non-empty
// activeRoom naming a known room moves the view there.
func (s *Store) ApplyFullSync(rooms map[string]RoomSync, activeRoom string) {
	s.mu.Lock()
	for name, snap := range rooms {
		r := s.ensureRoomLocked(name)
		if len(snap.Messages) > 0 {
			r.messages = append([]Message(nil), snap.Messages...)
		}
		r.users = make(map[string]struct{}, len(snap.Users))
		for _, u := range snap.Users {
			r.users[u] = struct{}{}
		}
	}
	s.ensureRoomLocked(HubRoom)
	if _, ok := s.rooms[activeRoom]; ok && activeRoom != "" {
		s.current = activeRoom
	}
	if _, ok := s.rooms[s.current]; !ok {
		s.current = HubRoom
	}
	s.mu.Unlock()
	s.notify()
}

// ClearUnread resets the room's unread count to zero.
func (s *Store) ClearUnread(name string) {
	s.mu.Lock()
	if r, ok := s.rooms[name]; ok {
		r.unread = 0
	}
	s.mu.Unlock()
	s.notify()
}

// SetCurrentRoom switches the viewed room, creating it if needed, and
// clears its unread count.
func (s *Store) SetCurrentRoom(name string) {
	s.mu.Lock()
	r := s.ensureRoomLocked(name)
	s.current = name
	r.unread = 0
	s.mu.Unlock()
	s.notify()
}

// CurrentRoom returns the room the user is viewing.
func (s *Store) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// HasRoom reports whether the room exists locally.
func (s *Store) HasRoom(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[name]
	return ok
}

// Rooms returns all room names, hub room first, the rest sorted.
func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		if name != HubRoom {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{HubRoom}, names...)
}

// Room returns a read-only copy of one room, or ok=false if it does
// not exist.
func (s *Store) Room(name string) (RoomView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[name]
	if !ok {
		return RoomView{}, false
	}
	users := make([]string, 0, len(r.users))
	for u := range r.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return RoomView{
		Name:     name,
		Messages: append([]Message(nil), r.messages...),
		Users:    users,
		Unread:   r.unread,
	}, true
}

// UnreadTotal sums unread counts across all rooms.
func (s *Store) UnreadTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, r := range s.rooms {
		total += r.unread
	}
	return total
}

// RecordSent remembers a message id this client generated, evicting
// the oldest id once the set is at capacity.
func (s *Store) RecordSent(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	if _, ok := s.sentIDs[id]; !ok {
		if len(s.sentOrder) >= sentSetCapacity {
			oldest := s.sentOrder[0]
			s.sentOrder = s.sentOrder[1:]
			delete(s.sentIDs, oldest)
		}
		s.sentOrder = append(s.sentOrder, id)
		s.sentIDs[id] = struct{}{}
	}
	s.mu.Unlock()
}

// SentCount returns the current size of the correlation set.
func (s *Store) SentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sentOrder)
}

// IsOwnMessage reports whether an echoed chat message originated from
// this client. Both checks are required: the id must be one we
// recorded, and the sender fingerprint must match our identity. Either
// alone can be spoofed by another process.
func (s *Store) IsOwnMessage(messageID, senderIdentity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if messageID == "" || senderIdentity == "" {
		return false
	}
	if _, ok := s.sentIDs[messageID]; !ok {
		return false
	}
	return s.presence.IdentityHash != "" && senderIdentity == s.presence.IdentityHash
}

// Presence returns a copy of the connection-scoped state.
func (s *Store) Presence() Presence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.presence
	if s.presence.LatencyMS != nil {
		v := *s.presence.LatencyMS
		p.LatencyMS = &v
	}
	return p
}

// SetConnected flips the session flag. Going offline invalidates the
// latency reading.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	s.presence.Connected = connected
	if !connected {
		s.presence.LatencyMS = nil
	}
	s.mu.Unlock()
	s.notify()
}

// SetSession records session facts carried by connected and state
// frames in one atomic update. Identity hash and hub name only ever
// grow more specific; empty values leave the previous ones in place.
func (s *Store) SetSession(connected bool, identityHash, nickname, hubName string) {
	s.mu.Lock()
	s.presence.Connected = connected
	if identityHash != "" {
		s.presence.IdentityHash = identityHash
	}
	s.presence.Nickname = nickname
	if hubName != "" {
		s.presence.HubName = hubName
	}
	if !connected {
		s.presence.LatencyMS = nil
	}
	s.mu.Unlock()
	s.notify()
}

// JoinConfirmed applies a confirmed self-join: the room exists, its
// member list is replaced with the server's snapshot, and the view
// switches to it.
func (s *Store) JoinConfirmed(name string, users []string) {
	s.mu.Lock()
	r := s.ensureRoomLocked(name)
	r.users = make(map[string]struct{}, len(users))
	for _, u := range users {
		r.users[u] = struct{}{}
	}
	s.current = name
	r.unread = 0
	s.mu.Unlock()
	s.notify()
}

// SetNickname records a confirmed nickname change.
func (s *Store) SetNickname(nickname string) {
	s.mu.Lock()
	s.presence.Nickname = nickname
	s.mu.Unlock()
	s.notify()
}

// SetHubName records the connected hub's advertised name.
func (s *Store) SetHubName(name string) {
	s.mu.Lock()
	s.presence.HubName = name
	s.mu.Unlock()
	s.notify()
}

// SetLatency records the last heartbeat round-trip, nil when unknown.
func (s *Store) SetLatency(ms *int) {
	s.mu.Lock()
	if ms == nil {
		s.presence.LatencyMS = nil
	} else {
		v := *ms
		s.presence.LatencyMS = &v
	}
	s.mu.Unlock()
	s.notify()
}

// UpsertHub records a discovered hub, deduplicated by hash.
func (s *Store) UpsertHub(h Hub) {
	if h.Hash == "" {
		return
	}
	s.mu.Lock()
	s.hubs[h.Hash] = h
	s.mu.Unlock()
	s.notify()
}

// MergeHubs upserts a batch of discovered hubs in one update. Hubs
// already known but absent from the batch are kept; expiry is a
// presentation concern.
func (s *Store) MergeHubs(hubs []Hub) {
	s.mu.Lock()
	for _, h := range hubs {
		if h.Hash != "" {
			s.hubs[h.Hash] = h
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Hubs returns all discovered hubs, most recently seen first.
func (s *Store) Hubs() []Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hubs := make([]Hub, 0, len(s.hubs))
	for _, h := range s.hubs {
		hubs = append(hubs, h)
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].LastSeen != hubs[j].LastSeen {
			return hubs[i].LastSeen > hubs[j].LastSeen
		}
		return hubs[i].Hash < hubs[j].Hash
	})
	return hubs
}
