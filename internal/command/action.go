// Package command parses user-typed input into protocol actions. A
// line without the slash prefix is plain chat text for the room the
// user is viewing; everything else is a command, either handled
// locally or relayed opaquely to the server.
package command

// Action is the parsed intent of one input line.
type Action interface {
	isAction()
}

// SendText sends chat text to a room.
type SendText struct {
	Room string
	Text string
}

// JoinRoom requests joining a room.
type JoinRoom struct {
	Room string
}

// PartRoom requests leaving a room.
type PartRoom struct {
	Room string
}

// SetNickname changes the advertised nickname.
type SetNickname struct {
	Nickname string
}

// SwitchRoom moves the view to an already-joined room and tells the
// server about the change.
type SwitchRoom struct {
	Room string
}

// Relay forwards the whole command text verbatim to the server, tagged
// with the room the user is currently viewing. The server does its own
// authorization and argument checking.
type Relay struct {
	Command string
	Room    string
}

// LocalNotice appends an informational entry to the viewed room and
// never touches the network.
type LocalNotice struct {
	Text string
}

// LocalError appends a validation error to the viewed room and never
// touches the network.
type LocalError struct {
	Text string
}

// Nop is the result of empty input.
type Nop struct{}

func (SendText) isAction()    {}
func (JoinRoom) isAction()    {}
func (PartRoom) isAction()    {}
func (SetNickname) isAction() {}
func (SwitchRoom) isAction()  {}
func (Relay) isAction()       {}
func (LocalNotice) isAction() {}
func (LocalError) isAction()  {}
func (Nop) isAction()         {}
