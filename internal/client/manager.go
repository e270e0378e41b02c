// Package client owns the transport lifecycle: establishing the
// backend connection, detecting failure, reconnecting, and telling
// authentication rejection apart from plain network trouble.
package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rrc-chat/rrc-client/internal/chat"
	"github.com/rrc-chat/rrc-client/internal/transport"
	"github.com/rrc-chat/rrc-client/pkg/protocol"
)

// State is the transport lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the fixed pause before a reconnect attempt.
// There is no backoff growth and no retry cap; reconnection continues
// until the manager is closed.
const DefaultReconnectDelay = 3 * time.Second

// Options configures a Manager.
type Options struct {
	// URL is the backend WebSocket address.
	URL string

	// Dialer opens transport connections. Defaults to a WebSocket
	// dialer.
	Dialer transport.Dialer

	// ReconnectDelay overrides DefaultReconnectDelay when positive.
	ReconnectDelay time.Duration

	// OnAuthFailure runs when a close or probe indicates the session is
	// no longer authenticated. The expected reaction is a full client
	// reload so the login boundary re-runs; the manager never retries
	// on its own after calling it.
	OnAuthFailure func()

	// OnOpen runs after every successful transport open, including
	// reconnects. The caller uses it to re-request the hub session,
	// which would otherwise be lost with the frames dropped while the
	// transport was down.
	OnOpen func()

	Logger *zap.Logger
}

// Manager owns the single transport instance. All side effects are
// observable through the store (connection flag, latency, room state);
// Connect and Send intentionally return nothing.
type Manager struct {
	url            string
	dialer         transport.Dialer
	reconnectDelay time.Duration
	onAuthFailure  func()
	onOpen         func()
	store          *chat.Store
	dispatcher     *chat.Dispatcher
	probe          *authProbe
	log            *zap.Logger

	mu         sync.Mutex
	state      State
	conn       transport.Conn
	generation int
	reconnects int
	retryTimer *time.Timer
	wg         sync.WaitGroup
}

// NewManager creates a manager. The store and dispatcher are shared
// with the rest of the core; the manager is their only event source.
func NewManager(store *chat.Store, dispatcher *chat.Dispatcher, opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = transport.WebSocketDialer{Timeout: 10 * time.Second}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		url:            opts.URL,
		dialer:         opts.Dialer,
		reconnectDelay: opts.ReconnectDelay,
		onAuthFailure:  opts.OnAuthFailure,
		onOpen:         opts.OnOpen,
		store:          store,
		dispatcher:     dispatcher,
		probe:          newAuthProbe(opts.URL),
		log:            opts.Logger,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconnects returns the monotonically increasing reconnect counter.
func (m *Manager) Reconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

// Connect opens the transport. Any prior instance is fully torn down
// first, and a pending reconnect timer is superseded. On success the
// manager requests a full-state sync and the discovered-hub list, then
// feeds inbound frames to the dispatcher until the connection fails.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.generation++
	gen := m.generation
	m.state = StateConnecting
	m.mu.Unlock()

	conn, err := m.dialer.Dial(context.Background(), m.url)
	if err != nil {
		m.log.Warn("dial failed", zap.String("url", m.url), zap.Error(err))
		// The handshake never completed, so no close code is available
		// to classify. Probe the endpoint to tell an auth rejection
		// apart from a generic network failure.
		if m.probe.Unauthorized(context.Background()) {
			m.failAuth(gen)
			return
		}
		m.connectionLost(gen)
		return
	}

	m.mu.Lock()
	if gen != m.generation || m.state == StateClosed {
		// A newer Connect superseded this attempt while dialing.
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.state = StateOpen
	m.mu.Unlock()

	m.log.Info("transport open", zap.String("remote", conn.RemoteAddr()))

	// Idempotent even when no hub session exists yet.
	m.Send(&protocol.GetState{})
	m.Send(&protocol.GetDiscoveredHubs{})
	if m.onOpen != nil {
		m.onOpen()
	}

	m.wg.Add(1)
	go m.readLoop(conn, gen)
}

// Send serializes and transmits while the transport is open, and
// silently drops the frame otherwise. Nothing is queued; the protocol
// is fire-and-forget from the client's perspective.
func (m *Manager) Send(ev protocol.Event) {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || conn == nil {
		m.log.Debug("dropping frame, transport not open", zap.String("type", ev.EventType()))
		return
	}

	data, err := protocol.Encode(ev)
	if err != nil {
		m.log.Error("encode failed", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	if err := conn.WriteFrame(data); err != nil {
		// The read loop observes the same failure and drives recovery.
		m.log.Warn("write failed", zap.Error(err))
	}
}

// Close tears the manager down for good. No further reconnects happen.
func (m *Manager) Close() {
	m.mu.Lock()
	m.state = StateClosed
	m.generation++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.wg.Wait()
}

func (m *Manager) readLoop(conn transport.Conn, gen int) {
	defer m.wg.Done()

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			if closeErr, ok := err.(*transport.CloseError); ok && closeErr.IsAuthFailure() {
				m.log.Warn("server closed connection as unauthenticated",
					zap.Int("code", closeErr.Code))
				m.failAuth(gen)
				return
			}
			m.log.Debug("read failed", zap.Error(err))
			m.connectionLost(gen)
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			// Malformed frames are dropped, never fatal.
			m.log.Debug("undecodable frame", zap.Error(err))
			continue
		}
		m.dispatcher.Dispatch(ev)
	}
}

// failAuth handles an authentication rejection: the session is assumed
// invalid, so the client reloads instead of reconnecting.
func (m *Manager) failAuth(gen int) {
	m.mu.Lock()
	if gen != m.generation || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.state = StateClosed
	m.mu.Unlock()

	m.store.SetConnected(false)
	if m.onAuthFailure != nil {
		m.onAuthFailure()
	}
}

// connectionLost handles every non-auth failure: mark disconnected and
// schedule exactly one reconnect after the fixed delay.
func (m *Manager) connectionLost(gen int) {
	m.mu.Lock()
	if gen != m.generation || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.state = StateDisconnected
	scheduled := m.retryTimer != nil
	if !scheduled {
		m.reconnects++
		m.retryTimer = time.AfterFunc(m.reconnectDelay, func() {
			m.mu.Lock()
			m.retryTimer = nil
			m.mu.Unlock()
			m.Connect()
		})
	}
	m.mu.Unlock()

	m.store.SetConnected(false)
	if !scheduled {
		m.log.Info("reconnecting", zap.Duration("delay", m.reconnectDelay),
			zap.Int("attempt", m.reconnects))
	}
}
