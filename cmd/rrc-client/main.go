package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rrc-chat/rrc-client/internal/chat"
	"github.com/rrc-chat/rrc-client/internal/client"
	"github.com/rrc-chat/rrc-client/internal/command"
	"github.com/rrc-chat/rrc-client/internal/config"
	"github.com/rrc-chat/rrc-client/internal/logger"
	"github.com/rrc-chat/rrc-client/pkg/protocol"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Config file path")
	backendURL := flag.String("url", "", "Backend WebSocket URL (overrides config)")
	nickname := flag.String("nickname", "", "Nickname to advertise (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, continuing with defaults\n", err)
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *nickname != "" {
		cfg.Nickname = *nickname
	}
	if *debug {
		cfg.Debug = true
	}

	log := logger.New(cfg.Debug)
	defer func() { _ = log.Sync() }()

	a := newApp(cfg, *configPath, log)
	if err := a.run(); err != nil {
		log.Fatal("client exited", zap.Error(err))
	}
}

// app is the application root: it owns the store, dispatcher,
// interpreter and connection manager and passes them to each other
// explicitly. There is no ambient global state.
type app struct {
	configPath string
	log        *zap.Logger

	store  *chat.Store
	interp *command.Interpreter

	// mu guards cfg (rewritten by the config watcher) and manager
	// (replaced on reload).
	mu      sync.Mutex
	cfg     config.Config
	manager *client.Manager
	reloads chan struct{}

	renderMu sync.Mutex
	rendered map[string]int
	lastRoom string
}

func newApp(cfg config.Config, configPath string, log *zap.Logger) *app {
	store := chat.NewStore()
	return &app{
		cfg:        cfg,
		configPath: configPath,
		log:        log,
		store:      store,
		interp:     command.NewInterpreter(store, log),
		reloads:    make(chan struct{}, 1),
		rendered:   make(map[string]int),
	}
}

func (a *app) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.loginRequired(ctx) {
		fmt.Println("This backend requires login. Sign in through the web interface first.")
		return nil
	}

	if hubs, err := config.LoadHubCache(config.HubCachePath(a.configPath)); err != nil {
		a.log.Warn("hub cache unavailable", zap.Error(err))
	} else if len(hubs) > 0 {
		a.store.MergeHubs(hubs)
	}

	a.store.OnChange = a.render
	a.connect()

	go a.watchConfig(ctx)
	go a.reloadLoop(ctx)

	fmt.Println("Type /help for commands, /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "/connect" {
			a.sendSessionRequest()
			continue
		}
		a.interp.Handle(line, a.send)
	}
	if err := scanner.Err(); err != nil {
		a.log.Warn("stdin closed", zap.Error(err))
	}

	a.send(&protocol.Disconnect{})
	a.shutdown()
	return nil
}

// connect builds a fresh connection manager and opens the transport.
// A reload discards the old manager entirely; its session is assumed
// invalid. The hub session is requested from the manager's open hook,
// so it is re-sent on every reconnect rather than only at startup.
func (a *app) connect() {
	a.mu.Lock()
	url := a.cfg.BackendURL
	a.mu.Unlock()

	mgr := client.NewManager(a.store, chat.NewDispatcher(a.store, a.log), client.Options{
		URL:    url,
		Logger: a.log,
		OnOpen: a.sendSessionRequest,
		OnAuthFailure: func() {
			select {
			case a.reloads <- struct{}{}:
			default:
			}
		},
	})

	a.mu.Lock()
	a.manager = mgr
	a.mu.Unlock()

	mgr.Connect()
}

// sendSessionRequest asks the backend to (re)establish the hub session
// with the configured identity, then joins the configured room.
func (a *app) sendSessionRequest() {
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()

	a.send(&protocol.Connect{
		IdentityPath: cfg.IdentityPath,
		DestName:     cfg.DestName,
		HubHash:      cfg.HubHash,
		Nickname:     cfg.Nickname,
	})
	if cfg.AutoJoinRoom != "" {
		a.send(&protocol.JoinRoom{Room: cfg.AutoJoinRoom})
	}
}

func (a *app) send(ev protocol.Event) {
	a.mu.Lock()
	mgr := a.manager
	a.mu.Unlock()
	if mgr != nil {
		mgr.Send(ev)
	}
}

func (a *app) shutdown() {
	a.mu.Lock()
	mgr := a.manager
	a.manager = nil
	a.mu.Unlock()
	if mgr != nil {
		mgr.Close()
	}

	if err := config.SaveHubCache(config.HubCachePath(a.configPath), a.store.Hubs()); err != nil {
		a.log.Warn("hub cache not saved", zap.Error(err))
	}
}

func (a *app) loginRequired(ctx context.Context) bool {
	a.mu.Lock()
	url := a.cfg.BackendURL
	a.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status := client.CheckAuthStatus(checkCtx, &http.Client{Timeout: 5 * time.Second}, url)
	return status.LoginRequired()
}

// reloadLoop performs the "full client reload" recovery: tear down,
// re-run the login gate, reconnect.
func (a *app) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.reloads:
		}

		a.log.Warn("session rejected, reloading client")
		a.mu.Lock()
		old := a.manager
		a.manager = nil
		a.mu.Unlock()
		if old != nil {
			old.Close()
		}

		if a.loginRequired(ctx) {
			fmt.Println("Session expired. Sign in through the web interface, then restart.")
			continue
		}
		a.connect()
	}
}

// watchConfig live-applies edits to the settings file. Only the
// nickname can change without a reconnect.
func (a *app) watchConfig(ctx context.Context) {
	err := config.Watch(ctx, a.configPath, a.log, func(cfg config.Config) {
		a.mu.Lock()
		changed := cfg.Nickname != "" && cfg.Nickname != a.cfg.Nickname
		a.cfg.Nickname = cfg.Nickname
		a.mu.Unlock()
		if changed {
			a.send(&protocol.SetNickname{Nickname: cfg.Nickname})
		}
	})
	if err != nil && ctx.Err() == nil {
		a.log.Debug("config watcher stopped", zap.Error(err))
	}
}

// render prints entries newly appended to the room the user is
// viewing. The store is the single source for what is shown.
func (a *app) render() {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	for name := range a.rendered {
		if !a.store.HasRoom(name) {
			delete(a.rendered, name)
		}
	}

	room := a.store.CurrentRoom()
	view, ok := a.store.Room(room)
	if !ok {
		return
	}
	if room != a.lastRoom {
		fmt.Printf("--- %s ---\n", room)
		a.lastRoom = room
	}

	n := a.rendered[room]
	if n > len(view.Messages) {
		// History was replaced by a full sync; start over.
		n = 0
	}
	for _, msg := range view.Messages[n:] {
		fmt.Println(formatMessage(msg))
	}
	a.rendered[room] = len(view.Messages)
}

func formatMessage(m chat.Message) string {
	switch m.Kind {
	case chat.KindChat:
		user := m.User
		if m.Own {
			user += " (you)"
		}
		return fmt.Sprintf("[%s] %s: %s", m.Timestamp, user, m.Text)
	case chat.KindJoin:
		return fmt.Sprintf("[%s] *** %s joined", m.Timestamp, m.User)
	case chat.KindPart:
		return fmt.Sprintf("[%s] *** %s left", m.Timestamp, m.User)
	case chat.KindNotice:
		return fmt.Sprintf("[%s] -- %s", m.Timestamp, m.Text)
	case chat.KindError:
		return fmt.Sprintf("[%s] error: %s", m.Timestamp, m.Text)
	default:
		return fmt.Sprintf("[%s] *** %s", m.Timestamp, m.Text)
	}
}
