package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthStatus is the login boundary's answer from /api/auth-status.
type AuthStatus struct {
	AuthRequired    bool `json:"auth_required"`
	IsAuthenticated bool `json:"is_authenticated"`
}

// LoginRequired reports whether the status gate blocks starting the
// core.
func (s AuthStatus) LoginRequired() bool {
	return s.AuthRequired && !s.IsAuthenticated
}

// CheckAuthStatus queries the auth boundary before connecting. The
// policy is fail-open: an unreachable endpoint, a non-success status,
// or a body without an explicit auth flag all count as "no auth
// required". Tightening this silently would lock clients out of hubs
// that never deployed the auth layer.
func CheckAuthStatus(ctx context.Context, httpClient *http.Client, wsURL string) AuthStatus {
	base, err := httpBase(wsURL)
	if err != nil {
		return AuthStatus{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/auth-status", nil)
	if err != nil {
		return AuthStatus{}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return AuthStatus{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return AuthStatus{}
	}

	var status AuthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&status); err != nil {
		return AuthStatus{}
	}
	return status
}

// authProbe distinguishes an authentication rejection from a generic
// network failure when the WebSocket handshake never completed. A HEAD
// against the WebSocket path answering 401 is the secondary
// auth-failure signal.
type authProbe struct {
	httpURL string
	client  *http.Client
}

func newAuthProbe(wsURL string) *authProbe {
	probeURL, err := httpURL(wsURL)
	if err != nil {
		probeURL = ""
	}
	return &authProbe{
		httpURL: probeURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Unauthorized reports whether the endpoint explicitly rejected us.
// Any probe failure means "can't tell", which falls through to the
// normal reconnect path.
func (p *authProbe) Unauthorized(ctx context.Context) bool {
	if p.httpURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.httpURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusUnauthorized
}

// httpURL rewrites a ws:// or wss:// URL to its http(s) equivalent,
// keeping the path.
func httpURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url %q: %w", wsURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("invalid websocket url %q: unsupported scheme", wsURL)
	}
	return u.String(), nil
}

// httpBase is httpURL with the path stripped, for server-root API
// endpoints.
func httpBase(wsURL string) (string, error) {
	full, err := httpURL(wsURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String(), nil
}
