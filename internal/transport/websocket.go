package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WebSocketDialer dials WebSocket connections using gobwas/ws.
type WebSocketDialer struct {
	// Timeout bounds the dial and handshake. Zero means no timeout.
	Timeout time.Duration
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := ws.Dialer{Timeout: d.Timeout}
	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, err
	}

	c := &webSocketConn{conn: conn, reader: conn}
	if br != nil {
		// Handshake response left buffered frame data behind.
		c.reader = br
	}
	return c, nil
}

// webSocketConn wraps a dialed WebSocket connection with text-frame
// reads and writes.
type webSocketConn struct {
	conn    net.Conn
	reader  io.Reader
	writeMu sync.Mutex
}

func (c *webSocketConn) ReadFrame() ([]byte, error) {
	data, err := wsutil.ReadServerText(readWriter{c.reader, controlWriter{c}})
	if err != nil {
		var closed wsutil.ClosedError
		if errors.As(err, &closed) {
			return nil, &CloseError{Code: int(closed.Code), Reason: closed.Reason}
		}
		return nil, err
	}
	return data, nil
}

func (c *webSocketConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteClientText(c.conn, data)
}

func (c *webSocketConn) Close() error {
	c.writeMu.Lock()
	_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, nil)
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *webSocketConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// readWriter pairs the frame reader with the control-frame writer so
// wsutil can answer pings while reading.
type readWriter struct {
	io.Reader
	io.Writer
}

// controlWriter serializes control-frame writes against WriteFrame.
type controlWriter struct {
	c *webSocketConn
}

func (w controlWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}
