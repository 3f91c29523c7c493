package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// ErrConnClosed is returned when sending on a closed handle.
var ErrConnClosed = errors.New("notification: connection closed")

const closeGracePeriod = time.Second

// WSConn adapts a Fiber websocket connection to Conn. Writes are serialized
// since the underlying connection supports a single concurrent writer.
type WSConn struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// NewWSConn wraps conn with a fresh handle id.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{id: uuid.NewString(), conn: conn}
}

func (w *WSConn) ID() string {
	return w.id
}

func (w *WSConn) Open() bool {
	return !w.closed.Load()
}

// Send writes message as a text frame, honouring the context deadline.
func (w *WSConn) Send(ctx context.Context, message []byte) error {
	if !w.Open() {
		return ErrConnClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// the socket may have been released while waiting for the lock
	if !w.Open() {
		return ErrConnClosed
	}

	deadline, _ := ctx.Deadline()
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

// MarkClosed flags the handle as closed without touching the socket; used
// when the peer already went away. It waits for an in-flight write, so no
// write starts after it returns.
func (w *WSConn) MarkClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed.Store(true)
}

// Close sends a close frame and closes the socket. Repeated calls are no-ops.
func (w *WSConn) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	msg := fastws.FormatCloseMessage(fastws.CloseGoingAway, "server shutting down")
	_ = w.conn.WriteControl(fastws.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return w.conn.Close()
}
