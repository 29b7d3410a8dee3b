package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/janpai/server/internal/proto"
)

// Conn wraps one websocket. All writes funnel through a single writer
// goroutine via the out queue; inbound frames are handled sequentially
// by the read loop, so per-connection processing is ordered.
type Conn struct {
	ws           *websocket.Conn
	out          chan []byte
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	lastSeen atomic.Int64 // unix nanos of the last inbound frame

	// Per-second inbound rate limiter; read-loop goroutine only.
	msgPerSec  int
	msgCount   int
	msgResetAt int64

	log *zap.Logger
}

func NewConn(ws *websocket.Conn, outSize, msgPerSec int, writeTimeout time.Duration, log *zap.Logger) *Conn {
	c := &Conn{
		ws:           ws,
		out:          make(chan []byte, outSize),
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		msgPerSec:    msgPerSec,
		log:          log.With(zap.String("remote", ws.RemoteAddr().String())),
	}
	c.lastSeen.Store(time.Now().UnixNano())
	go c.writeLoop()
	return c
}

// Send encodes and queues one payload. A full queue means the client
// stopped reading; the connection is dropped rather than blocking the
// game fan-out.
func (c *Conn) Send(payload any) {
	if c.closed.Load() {
		return
	}
	frame, err := proto.Encode(payload)
	if err != nil {
		c.log.Error("encode outbound frame", zap.Error(err))
		return
	}
	select {
	case c.out <- frame:
	default:
		c.log.Warn("out queue full, dropping slow connection")
		c.Close("slow_consumer")
	}
}

// Close sends a normal close frame with the reason and tears the
// socket down. Safe to call repeatedly from any goroutine.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		deadline := time.Now().Add(c.writeTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.ws.Close()
	})
}

func (c *Conn) IsClosed() bool { return c.closed.Load() }

// LastSeen returns when the last inbound frame arrived.
func (c *Conn) LastSeen() time.Time { return time.Unix(0, c.lastSeen.Load()) }

// ReadLoop feeds inbound binary frames to handle, one at a time, until
// the socket dies. It returns after the connection is closed.
func (c *Conn) ReadLoop(handle func(frame []byte)) {
	defer c.Close("read_loop_exit")
	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.log.Debug("read error", zap.Error(err))
			}
			return
		}
		c.lastSeen.Store(time.Now().UnixNano())
		if kind != websocket.BinaryMessage {
			continue
		}
		if !c.allow() {
			c.log.Warn("message rate exceeded, dropping connection")
			return
		}
		handle(frame)
	}
}

// allow applies the per-second inbound budget.
func (c *Conn) allow() bool {
	if c.msgPerSec <= 0 {
		return true
	}
	now := time.Now().Unix()
	if now != c.msgResetAt {
		c.msgCount = 0
		c.msgResetAt = now
	}
	c.msgCount++
	return c.msgCount <= c.msgPerSec
}

func (c *Conn) writeLoop() {
	defer c.Close("write_loop_exit")
	for {
		select {
		case frame := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				if !c.closed.Load() {
					c.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
