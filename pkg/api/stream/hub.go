package stream

import (
	"encoding/json"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/usecase"
)

const (
	sendBuffer     = 16
	maxMessageSize = 4 * 1024
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
)

// Message はブラウザへ送る1通の封筒です
type Message struct {
	Type string           `json:"type"`
	Data usecase.Snapshot `json:"data"`
}

// Hub は /ws に接続したブラウザへスナップショットを配信します
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*client
	closed  bool

	nextID atomic.Uint64
	logger *zap.Logger
}

type client struct {
	id   uint64
	conn net.Conn
	send chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uint64]*client),
		logger:  logger,
	}
}

func encode(snapshot usecase.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Data: snapshot})
}

// Publish は全クライアントへ送ります。送信キューが詰まったクライアントは切断します
func (h *Hub) Publish(snapshot usecase.Snapshot) {
	b, err := encode(snapshot)
	if err != nil {
		h.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warn("dropping slow client", zap.Uint64("client", id))
			delete(h.clients, id)
			close(c.send)
		}
	}
}

// Len は接続中のクライアント数です
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close は全クライアントを切断し、以降の接続を断ります
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Handler は接続直後に initial のスナップショットを送り、以降は Publish を流します
func (h *Hub) Handler(initial func() usecase.Snapshot) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, _, _, err := ws.UpgradeHTTP(ctx.Request, ctx.Writer)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &client{
			id:   h.nextID.Add(1),
			conn: conn,
			send: make(chan []byte, sendBuffer),
		}

		if initial != nil {
			b, err := encode(initial())
			if err == nil {
				c.send <- b
			}
		}

		if !h.register(c) {
			conn.Write(ws.CompiledClose)
			conn.Close()
			return
		}
		h.logger.Info("websocket client connected",
			zap.Uint64("client", c.id),
			zap.String("remote", conn.RemoteAddr().String()))

		go h.writePump(c)
		go h.readPump(c)
	}
}

// readPump はクライアントからの入力を読み捨て、切断を検知します
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Info("websocket client disconnected", zap.Uint64("client", c.id))
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			return
		}
		if header.Length > maxMessageSize {
			return
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return
		}

		if header.OpCode == ws.OpClose {
			return
		}
		// 何か届けば生きている
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.Write(ws.CompiledClose)
				return
			}
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
