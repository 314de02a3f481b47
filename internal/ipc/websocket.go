package ipc

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local clients only
	},
}

type wsFrame struct {
	kind int
	data []byte
}

type wsClient struct {
	proto bool
	send  chan wsFrame
}

// Hub pushes messages to websocket clients. Clients connecting with
// ?format=proto receive lyrics envelopes as binary protobuf frames; every
// other message is sent as JSON text.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *Message
}

// NewHub 创建websocket推送中心
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Broadcast 向所有websocket客户端推送消息，发送队列已满的客户端会被断开
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.Type == TypeLyrics {
		m := msg
		h.last = &m
	}

	for c := range h.clients {
		frame, ok := encodeFrame(msg, c.proto)
		if !ok {
			continue
		}
		select {
		case c.send <- frame:
		default:
			logger().Warn().Msg("Websocket client too slow, dropping")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func encodeFrame(msg Message, proto bool) (wsFrame, bool) {
	if proto && msg.Type == TypeLyrics && msg.Envelope != nil {
		data, err := msg.Envelope.MarshalBinary()
		if err != nil {
			logger().Error().Err(err).Msg("Failed to encode envelope")
			return wsFrame{}, false
		}
		return wsFrame{kind: websocket.BinaryMessage, data: data}, true
	}

	data, err := msg.Encode()
	if err != nil {
		logger().Error().Err(err).Str("type", msg.Type).Msg("Failed to encode message")
		return wsFrame{}, false
	}
	return wsFrame{kind: websocket.TextMessage, data: data}, true
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if h.last != nil {
		if frame, ok := encodeFrame(*h.last, c.proto); ok {
			c.send <- frame
		}
	}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams messages until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger().Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &wsClient{
		proto: r.URL.Query().Get("format") == "proto",
		send:  make(chan wsFrame, sendBuffer),
	}
	h.register(c)
	defer h.unregister(c)

	logger().Info().Bool("proto", c.proto).Msg("Websocket client connected")

	// 读取循环只用于检测断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(frame.kind, frame.data); err != nil {
				logger().Error().Err(err).Msg("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			logger().Info().Msg("Websocket client disconnected")
			return
		}
	}
}
