package services

import (
	"encoding/json"
	"sync"
	"time"

	"frp-manager/internal/logger"
	"frp-manager/internal/models"

	"github.com/gorilla/websocket"
)

const (
	wsSendQueue  = 256
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSMessage is the frame pushed to browser clients.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type wsClient struct {
	conn   *websocket.Conn
	caller models.Caller
	send   chan []byte
}

/**
 * WSHub 管理所有WebSocket连接并广播事件
 * @description
 * - 每个连接一个发送队列和一个写协程
 * - 队列满的慢客户端直接断开，Emit永远不阻塞
 */
type WSHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	access  AccessFunc
}

// AccessFunc 判断连接的用户能否收到某个配置的事件
type AccessFunc func(caller *models.Caller, configID string) bool

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*wsClient]struct{})}
}

// SetAccess 设置事件过滤，未设置时广播给所有连接
func (h *WSHub) SetAccess(fn AccessFunc) {
	h.mu.Lock()
	h.access = fn
	h.mu.Unlock()
}

func eventConfigID(payload interface{}) string {
	switch p := payload.(type) {
	case models.StatusEvent:
		return p.ID
	case models.LogEvent:
		return p.ID
	}
	return ""
}

func (h *WSHub) Emit(event string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: event, Data: payload})
	if err != nil {
		logger.Errorf("Marshal websocket event '%s' failed: %v", event, err)
		return
	}

	id := eventConfigID(payload)
	var slow []*wsClient
	h.mu.RLock()
	for c := range h.clients {
		if h.access != nil && id != "" && !h.access(&c.caller, id) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warnf("Websocket client '%s' too slow, dropping", c.caller.Username)
		h.unregister(c)
	}
}

// Count 当前连接数
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

/**
 * Serve 接管一个已升级的连接，直到连接断开才返回
 * @param {*websocket.Conn} conn - 已完成握手的连接
 * @param {models.Caller} caller - 连接所属用户
 */
func (h *WSHub) Serve(conn *websocket.Conn, caller models.Caller) {
	c := &wsClient{conn: conn, caller: caller, send: make(chan []byte, wsSendQueue)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Infof("Websocket client connected: %s", caller.Username)

	go h.writePump(c)
	h.readPump(c)
}

func (h *WSHub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump 只处理控制帧，客户端发来的数据忽略
func (h *WSHub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		logger.Infof("Websocket client disconnected: %s", c.caller.Username)
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close 断开所有客户端
func (h *WSHub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
