package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Client 单个 WebSocket 连接
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	UserID string
	Role   string
}

// NewClient 创建并登记客户端
func NewClient(hub *Hub, conn *websocket.Conn, sendBuffer int, userID, role string) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		UserID: userID,
		Role:   role,
	}
	hub.Register(c)
	return c
}

// enqueue 非阻塞入队，队列已满返回 false；调用方需持有 hub 读锁
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Serve 启动写协程并在当前协程读取，连接断开后返回
func (c *Client) Serve(pingInterval time.Duration) {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	go c.writePump(pingInterval)
	c.readPump(pingInterval * 2)
}

// readPump 处理客户端的 joinDate / leaveDate 指令
func (c *Client) readPump(pongWait time.Duration) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("实时连接异常断开", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.reply(c, ackMessage{Type: TypeError, Message: "消息格式无效"})
		return
	}

	switch msg.Event {
	case EventJoinDate, EventLeaveDate:
		date, err := businessday.ParseDate(msg.Date)
		if err != nil {
			c.hub.reply(c, ackMessage{Type: TypeError, Message: "日期格式无效"})
			return
		}
		if msg.Event == EventJoinDate {
			room := c.hub.Subscribe(c, date)
			c.hub.reply(c, ackMessage{Type: TypeJoined, Room: room, Date: date.String()})
		} else {
			room := c.hub.Unsubscribe(c, date)
			c.hub.reply(c, ackMessage{Type: TypeLeft, Room: room, Date: date.String()})
		}
	default:
		c.hub.reply(c, ackMessage{Type: TypeError, Message: "未知事件: " + msg.Event})
	}
}

// writePump 串行写出队列消息并定期发送 ping
func (c *Client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
