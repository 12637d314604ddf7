package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/metrics"
)

// Broker 消费中断后的重启退避
const (
	defaultRestartBaseDelay = 500 * time.Millisecond
	defaultRestartMaxDelay  = 30 * time.Second
)

// Hub 按日期房间管理实时订阅者
// 投递为至多一次：客户端发送队列已满时丢弃该消息，发布方从不阻塞
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}

	broker         Broker
	publishTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger

	restartBaseDelay time.Duration
	restartMaxDelay  time.Duration
}

// NewHub 创建 Hub
func NewHub(broker Broker, publishTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Hub {
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	return &Hub{
		rooms:            make(map[string]map[*Client]struct{}),
		clients:          make(map[*Client]map[string]struct{}),
		broker:           broker,
		publishTimeout:   publishTimeout,
		metrics:          m,
		logger:           logger,
		restartBaseDelay: defaultRestartBaseDelay,
		restartMaxDelay:  defaultRestartMaxDelay,
	}
}

// Run 启动 Broker 消费，阻塞到 ctx 结束；结束时断开全部客户端
// Broker 在 ctx 结束前退出（如 Redis 订阅失败）时按指数退避重启，已连接的客户端保持在线
func (h *Hub) Run(ctx context.Context) error {
	defer h.closeAll()

	failures := 0
	for {
		started := time.Now()
		err := h.broker.Start(ctx, h.deliver)
		if ctx.Err() != nil {
			return nil
		}

		// 稳定运行超过最大退避后重新计数
		if time.Since(started) >= h.restartMaxDelay {
			failures = 0
		}
		failures++
		delay := h.restartDelay(failures)
		h.logger.Warn("实时推送 Broker 中断，稍后重启",
			zap.Int("failures", failures),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// restartDelay 第 n 次连续失败后的等待时间：base * 2^(n-1)，不超过 max
func (h *Hub) restartDelay(failures int) time.Duration {
	delay := h.restartBaseDelay
	for i := 1; i < failures && delay < h.restartMaxDelay; i++ {
		delay *= 2
	}
	if delay > h.restartMaxDelay {
		delay = h.restartMaxDelay
	}
	return delay
}

// Register 登记新连接
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = make(map[string]struct{})
	h.mu.Unlock()
	h.metrics.AddRealtimeConnections(1)
}

// Unregister 移除连接并退出全部房间
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	rooms, ok := h.clients[c]
	if ok {
		for room := range rooms {
			h.leaveLocked(c, room)
		}
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.AddRealtimeConnections(-1)
	}
}

// Subscribe 加入某日房间，返回房间名
func (h *Hub) Subscribe(c *Client, date businessday.Date) string {
	room := RoomName(date)
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clients[c]
	if !ok {
		return room
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	joined[room] = struct{}{}
	return room
}

// Unsubscribe 离开某日房间
func (h *Hub) Unsubscribe(c *Client, date businessday.Date) string {
	room := RoomName(date)
	h.mu.Lock()
	h.leaveLocked(c, room)
	h.mu.Unlock()
	return room
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if joined, ok := h.clients[c]; ok {
		delete(joined, room)
	}
}

// RoomSize 某日房间当前订阅数
func (h *Hub) RoomSize(date businessday.Date) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomName(date)])
}

// Publish 向某日房间广播事件
// 尽力而为：编码或传输失败只记日志，不回传给调用方
func (h *Hub) Publish(ctx context.Context, date businessday.Date, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("实时消息编码失败", zap.String("type", event.Type), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()

	room := RoomName(date)
	if err := h.broker.Publish(pubCtx, room, payload); err != nil {
		h.logger.Warn("实时消息发布失败",
			zap.String("room", room),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

// deliver 将消息放入房间内每个客户端的发送队列
// 房间名无法解析为日期的消息直接丢弃
func (h *Hub) deliver(room string, payload []byte) {
	if _, ok := DateFromRoom(room); !ok {
		h.logger.Debug("丢弃无效房间的实时消息", zap.String("room", room))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		if c.enqueue(payload) {
			h.metrics.IncrementRealtimeMessages(metrics.OutcomeDelivered)
		} else {
			h.metrics.IncrementRealtimeMessages(metrics.OutcomeDropped)
		}
	}
}

// reply 直接向单个客户端回执（不经过 Broker）
func (h *Hub) reply(c *Client, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		c.enqueue(payload)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*Client]map[string]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()
	h.metrics.AddRealtimeConnections(-n)
}
