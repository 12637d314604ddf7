package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/pkg/redis"
)

// DeliverFunc 把房间消息投递给本实例的订阅者
type DeliverFunc func(room string, payload []byte)

// Broker 房间消息的发布/订阅传输
// 单实例使用 LocalBroker；多实例部署通过 RedisBroker 共享
type Broker interface {
	Publish(ctx context.Context, room string, payload []byte) error
	// Start 开始消费消息并阻塞到 ctx 结束
	Start(ctx context.Context, deliver DeliverFunc) error
}

// ErrBrokerNotStarted 在 Start 之前发布
var ErrBrokerNotStarted = errors.New("realtime: broker 尚未启动")

// ── 进程内实现 ──

// LocalBroker 进程内直接投递
type LocalBroker struct {
	mu      sync.RWMutex
	deliver DeliverFunc
}

// NewLocalBroker 创建进程内 Broker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

func (b *LocalBroker) Publish(_ context.Context, room string, payload []byte) error {
	b.mu.RLock()
	deliver := b.deliver
	b.mu.RUnlock()
	if deliver == nil {
		return ErrBrokerNotStarted
	}
	deliver(room, payload)
	return nil
}

func (b *LocalBroker) Start(ctx context.Context, deliver DeliverFunc) error {
	b.mu.Lock()
	b.deliver = deliver
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.deliver = nil
	b.mu.Unlock()
	return nil
}

// ── Redis 实现 ──

// RedisBroker 基于 Redis Pub/Sub 的跨实例背板
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroker 创建 Redis Broker
func NewRedisBroker(client *redis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, room string, payload []byte) error {
	return b.client.Publish(ctx, room, payload)
}

func (b *RedisBroker) Start(ctx context.Context, deliver DeliverFunc) error {
	ps := b.client.PSubscribe(ctx, RoomPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("实时推送 Redis 背板已订阅", zap.String("pattern", RoomPrefix+"*"))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}
