package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus 基于 Redis Pub/Sub，使 API 多实例之间也能完成握手。
type RedisBus struct {
	client redis.UniversalClient
}

func NewRedisBus(client redis.UniversalClient) *RedisBus {
	return &RedisBus{client: client}
}

type redisSub struct {
	pubsub *redis.PubSub
	ch     chan []byte
	once   sync.Once
	done   chan struct{}
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)
	// 等待订阅确认，确保之后的 Publish 不会丢失。
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &redisSub{pubsub: pubsub, ch: make(chan []byte, 4), done: make(chan struct{})}
	go sub.forward()
	return sub, nil
}

func (s *redisSub) forward() {
	defer close(s.ch)
	in := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSub) Messages() <-chan []byte {
	return s.ch
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// RedisStore 以带 TTL 的键保存已收到的文档。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "preview:received:"}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get received document: %w", err)
	}
	return payload, true, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+sessionID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store received document: %w", err)
	}
	return nil
}
