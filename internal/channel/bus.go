package channel

import (
	"context"
	"sync"
	"time"
)

// Subscription 是一个已生效的订阅；Close 之后 Messages 会被关闭。
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Bus 在编辑端与渲染端之间转发消息。Subscribe 返回时订阅必须已经生效，
// 否则紧随其后的 Publish 可能丢失。
type Bus interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Store 保存渲染端已收到的文档，供刷新后恢复。
type Store interface {
	Get(ctx context.Context, sessionID string) ([]byte, bool, error)
	Put(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error
}

// MemoryBus 是进程内实现，用于单实例部署与测试。
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[*memorySub]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string]map[*memorySub]struct{}{}}
}

type memorySub struct {
	bus   *MemoryBus
	topic string
	ch    chan []byte
	once  sync.Once
}

func (s *memorySub) Messages() <-chan []byte {
	return s.ch
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.topic], s)
		if len(s.bus.subs[s.topic]) == 0 {
			delete(s.bus.subs, s.topic)
		}
		close(s.ch)
		s.bus.mu.Unlock()
	})
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscription, error) {
	sub := &memorySub{bus: b, topic: topic, ch: make(chan []byte, 4)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[*memorySub]struct{}{}
	}
	b.subs[topic][sub] = struct{}{}
	return sub, nil
}

// Publish 不阻塞；订阅者缓冲区满时丢弃消息，与 Redis Pub/Sub 的至多一次语义一致。
func (b *MemoryBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[topic] {
		msg := append([]byte(nil), payload...)
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// MemoryStore 是进程内的 Store。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]storeEntry
	now     func() time.Time
}

type storeEntry struct {
	payload []byte
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]storeEntry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		delete(s.entries, sessionID)
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := storeEntry{payload: payload}
	if ttl > 0 {
		entry.expires = s.now().Add(ttl)
	}
	s.entries[sessionID] = entry
	return nil
}
