package channel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
)

const defaultReceivedTTL = 24 * time.Hour

var ErrNotReceived = errors.New("preview document not received yet")

// Receiver 是渲染端：发出就绪信号，接收唯一一次文档并缓存，刷新后可直接恢复。
type Receiver struct {
	bus    Bus
	store  Store
	codec  *magicyan.Codec
	logger *slog.Logger
	ttl    time.Duration
}

func NewReceiver(bus Bus, store Store, codec *magicyan.Codec, logger *slog.Logger, ttl time.Duration) *Receiver {
	if ttl <= 0 {
		ttl = defaultReceivedTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		bus:    bus,
		store:  store,
		codec:  codec,
		logger: logger.With("component", "channel.receiver"),
		ttl:    ttl,
	}
}

// Cached 返回之前已收到的文档；没有时返回 ErrNotReceived。
func (r *Receiver) Cached(ctx context.Context, sessionID string) (resume.Document, error) {
	payload, ok, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return resume.Document{}, err
	}
	if !ok {
		return resume.Document{}, ErrNotReceived
	}
	return r.codec.DecodeTransport(payload)
}

// Receive 优先返回缓存；否则先订阅数据主题再发送就绪信号，等待编辑端发送文档。
// 等待时长由 ctx 决定。
func (r *Receiver) Receive(ctx context.Context, sessionID string) (resume.Document, error) {
	doc, err := r.Cached(ctx, sessionID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotReceived) {
		r.logger.Warn("read received document failed", slog.String("session_id", sessionID), slog.Any("error", err))
	}

	sub, err := r.bus.Subscribe(ctx, dataTopic(sessionID))
	if err != nil {
		return resume.Document{}, fmt.Errorf("subscribe document topic: %w", err)
	}
	defer func() {
		_ = sub.Close()
	}()

	if err := r.bus.Publish(ctx, readyTopic(sessionID), []byte(readyMessage)); err != nil {
		return resume.Document{}, fmt.Errorf("signal ready: %w", err)
	}

	select {
	case payload, ok := <-sub.Messages():
		if !ok {
			return resume.Document{}, ErrNotReceived
		}
		doc, err := r.codec.DecodeTransport(payload)
		if err != nil {
			return resume.Document{}, fmt.Errorf("decode preview document: %w", err)
		}
		if err := r.store.Put(ctx, sessionID, payload, r.ttl); err != nil {
			r.logger.Warn("cache received document failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}
		return doc, nil
	case <-ctx.Done():
		return resume.Document{}, ctx.Err()
	}
}

// DecodeInline 解析内联传输携带的载荷。
func DecodeInline(codec *magicyan.Codec, data string) (resume.Document, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return resume.Document{}, magicyan.ErrEmptyInput
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return resume.Document{}, fmt.Errorf("%w: %v", magicyan.ErrMalformedSyntax, err)
	}
	return codec.DecodeTransport(payload)
}
