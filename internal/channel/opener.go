package channel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"magicyan/internal/magicyan"
	"magicyan/internal/metrics"
	"magicyan/internal/resume"
)

const (
	// DefaultInlineLimit 是内联传输允许的最大 base64url 载荷长度（字节）。
	// 超过该值时改用握手传输，避免目标地址过长被浏览器或代理截断。
	DefaultInlineLimit      = 8 * 1024
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultBasePath         = "/v1/preview"
)

// Transport 标识打开渲染上下文时使用的传输方式。
type Transport string

const (
	TransportInline    Transport = "inline"
	TransportHandshake Transport = "handshake"
)

const readyMessage = `{"type":"ready"}`

func readyTopic(sessionID string) string { return "preview:" + sessionID + ":ready" }
func dataTopic(sessionID string) string  { return "preview:" + sessionID + ":data" }

// Target 是新渲染上下文应当打开的地址。
type Target struct {
	URL       string     `json:"url"`
	Transport Transport  `json:"transport"`
	SessionID string     `json:"session_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// OpenerOptions 配置传输阈值与握手超时。
type OpenerOptions struct {
	InlineLimit      int
	HandshakeTimeout time.Duration
	BasePath         string
}

// Opener 是编辑端：决定传输方式，并在握手模式下等待就绪信号后发送一次文档。
type Opener struct {
	bus     Bus
	tickets *Tickets
	codec   *magicyan.Codec
	logger  *slog.Logger
	opts    OpenerOptions
	newID   func() string
}

func NewOpener(bus Bus, tickets *Tickets, codec *magicyan.Codec, logger *slog.Logger, opts OpenerOptions) *Opener {
	if opts.InlineLimit <= 0 {
		opts.InlineLimit = DefaultInlineLimit
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	opts.BasePath = strings.TrimRight(opts.BasePath, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		bus:     bus,
		tickets: tickets,
		codec:   codec,
		logger:  logger.With("component", "channel.opener"),
		opts:    opts,
		newID:   uuid.NewString,
	}
}

// Open 序列化文档并选择传输方式。内联传输时返回的 Handshake 为 nil。
// ctx 只约束建立订阅；握手本身在后台运行，受 HandshakeTimeout 约束。
func (o *Opener) Open(ctx context.Context, doc resume.Document) (Target, *Handshake, error) {
	payload, err := o.codec.EncodeTransport(doc)
	if err != nil {
		return Target{}, nil, fmt.Errorf("encode preview payload: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	if len(encoded) <= o.opts.InlineLimit {
		metrics.ObserveHandshake(metrics.HandshakeInline)
		return Target{
			URL:       o.opts.BasePath + "/inline?data=" + url.QueryEscape(encoded),
			Transport: TransportInline,
		}, nil, nil
	}

	sessionID := o.newID()
	expiresAt := time.Now().Add(o.opts.HandshakeTimeout)
	ticket, err := o.tickets.Sign(sessionID, o.opts.HandshakeTimeout)
	if err != nil {
		return Target{}, nil, err
	}

	sub, err := o.bus.Subscribe(ctx, readyTopic(sessionID))
	if err != nil {
		return Target{}, nil, fmt.Errorf("subscribe ready signal: %w", err)
	}

	hs := &Handshake{
		session: NewSession(sessionID),
		done:    make(chan struct{}),
		logger:  o.logger.With("session_id", sessionID),
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.HandshakeTimeout)
	hs.cancel = cancel
	go hs.run(runCtx, o.bus, sub, payload)

	return Target{
		URL:       o.opts.BasePath + "/" + sessionID + "?ticket=" + url.QueryEscape(ticket),
		Transport: TransportHandshake,
		SessionID: sessionID,
		ExpiresAt: &expiresAt,
	}, hs, nil
}

// Handshake 是一次进行中的握手。
type Handshake struct {
	session *Session
	done    chan struct{}
	cancel  context.CancelFunc
	logger  *slog.Logger
	once    sync.Once
}

func (h *Handshake) SessionID() string {
	return h.session.ID()
}

// State 返回当前状态。
func (h *Handshake) State() State {
	return h.session.State()
}

// Done 在握手结束（送达、超时或取消）时关闭。
func (h *Handshake) Done() <-chan struct{} {
	return h.done
}

// Wait 阻塞到握手结束或 ctx 取消，返回当时的状态。
func (h *Handshake) Wait(ctx context.Context) State {
	select {
	case <-h.done:
	case <-ctx.Done():
	}
	return h.session.State()
}

// Cancel 放弃等待；已送达的文档不受影响。
func (h *Handshake) Cancel() {
	h.cancel()
}

func (h *Handshake) run(ctx context.Context, bus Bus, sub Subscription, payload []byte) {
	defer h.once.Do(func() { close(h.done) })
	defer h.cancel()
	defer func() {
		_ = sub.Close()
	}()

	select {
	case _, ok := <-sub.Messages():
		if !ok {
			h.session.Expire()
			h.logger.Warn("ready subscription closed before signal")
			metrics.ObserveHandshake(metrics.HandshakeCancelled)
			return
		}
	case <-ctx.Done():
		if h.session.Expire() {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				h.logger.Warn("preview window did not signal ready in time, giving up")
				metrics.ObserveHandshake(metrics.HandshakeTimedOut)
			} else {
				metrics.ObserveHandshake(metrics.HandshakeCancelled)
			}
		}
		return
	}

	if err := h.session.MarkReady(); err != nil {
		h.logger.Warn("ready signal ignored", slog.Any("error", err))
		return
	}
	if err := bus.Publish(ctx, dataTopic(h.session.ID()), payload); err != nil {
		h.logger.Warn("send document to preview window failed", slog.Any("error", err))
		return
	}
	if err := h.session.MarkReceived(); err != nil {
		h.logger.Warn("mark handshake received failed", slog.Any("error", err))
		return
	}
	h.logger.Info("document delivered to preview window")
	metrics.ObserveHandshake(metrics.HandshakeDelivered)
}
