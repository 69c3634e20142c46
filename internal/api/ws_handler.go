package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"magicyan/internal/api/middleware"
	"magicyan/internal/channel"
	"magicyan/internal/database"
	"magicyan/internal/tasks"
)

const pingInterval = 30 * time.Second

// WsHandler 负责导出通知转发，以及预览渲染端的接收握手。
type WsHandler struct {
	bus            channel.Bus
	jobs           database.JobStore
	receiver       *channel.Receiver
	tickets        *channel.Tickets
	receiveTimeout time.Duration
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(
	bus channel.Bus,
	jobs database.JobStore,
	receiver *channel.Receiver,
	tickets *channel.Tickets,
	receiveTimeout time.Duration,
	allowedOrigins []string,
) *WsHandler {
	if receiveTimeout <= 0 {
		receiveTimeout = channel.DefaultHandshakeTimeout
	}
	h := &WsHandler{
		bus:            bus,
		jobs:           jobs,
		receiver:       receiver,
		tickets:        tickets,
		receiveTimeout: receiveTimeout,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// ExportUpdates 把 export_notify:<id> 上的通知转发给客户端。
// 订阅生效后若任务已经结束，直接补发一条最终状态。
func (h *WsHandler) ExportUpdates(c *gin.Context) {
	jobID := c.Param("id")
	log := middleware.LoggerFromContext(c).With(slog.String("job_id", jobID))

	if _, err := h.jobs.Get(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			NotFound(c, "export job not found")
			return
		}
		Internal(c, "failed to query export job")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go h.readLoop(conn, errCh, cancel)
	go h.subscribeLoop(ctx, conn, jobID, errCh, cancel, log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Info("websocket connection closed", slog.Any("error", err))
		} else {
			log.Info("websocket connection closed")
		}
	}
}

// readLoop 只用于检测客户端断开。
func (h *WsHandler) readLoop(conn *websocket.Conn, errCh chan<- error, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}
	}
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	jobID string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	topic := tasks.NotifyChannel(jobID)
	sub, err := h.bus.Subscribe(ctx, topic)
	if err != nil {
		errCh <- fmt.Errorf("subscribe %s: %w", topic, err)
		cancel()
		return
	}
	defer sub.Close()

	log.Info("subscribed to export notifications", slog.String("channel", topic))

	if job, err := h.jobs.Get(ctx, jobID); err == nil && job.Status != database.ExportPending {
		if err := conn.WriteMessage(websocket.TextMessage, finalNotice(job)); err != nil {
			errCh <- fmt.Errorf("write message: %w", err)
		} else {
			writeClose(conn, websocket.CloseNormalClosure, job.Status)
			errCh <- nil
		}
		cancel()
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				errCh <- fmt.Errorf("subscription closed")
				cancel()
				return
			}
			log.Info("forwarding message to client", slog.String("channel", topic))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}

// finalNotice 与 Worker 发布的通知字段保持一致。
func finalNotice(job *database.ExportJob) []byte {
	status := "completed"
	if job.Status == database.ExportFailed {
		status = "error"
	}
	data, _ := json.Marshal(map[string]any{
		"status":         status,
		"job_id":         job.ID,
		"correlation_id": job.CorrelationID,
		"filename":       job.Filename,
		"error_code":     job.ErrorCode,
		"error_message":  job.ErrorMessage,
	})
	return data
}

type previewEvent struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// PreviewReceive 是渲染页的接收端：校验票据后发出就绪信号，
// 收到文档并缓存后通知页面刷新；超时则通知页面停留在等待状态。
func (h *WsHandler) PreviewReceive(c *gin.Context) {
	sessionID := c.Param("sid")
	log := middleware.LoggerFromContext(c).With(slog.String("session_id", sessionID))

	if sid, err := h.tickets.Verify(c.Query("ticket")); err != nil || sid != sessionID {
		Error(c, http.StatusForbidden, "invalid preview ticket")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.receiveTimeout)
	defer cancel()

	_, err = h.receiver.Receive(ctx, sessionID)
	switch {
	case err == nil:
		_ = conn.WriteJSON(previewEvent{Type: "received"})
		writeClose(conn, websocket.CloseNormalClosure, "received")
	case errors.Is(err, context.DeadlineExceeded):
		log.Info("preview document not delivered before timeout")
		_ = conn.WriteJSON(previewEvent{Type: "timeout"})
		writeClose(conn, websocket.CloseNormalClosure, "timeout")
	default:
		log.Warn("receive preview document failed", slog.Any("error", err))
		_ = conn.WriteJSON(previewEvent{Type: "error", Error: err.Error()})
		writeClose(conn, websocket.CloseInternalServerErr, "receive failed")
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
