package api

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/channel"
	"magicyan/internal/magicyan"
	"magicyan/internal/render"
	"magicyan/internal/resume"
)

// 等待页文案。
const (
	waitingMessage = "正在加载简历数据..."
	timeoutMessage = "等待超时，请回到编辑器重新打开预览"
	expiredMessage = "预览会话不存在或已过期"
)

// PreviewHandler 负责在新窗口中打开预览：编辑端创建会话，渲染端按传输方式取得文档。
type PreviewHandler struct {
	opener   *channel.Opener
	receiver *channel.Receiver
	tickets  *channel.Tickets
	resolver render.IconResolver
	codec    *magicyan.Codec
}

func NewPreviewHandler(
	opener *channel.Opener,
	receiver *channel.Receiver,
	tickets *channel.Tickets,
	resolver render.IconResolver,
	codec *magicyan.Codec,
) *PreviewHandler {
	return &PreviewHandler{
		opener:   opener,
		receiver: receiver,
		tickets:  tickets,
		resolver: resolver,
		codec:    codec,
	}
}

// CreateSession 返回渲染上下文应打开的地址。握手在后台进行，超时后静默放弃。
func (h *PreviewHandler) CreateSession(c *gin.Context) {
	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	target, _, err := h.opener.Open(c.Request.Context(), doc)
	if err != nil {
		middleware.LoggerFromContext(c).Error("open preview session", slog.Any("error", err))
		Internal(c, "failed to open preview session")
		return
	}
	c.JSON(http.StatusCreated, target)
}

// Inline 渲染地址中携带的文档。
func (h *PreviewHandler) Inline(c *gin.Context) {
	doc, err := channel.DecodeInline(h.codec, c.Query("data"))
	if err != nil {
		DecodeFailed(c, err)
		return
	}
	h.renderDocument(c, doc)
}

// Page 已收到文档时直接渲染（刷新后恢复）；否则返回等待页，由等待页通过 WebSocket 完成握手。
func (h *PreviewHandler) Page(c *gin.Context) {
	sessionID := c.Param("sid")
	doc, err := h.receiver.Cached(c.Request.Context(), sessionID)
	if err == nil {
		h.renderDocument(c, doc)
		return
	}
	if !errors.Is(err, channel.ErrNotReceived) {
		middleware.LoggerFromContext(c).Error("load cached preview", slog.String("session_id", sessionID), slog.Any("error", err))
		Internal(c, "failed to load preview")
		return
	}

	ticket := c.Query("ticket")
	if sid, err := h.tickets.Verify(ticket); err != nil || sid != sessionID {
		h.writePage(c, http.StatusNotFound, waitingPageData{Message: expiredMessage})
		return
	}

	h.writePage(c, http.StatusOK, waitingPageData{
		Message: waitingMessage,
		Timeout: timeoutMessage,
		Socket:  c.Request.URL.Path + "/ws?ticket=" + url.QueryEscape(ticket),
	})
}

func (h *PreviewHandler) renderDocument(c *gin.Context, doc resume.Document) {
	layout := render.Build(c.Request.Context(), doc, h.resolver)
	body, err := render.HTMLBytes(layout, render.Preview)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render preview", slog.Any("error", err))
		Internal(c, "failed to render preview")
		return
	}
	setMissingHeader(c, layout.Warnings())
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

type waitingPageData struct {
	Message string
	Timeout string
	Socket  string
}

func (h *PreviewHandler) writePage(c *gin.Context, status int, data waitingPageData) {
	var buf bytes.Buffer
	if err := waitingPage.Execute(&buf, data); err != nil {
		Internal(c, "failed to render page")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

var waitingPage = template.Must(template.New("waiting").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>简历预览</title>
<style>
  body { margin: 0; font-family: "Noto Sans SC", "PingFang SC", sans-serif; background: #f5f5f5; }
  .status { margin-top: 30vh; text-align: center; color: #666; }
</style>
</head>
<body>
<p class="status" id="status">{{.Message}}</p>
{{if .Socket}}
<script>
(function () {
  var status = document.getElementById("status");
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + {{.Socket}});
  ws.onmessage = function (event) {
    var msg = {};
    try { msg = JSON.parse(event.data); } catch (e) {}
    if (msg.type === "received") {
      location.replace(location.pathname);
    } else if (msg.type === "timeout") {
      status.textContent = {{.Timeout}};
    } else if (msg.error) {
      status.textContent = msg.error;
    }
  };
})();
</script>
{{end}}
</body>
</html>
`))
