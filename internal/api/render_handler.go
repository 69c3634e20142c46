package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/pdf"
	"magicyan/internal/render"
	"magicyan/internal/resume"
)

const missingHeader = "X-Resource-Missing"

// DocumentExporter 同步生成 PDF。
type DocumentExporter interface {
	Export(ctx context.Context, doc resume.Document) (pdf.Result, error)
}

// RenderHandler 提供预览 HTML 与同步 PDF 渲染。
type RenderHandler struct {
	resolver render.IconResolver
	exporter DocumentExporter
	limiter  *fixedWindow
	now      func() time.Time
}

// NewRenderHandler counter 为 nil 或 limit <= 0 时不限流。
func NewRenderHandler(resolver render.IconResolver, exporter DocumentExporter, counter redisRateCounter, limit int) *RenderHandler {
	h := &RenderHandler{
		resolver: resolver,
		exporter: exporter,
		now:      time.Now,
	}
	if counter != nil && limit > 0 {
		h.limiter = &fixedWindow{counter: counter, prefix: "ratelimit:pdf", limit: limit, window: time.Minute}
	}
	return h
}

// Preview 渲染 HTML；?target=paged 返回打印用的分页版本。
func (h *RenderHandler) Preview(c *gin.Context) {
	target, err := render.ParseTarget(c.Query("target"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	layout := render.Build(c.Request.Context(), doc, h.resolver)
	body, err := render.HTMLBytes(layout, target)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render preview", slog.Any("error", err))
		Internal(c, "failed to render preview")
		return
	}

	setMissingHeader(c, layout.Warnings())
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

// PDF 同步生成 PDF 并作为附件返回，按客户端 IP 限流。
func (h *RenderHandler) PDF(c *gin.Context) {
	if !h.allow(c) {
		return
	}

	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	log := middleware.LoggerFromContext(c)
	result, err := h.exporter.Export(c.Request.Context(), doc)
	if err != nil {
		log.Error("render pdf", slog.Any("error", err))
		if errors.Is(err, pdf.ErrBrowserConnect) {
			Error(c, http.StatusServiceUnavailable, "pdf renderer unavailable")
			return
		}
		Internal(c, "failed to generate pdf")
		return
	}

	setMissingHeader(c, result.Warnings)
	c.Header("Content-Disposition", attachment(result.Filename))
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}

func (h *RenderHandler) allow(c *gin.Context) bool {
	if h.limiter == nil {
		return true
	}
	ok, retryAfter, err := h.limiter.allow(c.Request.Context(), c.ClientIP(), h.now())
	if err != nil {
		// 限流存储不可用时放行。
		middleware.LoggerFromContext(c).Warn("pdf rate limit check failed", slog.Any("error", err))
		return true
	}
	if !ok {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		TooManyRequests(c, "too many pdf requests")
		return false
	}
	return true
}

func setMissingHeader(c *gin.Context, warnings []render.Warning) {
	var missing []string
	for _, w := range warnings {
		missing = append(missing, w.Missing...)
	}
	if len(missing) == 0 {
		return
	}
	c.Header(missingHeader, strings.Join(missing, ","))
}
