package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/icons"
	"magicyan/internal/resume"
)

// IconSearcher 为图标选择器提供防抖搜索。
type IconSearcher interface {
	Search(ctx context.Context, key, query string) ([]icons.Candidate, error)
}

// GlyphResolver 把单个图标引用解析为几何数据。
type GlyphResolver interface {
	Resolve(ctx context.Context, ref resume.IconRef) (icons.Glyph, bool)
}

type IconHandler struct {
	searcher IconSearcher
	resolver GlyphResolver
}

func NewIconHandler(searcher IconSearcher, resolver GlyphResolver) *IconHandler {
	return &IconHandler{searcher: searcher, resolver: resolver}
}

// Search 同一客户端（client 参数，缺省为 IP）的新查询会让旧查询以 409 结束。
func (h *IconHandler) Search(c *gin.Context) {
	key := strings.TrimSpace(c.Query("client"))
	if key == "" {
		key = c.ClientIP()
	}

	candidates, err := h.searcher.Search(c.Request.Context(), key, c.Query("q"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"icons": candidates})
	case errors.Is(err, icons.ErrSuperseded):
		Error(c, http.StatusConflict, "superseded by a newer query")
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		middleware.LoggerFromContext(c).Warn("icon search failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "icon search unavailable")
	}
}

type glyphResponse struct {
	Icon    string   `json:"icon"`
	ViewBox string   `json:"viewBox"`
	Paths   []string `json:"paths"`
}

// Resolve 返回图标的 viewBox 与路径；无法解析时 404，调用方应省略该图标。
func (h *IconHandler) Resolve(c *gin.Context) {
	ref := resume.IconRef(strings.TrimSpace(c.Query("icon")))
	if ref.IsZero() {
		BadRequest(c, "missing icon")
		return
	}

	glyph, ok := h.resolver.Resolve(c.Request.Context(), ref)
	if !ok {
		NotFound(c, "icon not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.JSON(http.StatusOK, glyphResponse{
		Icon:    string(ref),
		ViewBox: glyph.ViewBox,
		Paths:   glyph.Paths,
	})
}
