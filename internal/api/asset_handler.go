package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/render"
)

// AssetHandler 负责头像上传。图片不落盘，扫描后以 data URI 返回并写入文档。
type AssetHandler struct {
	scanner   Scanner
	maxUpload int64
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(scanner Scanner, maxUpload int64) *AssetHandler {
	return &AssetHandler{scanner: scanner, maxUpload: maxUpload}
}

// UploadAvatar 处理头像上传，并在编码前扫描病毒。
func (h *AssetHandler) UploadAvatar(c *gin.Context) {
	content, declared, err := readUpload(c, h.maxUpload)
	if err != nil {
		uploadError(c, err)
		return
	}
	if len(content) == 0 {
		BadRequest(c, "missing file")
		return
	}
	if !scanUpload(c, h.scanner, content) {
		return
	}

	contentType := render.ImageContentType(declared, content)
	if contentType == "" {
		Error(c, http.StatusUnsupportedMediaType, "avatar must be an image")
		return
	}

	middleware.LoggerFromContext(c).Info("avatar encoded",
		slog.String("content_type", contentType),
		slog.Int("size", len(content)),
	)
	c.JSON(http.StatusCreated, gin.H{"avatar": render.DataURI(contentType, content)})
}
