package api

import (
	"github.com/gin-gonic/gin"
)

// Handlers 汇总所有路由处理器，由 cmd/api 组装。
type Handlers struct {
	Documents *DocumentHandler
	Assets    *AssetHandler
	Render    *RenderHandler
	Exports   *ExportHandler
	Preview   *PreviewHandler
	Icons     *IconHandler
	Ws        *WsHandler
}

// RegisterRoutes 注册 /v1 下的业务路由。
func RegisterRoutes(router *gin.Engine, h Handlers) {
	v1 := router.Group("/v1")

	documents := v1.Group("/documents")
	{
		documents.POST("", h.Documents.Create)
		documents.POST("/validate", h.Documents.Validate)
		documents.POST("/mutations", h.Documents.Mutate)
		documents.POST("/export", h.Documents.Export)
		documents.POST("/import", h.Documents.Import)
	}
	v1.GET("/templates", h.Documents.ListTemplates)
	v1.GET("/templates/:name", h.Documents.GetTemplate)

	v1.POST("/assets/avatar", h.Assets.UploadAvatar)

	renderGroup := v1.Group("/render")
	{
		renderGroup.POST("/preview", h.Render.Preview)
		renderGroup.POST("/pdf", h.Render.PDF)
	}

	exports := v1.Group("/exports")
	{
		exports.POST("", h.Exports.Create)
		exports.GET("/:id", h.Exports.Status)
		exports.DELETE("/:id", h.Exports.Delete)
		exports.GET("/:id/ws", h.Ws.ExportUpdates)
	}

	preview := v1.Group("/preview")
	{
		preview.POST("/sessions", h.Preview.CreateSession)
		preview.GET("/inline", h.Preview.Inline)
		preview.GET("/:sid", h.Preview.Page)
		preview.GET("/:sid/ws", h.Ws.PreviewReceive)
	}

	iconGroup := v1.Group("/icons")
	{
		iconGroup.GET("/search", h.Icons.Search)
		iconGroup.GET("/resolve", h.Icons.Resolve)
	}
}
