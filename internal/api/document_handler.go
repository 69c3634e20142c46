package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
	"magicyan/internal/validate"
)

// 内置的起始模板。
var templates = map[string]func(time.Time) resume.Document{
	"blank":  resume.New,
	"sample": resume.Sample,
}

// DocumentHandler 负责文档的创建、校验、编辑与 .magicyan 文件的导入导出。
// 服务端不保存文档，每个请求都携带完整文档。
type DocumentHandler struct {
	codec     *magicyan.Codec
	editor    resume.Editor
	scanner   Scanner
	maxUpload int64
	now       func() time.Time
}

func NewDocumentHandler(codec *magicyan.Codec, editor resume.Editor, scanner Scanner, maxUpload int64) *DocumentHandler {
	return &DocumentHandler{
		codec:     codec,
		editor:    editor,
		scanner:   scanner,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// Create 返回一份空白文档。
func (h *DocumentHandler) Create(c *gin.Context) {
	c.JSON(http.StatusCreated, resume.New(h.now()))
}

// ListTemplates 列出可用模板名称。
func (h *DocumentHandler) ListTemplates(c *gin.Context) {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"templates": names})
}

// GetTemplate 返回指定模板生成的文档。
func (h *DocumentHandler) GetTemplate(c *gin.Context) {
	build, ok := templates[c.Param("name")]
	if !ok {
		NotFound(c, "template not found")
		return
	}
	c.JSON(http.StatusOK, build(h.now()))
}

// Validate 对任意 JSON 执行完整校验，结果始终以 200 返回。
func (h *DocumentHandler) Validate(c *gin.Context) {
	var tree any
	if err := json.NewDecoder(c.Request.Body).Decode(&tree); err != nil {
		BadRequest(c, "invalid json body")
		return
	}
	c.JSON(http.StatusOK, validate.Tree(tree))
}

type mutationRequest struct {
	Document resume.Document `json:"document"`
	resume.Mutation
}

// Mutate 对请求中的文档执行一次编辑并返回新文档。
func (h *DocumentHandler) Mutate(c *gin.Context) {
	var req mutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, err := h.editor.Apply(req.Document.Clone(), req.Mutation)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Export 把文档序列化为 .magicyan 附件。
func (h *DocumentHandler) Export(c *gin.Context) {
	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	content, err := h.codec.Encode(doc)
	if err != nil {
		middleware.LoggerFromContext(c).Error("encode magicyan file", slog.Any("error", err))
		Internal(c, "failed to export document")
		return
	}

	filename := magicyan.ExportFilename(doc.Title, h.now())
	c.Header("Content-Disposition", attachment(filename))
	c.Data(http.StatusOK, magicyan.MediaType, content)
}

// Import 读取上传的 .magicyan 文件，扫描后解码；任何失败都整体拒绝。
func (h *DocumentHandler) Import(c *gin.Context) {
	content, _, err := readUpload(c, h.maxUpload)
	if err != nil {
		uploadError(c, err)
		return
	}
	if !scanUpload(c, h.scanner, content) {
		return
	}

	file, err := h.codec.DecodeFile(content)
	if err != nil {
		if kind := magicyan.Kind(err); kind == "unknown" {
			middleware.LoggerFromContext(c).Error("import magicyan file", slog.Any("error", err))
			Internal(c, magicyan.Message(err))
			return
		}
		middleware.LoggerFromContext(c).Info("reject magicyan file", slog.String("kind", magicyan.Kind(err)))
		DecodeFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":  file.Version,
		"data":     file.Data,
		"metadata": file.Metadata,
	})
}

// attachment 生成带 RFC 2231 编码文件名的 Content-Disposition。
func attachment(filename string) string {
	value := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if value == "" {
		return `attachment; filename="` + strings.Map(asciiOnly, filename) + `"`
	}
	return value
}

func asciiOnly(r rune) rune {
	if r > 0x7e || r < 0x20 || r == '"' {
		return '_'
	}
	return r
}
