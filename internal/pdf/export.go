package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"magicyan/internal/magicyan"
	"magicyan/internal/render"
	"magicyan/internal/resume"
)

// Result 是一次导出的产物。
type Result struct {
	PDF      []byte
	Filename string
	Warnings []render.Warning
}

// Exporter 把文档导出为 PDF：内联头像、构建版面、渲染分页 HTML、打印。
// 同步接口、异步 Worker 与命令行共用这一流程。
type Exporter struct {
	printer    Printer
	resolver   render.IconResolver
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewExporter(printer Printer, resolver render.IconResolver, httpClient *http.Client, logger *slog.Logger) *Exporter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		printer:    printer,
		resolver:   resolver,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// PagedHTML 生成打印用 HTML，不调用浏览器。
func (e *Exporter) PagedHTML(ctx context.Context, doc resume.Document) ([]byte, []render.Warning, error) {
	doc, warnings := render.InlineAvatar(ctx, e.httpClient, e.logger, doc)
	layout := render.Build(ctx, doc, e.resolver)
	warnings = append(warnings, layout.Warnings()...)

	html, err := render.HTMLBytes(layout, render.Paged)
	if err != nil {
		return nil, warnings, err
	}
	return html, warnings, nil
}

func (e *Exporter) Export(ctx context.Context, doc resume.Document) (Result, error) {
	html, warnings, err := e.PagedHTML(ctx, doc)
	if err != nil {
		return Result{}, err
	}

	data, err := e.printer.Print(ctx, html)
	if err != nil {
		return Result{}, fmt.Errorf("print pdf: %w", err)
	}

	return Result{
		PDF:      data,
		Filename: magicyan.PDFFilename(doc.Title, e.now()),
		Warnings: warnings,
	}, nil
}
