package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"magicyan/internal/metrics"
)

// Target 选择输出后端。
type Target string

const (
	// Preview 是可滚动的流式布局，用于编辑器旁的实时预览。
	Preview Target = "preview"
	// Paged 是固定 A4 页面与固定边距的打印布局，交给浏览器引擎分页后输出 PDF。
	Paged Target = "paged"
)

// ParseTarget 解析目标名称，空字符串视为 Preview。
func ParseTarget(value string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(value))) {
	case "", Preview:
		return Preview, nil
	case Paged, "pdf":
		return Paged, nil
	default:
		return "", fmt.Errorf("unknown render target %q", value)
	}
}

var funcs = template.FuncMap{
	"avatarURL": avatarURL,
}

// 两个后端共享 document 模板，只在外壳和样式上不同。
var pages = template.Must(template.New("pages").Funcs(funcs).Parse(documentTemplate + previewTemplate + pagedTemplate))

// HTML 把版面写为目标格式的完整 HTML 页面。
func HTML(w io.Writer, layout Layout, target Target) error {
	name := "preview"
	if target == Paged {
		name = "paged"
	}
	if err := pages.ExecuteTemplate(w, name, layout); err != nil {
		return fmt.Errorf("execute %s template: %w", name, err)
	}
	metrics.ObserveRender(name)
	return nil
}

// HTMLBytes 是 HTML 的便捷包装。
func HTMLBytes(layout Layout, target Target) ([]byte, error) {
	var buf bytes.Buffer
	if err := HTML(&buf, layout, target); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// avatarURL 只放行 http(s) 地址和 data:image/* URI，其余一律不渲染。
func avatarURL(raw string) template.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:image/") {
		return template.URL(raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return template.URL(u.String())
}

const documentTemplate = `
{{define "icon"}}<svg class="icon" viewBox="{{.ViewBox}}" aria-hidden="true">{{range .Paths}}<path d="{{.}}" fill="currentColor"/>{{end}}</svg>{{end}}

{{define "document"}}
<article class="resume">
  <header class="resume-header">
    <div class="resume-heading">
      <h1 class="resume-title">{{.Title}}</h1>
      <div class="personal-info">
        {{range .Info}}
        <div class="personal-info-item">
          {{with .Icon}}{{template "icon" .}}{{end}}
          <span class="label">{{.Label}}:</span>
          <span class="value{{if .Placeholder}} placeholder{{end}}">{{.Value}}</span>
        </div>
        {{end}}
      </div>
    </div>
    {{with avatarURL .Avatar}}<img class="resume-avatar" src="{{.}}" alt="头像">{{end}}
  </header>

  {{if .Empty}}
  <p class="resume-empty">{{.Empty}}</p>
  {{else}}
  {{range .Sections}}
  <section class="resume-module" id="{{.ID}}">
    <h2 class="module-title">{{with .Icon}}{{template "icon" .}}{{end}}<span>{{.Title}}</span></h2>
    {{if .HasMeta}}
    <div class="module-meta">
      <span class="subtitle">{{.Subtitle}}</span>
      <span class="time-range">{{.TimeRange}}</span>
    </div>
    {{end}}
    {{if .Content}}<div class="module-content">{{.Content}}</div>{{end}}
  </section>
  {{end}}
  {{end}}
</article>
{{end}}
`

const sharedStyle = `
  * { box-sizing: border-box; }
  body { margin: 0; font-family: "Noto Sans SC", "PingFang SC", "Microsoft YaHei", sans-serif; color: #111; }
  .resume-header { display: flex; justify-content: space-between; align-items: flex-start; }
  .resume-heading { flex: 1; }
  .resume-title { margin: 0 0 10px; font-weight: bold; }
  .personal-info { display: grid; grid-template-columns: 1fr 1fr; column-gap: 24px; row-gap: 5px; }
  .personal-info-item { display: flex; align-items: center; gap: 5px; min-width: 0; }
  .personal-info-item .label { color: #666; }
  .personal-info-item .placeholder { color: #999; }
  .resume-avatar { border-radius: 50%; object-fit: cover; }
  .module-title { display: flex; align-items: center; gap: 5px; margin: 0 0 8px; padding-bottom: 5px; border-bottom: 1px solid #ddd; font-weight: bold; }
  .module-meta { display: flex; justify-content: space-between; align-items: center; margin-bottom: 5px; }
  .module-meta .subtitle { font-weight: 500; }
  .module-meta .time-range { color: #666; margin-left: auto; }
  .module-content { white-space: pre-wrap; overflow-wrap: anywhere; line-height: 1.5; }
  .resume-empty { text-align: center; color: #666; }
  .icon { flex-shrink: 0; }
`

const previewTemplate = `
{{define "preview"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>` + sharedStyle + `
  body { background: #f5f5f5; overflow-y: auto; }
  .resume { max-width: 900px; margin: 24px auto; padding: 32px; background: #fff; box-shadow: 0 1px 4px rgba(0,0,0,.08); }
  .resume-title { font-size: 24px; margin-bottom: 16px; }
  .personal-info-item { font-size: 14px; }
  .personal-info-item .icon { width: 16px; height: 16px; }
  .resume-avatar { width: 80px; height: 80px; margin-left: 24px; border: 2px solid #e5e5e5; }
  .resume-module { margin-top: 24px; }
  .module-title { font-size: 18px; }
  .module-title .icon { width: 20px; height: 20px; }
  .module-content, .module-meta .time-range { font-size: 14px; }
  .resume-empty { padding: 48px 0; }
</style>
</head>
<body>
{{template "document" .}}
</body>
</html>
{{end}}
`

const pagedTemplate = `
{{define "paged"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>` + sharedStyle + `
  @page { size: A4; margin: 30pt; }
  html, body { background: #fff; }
  * { -webkit-print-color-adjust: exact; print-color-adjust: exact; }
  .resume { width: 100%; }
  .resume-header { margin-bottom: 20pt; }
  .resume-title { font-size: 18pt; }
  .personal-info-item { font-size: 10pt; }
  .personal-info-item .icon { width: 12pt; height: 12pt; }
  .resume-avatar { width: 60pt; height: 60pt; margin-left: 15pt; }
  .resume-module { margin-bottom: 15pt; }
  .module-title { font-size: 14pt; break-after: avoid; page-break-after: avoid; }
  .module-title .icon { width: 16pt; height: 16pt; }
  .module-meta { break-after: avoid; page-break-after: avoid; }
  .module-meta .subtitle { font-size: 12pt; }
  .module-meta .time-range { font-size: 10pt; }
  .module-content { font-size: 10pt; }
  .resume-empty { margin-top: 50pt; }
</style>
</head>
<body>
{{template "document" .}}
</body>
</html>
{{end}}
`
