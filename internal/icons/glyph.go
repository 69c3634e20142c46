package icons

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// DefaultViewBox 是 Material Design 系列图标的坐标系。
const DefaultViewBox = "0 0 24 24"

// ErrNoPaths 表示标记中没有可绘制的 path。
var ErrNoPaths = errors.New("icon markup has no path geometry")

// Glyph 是可直接嵌入预览与 PDF 的矢量数据。
type Glyph struct {
	ViewBox string   `json:"viewBox"`
	Paths   []string `json:"paths"`
}

// Empty 判断是否没有任何路径。
func (g Glyph) Empty() bool {
	return len(g.Paths) == 0
}

// Extract 从 SVG 片段（完整 <svg> 或仅包含 <path> 的 body）中提取 path 的 d 属性。
func Extract(markup string) (Glyph, error) {
	glyph := Glyph{ViewBox: DefaultViewBox}
	if strings.TrimSpace(markup) == "" {
		return Glyph{}, ErrNoPaths
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return Glyph{}, fmt.Errorf("tokenize icon markup: %w", z.Err())
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		switch string(name) {
		case "svg":
			if vb := attr(z, "viewbox"); vb != "" {
				glyph.ViewBox = vb
			}
		case "path":
			if d := attr(z, "d"); d != "" {
				glyph.Paths = append(glyph.Paths, d)
			}
		}
	}

	if glyph.Empty() {
		return Glyph{}, ErrNoPaths
	}
	return glyph, nil
}

// attr 读取当前标签剩余的属性，返回目标属性值（键已被 tokenizer 转为小写）。
func attr(z *html.Tokenizer, key string) string {
	var value string
	for {
		k, v, more := z.TagAttr()
		if string(k) == key {
			value = strings.TrimSpace(string(v))
		}
		if !more {
			return value
		}
	}
}

// ViewBoxFor 根据宽高构造 viewBox，非法尺寸时回退到默认值。
func ViewBoxFor(width, height int) string {
	if width <= 0 || height <= 0 {
		return DefaultViewBox
	}
	return fmt.Sprintf("0 0 %d %d", width, height)
}
