package render

import (
	"context"
	"strings"

	"magicyan/internal/icons"
	"magicyan/internal/resume"
)

// 两种输出目标共用的占位文案。
const (
	TitlePlaceholder = "简历标题"
	ValuePlaceholder = "未填写"
	EmptyPlaceholder = "暂无简历内容"
)

// IconResolver 批量解析图标；解析失败的引用不出现在结果中。
type IconResolver interface {
	Prefetch(ctx context.Context, refs []resume.IconRef) map[resume.IconRef]icons.Glyph
}

// Layout 是一次遍历文档得到的逻辑版面，预览与分页两种后端都只消费它。
type Layout struct {
	Title    string
	Info     []InfoLine
	Avatar   string
	Sections []Section
	// Empty 非空时表示没有模块，后端只渲染这条居中提示。
	Empty string
	// Unresolved 是未能解析、已被省略的图标引用（去重，按出现顺序）。
	Unresolved []resume.IconRef
}

// InfoLine 是头部的一条个人信息。
type InfoLine struct {
	Icon        *icons.Glyph
	Label       string
	Value       string
	Placeholder bool
}

// Section 是一个按 order 排好序的简历模块。
type Section struct {
	ID        string
	Icon      *icons.Glyph
	Title     string
	Subtitle  string
	TimeRange string
	Content   string
}

// HasMeta 判断是否需要渲染副标题/时间行。
func (s Section) HasMeta() bool {
	return s.Subtitle != "" || s.TimeRange != ""
}

// Build 遍历文档生成版面。图标解析失败只会省略对应图标，不影响其余内容。
func Build(ctx context.Context, doc resume.Document, resolver IconResolver) Layout {
	sorted := resume.SortedModules(doc.Modules)

	var glyphs map[resume.IconRef]icons.Glyph
	if resolver != nil {
		glyphs = resolver.Prefetch(ctx, iconRefs(doc, sorted))
	}

	layout := Layout{
		Title:  doc.Title,
		Avatar: strings.TrimSpace(doc.Avatar),
	}
	if strings.TrimSpace(layout.Title) == "" {
		layout.Title = TitlePlaceholder
	}

	missing := map[resume.IconRef]struct{}{}
	glyphFor := func(ref resume.IconRef) *icons.Glyph {
		if ref.IsZero() {
			return nil
		}
		if g, ok := glyphs[ref]; ok {
			return &g
		}
		if _, seen := missing[ref]; !seen {
			missing[ref] = struct{}{}
			layout.Unresolved = append(layout.Unresolved, ref)
		}
		return nil
	}

	layout.Info = make([]InfoLine, 0, len(doc.PersonalInfo))
	for _, item := range doc.PersonalInfo {
		line := InfoLine{
			Icon:  glyphFor(item.Icon),
			Label: item.Label,
			Value: item.Value,
		}
		if item.Value == "" {
			line.Value = ValuePlaceholder
			line.Placeholder = true
		}
		layout.Info = append(layout.Info, line)
	}

	if len(sorted) == 0 {
		layout.Empty = EmptyPlaceholder
		return layout
	}

	layout.Sections = make([]Section, 0, len(sorted))
	for _, m := range sorted {
		layout.Sections = append(layout.Sections, Section{
			ID:        m.ID,
			Icon:      glyphFor(m.Icon),
			Title:     m.Title,
			Subtitle:  m.Subtitle,
			TimeRange: m.TimeRange,
			Content:   m.Content,
		})
	}
	return layout
}

func iconRefs(doc resume.Document, modules []resume.Module) []resume.IconRef {
	refs := make([]resume.IconRef, 0, len(doc.PersonalInfo)+len(modules))
	for _, item := range doc.PersonalInfo {
		refs = append(refs, item.Icon)
	}
	for _, m := range modules {
		refs = append(refs, m.Icon)
	}
	return refs
}

// Text 按版面顺序输出纯文本，用于比较两种目标的逻辑内容。
func (l Layout) Text() string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(l.Title)
	for _, info := range l.Info {
		line(info.Label + ": " + info.Value)
	}
	if l.Empty != "" {
		line(l.Empty)
		return b.String()
	}
	for _, s := range l.Sections {
		line(s.Title)
		if s.Subtitle != "" {
			line(s.Subtitle)
		}
		if s.TimeRange != "" {
			line(s.TimeRange)
		}
		if s.Content != "" {
			line(s.Content)
		}
	}
	return b.String()
}
