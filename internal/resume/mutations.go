package resume

import (
	"fmt"
	"sort"
	"strings"

	"magicyan/internal/idgen"
)

// 新建条目时使用的占位内容，与编辑器界面保持一致。
const (
	DefaultInfoLabel   = "新标签"
	DefaultModuleTitle = "新模块"
	DefaultModuleIcon  = IconRef("mdi:text-box")
)

// Direction 表示模块上移或下移。
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection 解析 "up" / "down"。
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	default:
		return "", fmt.Errorf("invalid direction %q", value)
	}
}

// InfoPatch 描述个人信息项的部分更新，nil 字段保持不变。
type InfoPatch struct {
	Label *string  `json:"label,omitempty"`
	Value *string  `json:"value,omitempty"`
	Icon  *IconRef `json:"icon,omitempty"`
}

// ModulePatch 描述模块的部分更新，nil 字段保持不变。
type ModulePatch struct {
	Title     *string  `json:"title,omitempty"`
	Subtitle  *string  `json:"subtitle,omitempty"`
	TimeRange *string  `json:"timeRange,omitempty"`
	Content   *string  `json:"content,omitempty"`
	Icon      *IconRef `json:"icon,omitempty"`
	Order     *int     `json:"order,omitempty"`
}

// Editor 持有 ID 生成器；所有操作都是纯函数：返回新文档，不修改入参。
type Editor struct {
	NewID idgen.Func
}

var defaultEditor = Editor{NewID: idgen.New}

func (e Editor) id(prefix string) string {
	if e.NewID == nil {
		return idgen.New(prefix)
	}
	return e.NewID(prefix)
}

// AddPersonalInfoItem 在末尾追加一条占位个人信息。
func (e Editor) AddPersonalInfoItem(doc Document) Document {
	out := doc.Clone()
	out.PersonalInfo = append(out.PersonalInfo, PersonalInfoItem{
		ID:    e.id(idgen.PrefixInfo),
		Label: DefaultInfoLabel,
	})
	return out
}

// AddModule 追加一个占位模块，order 取当前模块数量。
func (e Editor) AddModule(doc Document) Document {
	out := doc.Clone()
	out.Modules = append(out.Modules, Module{
		ID:    e.id(idgen.PrefixModule),
		Title: DefaultModuleTitle,
		Icon:  DefaultModuleIcon,
		Order: len(doc.Modules),
	})
	return out
}

// AddPersonalInfoItem 使用默认 ID 生成器追加个人信息。
func AddPersonalInfoItem(doc Document) Document {
	return defaultEditor.AddPersonalInfoItem(doc)
}

// AddModule 使用默认 ID 生成器追加模块。
func AddModule(doc Document) Document {
	return defaultEditor.AddModule(doc)
}

// UpdatePersonalInfoItem 合并部分字段；ID 不存在时原样返回。
func UpdatePersonalInfoItem(doc Document, id string, patch InfoPatch) Document {
	idx := doc.FindPersonalInfo(id)
	if idx < 0 {
		return doc
	}
	out := doc.Clone()
	item := &out.PersonalInfo[idx]
	if patch.Label != nil {
		item.Label = *patch.Label
	}
	if patch.Value != nil {
		item.Value = *patch.Value
	}
	if patch.Icon != nil {
		item.Icon = *patch.Icon
	}
	return out
}

// RemovePersonalInfoItem 删除匹配项；不存在时原样返回。
func RemovePersonalInfoItem(doc Document, id string) Document {
	idx := doc.FindPersonalInfo(id)
	if idx < 0 {
		return doc
	}
	out := doc.Clone()
	out.PersonalInfo = append(out.PersonalInfo[:idx], out.PersonalInfo[idx+1:]...)
	return out
}

// UpdateModule 合并部分字段；ID 不存在时原样返回。
func UpdateModule(doc Document, id string, patch ModulePatch) Document {
	idx := doc.FindModule(id)
	if idx < 0 {
		return doc
	}
	out := doc.Clone()
	m := &out.Modules[idx]
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Subtitle != nil {
		m.Subtitle = *patch.Subtitle
	}
	if patch.TimeRange != nil {
		m.TimeRange = *patch.TimeRange
	}
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.Icon != nil {
		m.Icon = *patch.Icon
	}
	if patch.Order != nil {
		m.Order = *patch.Order
	}
	return out
}

// RemoveModule 删除匹配模块，其余模块的 order 不重新编号（允许出现空洞）。
func RemoveModule(doc Document, id string) Document {
	idx := doc.FindModule(id)
	if idx < 0 {
		return doc
	}
	out := doc.Clone()
	out.Modules = append(out.Modules[:idx], out.Modules[idx+1:]...)
	return out
}

// MoveModule 在按 order 排序后的序列中与相邻模块交换位置，随后把所有 order 重排为 0..n-1。
// 已在首位上移或末位下移时不做任何修改。
func MoveModule(doc Document, id string, dir Direction) Document {
	sorted := SortedModules(doc.Modules)
	src := indexOf(sorted, id)
	if src < 0 {
		return doc
	}

	dst := src
	switch dir {
	case Up:
		dst = src - 1
	case Down:
		dst = src + 1
	}
	if dst == src || dst < 0 || dst >= len(sorted) {
		return doc
	}

	sorted[src], sorted[dst] = sorted[dst], sorted[src]
	return withRenumbered(doc, sorted)
}

// ReorderModule 把模块从排序后序列中的当前位置移到 targetIndex（拖拽排序），并重排 order。
// targetIndex 越界或与当前位置相同时不做任何修改。
func ReorderModule(doc Document, id string, targetIndex int) Document {
	sorted := SortedModules(doc.Modules)
	src := indexOf(sorted, id)
	if src < 0 || targetIndex < 0 || targetIndex >= len(sorted) || targetIndex == src {
		return doc
	}

	moved := sorted[src]
	sorted = append(sorted[:src], sorted[src+1:]...)
	sorted = append(sorted[:targetIndex], append([]Module{moved}, sorted[targetIndex:]...)...)
	return withRenumbered(doc, sorted)
}

// SetTitle 更新简历标题。
func SetTitle(doc Document, title string) Document {
	out := doc.Clone()
	out.Title = title
	return out
}

// SetAvatar 设置头像；传空字符串表示移除头像。
func SetAvatar(doc Document, avatar string) Document {
	out := doc.Clone()
	out.Avatar = strings.TrimSpace(avatar)
	return out
}

// SortedModules 返回按 order 升序排列的副本；order 相同的模块保持原有相对顺序。
func SortedModules(modules []Module) []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

func indexOf(modules []Module, id string) int {
	for i := range modules {
		if modules[i].ID == id {
			return i
		}
	}
	return -1
}

func withRenumbered(doc Document, sorted []Module) Document {
	out := doc.Clone()
	for i := range sorted {
		sorted[i].Order = i
	}
	out.Modules = sorted
	return out
}
