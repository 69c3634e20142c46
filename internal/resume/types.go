package resume

import (
	"strings"
	"time"
)

// TimestampLayout 与浏览器 Date.toISOString() 输出一致（UTC，毫秒精度）。
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Document 表示一份完整的简历数据，也是 .magicyan 文件中 data 字段的结构。
type Document struct {
	Title        string             `json:"title"`
	PersonalInfo []PersonalInfoItem `json:"personalInfo"`
	Modules      []Module           `json:"modules"`
	Avatar       string             `json:"avatar,omitempty"`
	CreatedAt    string             `json:"createdAt"`
	UpdatedAt    string             `json:"updatedAt"`
}

// PersonalInfoItem 表示简历头部的一条"标签: 值"信息。
type PersonalInfoItem struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Value string  `json:"value"`
	Icon  IconRef `json:"icon,omitempty"`
}

// Module 表示一个可排序的简历模块（工作经历、教育背景等）。
// 展示顺序只由 Order 决定，与切片中的位置无关。
type Module struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Subtitle  string  `json:"subtitle,omitempty"`
	TimeRange string  `json:"timeRange,omitempty"`
	Content   string  `json:"content"`
	Icon      IconRef `json:"icon,omitempty"`
	Order     int     `json:"order"`
}

// IconRef 是图标引用：要么是 "prefix:name" 形式的符号名，要么是已解析的内联 SVG 片段。
type IconRef string

// IsZero 表示未设置图标。
func (r IconRef) IsZero() bool {
	return strings.TrimSpace(string(r)) == ""
}

// IsInline 判断引用是否为内联 SVG 标记。
func (r IconRef) IsInline() bool {
	return strings.Contains(string(r), "<")
}

// Name 拆分符号名，例如 "mdi:account" => ("mdi", "account")。
func (r IconRef) Name() (prefix, name string, ok bool) {
	if r.IsZero() || r.IsInline() {
		return "", "", false
	}
	prefix, name, found := strings.Cut(strings.TrimSpace(string(r)), ":")
	if !found || prefix == "" || name == "" {
		return "", "", false
	}
	return prefix, name, true
}

// Timestamp 按 TimestampLayout 格式化时间。
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析 ISO-8601 时间戳。
func ParseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

// New 创建一份空白简历：标题为空、列表为空、时间戳为 now。
func New(now time.Time) Document {
	ts := Timestamp(now)
	return Document{
		PersonalInfo: []PersonalInfoItem{},
		Modules:      []Module{},
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

// Clone 深拷贝文档，nil 切片会被规整为空切片（序列化为 [] 而不是 null）。
func (d Document) Clone() Document {
	out := d
	out.PersonalInfo = make([]PersonalInfoItem, len(d.PersonalInfo))
	copy(out.PersonalInfo, d.PersonalInfo)
	out.Modules = make([]Module, len(d.Modules))
	copy(out.Modules, d.Modules)
	return out
}

// FindModule 按 ID 查找模块在切片中的下标。
func (d Document) FindModule(id string) int {
	for i := range d.Modules {
		if d.Modules[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPersonalInfo 按 ID 查找个人信息项在切片中的下标。
func (d Document) FindPersonalInfo(id string) int {
	for i := range d.PersonalInfo {
		if d.PersonalInfo[i].ID == id {
			return i
		}
	}
	return -1
}
