package icons

import (
	"strings"

	"magicyan/internal/resume"
)

// Candidate 是图标选择器中的一个候选项。
type Candidate struct {
	Icon  resume.IconRef `json:"icon"`
	Label string         `json:"label"`
}

// Common 是选择器默认展示的常用图标。
var Common = []Candidate{
	// 个人信息
	{Icon: "mdi:account", Label: "用户"},
	{Icon: "mdi:phone", Label: "电话"},
	{Icon: "mdi:email", Label: "邮箱"},
	{Icon: "mdi:map-marker", Label: "地址"},
	{Icon: "mdi:web", Label: "网站"},
	{Icon: "mdi:github", Label: "GitHub"},
	{Icon: "mdi:linkedin", Label: "LinkedIn"},
	{Icon: "mdi:wechat", Label: "微信"},

	// 简历模块
	{Icon: "mdi:briefcase", Label: "工作"},
	{Icon: "mdi:school", Label: "教育"},
	{Icon: "mdi:certificate", Label: "证书"},
	{Icon: "mdi:lightbulb", Label: "技能"},
	{Icon: "mdi:rocket", Label: "项目"},
	{Icon: "mdi:star", Label: "荣誉"},
	{Icon: "mdi:heart", Label: "兴趣"},
	{Icon: "mdi:account-group", Label: "团队"},

	// 通用
	{Icon: "mdi:text-box", Label: "文本"},
	{Icon: "mdi:information", Label: "信息"},
	{Icon: "mdi:check-circle", Label: "完成"},
	{Icon: "mdi:clock", Label: "时间"},
	{Icon: "mdi:calendar", Label: "日期"},
	{Icon: "mdi:flag", Label: "标记"},
	{Icon: "mdi:target", Label: "目标"},
	{Icon: "mdi:trophy", Label: "奖杯"},
}

// FilterCommon 按图标标识或中文标签做大小写无关的子串匹配，空查询返回全部。
func FilterCommon(query string) []Candidate {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Candidate, 0, len(Common))
	for _, c := range Common {
		if q == "" ||
			strings.Contains(strings.ToLower(string(c.Icon)), q) ||
			strings.Contains(strings.ToLower(c.Label), q) {
			out = append(out, c)
		}
	}
	return out
}

// candidateFor 使用图标名部分作为搜索结果的标签。
func candidateFor(id string) Candidate {
	label := id
	if _, name, ok := resume.IconRef(id).Name(); ok {
		label = name
	}
	return Candidate{Icon: resume.IconRef(id), Label: label}
}
