package resume

import "time"

// Sample 返回一份填写完整的示例简历，用作起始模板。
func Sample(now time.Time) Document {
	doc := New(now)
	doc.Title = "张三"
	doc.PersonalInfo = []PersonalInfoItem{
		{ID: "info-phone", Label: "电话", Value: "138-0000-0000", Icon: "mdi:phone"},
		{ID: "info-email", Label: "邮箱", Value: "zhangsan@example.com", Icon: "mdi:email"},
		{ID: "info-location", Label: "地址", Value: "上海", Icon: "mdi:map-marker"},
		{ID: "info-github", Label: "GitHub", Value: "github.com/zhangsan", Icon: "mdi:github"},
	}
	doc.Modules = []Module{
		{
			ID:        "module-education",
			Title:     "教育背景",
			Subtitle:  "某某大学 · 计算机科学与技术",
			TimeRange: "2016.09 - 2020.06",
			Content:   "本科，GPA 3.8/4.0\n主修课程：数据结构、操作系统、计算机网络",
			Icon:      "mdi:school",
			Order:     0,
		},
		{
			ID:        "module-work",
			Title:     "工作经历",
			Subtitle:  "某某科技有限公司 · 后端工程师",
			TimeRange: "2020.07 - 至今",
			Content:   "- 负责订单服务的设计与实现\n- 将核心接口 P99 延迟降低 40%",
			Icon:      "mdi:briefcase",
			Order:     1,
		},
		{
			ID:      "module-skills",
			Title:   "专业技能",
			Content: "Go / PostgreSQL / Redis / Kubernetes",
			Icon:    "mdi:lightbulb",
			Order:   2,
		},
	}
	return doc
}
