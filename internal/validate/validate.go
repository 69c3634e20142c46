// Package validate 检查简历数据是否满足结构约束。
//
// 规则直接作用在 JSON 解码后的通用树（map[string]any / []any）上，
// 因此"不是数组"、"不是字符串"这类只有在不可信输入里才会出现的情况也能被发现。
// Structure 是导入时使用的结构检查，Tree 是编辑器使用的完整检查；
// 前者的规则是后者的严格子集，两者不会互相矛盾。
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"magicyan/internal/resume"
)

// Result 是一次完整校验的结果，Errors 按发现顺序累积全部问题。
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Violation 描述一条违反的规则。Index 为数组元素的 1 基序号，0 表示不针对某个元素。
type Violation struct {
	Field   string `json:"field"`
	Index   int    `json:"index,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Message
}

// Tree 对解码后的 data 负载执行完整校验，从不 panic。
func Tree(data any) Result {
	return newResult(check(data, true))
}

// Structure 执行导入阶段的结构检查，返回全部违规项。
func Structure(data any) []Violation {
	return check(data, false)
}

// Document 校验一份已构造的文档。
func Document(doc resume.Document) Result {
	raw, err := json.Marshal(doc.Clone())
	if err != nil {
		return newResult([]Violation{{Field: "data", Message: fmt.Sprintf("简历数据无法编码: %v", err)}})
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return newResult([]Violation{{Field: "data", Message: fmt.Sprintf("简历数据无法解析: %v", err)}})
	}
	return Tree(tree)
}

func newResult(violations []Violation) Result {
	errs := make([]string, 0, len(violations))
	for _, v := range violations {
		errs = append(errs, v.Message)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func check(data any, full bool) []Violation {
	obj, ok := data.(map[string]any)
	if !ok {
		return []Violation{{Field: "data", Message: "简历数据格式错误"}}
	}

	var out []Violation
	out = append(out, checkTitle(obj["title"], full)...)
	out = append(out, checkPersonalInfo(obj["personalInfo"], full)...)
	out = append(out, checkModules(obj["modules"], full)...)
	if full {
		if avatar, exists := obj["avatar"]; exists && avatar != nil {
			if _, ok := avatar.(string); !ok {
				out = append(out, Violation{Field: "avatar", Message: "头像必须是字符串"})
			}
		}
	}
	return out
}

func checkTitle(v any, full bool) []Violation {
	title, ok := v.(string)
	if !ok {
		return []Violation{{Field: "title", Message: "简历标题必须是字符串"}}
	}
	if full {
		title = strings.TrimSpace(title)
	}
	if title == "" {
		return []Violation{{Field: "title", Message: "简历标题不能为空"}}
	}
	return nil
}

func checkPersonalInfo(v any, full bool) []Violation {
	items, ok := v.([]any)
	if !ok {
		return []Violation{{Field: "personalInfo", Message: "个人信息格式错误：必须是数组"}}
	}

	var out []Violation
	seen := make(map[string]int, len(items))
	for i, raw := range items {
		pos := i + 1
		item, ok := raw.(map[string]any)
		if !ok {
			out = append(out, Violation{Field: "personalInfo", Index: pos, Message: fmt.Sprintf("个人信息第%d项格式错误", pos)})
			continue
		}

		id, idOK := nonEmptyString(item["id"], false)
		if !idOK {
			out = append(out, Violation{Field: "personalInfo.id", Index: pos, Message: fmt.Sprintf("个人信息第%d项缺少 id", pos)})
		}
		if _, ok := nonEmptyString(item["label"], full); !ok {
			out = append(out, Violation{Field: "personalInfo.label", Index: pos, Message: fmt.Sprintf("个人信息第%d项标签不能为空", pos)})
		}
		if _, ok := item["value"].(string); !ok {
			out = append(out, Violation{Field: "personalInfo.value", Index: pos, Message: fmt.Sprintf("个人信息第%d项的值必须是字符串", pos)})
		}

		if full && idOK {
			if first, dup := seen[id]; dup {
				out = append(out, Violation{Field: "personalInfo.id", Index: pos, Message: fmt.Sprintf("个人信息第%d项的 id 与第%d项重复", pos, first)})
			} else {
				seen[id] = pos
			}
		}
	}
	return out
}

func checkModules(v any, full bool) []Violation {
	modules, ok := v.([]any)
	if !ok {
		return []Violation{{Field: "modules", Message: "简历模块格式错误：必须是数组"}}
	}

	var out []Violation
	seen := make(map[string]int, len(modules))
	for i, raw := range modules {
		pos := i + 1
		m, ok := raw.(map[string]any)
		if !ok {
			out = append(out, Violation{Field: "modules", Index: pos, Message: fmt.Sprintf("简历模块第%d项格式错误", pos)})
			continue
		}

		id, idOK := nonEmptyString(m["id"], false)
		if !idOK {
			out = append(out, Violation{Field: "modules.id", Index: pos, Message: fmt.Sprintf("简历模块第%d项缺少 id", pos)})
		}
		if _, ok := m["title"].(string); !ok {
			out = append(out, Violation{Field: "modules.title", Index: pos, Message: fmt.Sprintf("简历模块第%d项标题必须是字符串", pos)})
		}
		switch order := m["order"].(type) {
		case float64:
			if order != math.Trunc(order) || math.IsInf(order, 0) || math.Abs(order) > math.MaxInt32 {
				out = append(out, Violation{Field: "modules.order", Index: pos, Message: fmt.Sprintf("简历模块第%d项排序值必须是整数", pos)})
			}
		case json.Number:
			if _, err := order.Int64(); err != nil {
				out = append(out, Violation{Field: "modules.order", Index: pos, Message: fmt.Sprintf("简历模块第%d项排序值必须是整数", pos)})
			}
		default:
			out = append(out, Violation{Field: "modules.order", Index: pos, Message: fmt.Sprintf("简历模块第%d项排序值必须是数字", pos)})
		}

		if full && idOK {
			if first, dup := seen[id]; dup {
				out = append(out, Violation{Field: "modules.id", Index: pos, Message: fmt.Sprintf("简历模块第%d项的 id 与第%d项重复", pos, first)})
			} else {
				seen[id] = pos
			}
		}
	}
	return out
}

func nonEmptyString(v any, trim bool) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if trim {
		s = strings.TrimSpace(s)
	}
	return s, s != ""
}
