package resume

import (
	"errors"
	"fmt"
)

// 可通过 Apply 执行的编辑操作。
const (
	OpAddInfo       = "add_info"
	OpUpdateInfo    = "update_info"
	OpRemoveInfo    = "remove_info"
	OpAddModule     = "add_module"
	OpUpdateModule  = "update_module"
	OpRemoveModule  = "remove_module"
	OpMoveModule    = "move_module"
	OpReorderModule = "reorder_module"
	OpSetTitle      = "set_title"
	OpSetAvatar     = "set_avatar"
)

var ErrUnknownOp = errors.New("unknown mutation")

// Mutation 是一次序列化的编辑操作，供 HTTP 与命令行共用。
type Mutation struct {
	Op        string       `json:"op"`
	ID        string       `json:"id,omitempty"`
	Info      *InfoPatch   `json:"info,omitempty"`
	Module    *ModulePatch `json:"module,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Index     *int         `json:"index,omitempty"`
	Value     *string      `json:"value,omitempty"`
}

// Apply 执行一次编辑。引用不存在的 ID 时文档保持不变，只有参数缺失才返回错误。
func (e Editor) Apply(doc Document, m Mutation) (Document, error) {
	switch m.Op {
	case OpAddInfo:
		return e.AddPersonalInfoItem(doc), nil
	case OpAddModule:
		return e.AddModule(doc), nil
	case OpUpdateInfo:
		if m.Info == nil {
			return doc, fmt.Errorf("%s: info patch required", m.Op)
		}
		return UpdatePersonalInfoItem(doc, m.ID, *m.Info), nil
	case OpRemoveInfo:
		return RemovePersonalInfoItem(doc, m.ID), nil
	case OpUpdateModule:
		if m.Module == nil {
			return doc, fmt.Errorf("%s: module patch required", m.Op)
		}
		return UpdateModule(doc, m.ID, *m.Module), nil
	case OpRemoveModule:
		return RemoveModule(doc, m.ID), nil
	case OpMoveModule:
		dir, err := ParseDirection(m.Direction)
		if err != nil {
			return doc, fmt.Errorf("%s: %w", m.Op, err)
		}
		return MoveModule(doc, m.ID, dir), nil
	case OpReorderModule:
		if m.Index == nil {
			return doc, fmt.Errorf("%s: index required", m.Op)
		}
		return ReorderModule(doc, m.ID, *m.Index), nil
	case OpSetTitle:
		if m.Value == nil {
			return doc, fmt.Errorf("%s: value required", m.Op)
		}
		return SetTitle(doc, *m.Value), nil
	case OpSetAvatar:
		if m.Value == nil {
			return doc, fmt.Errorf("%s: value required", m.Op)
		}
		return SetAvatar(doc, *m.Value), nil
	default:
		return doc, fmt.Errorf("%w %q", ErrUnknownOp, m.Op)
	}
}
