package magicyan

import (
	"errors"
	"strings"

	"magicyan/internal/validate"
)

// 导入失败的错误类别，调用方用 errors.Is 区分后向用户展示具体原因。
var (
	ErrEmptyInput      = errors.New("empty input")
	ErrMalformedSyntax = errors.New("malformed syntax")
	ErrMissingVersion  = errors.New("missing version")
	ErrMissingData     = errors.New("missing data")
	ErrSchemaViolation = errors.New("schema violation")
)

// SchemaError 携带结构检查发现的全部违规项。
type SchemaError struct {
	Violations []validate.Violation
}

func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return ErrSchemaViolation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

// Kind 返回错误类别的稳定标识，用于 API 响应。
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrMalformedSyntax):
		return "malformed_syntax"
	case errors.Is(err, ErrMissingVersion):
		return "missing_version"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	default:
		return "unknown"
	}
}

// Message 返回面向用户的提示文案。
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "文件内容为空"
	case errors.Is(err, ErrMalformedSyntax):
		return "文件格式不正确，请确保是有效的JSON文件"
	case errors.Is(err, ErrMissingVersion):
		return "缺少版本信息"
	case errors.Is(err, ErrMissingData):
		return "缺少简历数据"
	case errors.Is(err, ErrSchemaViolation):
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) && len(schemaErr.Violations) > 0 {
			msgs := make([]string, 0, len(schemaErr.Violations))
			for _, v := range schemaErr.Violations {
				msgs = append(msgs, v.Message)
			}
			return "简历数据格式错误：" + strings.Join(msgs, "；")
		}
		return "简历数据格式错误"
	case err == nil:
		return ""
	default:
		return "导入失败"
	}
}

// Details 返回 SchemaError 中的违规项，其它错误返回 nil。
func Details(err error) []validate.Violation {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr.Violations
	}
	return nil
}
