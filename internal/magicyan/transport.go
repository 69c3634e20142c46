package magicyan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"magicyan/internal/resume"
)

// EncodeTransport 把编辑中的文档原样打包，用于预览通道。
// 与 Encode 不同，不刷新时间戳，也不要求文档已满足导入规则。
func (c *Codec) EncodeTransport(doc resume.Document) ([]byte, error) {
	payload, err := json.Marshal(File{Version: FormatVersion, Data: doc.Clone()})
	if err != nil {
		return nil, fmt.Errorf("encode transport payload: %w", err)
	}
	return payload, nil
}

// DecodeTransport 解析 EncodeTransport 的输出，只检查语法与信封结构。
// 空标题、空标签等编辑中的状态原样保留，由渲染端显示占位内容。
func (c *Codec) DecodeTransport(payload []byte) (resume.Document, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return resume.Document{}, ErrEmptyInput
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return resume.Document{}, fmt.Errorf("%w: %v", ErrMalformedSyntax, err)
	}
	if envelope == nil {
		return resume.Document{}, fmt.Errorf("%w: envelope is null", ErrMalformedSyntax)
	}
	if _, err := decodeVersion(envelope["version"]); err != nil {
		return resume.Document{}, err
	}

	rawData, ok := envelope["data"]
	if !ok || !truthy(rawData) {
		return resume.Document{}, ErrMissingData
	}
	if trimmed := strings.TrimSpace(string(rawData)); !strings.HasPrefix(trimmed, "{") {
		return resume.Document{}, ErrMissingData
	}

	var doc resume.Document
	if err := json.Unmarshal(rawData, &doc); err != nil {
		return resume.Document{}, fmt.Errorf("%w: %v", ErrMalformedSyntax, err)
	}
	return doc, nil
}
