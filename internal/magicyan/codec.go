// Package magicyan 实现 .magicyan 文件格式的导出与导入。
package magicyan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"magicyan/internal/resume"
	"magicyan/internal/validate"
)

const (
	// FormatVersion 是文件格式版本，与应用版本无关。
	FormatVersion = "1.0.0"
	// DefaultAppVersion 写入 metadata.appVersion 的默认值。
	DefaultAppVersion = "1.0.0"
	Extension         = ".magicyan"
	MediaType         = "application/json"
)

// File 是导出文件的信封结构。
type File struct {
	Version  string          `json:"version"`
	Data     resume.Document `json:"data"`
	Metadata Metadata        `json:"metadata"`
}

// Metadata 记录导出时间与应用版本。
type Metadata struct {
	ExportedAt string `json:"exportedAt"`
	AppVersion string `json:"appVersion"`
}

// Codec 负责序列化与反序列化；Now 可在测试中替换。
type Codec struct {
	Now        func() time.Time
	AppVersion string
}

// NewCodec 使用系统时钟构造 Codec。
func NewCodec(appVersion string) *Codec {
	if strings.TrimSpace(appVersion) == "" {
		appVersion = DefaultAppVersion
	}
	return &Codec{Now: time.Now, AppVersion: appVersion}
}

func (c *Codec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Codec) appVersion() string {
	if c.AppVersion == "" {
		return DefaultAppVersion
	}
	return c.AppVersion
}

// Encode 把文档包装为 File 并输出缩进后的 JSON；data.updatedAt 与 exportedAt 均刷新为当前时间。
func (c *Codec) Encode(doc resume.Document) ([]byte, error) {
	ts := resume.Timestamp(c.now())

	data := doc.Clone()
	data.UpdatedAt = ts
	if strings.TrimSpace(data.CreatedAt) == "" {
		data.CreatedAt = ts
	}

	file := File{
		Version: FormatVersion,
		Data:    data,
		Metadata: Metadata{
			ExportedAt: ts,
			AppVersion: c.appVersion(),
		},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return nil, fmt.Errorf("encode magicyan file: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode 解析文件内容并返回通过结构检查的文档。
// 任何一步失败都整体拒绝，不会返回部分数据。
func (c *Codec) Decode(content []byte) (resume.Document, error) {
	file, err := c.DecodeFile(content)
	if err != nil {
		return resume.Document{}, err
	}
	return file.Data, nil
}

// DecodeReader 从 reader 读取全部内容后调用 Decode。
func (c *Codec) DecodeReader(r io.Reader) (resume.Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return resume.Document{}, fmt.Errorf("read magicyan file: %w", err)
	}
	return c.Decode(content)
}

// DecodeFile 与 Decode 相同，但保留信封中的版本与元数据。
func (c *Codec) DecodeFile(content []byte) (File, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return File{}, ErrEmptyInput
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(content, &envelope); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrMalformedSyntax, err)
	}
	if envelope == nil {
		return File{}, fmt.Errorf("%w: envelope is null", ErrMalformedSyntax)
	}

	version, err := decodeVersion(envelope["version"])
	if err != nil {
		return File{}, err
	}

	rawData, ok := envelope["data"]
	if !ok || !truthy(rawData) {
		return File{}, ErrMissingData
	}

	var tree any
	if err := json.Unmarshal(rawData, &tree); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrMalformedSyntax, err)
	}
	if violations := validate.Structure(tree); len(violations) > 0 {
		return File{}, &SchemaError{Violations: violations}
	}

	var doc resume.Document
	if err := json.Unmarshal(rawData, &doc); err != nil {
		return File{}, &SchemaError{Violations: []validate.Violation{{
			Field:   "data",
			Message: fmt.Sprintf("简历数据字段类型错误: %v", err),
		}}}
	}

	var meta Metadata
	if rawMeta, ok := envelope["metadata"]; ok && !isNull(rawMeta) {
		// metadata 只用于展示，格式不对时忽略而不是拒绝整个文件。
		_ = json.Unmarshal(rawMeta, &meta)
	}

	now := resume.Timestamp(c.now())
	doc = doc.Clone()
	if strings.TrimSpace(doc.CreatedAt) == "" {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	return File{Version: version, Data: doc, Metadata: meta}, nil
}

// decodeVersion 接受任何非假值；非字符串版本号保留其 JSON 文本。
func decodeVersion(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || !truthy(raw) {
		return "", ErrMissingVersion
	}
	var version string
	if err := json.Unmarshal(raw, &version); err == nil {
		return version, nil
	}
	return string(bytes.TrimSpace(raw)), nil
}

// truthy 判断 JSON 值是否为真：null、false、0 与空字符串为假，其余（包括空对象与空数组）为真。
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
