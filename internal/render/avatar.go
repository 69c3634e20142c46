package render

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"magicyan/internal/errcode"
	"magicyan/internal/resume"
)

const maxAvatarBytes = 5 << 20

// Warning 是打印过程中可恢复的问题，流程继续但部分资源被省略。
type Warning struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// Warnings 汇总版面中被省略的图标。
func (l Layout) Warnings() []Warning {
	if len(l.Unresolved) == 0 {
		return nil
	}
	missing := make([]string, 0, len(l.Unresolved))
	for _, ref := range l.Unresolved {
		missing = append(missing, describeRef(ref))
	}
	return []Warning{{
		Code:    errcode.ResourceMissing,
		Message: "部分图标无法解析，已自动省略并继续生成",
		Missing: missing,
	}}
}

// describeRef 内联标记过长，只保留符号名或截断后的片段。
func describeRef(ref resume.IconRef) string {
	if !ref.IsInline() {
		return string(ref)
	}
	s := string(ref)
	if len([]rune(s)) > 48 {
		s = string([]rune(s)[:48]) + "..."
	}
	return s
}

// InlineAvatar 把远程头像下载并转为 data URI，使打印页不依赖网络。
// 下载失败时去掉头像并返回一条 ResourceMissing 警告；data URI 与空头像原样返回。
func InlineAvatar(ctx context.Context, client *http.Client, logger *slog.Logger, doc resume.Document) (resume.Document, []Warning) {
	raw := strings.TrimSpace(doc.Avatar)
	if raw == "" || avatarURL(raw) == "" {
		if raw != "" {
			return dropAvatar(logger, doc, raw, "unsupported avatar url")
		}
		return doc, nil
	}
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return doc, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	dataURI, err := fetchDataURI(ctx, client, raw)
	if err != nil {
		return dropAvatar(logger, doc, raw, err.Error())
	}

	out := doc.Clone()
	out.Avatar = dataURI
	return out, nil
}

func dropAvatar(logger *slog.Logger, doc resume.Document, raw, reason string) (resume.Document, []Warning) {
	if logger != nil {
		logger.Warn("print avatar removed", slog.String("reason", reason))
	}
	out := doc.Clone()
	out.Avatar = ""
	return out, []Warning{{
		Code:    errcode.ResourceMissing,
		Message: "头像资源缺失/无效，已自动跳过并继续生成",
		Missing: []string{describeAvatar(raw)},
	}}
}

func describeAvatar(raw string) string {
	if len(raw) > 96 {
		return raw[:96] + "..."
	}
	return raw
}

func fetchDataURI(ctx context.Context, client *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build avatar request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch avatar: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(body) > maxAvatarBytes {
		return "", fmt.Errorf("avatar exceeds %d bytes", maxAvatarBytes)
	}

	contentType := ImageContentType(resp.Header.Get("Content-Type"), body)
	if contentType == "" {
		return "", errors.New("avatar is not an image")
	}
	return DataURI(contentType, body), nil
}

// DataURI 以 base64 编码构造 data URI。
func DataURI(contentType string, body []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(body))
}

// ImageContentType 优先使用响应头，缺失时按内容嗅探；非图片返回空串。
func ImageContentType(header string, body []byte) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	sniffed := http.DetectContentType(body)
	if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	return ""
}
