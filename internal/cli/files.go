package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
)

// errInvalidFile 表示文件未通过导入检查，具体原因已输出。
var errInvalidFile = errors.New("invalid resume file")

func (a *app) readDocument(path string) (resume.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return resume.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	file, err := a.codec.DecodeFile(content)
	if err != nil {
		return resume.Document{}, decodeError(path, err)
	}
	return file.Data, nil
}

func decodeError(path string, err error) error {
	msg := magicyan.Message(err)
	if details := magicyan.Details(err); len(details) > 0 {
		lines := make([]string, 0, len(details))
		for _, v := range details {
			lines = append(lines, "  - "+v.Message)
		}
		msg = "简历数据格式错误\n" + strings.Join(lines, "\n")
	}
	return fmt.Errorf("%w: %s: %s", errInvalidFile, path, msg)
}

func (a *app) writeDocument(path string, doc resume.Document) error {
	content, err := a.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return writeFileAtomic(path, content)
}

// writeFileAtomic 先写临时文件再重命名，watch 不会读到写了一半的内容。
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
