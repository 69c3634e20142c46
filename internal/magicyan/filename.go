package magicyan

import (
	"strings"
	"time"
)

// PDFExtension 是 PDF 导出文件的扩展名。
const PDFExtension = ".pdf"

// Filename 生成 "<清洗后的标题>_<YYYY-MM-DD><ext>"。
// 只保留 ASCII 字母数字与 CJK 统一表意文字（U+4E00–U+9FA5），其余字符替换为下划线。
func Filename(title, ext string, now time.Time) string {
	return SanitizeTitle(title) + "_" + now.UTC().Format("2006-01-02") + ext
}

// ExportFilename 返回 .magicyan 导出文件名。
func ExportFilename(title string, now time.Time) string {
	return Filename(title, Extension, now)
}

// PDFFilename 返回 PDF 导出文件名。
func PDFFilename(title string, now time.Time) string {
	return Filename(title, PDFExtension, now)
}

// SanitizeTitle 逐字符清洗标题。
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if keepRune(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= 0x4e00 && r <= 0x9fa5:
		return true
	default:
		return false
	}
}
