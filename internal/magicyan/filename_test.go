package magicyan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		title string
		ext   string
		want  string
	}{
		{title: "张三的简历", ext: Extension, want: "张三的简历_2024-03-09.magicyan"},
		{title: "John Doe (CV)", ext: PDFExtension, want: "John_Doe__CV__2024-03-09.pdf"},
		{title: "", ext: PDFExtension, want: "_2024-03-09.pdf"},
		{title: "a/b\\c.d", ext: Extension, want: "a_b_c_d_2024-03-09.magicyan"},
		{title: "été", ext: PDFExtension, want: "_t__2024-03-09.pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.title, tt.ext, now), tt.title)
	}
}

func TestFilename_UsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2024, 3, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, "x_2024-03-09.pdf", PDFFilename("x", now))
	assert.Equal(t, "x_2024-03-09.magicyan", ExportFilename("x", now))
}
