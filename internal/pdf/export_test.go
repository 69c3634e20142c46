package pdf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magicyan/internal/errcode"
	"magicyan/internal/icons"
	"magicyan/internal/resume"
)

type fakePrinter struct {
	html []byte
	err  error
}

func (f *fakePrinter) Print(_ context.Context, html []byte) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

type noIcons struct{}

func (noIcons) Prefetch(context.Context, []resume.IconRef) map[resume.IconRef]icons.Glyph {
	return nil
}

func TestExporter_Export(t *testing.T) {
	printer := &fakePrinter{}
	e := NewExporter(printer, noIcons{}, nil, nil)
	e.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

	doc := resume.Sample(time.Now())
	doc.Title = "张三 简历"

	result, err := e.Export(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(result.PDF))
	assert.Equal(t, "张三_简历_2024-07-01.pdf", result.Filename)
	assert.Contains(t, string(printer.html), "@page { size: A4;")
	assert.Contains(t, string(printer.html), "教育背景")

	require.Len(t, result.Warnings, 1, "sample icons cannot resolve without a lookup")
	assert.Equal(t, errcode.ResourceMissing, result.Warnings[0].Code)
}

func TestExporter_PrintFailure(t *testing.T) {
	e := NewExporter(&fakePrinter{err: errors.New("boom")}, nil, nil, nil)
	_, err := e.Export(context.Background(), resume.New(time.Now()))
	assert.ErrorContains(t, err, "boom")
}
