package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func run(args ...string) result {
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func newSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.magicyan")
	res := run("new", "--sample", "-o", path)
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "created "+path)
	return path
}

func moduleIDs(t *testing.T, path string) []string {
	t.Helper()
	res := run("module", "list", path)
	require.NoError(t, res.err)

	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(res.stdout), "\n") {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 3)
		ids = append(ids, fields[1])
	}
	return ids
}

func TestVersionCommand(t *testing.T) {
	res := run("version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "magicyan version dev")
	assert.Contains(t, res.stdout, "file format "+magicyan.FormatVersion)
}

func TestNewCreatesValidFile(t *testing.T) {
	path := newSample(t)

	res := run("validate", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ok (4 info items, 3 modules)")
}

func TestNewBlankUsesDefaultTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.magicyan")
	require.NoError(t, run("new", "-o", path).err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := magicyan.NewCodec("").Decode(content)
	require.NoError(t, err)
	assert.Equal(t, defaultTitle, doc.Title)
	assert.Empty(t, doc.Modules)

	require.NoError(t, run("validate", path).err)
}

func TestNewRefusesToOverwrite(t *testing.T) {
	path := newSample(t)

	res := run("new", "--title", "李四", "-o", path)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already exists")

	require.NoError(t, run("new", "--title", "李四", "-o", path, "--force").err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "李四")
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "  ", want: "文件内容为空"},
		{name: "syntax", content: "{not json", want: "文件格式不正确"},
		{name: "version", content: `{"data":{}}`, want: "缺少版本信息"},
		{name: "data", content: `{"version":"1.0.0"}`, want: "缺少简历数据"},
		{name: "schema", content: `{"version":"1.0.0","data":{"title":"","personalInfo":[],"modules":{}}}`, want: "简历模块格式错误：必须是数组"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".magicyan")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			res := run("validate", path)
			require.Error(t, res.err)
			assert.ErrorIs(t, res.err, errInvalidFile)
			assert.Contains(t, res.err.Error(), tc.want)
		})
	}
}

func TestValidateAppliesFullRules(t *testing.T) {
	// 结构检查不裁剪空白，完整检查会
	path := filepath.Join(t.TempDir(), "blank-title.magicyan")
	content := `{"version":"1.0.0","data":{"title":"   ","personalInfo":[],"modules":[]}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res := run("validate", path)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errInvalidFile)
	assert.Contains(t, res.stdout, "简历标题不能为空")
}

func TestModuleCommands(t *testing.T) {
	path := newSample(t)
	assert.Equal(t, []string{"module-education", "module-work", "module-skills"}, moduleIDs(t, path))

	res := run("module", "add", path, "--title", "项目经历", "--content", "开源贡献", "--icon", "mdi:code-tags")
	require.NoError(t, res.err)
	added := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(res.stdout), "added "))
	require.NotEmpty(t, added)
	assert.Equal(t, []string{"module-education", "module-work", "module-skills", added}, moduleIDs(t, path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := magicyan.NewCodec("").Decode(content)
	require.NoError(t, err)
	m := doc.Modules[doc.FindModule(added)]
	assert.Equal(t, "项目经历", m.Title)
	assert.Equal(t, "开源贡献", m.Content)
	assert.Equal(t, resume.IconRef("mdi:code-tags"), m.Icon)

	require.NoError(t, run("module", "move", path, added, "up").err)
	assert.Equal(t, []string{"module-education", "module-work", added, "module-skills"}, moduleIDs(t, path))

	require.NoError(t, run("module", "reorder", path, "module-skills", "0").err)
	assert.Equal(t, []string{"module-skills", "module-education", "module-work", added}, moduleIDs(t, path))

	require.NoError(t, run("module", "remove", path, "module-education").err)
	assert.Equal(t, []string{"module-skills", "module-work", added}, moduleIDs(t, path))
}

func TestModuleCommandsRejectUnknownInput(t *testing.T) {
	path := newSample(t)

	res := run("module", "remove", path, "module-missing")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `module "module-missing" not found`)

	res = run("module", "move", path, "module-work", "sideways")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid direction")

	res = run("module", "reorder", path, "module-work", "first")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid index")

	assert.Equal(t, []string{"module-education", "module-work", "module-skills"}, moduleIDs(t, path))
}

func TestRenderOfflineToStdout(t *testing.T) {
	path := newSample(t)

	res := run("render", "--offline", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "<!DOCTYPE html>")
	assert.Contains(t, res.stdout, "张三")
	assert.Contains(t, res.stdout, "教育背景")
	assert.NotContains(t, res.stdout, "@page")
	// 离线时符号图标无法解析，被省略并给出提示
	assert.Contains(t, res.stderr, "icon(s) omitted")
	assert.Contains(t, res.stderr, "mdi:school")
}

func TestRenderPagedToFile(t *testing.T) {
	path := newSample(t)
	out := filepath.Join(t.TempDir(), "resume.html")

	res := run("render", "--offline", "--paged", "-o", out, path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "wrote "+out)

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "@page")
	assert.Contains(t, string(html), "工作经历")
}

func TestRenderInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.magicyan")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	res := run("render", "--offline", path)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errInvalidFile)
}

func TestWatchRequiresOutput(t *testing.T) {
	path := newSample(t)
	res := run("watch", path)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--output")
}

func TestWatchRerendersOnChange(t *testing.T) {
	path := newSample(t)
	out := filepath.Join(t.TempDir(), "preview.html")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"watch", "--offline", "-o", out, path})

	done := make(chan error, 1)
	go func() {
		done <- root.ExecuteContext(ctx)
	}()

	contains := func(text string) func() bool {
		return func() bool {
			html, err := os.ReadFile(out)
			return err == nil && strings.Contains(string(html), text)
		}
	}
	require.Eventually(t, contains("张三"), 5*time.Second, 20*time.Millisecond)

	codec := magicyan.NewCodec("")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := codec.Decode(content)
	require.NoError(t, err)
	doc = resume.SetTitle(doc, "王五")
	updated, err := codec.Encode(doc)
	require.NoError(t, err)
	require.NoError(t, writeFileAtomic(path, updated))

	require.Eventually(t, contains("王五"), 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
