// Package cli 实现 magicyan 命令行：离线创建、校验、编辑与渲染 .magicyan 文件。
package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"magicyan/internal/icons"
	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
)

// version 在构建时通过 -ldflags "-X magicyan/internal/cli.version=..." 注入。
var version = "dev"

// app 是一次命令执行共享的依赖，由根命令的持久化参数构造。
type app struct {
	verbose  bool
	offline  bool
	iconsURL string

	codec  *magicyan.Codec
	editor resume.Editor
	now    func() time.Time
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// resolver 在 --offline 时只解析内联图标。
func (a *app) resolver(cmd *cobra.Command) *icons.Resolver {
	logger := a.logger(cmd)
	if a.offline {
		return icons.NewResolver(nil, nil, logger, icons.ResolverOptions{})
	}
	client := icons.NewIconifyClient(a.iconsURL, 3*time.Second, 10)
	return icons.NewResolver(client, icons.NewMemoryCache(), logger, icons.ResolverOptions{})
}

// NewRootCommand 构造完整的命令树；每次调用返回互不共享状态的新实例。
func NewRootCommand() *cobra.Command {
	a := &app{
		codec: magicyan.NewCodec(magicyan.DefaultAppVersion),
		now:   time.Now,
	}

	root := &cobra.Command{
		Use:   "magicyan",
		Short: "Create, edit and print .magicyan resume files",
		Long: `magicyan works with the .magicyan resume format offline.
It can create starter files, validate and edit them, and render
preview HTML or A4 PDF output.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.offline, "offline", false, "skip the external icon service; only inline icons render")
	root.PersistentFlags().StringVar(&a.iconsURL, "icons-url", icons.DefaultIconifyBaseURL, "icon service base URL")

	root.AddCommand(
		newNewCmd(a),
		newValidateCmd(a),
		newRenderCmd(a),
		newPDFCmd(a),
		newWatchCmd(a),
		newModuleCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute 运行命令行，ctx 取消时长时间运行的命令（watch、pdf）随之退出。
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
