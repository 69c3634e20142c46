package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"magicyan/internal/pdf"
	"magicyan/internal/render"
)

const watchDebounce = 150 * time.Millisecond

type renderOptions struct {
	paged  bool
	output string
}

func (o *renderOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.paged, "paged", false, "render the fixed A4 print layout instead of the preview")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output HTML path (default: stdout)")
}

func (o renderOptions) target() render.Target {
	if o.paged {
		return render.Paged
	}
	return render.Preview
}

// renderFile 读取、构建版面并输出 HTML，返回被省略的资源描述。
func (a *app) renderFile(ctx context.Context, cmd *cobra.Command, path string, opts renderOptions) ([]string, error) {
	doc, err := a.readDocument(path)
	if err != nil {
		return nil, err
	}

	layout := render.Build(ctx, doc, a.resolver(cmd))
	html, err := render.HTMLBytes(layout, opts.target())
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, w := range layout.Warnings() {
		missing = append(missing, w.Missing...)
	}

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(html)
		return missing, err
	}
	return missing, writeFileAtomic(opts.output, html)
}

func printMissing(cmd *cobra.Command, missing []string) {
	if len(missing) == 0 {
		return
	}
	cmd.PrintErrf("warning: %d icon(s) omitted: %s\n", len(missing), strings.Join(missing, ", "))
}

func newRenderCmd(a *app) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a .magicyan file to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			missing, err := a.renderFile(cmd.Context(), cmd, args[0], opts)
			if err != nil {
				return err
			}
			printMissing(cmd, missing)
			if opts.output != "" {
				cmd.Printf("wrote %s\n", opts.output)
			}
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newPDFCmd(a *app) *cobra.Command {
	var (
		output     string
		browserBin string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "pdf <file>",
		Short: "Print a .magicyan file to an A4 PDF with headless Chromium",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}

			logger := a.logger(cmd)
			engine := pdf.NewEngine(pdf.Options{BrowserBin: browserBin, Timeout: timeout}, logger)
			defer func() {
				if closeErr := engine.Close(); closeErr != nil {
					logger.Warn("close browser", "error", closeErr)
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := pdf.NewExporter(engine, a.resolver(cmd), nil, logger).Export(ctx, doc)
			if err != nil {
				return err
			}
			for _, w := range result.Warnings {
				cmd.PrintErrf("warning: %s: %s\n", w.Message, strings.Join(w.Missing, ", "))
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), result.Filename)
			}
			if err := os.WriteFile(output, result.PDF, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			cmd.Printf("wrote %s (%d bytes)\n", output, len(result.PDF))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <title>_<date>.pdf next to the input)")
	cmd.Flags().StringVar(&browserBin, "browser", os.Getenv("ROD_BROWSER_BIN"), "Chromium executable")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "render timeout")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-render HTML whenever the .magicyan file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return fmt.Errorf("watch requires --output")
			}
			return a.watch(cmd.Context(), cmd, args[0], opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// watch 监听所在目录而不是文件本身：编辑器保存时常以重命名替换文件，
// 直接监听文件会在第一次保存后丢失。
func (a *app) watch(ctx context.Context, cmd *cobra.Command, path string, opts renderOptions) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	rebuild := func() {
		missing, err := a.renderFile(ctx, cmd, abs, opts)
		if err != nil {
			// 文件暂时无效时保留上一次的输出
			cmd.PrintErrf("render failed: %v\n", err)
			return
		}
		printMissing(cmd, missing)
		cmd.Printf("rendered %s\n", opts.output)
	}
	rebuild()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmd.PrintErrf("watch error: %v\n", err)
		}
	}
}
