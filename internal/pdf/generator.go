package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 尺寸（英寸）。边距由分页模板的 @page 规则给出。
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	defaultTimeout    = 30 * time.Second
)

var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("failed to generate pdf")
)

// Printer 把分页 HTML 打印为 PDF。
type Printer interface {
	Print(ctx context.Context, html []byte) ([]byte, error)
}

// Options 配置浏览器可执行文件和单次渲染超时。
type Options struct {
	BrowserBin string
	Timeout    time.Duration
}

// Engine 使用 go-rod 驱动无头 Chromium；浏览器在第一次打印时启动并复用。
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
}

var _ Printer = (*Engine)(nil)

func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, logger: logger.With("component", "pdf.engine")}
}

func (e *Engine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	if e.opts.BrowserBin != "" {
		launch = launch.Bin(e.opts.BrowserBin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("%w: launch chromium: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.logger.Info("chromium launched")
	e.launch = launch
	e.browser = browser
	return browser, nil
}

// Print 在新标签页中载入 HTML，等待字体就绪后输出 A4 PDF。
func (e *Engine) Print(ctx context.Context, html []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	timeout := e.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	page, err := browser.Context(ctx).Timeout(timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: create page: %v", ErrPageLoad, err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("%w: set document content: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// 等待系统字体就绪，避免回退字体度量导致排版差异
	if _, evalErr := page.Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); evalErr != nil {
		e.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("%w: set emulated media: %v", ErrPDFGeneration, err)
	}

	reader, err := page.PDF(pdfOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// Close 关闭浏览器并清理启动器的临时目录。
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launch != nil {
		e.launch.Cleanup()
		e.launch = nil
	}
	return err
}

func pdfOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(paperWidthInches),
		PaperHeight:       float64Ptr(paperHeightInches),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	}
}

func float64Ptr(value float64) *float64 {
	return &value
}
