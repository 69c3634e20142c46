package icons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIconifyBaseURL 是公共 Iconify API 地址。
const DefaultIconifyBaseURL = "https://api.iconify.design"

// ErrIconNotFound 表示图标集中不存在该图标。
var ErrIconNotFound = errors.New("icon not found")

// Markup 是外部图标服务返回的 SVG body 以及坐标尺寸。
type Markup struct {
	Body   string
	Width  int
	Height int
}

// Lookup 是外部图标服务的抽象：按 "prefix:name" 取路径数据，按关键词搜索候选图标。
type Lookup interface {
	Icon(ctx context.Context, prefix, name string) (Markup, error)
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// IconifyClient 通过 HTTP 调用 Iconify API，并用令牌桶限制请求速率。
type IconifyClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Lookup = (*IconifyClient)(nil)

// NewIconifyClient 构造客户端；rps <= 0 时不限速。
func NewIconifyClient(baseURL string, timeout time.Duration, rps float64) *IconifyClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultIconifyBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &IconifyClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

type iconifyIcon struct {
	Body   string `json:"body"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type iconifyAlias struct {
	Parent string `json:"parent"`
}

type iconifySet struct {
	Prefix   string                  `json:"prefix"`
	Icons    map[string]iconifyIcon  `json:"icons"`
	Aliases  map[string]iconifyAlias `json:"aliases"`
	Width    int                     `json:"width"`
	Height   int                     `json:"height"`
	NotFound []string                `json:"not_found"`
}

// Icon 请求 /{prefix}.json?icons={name}。
func (c *IconifyClient) Icon(ctx context.Context, prefix, name string) (Markup, error) {
	endpoint := fmt.Sprintf("%s/%s.json?icons=%s", c.baseURL, url.PathEscape(prefix), url.QueryEscape(name))

	var set iconifySet
	if err := c.getJSON(ctx, endpoint, &set); err != nil {
		return Markup{}, err
	}

	icon, ok := set.Icons[name]
	if !ok {
		alias, isAlias := set.Aliases[name]
		if isAlias {
			icon, ok = set.Icons[alias.Parent]
		}
	}
	if !ok || strings.TrimSpace(icon.Body) == "" {
		return Markup{}, fmt.Errorf("%w: %s:%s", ErrIconNotFound, prefix, name)
	}

	width, height := icon.Width, icon.Height
	if width == 0 {
		width = set.Width
	}
	if height == 0 {
		height = set.Height
	}
	// Iconify 未声明尺寸时默认 16x16。
	if width == 0 {
		width = 16
	}
	if height == 0 {
		height = 16
	}

	return Markup{Body: icon.Body, Width: width, Height: height}, nil
}

type iconifySearch struct {
	Icons []string `json:"icons"`
}

// Search 请求 /search?query=...&limit=...，按服务端排序返回图标标识。
func (c *IconifyClient) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	endpoint := fmt.Sprintf("%s/search?query=%s&limit=%s", c.baseURL, url.QueryEscape(query), strconv.Itoa(limit))

	var result iconifySearch
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return result.Icons, nil
}

func (c *IconifyClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait icon rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build icon request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request icon api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIconNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return fmt.Errorf("icon api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode icon api response: %w", err)
	}
	return nil
}
