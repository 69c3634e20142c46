package icons

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"magicyan/internal/metrics"
	"magicyan/internal/resume"
)

const (
	defaultLookupTimeout = 3 * time.Second
	defaultCacheTTL      = 7 * 24 * time.Hour
	prefetchConcurrency  = 4
)

// ResolverOptions 控制外部查找的超时与缓存有效期。
type ResolverOptions struct {
	LookupTimeout time.Duration
	CacheTTL      time.Duration
}

// Resolver 把图标引用解析为 Glyph。
// 内联标记直接提取路径；符号引用先查缓存，再调用外部服务（同名并发请求合并）。
// 任何失败都只返回 ok=false，由调用方省略该图标。
type Resolver struct {
	lookup  Lookup
	cache   Cache
	logger  *slog.Logger
	timeout time.Duration
	ttl     time.Duration
	group   singleflight.Group
}

// NewResolver 构造解析器；lookup 或 cache 可以为 nil。
func NewResolver(lookup Lookup, cache Cache, logger *slog.Logger, opts ResolverOptions) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Resolver{
		lookup:  lookup,
		cache:   cache,
		logger:  logger.With("component", "icons.resolver"),
		timeout: opts.LookupTimeout,
		ttl:     opts.CacheTTL,
	}
}

// Resolve 解析单个引用。
func (r *Resolver) Resolve(ctx context.Context, ref resume.IconRef) (Glyph, bool) {
	if r == nil || ref.IsZero() {
		return Glyph{}, false
	}

	if ref.IsInline() {
		glyph, err := Extract(string(ref))
		if err != nil {
			r.logger.Debug("inline icon has no usable geometry", "error", err)
			metrics.ObserveIconResolution(metrics.IconFailed)
			return Glyph{}, false
		}
		metrics.ObserveIconResolution(metrics.IconInline)
		return glyph, true
	}

	prefix, name, ok := ref.Name()
	if !ok {
		metrics.ObserveIconResolution(metrics.IconInvalid)
		return Glyph{}, false
	}
	key := prefix + ":" + name

	if glyph, hit := r.fromCache(ctx, key); hit {
		metrics.ObserveIconResolution(metrics.IconCached)
		return glyph, true
	}

	if r.lookup == nil {
		metrics.ObserveIconResolution(metrics.IconFailed)
		return Glyph{}, false
	}

	value, err, _ := r.group.Do(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		markup, err := r.lookup.Icon(lookupCtx, prefix, name)
		if err != nil {
			return Glyph{}, err
		}
		glyph, err := Extract(markup.Body)
		if err != nil {
			return Glyph{}, err
		}
		glyph.ViewBox = ViewBoxFor(markup.Width, markup.Height)
		r.store(lookupCtx, key, glyph)
		return glyph, nil
	})
	if err != nil {
		r.logger.Warn("icon lookup failed, omitting icon", "icon", key, "error", err)
		metrics.ObserveIconResolution(metrics.IconFailed)
		return Glyph{}, false
	}

	metrics.ObserveIconResolution(metrics.IconFetched)
	return value.(Glyph), true
}

// Prefetch 并发解析一组引用，返回成功解析的结果。重复引用只解析一次。
func (r *Resolver) Prefetch(ctx context.Context, refs []resume.IconRef) map[resume.IconRef]Glyph {
	unique := make([]resume.IconRef, 0, len(refs))
	seen := make(map[resume.IconRef]struct{}, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		unique = append(unique, ref)
	}

	glyphs := make([]Glyph, len(unique))
	resolved := make([]bool, len(unique))

	var g errgroup.Group
	g.SetLimit(prefetchConcurrency)
	for i, ref := range unique {
		i, ref := i, ref
		g.Go(func() error {
			glyphs[i], resolved[i] = r.Resolve(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[resume.IconRef]Glyph, len(unique))
	for i, ref := range unique {
		if resolved[i] {
			out[ref] = glyphs[i]
		}
	}
	return out
}

func (r *Resolver) fromCache(ctx context.Context, key string) (Glyph, bool) {
	if r.cache == nil {
		return Glyph{}, false
	}
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Debug("icon cache read failed", "icon", key, "error", err)
		return Glyph{}, false
	}
	if !ok {
		return Glyph{}, false
	}
	var glyph Glyph
	if err := json.Unmarshal(raw, &glyph); err != nil || glyph.Empty() {
		return Glyph{}, false
	}
	return glyph, true
}

func (r *Resolver) store(ctx context.Context, key string, glyph Glyph) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(glyph)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Debug("icon cache write failed", "icon", key, "error", err)
	}
}
