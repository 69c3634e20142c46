package icons

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// DefaultSearchLimit 是单次搜索返回的候选数量上限。
	DefaultSearchLimit = 24
	// MinQueryRunes 以下的查询只在常用图标中过滤，不访问外部服务。
	MinQueryRunes   = 2
	defaultDebounce = 300 * time.Millisecond
)

// ErrSuperseded 表示同一调用方发起了更新的查询，本次结果被丢弃。
var ErrSuperseded = errors.New("icon search superseded by a newer query")

// Searcher 为每个调用方（key）提供防抖搜索：新查询会取消同一 key 下尚未完成的旧查询，
// 旧查询的结果永远不会返回给调用方。
type Searcher struct {
	lookup   Lookup
	debounce time.Duration
	limit    int

	mu       sync.Mutex
	seq      uint64
	inflight map[string]*pendingSearch
}

type pendingSearch struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewSearcher 构造搜索器；debounce <= 0 时使用 300ms。
func NewSearcher(lookup Lookup, debounce time.Duration, limit int) *Searcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &Searcher{
		lookup:   lookup,
		debounce: debounce,
		limit:    limit,
		inflight: map[string]*pendingSearch{},
	}
}

// Search 为 key 执行一次搜索。
func (s *Searcher) Search(ctx context.Context, key, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)

	searchCtx, gen := s.begin(ctx, key)
	defer s.finish(key, gen)

	if utf8.RuneCountInString(query) < MinQueryRunes || s.lookup == nil {
		return FilterCommon(query), nil
	}

	timer := time.NewTimer(s.debounce)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-searchCtx.Done():
		return nil, s.cancelled(ctx, key, gen)
	}

	ids, err := s.lookup.Search(searchCtx, query, s.limit)
	if !s.latest(key, gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, candidateFor(id))
	}
	return out, nil
}

func (s *Searcher) begin(ctx context.Context, key string) (context.Context, uint64) {
	searchCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.inflight[key] = &pendingSearch{gen: s.seq, cancel: cancel}
	return searchCtx, s.seq
}

func (s *Searcher) finish(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.inflight[key]; ok && p.gen == gen {
		p.cancel()
		delete(s.inflight, key)
	}
}

func (s *Searcher) latest(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.inflight[key]
	return ok && p.gen == gen
}

func (s *Searcher) cancelled(parent context.Context, key string, gen uint64) error {
	if !s.latest(key, gen) {
		return ErrSuperseded
	}
	return parent.Err()
}
