package icons

import (
	"context"
	"sync"
	"sync/atomic"
)

type fakeLookup struct {
	mu       sync.Mutex
	icons    map[string]Markup
	results  map[string][]string
	calls    atomic.Int32
	searches []string
	block    chan struct{}
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{icons: map[string]Markup{}, results: map[string][]string{}}
}

func (f *fakeLookup) Icon(ctx context.Context, prefix, name string) (Markup, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Markup{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.icons[prefix+":"+name]
	if !ok {
		return Markup{}, ErrIconNotFound
	}
	return m, nil
}

func (f *fakeLookup) Search(ctx context.Context, query string, _ int) ([]string, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[query], nil
}

func (f *fakeLookup) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}
