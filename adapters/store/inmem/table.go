package inmem

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// table is a thread-safe map keyed by ID that hands out copies.
type table[T any] struct {
	mu       sync.RWMutex
	items    map[string]*T
	seq      int64
	prefix   string
	notFound error
	id       func(*T) *string
	clone    func(*T) *T
	less     func(a, b *T) bool // List order
}

func newTable[T any](prefix string, notFound error, id func(*T) *string, clone func(*T) *T, less func(a, b *T) bool) table[T] {
	if clone == nil {
		clone = func(v *T) *T { cp := *v; return &cp }
	}
	return table[T]{
		items:    make(map[string]*T),
		prefix:   prefix,
		notFound: notFound,
		id:       id,
		clone:    clone,
		less:     less,
	}
}

func (t *table[T]) nextID() string {
	t.seq++
	return fmt.Sprintf("%s-%d-%d", t.prefix, time.Now().UnixNano(), t.seq)
}

func (t *table[T]) Create(_ context.Context, v *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.id(v)
	if *id == "" {
		*id = t.nextID()
	}
	if _, exists := t.items[*id]; exists {
		return fmt.Errorf("%s %s already exists", t.prefix, *id)
	}
	t.items[*id] = t.clone(v)
	return nil
}

func (t *table[T]) Get(_ context.Context, id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[id]
	if !ok {
		return nil, t.notFound
	}
	return t.clone(v), nil
}

func (t *table[T]) List(_ context.Context) ([]*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*T, 0, len(t.items))
	for _, v := range t.items {
		out = append(out, t.clone(v))
	}
	if t.less != nil {
		slices.SortStableFunc(out, func(a, b *T) int {
			switch {
			case t.less(a, b):
				return -1
			case t.less(b, a):
				return 1
			}
			return 0
		})
	}
	return out, nil
}

func (t *table[T]) Update(_ context.Context, v *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := *t.id(v)
	if _, ok := t.items[id]; !ok {
		return t.notFound
	}
	t.items[id] = t.clone(v)
	return nil
}

func (t *table[T]) Delete(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return t.notFound
	}
	delete(t.items, id)
	return nil
}
