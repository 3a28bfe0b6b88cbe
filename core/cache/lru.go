package cache

import (
	"container/list"
)

type LRUOpts[K comparable, V any] struct {
	// Size is the maximum number of entries, defaults to 128.
	Size int
	// OnEvict is called for entries dropped because the cache is full.
	// It is not called for Delete.
	OnEvict func(key K, val V)
}

type entry[K comparable, V any] struct {
	key K
	val V
}

type LRU[K comparable, V any] struct {
	size    int
	onEvict func(K, V)
	ll      *list.List
	items   map[K]*list.Element
}

func NewLRU[K comparable, V any](opts LRUOpts[K, V]) *LRU[K, V] {
	if opts.Size <= 0 {
		opts.Size = 128
	}
	return &LRU[K, V]{
		size:    opts.Size,
		onEvict: opts.OnEvict,
		ll:      list.New(),
		items:   make(map[K]*list.Element),
	}
}

// Get returns the value for key and marks it most recently used.
func (l *LRU[K, V]) Get(key K) (val V, ok bool) {
	ele, ok := l.items[key]
	if !ok {
		return val, false
	}
	l.ll.MoveToFront(ele)
	return ele.Value.(*entry[K, V]).val, true
}

// Peek returns the value for key without touching its position.
func (l *LRU[K, V]) Peek(key K) (val V, ok bool) {
	ele, ok := l.items[key]
	if !ok {
		return val, false
	}
	return ele.Value.(*entry[K, V]).val, true
}

// Put inserts or updates key and marks it most recently used. When the
// cache grows beyond its size the least recently used entry is evicted.
func (l *LRU[K, V]) Put(key K, val V) {
	if ele, ok := l.items[key]; ok {
		l.ll.MoveToFront(ele)
		ele.Value.(*entry[K, V]).val = val
		return
	}
	l.items[key] = l.ll.PushFront(&entry[K, V]{key: key, val: val})
	for l.ll.Len() > l.size {
		last := l.ll.Back()
		e := last.Value.(*entry[K, V])
		l.ll.Remove(last)
		delete(l.items, e.key)
		if l.onEvict != nil {
			l.onEvict(e.key, e.val)
		}
	}
}

func (l *LRU[K, V]) Delete(key K) {
	if ele, ok := l.items[key]; ok {
		l.ll.Remove(ele)
		delete(l.items, key)
	}
}

func (l *LRU[K, V]) Len() int { return l.ll.Len() }

// Keys returns the keys from most to least recently used.
func (l *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, l.ll.Len())
	for ele := l.ll.Front(); ele != nil; ele = ele.Next() {
		keys = append(keys, ele.Value.(*entry[K, V]).key)
	}
	return keys
}
