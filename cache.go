package loom

import "fmt"

// arena is a keyed append-only store handing out dense indices. Items are
// addressed by index after registration so additions never invalidate
// references held elsewhere.
type arena[K comparable, T any] struct {
	items       []T
	itemIndices map[K]int
	maxCapacity int
}

func newArena[K comparable, T any](cap int) *arena[K, T] {
	return &arena[K, T]{
		itemIndices: make(map[K]int),
		maxCapacity: cap,
	}
}

func (a *arena[K, T]) Index(key K) (int, bool) {
	index, ok := a.itemIndices[key]
	return index, ok
}

func (a *arena[K, T]) Item(index int) *T {
	return &a.items[index]
}

func (a *arena[K, T]) Len() int {
	return len(a.items)
}

func (a *arena[K, T]) Register(key K, item T) (int, error) {
	if a.maxCapacity > 0 && len(a.items) >= a.maxCapacity {
		return -1, fmt.Errorf("arena at maximum capacity (%d)", a.maxCapacity)
	}
	idx := len(a.items)
	a.itemIndices[key] = idx
	a.items = append(a.items, item)
	return idx, nil
}
