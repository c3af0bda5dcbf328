package ast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena is an append-only store addressed by 1-based uint32 indices.
type Arena[T any] struct {
	data []T
}

// NewArena creates and returns an *Arena[T] whose internal slice is allocated with a capacity of capHint.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{
		data: make([]T, 0, capHint),
	}
}

// Возвращает индекс нового элемента (1-based).
func (a *Arena[T]) Allocate(value T) uint32 {
	a.data = append(a.data, value)
	n, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("ast arena overflow: %w", err))
	}
	return n
}

func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 || int(index) > len(a.data) {
		return nil
	}
	return &a.data[index-1]
}

// READONLY
func (a *Arena[T]) Slice() []T {
	return a.data
}

func (a *Arena[T]) Len() uint32 {
	n, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("ast arena overflow: %w", err))
	}
	return n
}
