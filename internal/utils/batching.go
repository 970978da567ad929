package utils

import (
	"sync"
)

const DefaultBatchSize = 50

// BatchBuffer collects items until a consumer drains them.
type BatchBuffer[T any] struct {
	buffer     []T
	size       int
	bufferLock sync.Mutex
}

func NewBatchBuffer[T any](size int) *BatchBuffer[T] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchBuffer[T]{
		buffer: make([]T, 0, size),
		size:   size,
	}
}

// Add appends item and reports whether the buffer reached its batch size.
func (b *BatchBuffer[T]) Add(item T) bool {
	b.bufferLock.Lock()
	defer b.bufferLock.Unlock()

	b.buffer = append(b.buffer, item)
	return len(b.buffer) >= b.size
}

func (b *BatchBuffer[T]) GetAndClear() []T {
	b.bufferLock.Lock()
	defer b.bufferLock.Unlock()

	if len(b.buffer) == 0 {
		return nil
	}

	batch := b.buffer
	b.buffer = make([]T, 0, b.size)
	return batch
}

func (b *BatchBuffer[T]) Size() int {
	b.bufferLock.Lock()
	defer b.bufferLock.Unlock()
	return len(b.buffer)
}
