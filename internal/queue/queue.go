// Package queue provides the batching buffer between the mission sinks
// and the background database writer. Rows accumulate between flush
// intervals and drain in one batch per transaction.
package queue

import "sync"

// Queue buffers rows of one table until the next flush.
type Queue[T any] struct {
	mu   sync.Mutex
	rows []T
}

// New creates an empty buffer.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends rows to the buffer. A failed flush pushes its batch
// back for the next interval.
func (q *Queue[T]) Push(rows ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows = append(q.rows, rows...)
}

// Len reports the number of buffered rows.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.rows)
}

// Empty reports whether the buffer holds no rows.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Drain removes and returns every buffered row in insertion order. The
// returned slice is owned by the caller.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	rows := q.rows
	q.rows = make([]T, 0, cap(rows))
	return rows
}
