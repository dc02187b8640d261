package sim

import "sort"

// Prioritized is implemented by anything that can be ordered by a
// PriorityQueue. Higher values are more urgent.
type Prioritized interface {
	Priority() int
}

// PriorityQueue keeps items in descending priority order. Items with equal
// priority leave the queue in the order they were inserted. The zero value is
// an empty queue.
type PriorityQueue[T Prioritized] struct {
	items []T
}

// Insert adds item behind every queued item of greater or equal priority.
func (q *PriorityQueue[T]) Insert(item T) {
	p := item.Priority()
	idx := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Priority() < p
	})
	var zero T
	q.items = append(q.items, zero)
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = item
}

// IsEmpty reports whether the queue holds no items.
func (q *PriorityQueue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// PeekMax returns the highest priority item without removing it.
func (q *PriorityQueue[T]) PeekMax() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// PopMax removes and returns the highest priority item.
func (q *PriorityQueue[T]) PopMax() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true
}

// Len reports the number of queued items.
func (q *PriorityQueue[T]) Len() int {
	return len(q.items)
}

// Clear discards every queued item. Discarded items are not resumed.
func (q *PriorityQueue[T]) Clear() {
	clear(q.items)
	q.items = nil
}

// Items returns a copy of the queue in pop order.
func (q *PriorityQueue[T]) Items() []T {
	if len(q.items) == 0 {
		return nil
	}
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}
