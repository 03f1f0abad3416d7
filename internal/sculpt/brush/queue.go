package brush

// queue is a FIFO that reuses its backing array once drained.
type queue[T any] struct {
	items []T
	head  int
}

func (q *queue[T]) Len() int { return len(q.items) - q.head }

func (q *queue[T]) Push(v T) {
	if q.head > 64 && q.head > len(q.items)/2 {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, v)
}

func (q *queue[T]) Pop() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.Clear()
	}
	return v, true
}

// Front returns the oldest element for in-place update, or nil.
func (q *queue[T]) Front() *T {
	if q.head == len(q.items) {
		return nil
	}
	return &q.items[q.head]
}

// Each calls fn for every queued element, oldest first.
func (q *queue[T]) Each(fn func(T)) {
	for _, v := range q.items[q.head:] {
		fn(v)
	}
}

func (q *queue[T]) Clear() {
	q.items = q.items[:0]
	q.head = 0
}
