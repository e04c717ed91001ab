package topk

import "github.com/hupe1980/knn/model"

// List keeps the k smallest (distance, index) pairs pushed so far in
// ascending distance order.
type List struct {
	items []model.Neighbor
}

// New creates an empty List with capacity k.
func New(k int) *List {
	return &List{items: make([]model.Neighbor, 0, k)}
}

// Reset empties the list, keeping its capacity.
func (l *List) Reset() {
	l.items = l.items[:0]
}

// Resize empties the list and sets its capacity to k.
func (l *List) Resize(k int) {
	if cap(l.items) < k {
		l.items = make([]model.Neighbor, 0, k)
		return
	}
	l.items = l.items[:0:k]
}

// Len returns the number of elements held.
func (l *List) Len() int {
	return len(l.items)
}

// Cap returns k.
func (l *List) Cap() int {
	return cap(l.items)
}

// Full reports whether the list holds k elements.
func (l *List) Full() bool {
	return len(l.items) == cap(l.items)
}

// Worst returns the largest distance held. It panics on an empty list.
func (l *List) Worst() float32 {
	return l.items[len(l.items)-1].Distance
}

// Push offers a candidate and reports whether it was kept.
func (l *List) Push(dist float32, index int32) bool {
	n := len(l.items)
	k := cap(l.items)
	if k == 0 {
		return false
	}
	if n == k && !(dist < l.items[n-1].Distance) {
		return false
	}

	pos := n
	for i := 0; i < n; i++ {
		if l.items[i].Distance > dist {
			pos = i
			break
		}
	}
	if n < k {
		l.items = l.items[:n+1]
	}
	copy(l.items[pos+1:], l.items[pos:len(l.items)-1])
	l.items[pos] = model.Neighbor{Index: index, Distance: dist}
	return true
}

// Items returns the held elements, nearest first. The slice aliases the
// list and is only valid until the next mutation.
func (l *List) Items() []model.Neighbor {
	return l.items
}
