package hnsw

// Candidate is a node id paired with its distance to the current target.
type Candidate struct {
	ID       uint64
	Distance float32
}

// closer orders candidates by distance, breaking ties by id.
func closer(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// priorityQueue is a binary heap of candidates. A max heap keeps the farthest
// candidate on top, a min heap the nearest.
type priorityQueue struct {
	isMaxHeap bool
	items     []Candidate
}

func newPriorityQueue(isMaxHeap bool) *priorityQueue {
	return &priorityQueue{
		isMaxHeap: isMaxHeap,
		items:     make([]Candidate, 0, 16),
	}
}

func (pq *priorityQueue) Reset() {
	pq.items = pq.items[:0]
}

func (pq *priorityQueue) Len() int {
	return len(pq.items)
}

func (pq *priorityQueue) Top() (Candidate, bool) {
	if len(pq.items) == 0 {
		return Candidate{}, false
	}
	return pq.items[0], true
}

func (pq *priorityQueue) Push(c Candidate) {
	pq.items = append(pq.items, c)
	pq.siftUp(len(pq.items) - 1)
}

// PushBounded inserts c into a max heap holding at most capacity items,
// evicting the farthest one when c is closer.
func (pq *priorityQueue) PushBounded(c Candidate, capacity int) {
	if len(pq.items) < capacity {
		pq.Push(c)
		return
	}
	if closer(c, pq.items[0]) {
		pq.items[0] = c
		pq.siftDown(0)
	}
}

func (pq *priorityQueue) Pop() (Candidate, bool) {
	n := len(pq.items)
	if n == 0 {
		return Candidate{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]
	if len(pq.items) > 0 {
		pq.siftDown(0)
	}
	return item, true
}

// Drain empties a max heap and returns its items nearest first.
func (pq *priorityQueue) Drain() []Candidate {
	out := make([]Candidate, pq.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = pq.Pop()
	}
	return out
}

func (pq *priorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return closer(pq.items[j], pq.items[i])
	}
	return closer(pq.items[i], pq.items[j])
}

func (pq *priorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			break
		}
		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

func (pq *priorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && pq.less(right, left) {
			child = right
		}
		if !pq.less(child, i) {
			break
		}
		pq.items[i], pq.items[child] = pq.items[child], pq.items[i]
		i = child
	}
}
