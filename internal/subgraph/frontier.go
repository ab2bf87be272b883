package subgraph

import "container/heap"

// candidate is a discovered entity waiting in the frontier.
type candidate struct {
	id           string
	score        float64
	depth        int
	branchTokens int
	// seq is the insertion sequence number. Equal scores pop in
	// insertion order, which keeps extraction deterministic for a fixed
	// backend iteration order.
	seq int
}

// frontier is a max-heap of candidates, highest score first.
type frontier struct {
	items []candidate
	next  int
}

func newFrontier() *frontier {
	return &frontier{}
}

func (f *frontier) push(c candidate) {
	c.seq = f.next
	f.next++
	heap.Push((*frontierHeap)(f), c)
}

func (f *frontier) pop() (candidate, bool) {
	if len(f.items) == 0 {
		return candidate{}, false
	}
	return heap.Pop((*frontierHeap)(f)).(candidate), true
}

type frontierHeap frontier

func (h *frontierHeap) Len() int { return len(h.items) }

func (h *frontierHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.score != b.score {
		return a.score > b.score
	}
	return a.seq < b.seq
}

func (h *frontierHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *frontierHeap) Push(x any) {
	h.items = append(h.items, x.(candidate))
}

func (h *frontierHeap) Pop() any {
	old := h.items
	n := len(old)
	c := old[n-1]
	h.items = old[:n-1]
	return c
}
