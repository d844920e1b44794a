package retrieval

import "container/heap"

// scoredDoc is one candidate in a top-K accumulator.
type scoredDoc struct {
	docID string
	score float64
}

// minHeap orders candidates worst-first so the root is the eviction victim.
// Ties on score rank the larger doc ID as worse, mirroring the ranking
// order (score descending, doc ID ascending), so the retained set does not
// depend on arrival order.
type minHeap []scoredDoc

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].docID > h[j].docID
}
func (h minHeap) Swap(i, j int)  { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)    { *h = append(*h, x.(scoredDoc)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK keeps the K highest-scoring documents seen so far.
type topK struct {
	k    int
	heap minHeap
}

func newTopK(k int) *topK {
	return &topK{
		k:    k,
		heap: make(minHeap, 0, k),
	}
}

// add offers a candidate, evicting the current minimum when full.
func (t *topK) add(docID string, score float64) {
	if len(t.heap) < t.k {
		heap.Push(&t.heap, scoredDoc{docID: docID, score: score})
		return
	}
	root := t.heap[0]
	if score > root.score || (score == root.score && docID < root.docID) {
		t.heap[0] = scoredDoc{docID: docID, score: score}
		heap.Fix(&t.heap, 0)
	}
}

// merge absorbs all candidates from another accumulator.
func (t *topK) merge(other *topK) {
	for _, sd := range other.heap {
		t.add(sd.docID, sd.score)
	}
}

// results returns the accumulated candidates as a docID to score map.
func (t *topK) results() map[string]float64 {
	out := make(map[string]float64, len(t.heap))
	for _, sd := range t.heap {
		out[sd.docID] = sd.score
	}
	return out
}
