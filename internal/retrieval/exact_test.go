package retrieval

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
)

// fakeEncoder maps texts and document IDs to fixed vectors.
type fakeEncoder struct {
	queries map[string][]float32
	docs    map[string][]float32
}

func (f *fakeEncoder) EncodeQueries(_ context.Context, queries []string) ([][]float32, error) {
	out := make([][]float32, len(queries))
	for i, q := range queries {
		v, ok := f.queries[q]
		if !ok {
			return nil, fmt.Errorf("unexpected query %q", q)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEncoder) EncodeCorpus(_ context.Context, docs []dataset.Document) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, d := range docs {
		v, ok := f.docs[d.ID]
		if !ok {
			return nil, fmt.Errorf("unexpected document %q", d.ID)
		}
		out[i] = v
	}
	return out, nil
}

func testCorpus() []dataset.Document {
	return []dataset.Document{
		{ID: "d1", Text: "alpha"},
		{ID: "d2", Text: "beta"},
		{ID: "d3", Text: "gamma"},
		{ID: "d4", Text: "delta"},
	}
}

func testEncoder() *fakeEncoder {
	return &fakeEncoder{
		queries: map[string][]float32{
			"find alpha": {1, 0},
			"find delta": {0, 1},
		},
		docs: map[string][]float32{
			"d1": {1, 0},
			"d2": {0.9, 0.1},
			"d3": {0.5, 0.5},
			"d4": {0, 1},
		},
	}
}

func testQueries() map[string]string {
	return map[string]string{
		"q1": "find alpha",
		"q2": "find delta",
	}
}

func topRanked(scores map[string]float64) string {
	best := ""
	bestScore := math.Inf(-1)
	for id, s := range scores {
		if s > bestScore {
			best = id
			bestScore = s
		}
	}
	return best
}

func TestExactSearchRanking(t *testing.T) {
	s := NewExactSearch(testEncoder(), DefaultExactConfig(), nil)

	results, err := s.Search(context.Background(), testCorpus(), testQueries())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected results for 2 queries, got %d", len(results))
	}

	if got := topRanked(results["q1"]); got != "d1" {
		t.Errorf("q1: expected d1 ranked first, got %s", got)
	}
	if got := topRanked(results["q2"]); got != "d4" {
		t.Errorf("q2: expected d4 ranked first, got %s", got)
	}

	// Every document is scored when TopK exceeds the corpus size.
	if len(results["q1"]) != 4 {
		t.Errorf("expected 4 scored documents, got %d", len(results["q1"]))
	}
}

func TestExactSearchTopKBound(t *testing.T) {
	cfg := DefaultExactConfig()
	cfg.TopK = 2
	s := NewExactSearch(testEncoder(), cfg, nil)

	results, err := s.Search(context.Background(), testCorpus(), testQueries())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	for qid, scores := range results {
		if len(scores) != 2 {
			t.Errorf("%s: expected 2 results, got %d", qid, len(scores))
		}
	}

	// The two nearest documents survive the cut.
	if _, ok := results["q1"]["d1"]; !ok {
		t.Error("q1: expected d1 in top 2")
	}
	if _, ok := results["q1"]["d2"]; !ok {
		t.Error("q1: expected d2 in top 2")
	}
}

func TestExactSearchChunking(t *testing.T) {
	// A chunk size of 1 forces one encode call per document; results must
	// match a single-chunk scan.
	small := DefaultExactConfig()
	small.ChunkSize = 1

	chunked, err := NewExactSearch(testEncoder(), small, nil).Search(context.Background(), testCorpus(), testQueries())
	if err != nil {
		t.Fatalf("chunked search failed: %v", err)
	}

	whole, err := NewExactSearch(testEncoder(), DefaultExactConfig(), nil).Search(context.Background(), testCorpus(), testQueries())
	if err != nil {
		t.Fatalf("whole-corpus search failed: %v", err)
	}

	if !reflect.DeepEqual(chunked, whole) {
		t.Errorf("chunked results differ from whole-corpus results:\n%v\n%v", chunked, whole)
	}
}

func TestExactSearchDotProduct(t *testing.T) {
	cfg := DefaultExactConfig()
	cfg.ScoreFunction = ScoreDot

	enc := &fakeEncoder{
		queries: map[string][]float32{"find": {2, 0}},
		docs: map[string][]float32{
			"d1": {3, 0}, // dot 6
			"d2": {1, 0}, // dot 2
		},
	}
	corpus := []dataset.Document{{ID: "d1"}, {ID: "d2"}}

	results, err := NewExactSearch(enc, cfg, nil).Search(context.Background(), corpus, map[string]string{"q": "find"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if results["q"]["d1"] != 6 {
		t.Errorf("expected dot score 6 for d1, got %v", results["q"]["d1"])
	}
	if topRanked(results["q"]) != "d1" {
		t.Errorf("expected d1 ranked first under dot product")
	}
}

func TestExactSearchEmptyCorpus(t *testing.T) {
	s := NewExactSearch(testEncoder(), DefaultExactConfig(), nil)

	results, err := s.Search(context.Background(), nil, testQueries())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	for qid, scores := range results {
		if len(scores) != 0 {
			t.Errorf("%s: expected no results for empty corpus, got %d", qid, len(scores))
		}
	}
}

func TestExactSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultExactConfig()
	cfg.ChunkSize = 1
	s := NewExactSearch(testEncoder(), cfg, nil)

	if _, err := s.Search(ctx, testCorpus(), testQueries()); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestParallelExactSearchMatchesSequential(t *testing.T) {
	cfg := DefaultExactConfig()
	cfg.ChunkSize = 1

	sequential, err := NewExactSearch(testEncoder(), cfg, nil).Search(context.Background(), testCorpus(), testQueries())
	if err != nil {
		t.Fatalf("sequential search failed: %v", err)
	}

	for _, workers := range []int{1, 2, 8} {
		parallel, err := NewParallelExactSearch(testEncoder(), cfg, workers, nil).Search(context.Background(), testCorpus(), testQueries())
		if err != nil {
			t.Fatalf("parallel search with %d workers failed: %v", workers, err)
		}

		if !reflect.DeepEqual(parallel, sequential) {
			t.Errorf("workers=%d: parallel results differ from sequential:\n%v\n%v", workers, parallel, sequential)
		}
	}
}

func TestParallelExactSearchTopKBound(t *testing.T) {
	cfg := DefaultExactConfig()
	cfg.ChunkSize = 1
	cfg.TopK = 2

	results, err := NewParallelExactSearch(testEncoder(), cfg, 4, nil).Search(context.Background(), testCorpus(), testQueries())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	for qid, scores := range results {
		if len(scores) != 2 {
			t.Errorf("%s: expected 2 results after merge, got %d", qid, len(scores))
		}
	}

	if _, ok := results["q2"]["d4"]; !ok {
		t.Error("q2: expected d4 to survive the merge")
	}
}

func TestParallelExactSearchTiedScores(t *testing.T) {
	// Duplicate documents encode to identical vectors, so every candidate
	// ties at the top-K boundary. The retained set must still be the same
	// regardless of worker count and chunk assignment.
	enc := &fakeEncoder{
		queries: map[string][]float32{"anything": {1, 0}},
		docs:    map[string][]float32{},
	}
	var corpus []dataset.Document
	for i := 0; i < 16; i++ {
		id := fmt.Sprintf("d%02d", i)
		corpus = append(corpus, dataset.Document{ID: id, Text: "same"})
		enc.docs[id] = []float32{1, 0}
	}
	queries := map[string]string{"q1": "anything"}

	cfg := DefaultExactConfig()
	cfg.ChunkSize = 1
	cfg.TopK = 2

	sequential, err := NewExactSearch(enc, cfg, nil).Search(context.Background(), corpus, queries)
	if err != nil {
		t.Fatalf("sequential search failed: %v", err)
	}

	// Ties resolve to the lowest doc IDs, matching ranking order.
	want := map[string]float64{"d00": 1, "d01": 1}
	if !reflect.DeepEqual(sequential["q1"], want) {
		t.Fatalf("sequential kept %v, want %v", sequential["q1"], want)
	}

	for _, workers := range []int{1, 2, 4, 8} {
		parallel, err := NewParallelExactSearch(enc, cfg, workers, nil).Search(context.Background(), corpus, queries)
		if err != nil {
			t.Fatalf("parallel search with %d workers failed: %v", workers, err)
		}

		if !reflect.DeepEqual(parallel, sequential) {
			t.Errorf("workers=%d: tied-score results differ from sequential:\n%v\n%v", workers, parallel, sequential)
		}
	}
}

func TestTopKTieBreak(t *testing.T) {
	tk := newTopK(2)
	tk.add("b", 0.5)
	tk.add("c", 0.5)
	tk.add("a", 0.5)
	tk.add("d", 0.5)

	got := tk.results()
	want := map[string]float64{"a": 0.5, "b": 0.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTopK(t *testing.T) {
	tk := newTopK(2)
	tk.add("a", 0.1)
	tk.add("b", 0.9)
	tk.add("c", 0.5)
	tk.add("d", 0.05)

	got := tk.results()
	want := map[string]float64{"b": 0.9, "c": 0.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTopKMerge(t *testing.T) {
	a := newTopK(2)
	a.add("x", 0.3)
	a.add("y", 0.2)

	b := newTopK(2)
	b.add("z", 0.9)
	b.add("w", 0.1)

	a.merge(b)

	got := a.results()
	want := map[string]float64{"z": 0.9, "x": 0.3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestScoreFuncFor(t *testing.T) {
	a := []float32{2, 0}
	b := []float32{3, 0}

	if got := ScoreFuncFor(ScoreDot)(a, b); got != 6 {
		t.Errorf("expected dot product 6, got %v", got)
	}
	if got := ScoreFuncFor(ScoreCosine)(a, b); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected cosine 1, got %v", got)
	}
	// Unknown names fall back to cosine.
	if got := ScoreFuncFor("unknown")(a, b); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected cosine fallback, got %v", got)
	}
}
