package encoder

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
)

// fakeModel records the texts it was asked to encode and returns fixed-size
// vectors derived from text length.
type fakeModel struct {
	calls [][]string
}

func (m *fakeModel) Encode(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 2}
	}
	return out, nil
}

// dualEncoder implements Encoder directly.
type dualEncoder struct{}

func (dualEncoder) EncodeQueries(_ context.Context, queries []string) ([][]float32, error) {
	return make([][]float32, len(queries)), nil
}

func (dualEncoder) EncodeCorpus(_ context.Context, docs []dataset.Document) ([][]float32, error) {
	return make([][]float32, len(docs)), nil
}

func TestResolve_PassThrough(t *testing.T) {
	model := dualEncoder{}

	enc, err := Resolve(model)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, ok := enc.(dualEncoder); !ok {
		t.Errorf("dual-method model should pass through unchanged, got %T", enc)
	}
}

func TestResolve_Wraps(t *testing.T) {
	enc, err := Resolve(&fakeModel{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, ok := enc.(*Adapter); !ok {
		t.Errorf("generic model should be wrapped in Adapter, got %T", enc)
	}
}

func TestResolve_Incompatible(t *testing.T) {
	if _, err := Resolve(struct{}{}); err == nil {
		t.Error("expected error for incompatible model")
	}
}

func TestAdapter_CorpusText(t *testing.T) {
	tests := []struct {
		name string
		doc  dataset.Document
		sep  string
		want string
	}{
		{
			name: "title and text",
			doc:  dataset.Document{Title: "Go", Text: "A language."},
			sep:  " ",
			want: "Go A language.",
		},
		{
			name: "no title",
			doc:  dataset.Document{Text: "  body only  "},
			sep:  " ",
			want: "body only",
		},
		{
			name: "custom sep",
			doc:  dataset.Document{Title: "Go", Text: "A language."},
			sep:  " | ",
			want: "Go | A language.",
		},
		{
			name: "trims result",
			doc:  dataset.Document{Title: "", Text: "x "},
			sep:  " ",
			want: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(&fakeModel{}, WithSep(tt.sep))
			if got := a.corpusText(tt.doc); got != tt.want {
				t.Errorf("corpusText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdapter_EncodeCorpus(t *testing.T) {
	model := &fakeModel{}
	a := NewAdapter(model)

	docs := []dataset.Document{
		{ID: "d1", Title: "Go", Text: "A language."},
		{ID: "d2", Text: "No title."},
	}

	vectors, err := a.EncodeCorpus(context.Background(), docs)
	if err != nil {
		t.Fatalf("EncodeCorpus() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}

	if len(model.calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.calls))
	}
	if model.calls[0][0] != "Go A language." {
		t.Errorf("corpus sentence = %q", model.calls[0][0])
	}

	for i, v := range vectors {
		if !isUnit(v) {
			t.Errorf("vectors[%d] is not unit length: %v", i, v)
		}
	}
}

func TestAdapter_Batching(t *testing.T) {
	model := &fakeModel{}
	a := NewAdapter(model, WithBatchSize(2))

	queries := []string{"a", "b", "c", "d", "e"}
	vectors, err := a.EncodeQueries(context.Background(), queries)
	if err != nil {
		t.Fatalf("EncodeQueries() error = %v", err)
	}

	if len(vectors) != 5 {
		t.Fatalf("len(vectors) = %d, want 5", len(vectors))
	}
	if len(model.calls) != 3 {
		t.Errorf("model called %d times, want 3 (batches of 2,2,1)", len(model.calls))
	}
}

func TestAdapter_QueryInstruction(t *testing.T) {
	model := &fakeModel{}
	a := NewAdapter(model, WithQueryInstruction(""))

	if _, err := a.EncodeQueries(context.Background(), []string{"what is go"}); err != nil {
		t.Fatalf("EncodeQueries() error = %v", err)
	}

	sent := model.calls[0][0]
	if !strings.HasPrefix(sent, "Instruct: "+DefaultQueryTask) {
		t.Errorf("query missing instruction prefix: %q", sent)
	}
	if !strings.HasSuffix(sent, "\nQuery: what is go") {
		t.Errorf("query missing query suffix: %q", sent)
	}

	// Corpus side is never prefixed.
	model.calls = nil
	if _, err := a.EncodeCorpus(context.Background(), []dataset.Document{{ID: "d", Text: "doc"}}); err != nil {
		t.Fatalf("EncodeCorpus() error = %v", err)
	}
	if strings.Contains(model.calls[0][0], "Instruct:") {
		t.Errorf("corpus sentence should not carry the instruction: %q", model.calls[0][0])
	}
}

func TestL2Normalize(t *testing.T) {
	v := L2Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("L2Normalize([3 4]) = %v", v)
	}

	zero := L2Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should pass through, got %v", zero)
	}
}

func isUnit(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Abs(math.Sqrt(sum)-1) < 1e-5
}
