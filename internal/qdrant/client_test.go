package qdrant

import (
	"strings"
	"testing"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	if cfg.Host != DefaultHost {
		t.Errorf("expected host %s, got %s", DefaultHost, cfg.Host)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}

	if cfg.Prefix != DefaultCollectionPrefix {
		t.Errorf("expected prefix %s, got %s", DefaultCollectionPrefix, cfg.Prefix)
	}

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
}

func TestDefaultCollectionConfig(t *testing.T) {
	cfg := DefaultCollectionConfig("scifact", 768)

	if cfg.Name != "scifact" {
		t.Errorf("expected name 'scifact', got %s", cfg.Name)
	}

	if cfg.VectorSize != 768 {
		t.Errorf("expected vector size 768, got %d", cfg.VectorSize)
	}

	if !cfg.OnDiskPayload {
		t.Error("expected OnDiskPayload to be true")
	}
}

func TestCollectionName(t *testing.T) {
	c := &Client{config: ClientConfig{Prefix: "rb_"}}

	tests := []struct {
		input    string
		expected string
	}{
		{"scifact", "rb_scifact"},
		{"nfcorpus", "rb_nfcorpus"},
		{"my-task", "rb_my-task"},
	}

	for _, tt := range tests {
		result := c.collectionName(tt.input)
		if result != tt.expected {
			t.Errorf("collectionName(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestPointID(t *testing.T) {
	id := PointID("doc1")

	// UUID layout: 8-4-4-4-12 hex digits.
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("expected 5 UUID segments, got %d in %q", len(parts), id)
	}
	lengths := []int{8, 4, 4, 4, 12}
	for i, p := range parts {
		if len(p) != lengths[i] {
			t.Errorf("segment %d: expected %d chars, got %d in %q", i, lengths[i], len(p), id)
		}
	}

	if !strings.HasPrefix(parts[2], "5") {
		t.Errorf("expected version nibble 5, got %q", parts[2])
	}
	if !strings.HasPrefix(parts[3], "8") {
		t.Errorf("expected variant nibble 8, got %q", parts[3])
	}

	// Same document ID must always map to the same point ID.
	if id != PointID("doc1") {
		t.Error("expected PointID to be deterministic")
	}

	if id == PointID("doc2") {
		t.Error("expected distinct IDs for distinct documents")
	}
}

func TestPointToQdrant(t *testing.T) {
	p := Point{
		DocID:  "doc42",
		Vector: []float32{0.1, 0.2, 0.3},
		Title:  "A title",
	}

	qp := pointToQdrant(p)

	if qp.Id == nil {
		t.Fatal("expected point ID to be set")
	}

	if got := getStringValue(qp.Payload, "doc_id"); got != "doc42" {
		t.Errorf("expected doc_id payload 'doc42', got %q", got)
	}

	if got := getStringValue(qp.Payload, "title"); got != "A title" {
		t.Errorf("expected title payload 'A title', got %q", got)
	}
}

func TestPointToQdrantNoTitle(t *testing.T) {
	qp := pointToQdrant(Point{DocID: "doc1", Vector: []float32{1}})

	if _, ok := qp.Payload["title"]; ok {
		t.Error("expected no title payload for untitled document")
	}
}
