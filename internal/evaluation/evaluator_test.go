package evaluation

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/retrieval"
)

func fixtureQrels() dataset.Qrels {
	return dataset.Qrels{
		"q1": {"d1": 2, "d2": 1, "d3": 0},
		"q2": {"d4": 1},
	}
}

func fixtureResults() retrieval.Results {
	return retrieval.Results{
		"q1": {"d1": 0.9, "d2": 0.8, "d5": 0.7},
		"q2": {"d5": 0.9, "d4": 0.5},
	}
}

func TestEvaluate(t *testing.T) {
	report := Evaluate(fixtureQrels(), fixtureResults(), []int{1, 3}, false)

	if report.QueryCount != 2 {
		t.Fatalf("expected 2 judged queries, got %d", report.QueryCount)
	}

	// Hand-computed over the fixture:
	// q1 ranks [d1,d2,d5] with grades [2,1,0], ideal [2,1,0], R=2.
	// q2 ranks [d5,d4] with grades [0,1], ideal [1], R=1.
	invLog3 := 1.0 / math.Log2(3)
	checks := []struct {
		name string
		got  map[int]float64
		k    int
		want float64
	}{
		{"ndcg", report.NDCG, 1, 0.5},
		{"ndcg", report.NDCG, 3, (1.0 + invLog3) / 2.0},
		{"map", report.MAP, 1, 0.25},
		{"map", report.MAP, 3, 0.75},
		{"recall", report.Recall, 1, 0.25},
		{"recall", report.Recall, 3, 1.0},
		{"precision", report.Precision, 1, 0.5},
		{"precision", report.Precision, 3, 0.5},
		{"mrr", report.MRR, 1, 0.5},
		{"mrr", report.MRR, 3, 0.75},
	}

	for _, c := range checks {
		if got := c.got[c.k]; !almostEqual(got, c.want) {
			t.Errorf("%s@%d = %v, want %v", c.name, c.k, got, c.want)
		}
	}
}

func TestEvaluateUnjudgedQueryIgnored(t *testing.T) {
	results := fixtureResults()
	results["q99"] = map[string]float64{"d1": 1.0}

	report := Evaluate(fixtureQrels(), results, []int{1}, false)

	if report.QueryCount != 2 {
		t.Errorf("expected unjudged query to be ignored, got %d queries", report.QueryCount)
	}
}

func TestEvaluateMissingQueryCountsAsZero(t *testing.T) {
	// q2 was judged but the run returned nothing for it.
	results := retrieval.Results{
		"q1": {"d1": 0.9, "d2": 0.8},
	}

	report := Evaluate(fixtureQrels(), results, []int{1}, false)

	if report.QueryCount != 2 {
		t.Fatalf("expected 2 judged queries, got %d", report.QueryCount)
	}

	// q1 alone scores ndcg@1 = 1; averaged with q2's zero it halves.
	if got := report.NDCG[1]; !almostEqual(got, 0.5) {
		t.Errorf("ndcg@1 = %v, want 0.5", got)
	}
}

func TestEvaluateIgnoreIdenticalIDs(t *testing.T) {
	qrels := dataset.Qrels{
		"q1": {"d1": 1},
	}
	// The top hit shares the query's ID, a trivial self-match.
	results := retrieval.Results{
		"q1": {"q1": 0.99, "d1": 0.5},
	}

	with := Evaluate(qrels, results, []int{1}, true)
	if got := with.NDCG[1]; !almostEqual(got, 1.0) {
		t.Errorf("ndcg@1 with self-hit dropped = %v, want 1", got)
	}

	without := Evaluate(qrels, results, []int{1}, false)
	if got := without.NDCG[1]; !almostEqual(got, 0.0) {
		t.Errorf("ndcg@1 with self-hit kept = %v, want 0", got)
	}
}

func TestEvaluateDefaultKValues(t *testing.T) {
	report := Evaluate(fixtureQrels(), fixtureResults(), nil, false)

	for _, k := range DefaultKValues {
		if _, ok := report.NDCG[k]; !ok {
			t.Errorf("expected ndcg@%d in report", k)
		}
	}
}

func TestEvaluateEmptyQrels(t *testing.T) {
	report := Evaluate(dataset.Qrels{}, fixtureResults(), []int{1}, false)

	if report.QueryCount != 0 {
		t.Errorf("expected 0 queries, got %d", report.QueryCount)
	}
	if got := report.NDCG[1]; got != 0 {
		t.Errorf("expected 0 ndcg for empty qrels, got %v", got)
	}
}

func TestEvaluateCustom(t *testing.T) {
	mrr, err := EvaluateCustom(fixtureQrels(), fixtureResults(), []int{1, 3}, "mrr", false)
	if err != nil {
		t.Fatalf("EvaluateCustom failed: %v", err)
	}

	// Matches the MRR values reported by Evaluate on the same fixture.
	if !almostEqual(mrr[1], 0.5) {
		t.Errorf("mrr@1 = %v, want 0.5", mrr[1])
	}
	if !almostEqual(mrr[3], 0.75) {
		t.Errorf("mrr@3 = %v, want 0.75", mrr[3])
	}

	if _, err := EvaluateCustom(fixtureQrels(), fixtureResults(), []int{1}, "bleu", false); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestFlatten(t *testing.T) {
	report := Evaluate(fixtureQrels(), fixtureResults(), []int{1, 10}, false)
	scores := report.Flatten()

	for _, key := range []string{
		"ndcg_at_1", "ndcg_at_10",
		"map_at_1", "map_at_10",
		"recall_at_1", "recall_at_10",
		"precision_at_1", "precision_at_10",
		"mrr_at_1", "mrr_at_10",
	} {
		if _, ok := scores[key]; !ok {
			t.Errorf("expected key %q in flat scores", key)
		}
	}

	if len(scores) != 10 {
		t.Errorf("expected 10 flat scores, got %d", len(scores))
	}

	if !almostEqual(scores["ndcg_at_1"], report.NDCG[1]) {
		t.Error("flat ndcg_at_1 does not match report value")
	}
}

func TestMainScore(t *testing.T) {
	report := Evaluate(fixtureQrels(), fixtureResults(), []int{1, 10}, false)
	if !almostEqual(report.MainScore(), report.NDCG[10]) {
		t.Error("expected main score to be ndcg@10")
	}

	// Without a 10 cutoff, the smallest cutoff is reported.
	report = Evaluate(fixtureQrels(), fixtureResults(), []int{3, 5}, false)
	if !almostEqual(report.MainScore(), report.NDCG[3]) {
		t.Error("expected main score to fall back to smallest cutoff")
	}
}

func TestSaveAndLoadRunFile(t *testing.T) {
	dir := t.TempDir()

	results := retrieval.Results{
		"q1": {"d1": 0.9, "d2": 0.8, "d3": 0.7},
	}

	path, err := SaveRunFile(dir, "scifact", "", results, 2)
	if err != nil {
		t.Fatalf("SaveRunFile failed: %v", err)
	}

	if filepath.Base(path) != "scifact_qrels.json" {
		t.Errorf("unexpected run file name %q", filepath.Base(path))
	}

	loaded, err := LoadRunFile(path)
	if err != nil {
		t.Fatalf("LoadRunFile failed: %v", err)
	}

	if len(loaded["q1"]) != 2 {
		t.Errorf("expected run trimmed to 2 documents, got %d", len(loaded["q1"]))
	}
	if _, ok := loaded["q1"]["d3"]; ok {
		t.Error("expected lowest-scoring document to be trimmed")
	}
	if loaded["q1"]["d1"] != 0.9 {
		t.Errorf("expected d1 score 0.9, got %v", loaded["q1"]["d1"])
	}
}

func TestSaveRunFileLanguageSuffix(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveRunFile(dir, "miracl", "de", retrieval.Results{}, 10)
	if err != nil {
		t.Fatalf("SaveRunFile failed: %v", err)
	}

	if !strings.HasSuffix(path, "miracl_de_qrels.json") {
		t.Errorf("expected language-suffixed file name, got %q", path)
	}
}

func TestLoadRunFileMissing(t *testing.T) {
	if _, err := LoadRunFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing run file")
	}
}
