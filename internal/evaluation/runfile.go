package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/retrieval"
)

// SaveRunFile writes a retrieval run to disk as JSON mapping query IDs to
// their retrieved documents and scores, trimmed to the topK best per query.
// The file is named <task>_qrels.json, or <task>_<lang>_qrels.json when a
// language code is given. Returns the path written.
func SaveRunFile(outputDir, task, lang string, results retrieval.Results, topK int) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "failed to create output directory", err)
	}

	name := fmt.Sprintf("%s_qrels.json", task)
	if lang != "" {
		name = fmt.Sprintf("%s_%s_qrels.json", task, lang)
	}
	path := filepath.Join(outputDir, name)

	trimmed := make(retrieval.Results, len(results))
	for qid, scored := range results {
		trimmed[qid] = trimTopK(scored, topK)
	}

	data, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "failed to marshal run", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "failed to write run file", err)
	}

	return path, nil
}

// LoadRunFile reads a run file previously written by SaveRunFile, so a saved
// run can be re-scored without repeating retrieval.
func LoadRunFile(path string) (retrieval.Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "failed to read run file", err)
	}

	var results retrieval.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "failed to parse run file", err)
	}
	return results, nil
}

// trimTopK keeps the topK highest-scoring documents. Ties break on document
// ID to keep output deterministic.
func trimTopK(scored map[string]float64, topK int) map[string]float64 {
	if topK <= 0 || len(scored) <= topK {
		out := make(map[string]float64, len(scored))
		for id, s := range scored {
			out[id] = s
		}
		return out
	}

	type hit struct {
		docID string
		score float64
	}
	hits := make([]hit, 0, len(scored))
	for id, s := range scored {
		hits = append(hits, hit{docID: id, score: s})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].docID < hits[j].docID
	})

	out := make(map[string]float64, topK)
	for _, h := range hits[:topK] {
		out[h.docID] = h.score
	}
	return out
}
