package evaluation

import (
	"fmt"
	"sort"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/retrieval"
)

// DefaultKValues are the cutoffs reported when none are configured.
var DefaultKValues = []int{1, 3, 5, 10, 100, 1000}

// Report holds metric values per cutoff, macro-averaged over the judged
// query set.
type Report struct {
	NDCG      map[int]float64 `json:"ndcg"`
	MAP       map[int]float64 `json:"map"`
	Recall    map[int]float64 `json:"recall"`
	Precision map[int]float64 `json:"precision"`
	MRR       map[int]float64 `json:"mrr"`

	// QueryCount is the number of judged queries averaged over.
	QueryCount int `json:"query_count"`
}

// Scores is the flat metric table keyed as "<metric>_at_<k>".
type Scores map[string]float64

// Evaluate scores a retrieval run against relevance judgments. Every query
// in the judgment set contributes to the averages; queries the run returned
// nothing for count as zeros, and retrieved queries without judgments are
// ignored. When ignoreIdenticalIDs is set, retrieved documents whose ID
// equals the query ID are dropped before ranking, which keeps tasks that
// share ID spaces between queries and corpus from scoring trivial self-hits.
func Evaluate(qrels dataset.Qrels, results retrieval.Results, kValues []int, ignoreIdenticalIDs bool) *Report {
	if len(kValues) == 0 {
		kValues = DefaultKValues
	}

	report := &Report{
		NDCG:      make(map[int]float64, len(kValues)),
		MAP:       make(map[int]float64, len(kValues)),
		Recall:    make(map[int]float64, len(kValues)),
		Precision: make(map[int]float64, len(kValues)),
		MRR:       make(map[int]float64, len(kValues)),
	}

	qids := make([]string, 0, len(qrels))
	for qid := range qrels {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	for _, qid := range qids {
		judgments := qrels[qid]

		grades := rankedGrades(qid, judgments, results[qid], ignoreIdenticalIDs)
		ideal := idealGrades(judgments)
		totalRelevant := qrels.RelevantCount(qid)

		for _, k := range kValues {
			report.NDCG[k] += NDCGAt(grades, ideal, k)
			report.MAP[k] += AveragePrecisionAt(grades, k, totalRelevant)
			report.Recall[k] += RecallAt(grades, k, totalRelevant)
			report.Precision[k] += PrecisionAt(grades, k)
			report.MRR[k] += MRRAt(grades, k)
		}
	}

	report.QueryCount = len(qids)
	if report.QueryCount > 0 {
		n := float64(report.QueryCount)
		for _, k := range kValues {
			report.NDCG[k] /= n
			report.MAP[k] /= n
			report.Recall[k] /= n
			report.Precision[k] /= n
			report.MRR[k] /= n
		}
	}

	return report
}

// EvaluateCustom computes a single named metric at each cutoff. Currently
// only "mrr" goes beyond what Evaluate reports; it exists so callers can
// request one metric without paying for the full table.
func EvaluateCustom(qrels dataset.Qrels, results retrieval.Results, kValues []int, metric string, ignoreIdenticalIDs bool) (map[int]float64, error) {
	if len(kValues) == 0 {
		kValues = DefaultKValues
	}

	var fn func(grades, ideal []int, k, totalRelevant int) float64
	switch metric {
	case "mrr":
		fn = func(grades, _ []int, k, _ int) float64 { return MRRAt(grades, k) }
	case "ndcg":
		fn = func(grades, ideal []int, k, _ int) float64 { return NDCGAt(grades, ideal, k) }
	case "map":
		fn = func(grades, _ []int, k, r int) float64 { return AveragePrecisionAt(grades, k, r) }
	case "recall":
		fn = func(grades, _ []int, k, r int) float64 { return RecallAt(grades, k, r) }
	case "precision":
		fn = func(grades, _ []int, k, _ int) float64 { return PrecisionAt(grades, k) }
	default:
		return nil, errors.ValidationError("unknown metric: " + metric)
	}

	out := make(map[int]float64, len(kValues))
	count := 0
	for qid, judgments := range qrels {
		grades := rankedGrades(qid, judgments, results[qid], ignoreIdenticalIDs)
		ideal := idealGrades(judgments)
		totalRelevant := qrels.RelevantCount(qid)

		for _, k := range kValues {
			out[k] += fn(grades, ideal, k, totalRelevant)
		}
		count++
	}

	if count > 0 {
		for _, k := range kValues {
			out[k] /= float64(count)
		}
	}
	return out, nil
}

// Flatten renders the report as a flat metric table.
func (r *Report) Flatten() Scores {
	scores := make(Scores, 5*len(r.NDCG))
	for k, v := range r.NDCG {
		scores[fmt.Sprintf("ndcg_at_%d", k)] = v
	}
	for k, v := range r.MAP {
		scores[fmt.Sprintf("map_at_%d", k)] = v
	}
	for k, v := range r.Recall {
		scores[fmt.Sprintf("recall_at_%d", k)] = v
	}
	for k, v := range r.Precision {
		scores[fmt.Sprintf("precision_at_%d", k)] = v
	}
	for k, v := range r.MRR {
		scores[fmt.Sprintf("mrr_at_%d", k)] = v
	}
	return scores
}

// MainScore returns nDCG@10 when reported, falling back to the first
// available nDCG cutoff.
func (r *Report) MainScore() float64 {
	if v, ok := r.NDCG[10]; ok {
		return v
	}

	ks := make([]int, 0, len(r.NDCG))
	for k := range r.NDCG {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	if len(ks) == 0 {
		return 0
	}
	return r.NDCG[ks[0]]
}

// rankedGrades orders a query's retrieved documents by descending score and
// maps them to relevance grades. Unjudged documents grade as 0. Ties break
// on document ID so rankings are deterministic.
func rankedGrades(queryID string, judgments map[string]int, scored map[string]float64, ignoreIdenticalIDs bool) []int {
	type hit struct {
		docID string
		score float64
	}

	hits := make([]hit, 0, len(scored))
	for docID, score := range scored {
		if ignoreIdenticalIDs && docID == queryID {
			continue
		}
		hits = append(hits, hit{docID: docID, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].docID < hits[j].docID
	})

	grades := make([]int, len(hits))
	for i, h := range hits {
		grades[i] = judgments[h.docID]
	}
	return grades
}

// idealGrades returns the judgment grades in best-first order, the ranking
// a perfect run would produce.
func idealGrades(judgments map[string]int) []int {
	grades := make([]int, 0, len(judgments))
	for _, g := range judgments {
		grades = append(grades, g)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(grades)))
	return grades
}
