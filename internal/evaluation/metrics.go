// Package evaluation computes ranking quality metrics for retrieval runs:
// nDCG, MAP, Recall, Precision and MRR at configurable cutoffs, averaged
// over the judged query set.
package evaluation

import (
	"math"
)

// Graded relevance enters nDCG directly; the remaining metrics treat any
// grade at or above RelevantThreshold as relevant.
const RelevantThreshold = 1

// DCGAt computes the discounted cumulative gain of a ranked grade list at
// cutoff k, using linear gain rel/log2(rank+1).
func DCGAt(grades []int, k int) float64 {
	if k > len(grades) {
		k = len(grades)
	}

	dcg := 0.0
	for i := 0; i < k; i++ {
		dcg += float64(grades[i]) / math.Log2(float64(i+2))
	}
	return dcg
}

// NDCGAt computes normalized DCG at cutoff k. The ideal ranking comes from
// the full judgment set for the query, not just the retrieved documents, so
// a run that misses relevant documents is penalized.
func NDCGAt(grades, ideal []int, k int) float64 {
	idcg := DCGAt(ideal, k)
	if idcg == 0 {
		return 0
	}
	return DCGAt(grades, k) / idcg
}

// RecallAt computes recall at cutoff k against totalRelevant, the number of
// relevant documents in the judgment set.
func RecallAt(grades []int, k, totalRelevant int) float64 {
	if totalRelevant == 0 {
		return 0
	}
	if k > len(grades) {
		k = len(grades)
	}

	found := 0
	for i := 0; i < k; i++ {
		if grades[i] >= RelevantThreshold {
			found++
		}
	}
	return float64(found) / float64(totalRelevant)
}

// PrecisionAt computes precision at cutoff k. Rankings shorter than k are
// treated as padded with non-relevant documents.
func PrecisionAt(grades []int, k int) float64 {
	if k == 0 {
		return 0
	}

	n := k
	if n > len(grades) {
		n = len(grades)
	}

	found := 0
	for i := 0; i < n; i++ {
		if grades[i] >= RelevantThreshold {
			found++
		}
	}
	return float64(found) / float64(k)
}

// MRRAt returns the reciprocal rank of the first relevant document within
// the top k, or 0 when none appears.
func MRRAt(grades []int, k int) float64 {
	if k > len(grades) {
		k = len(grades)
	}

	for i := 0; i < k; i++ {
		if grades[i] >= RelevantThreshold {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecisionAt computes average precision at cutoff k, dividing by
// totalRelevant so unretrieved relevant documents count against the score.
func AveragePrecisionAt(grades []int, k, totalRelevant int) float64 {
	if totalRelevant == 0 {
		return 0
	}
	if k > len(grades) {
		k = len(grades)
	}

	found := 0
	sum := 0.0
	for i := 0; i < k; i++ {
		if grades[i] >= RelevantThreshold {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(totalRelevant)
}
