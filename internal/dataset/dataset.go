// Package dataset defines the benchmark data model: corpora of documents,
// query sets, and graded relevance judgments, grouped by split and
// optionally by language.
package dataset

import "sort"

// Document represents a single corpus document. Title is optional;
// documents are loosely typed beyond the presence of an ID and text.
type Document struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Qrels maps query IDs to document relevance judgments.
// Inner map: docID -> relevance grade (0 = not relevant, higher = more relevant).
type Qrels map[string]map[string]int

// Split bundles the corpus, queries, and judgments for one evaluation split.
type Split struct {
	Corpus  []Document
	Queries map[string]string
	Qrels   Qrels
}

// Dataset is a named collection of splits. Multilingual datasets carry one
// set of splits per language; monolingual datasets leave Languages nil.
type Dataset struct {
	Name      string
	Splits    map[string]*Split
	Languages map[string]map[string]*Split
}

// Multilingual reports whether the dataset carries per-language splits.
func (d *Dataset) Multilingual() bool {
	return len(d.Languages) > 0
}

// LanguageNames returns the sorted language codes of a multilingual dataset.
func (d *Dataset) LanguageNames() []string {
	names := make([]string, 0, len(d.Languages))
	for name := range d.Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Split returns the named split, or nil if absent. For multilingual
// datasets use LanguageSplit instead.
func (d *Dataset) Split(name string) *Split {
	return d.Splits[name]
}

// LanguageSplit returns the named split for a language, or nil if absent.
func (d *Dataset) LanguageSplit(lang, name string) *Split {
	if d.Languages == nil {
		return nil
	}
	return d.Languages[lang][name]
}

// RelevantCount returns the number of documents judged relevant (grade > 0)
// for a query.
func (q Qrels) RelevantCount(queryID string) int {
	count := 0
	for _, grade := range q[queryID] {
		if grade > 0 {
			count++
		}
	}
	return count
}
