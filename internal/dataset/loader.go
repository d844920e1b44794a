package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
)

// LoadCorpus reads a JSONL corpus file with one document per line
// ("_id", "title", "text" fields).
func LoadCorpus(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("failed to open corpus file", err)
	}
	defer f.Close()

	var docs []Document

	scanner := bufio.NewScanner(f)
	// Long documents exceed the default token limit.
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, errors.DatasetError(fmt.Sprintf("malformed corpus entry at line %d", line), err)
		}
		if doc.ID == "" {
			return nil, errors.DatasetError(fmt.Sprintf("corpus entry at line %d has no _id", line), nil)
		}

		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError("failed to read corpus file", err)
	}

	return docs, nil
}

// LoadQueries reads a JSONL queries file ("_id", "text" fields) into a
// query-ID to query-text map.
func LoadQueries(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("failed to open queries file", err)
	}
	defer f.Close()

	queries := make(map[string]string)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var q struct {
			ID   string `json:"_id"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, errors.DatasetError(fmt.Sprintf("malformed query at line %d", line), err)
		}
		if q.ID == "" {
			return nil, errors.DatasetError(fmt.Sprintf("query at line %d has no _id", line), nil)
		}

		queries[q.ID] = q.Text
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError("failed to read queries file", err)
	}

	return queries, nil
}

// LoadQrels reads a TSV qrels file (query-id, corpus-id, score columns).
// A header row naming the columns is skipped when present.
func LoadQrels(path string) (Qrels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("failed to open qrels file", err)
	}
	defer f.Close()

	qrels := make(Qrels)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		fields := strings.Split(raw, "\t")
		if len(fields) < 3 {
			return nil, errors.DatasetError(fmt.Sprintf("malformed qrels row at line %d", line), nil)
		}

		// Skip the conventional header row.
		if line == 1 && strings.EqualFold(fields[0], "query-id") {
			continue
		}

		score, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, errors.DatasetError(fmt.Sprintf("non-integer relevance at line %d", line), err)
		}

		qid, docID := fields[0], fields[1]
		if qrels[qid] == nil {
			qrels[qid] = make(map[string]int)
		}
		qrels[qid][docID] = score
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError("failed to read qrels file", err)
	}

	return qrels, nil
}

// LoadDir loads a dataset laid out as:
//
//	<dir>/corpus.jsonl
//	<dir>/queries.jsonl
//	<dir>/qrels/<split>.tsv
//
// Every qrels file under qrels/ becomes one split sharing the same corpus
// and query set. The dataset name is the directory base name.
func LoadDir(dir string) (*Dataset, error) {
	corpus, err := LoadCorpus(filepath.Join(dir, "corpus.jsonl"))
	if err != nil {
		return nil, err
	}

	queries, err := LoadQueries(filepath.Join(dir, "queries.jsonl"))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(dir, "qrels"))
	if err != nil {
		return nil, errors.DatasetError("failed to read qrels directory", err)
	}

	ds := &Dataset{
		Name:   filepath.Base(dir),
		Splits: make(map[string]*Split),
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tsv") {
			continue
		}

		qrels, err := LoadQrels(filepath.Join(dir, "qrels", entry.Name()))
		if err != nil {
			return nil, err
		}

		split := strings.TrimSuffix(entry.Name(), ".tsv")
		ds.Splits[split] = &Split{
			Corpus:  corpus,
			Queries: queries,
			Qrels:   qrels,
		}
	}

	if len(ds.Splits) == 0 {
		return nil, errors.DatasetError(fmt.Sprintf("no qrels splits found in %s", dir), nil)
	}

	return ds, nil
}

// LoadMultilingualDir loads a dataset with one LoadDir-style layout per
// language subdirectory.
func LoadMultilingualDir(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.DatasetError("failed to read dataset directory", err)
	}

	ds := &Dataset{
		Name:      filepath.Base(dir),
		Languages: make(map[string]map[string]*Split),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sub, err := LoadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		ds.Languages[entry.Name()] = sub.Splits
	}

	if len(ds.Languages) == 0 {
		return nil, errors.DatasetError(fmt.Sprintf("no language subdirectories found in %s", dir), nil)
	}

	return ds, nil
}
