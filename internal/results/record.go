// Package results keeps a registry of completed benchmark runs.
// Each run is persisted as a record so score tables survive restarts
// and can be listed and compared later.
package results

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ramunas-s/retrievalbench/internal/task"
)

// Record is one completed benchmark run.
type Record struct {
	task.Result

	// Engine is the retrieval engine the run used.
	Engine string `json:"engine"`

	// Model is the embedding model name.
	Model string `json:"model"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRecord wraps a run result with its engine and model metadata.
func NewRecord(res *task.Result, engine, model string) *Record {
	return &Record{
		Result:    *res,
		Engine:    engine,
		Model:     model,
		CreatedAt: time.Now(),
	}
}

// Run ID validation rules
var (
	// runIDRegex validates run identifiers: hex digits as produced by the
	// run ID hash. Keeps record file names shell- and path-safe.
	runIDRegex = regexp.MustCompile(`^[a-f0-9]+$`)

	// MaxRunIDLength is the maximum length of a run identifier.
	MaxRunIDLength = 64
)

// ValidateRunID validates a run identifier.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	if len(id) > MaxRunIDLength {
		return fmt.Errorf("run id cannot exceed %d characters", MaxRunIDLength)
	}

	if !runIDRegex.MatchString(id) {
		return fmt.Errorf("run id must be lowercase hex digits")
	}

	return nil
}

// Validate validates the record.
func (r *Record) Validate() error {
	if err := ValidateRunID(r.RunID); err != nil {
		return err
	}

	if r.Task == "" {
		return fmt.Errorf("task name cannot be empty")
	}

	return nil
}
