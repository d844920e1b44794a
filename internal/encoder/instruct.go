package encoder

import "fmt"

// DefaultQueryTask is the one-sentence task description used by instruct
// embedding models when none is configured.
const DefaultQueryTask = "Given a web search query, retrieve relevant passages that answer the query"

// WithQueryInstruction makes the adapter prefix every query with an
// instruction template before encoding. Instruct-tuned model families
// (llama-style embedders) expect this on the query side only; corpus
// sentences are encoded as-is.
func WithQueryInstruction(task string) AdapterOption {
	return func(a *Adapter) {
		if task == "" {
			task = DefaultQueryTask
		}
		a.queryInstruction = task
	}
}

// instructQuery renders the instruction template for one query.
func instructQuery(task, query string) string {
	return fmt.Sprintf("Instruct: %s\nQuery: %s", task, query)
}
