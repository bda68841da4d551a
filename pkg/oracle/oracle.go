// Package oracle defines the optional text-to-SQL drafting contract.
// The pipeline's correctness never depends on a draft being right: a
// drafted statement is validated by executing it.
package oracle

import "context"

// Draft is one drafting exchange. ThreadID ties follow-up prompts to an
// earlier conversation when the backend supports it.
type Draft struct {
	Text     string
	ThreadID string
}

// Drafter turns a natural-language prompt into a candidate SQL
// statement.
type Drafter interface {
	// DraftSQL sends the prompt, optionally continuing threadID.
	DraftSQL(ctx context.Context, prompt, threadID string) (Draft, error)
}
