/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package summarize

import (
	"fmt"
)

// ChunkError reports that one chunk could not be summarized after exhausting
// retries (or failing fatally). It carries the chunk index for diagnosis.
type ChunkError struct {
	// Index is the ordinal of the failed chunk within the document.
	Index int
	// Err is the underlying client error.
	Err error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("summarizing chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ConvergenceError reports that recombination failed to shrink the joined
// summaries within the allowed number of rounds.
type ConvergenceError struct {
	// Rounds is how many reduction rounds ran before giving up.
	Rounds int
	// Tokens is the joined-text token count at the final round.
	Tokens int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("summaries did not converge after %d rounds (%d tokens remaining)", e.Rounds, e.Tokens)
}
