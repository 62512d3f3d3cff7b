/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package tokenizer estimates how many model tokens a piece of text will
// consume. It prefers an exact tiktoken encoding and degrades to a
// conservative character-based heuristic when the encoding is unavailable,
// so estimation never fails.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is the encoding used by GPT-4o and most recent models.
const defaultEncoding = "cl100k_base"

// heuristicCharsPerToken is the fallback ratio when no encoding is loaded.
// Roughly one token per four characters for Latin text.
const heuristicCharsPerToken = 4

// Estimator counts model tokens in text. The zero value is not usable;
// construct one with New.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// New creates an Estimator for the given encoding name. An empty name selects
// cl100k_base. If the encoding cannot be loaded (for example, offline without
// a cached BPE dictionary), the Estimator falls back to a character heuristic
// rather than failing.
func New(encoding string) *Estimator {
	if encoding == "" {
		encoding = defaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		// Heuristic fallback keeps Count total.
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// Count returns the estimated token count for text. It is deterministic and
// monotonic: appending text never decreases the estimate.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	n := len(text) / heuristicCharsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
