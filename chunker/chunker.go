/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package chunker partitions long documents into ordered, token-bounded
// chunks. Splits prefer paragraph boundaries, then line boundaries, and only
// fall back to fixed-size rune windows for pathologically long lines. The
// concatenation of all chunk texts always reproduces the input exactly.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Estimator is the token counting dependency. tokenizer.Estimator satisfies it.
type Estimator interface {
	Count(text string) int
}

// Chunk is one contiguous, token-bounded slice of a document.
type Chunk struct {
	// Index is the ordinal position of the chunk within the document.
	Index int
	// Text is the chunk content. Chunks concatenate to the original document.
	Text string
	// Tokens is the estimated token count of Text.
	Tokens int
	// Oversized marks a chunk whose single indivisible unit alone exceeded
	// the budget. It is kept whole rather than truncated.
	Oversized bool
}

// oversizedLineWindow is the rune window used to carve up a single line that
// alone exceeds the token budget. Windows this small always fit any sane
// budget, so the Oversized flag is only set when the budget is tiny.
const oversizedLineWindow = 2048

// Split partitions text into ordered chunks of at most maxTokens estimated
// tokens each. An empty document yields zero chunks. A single unit that alone
// exceeds the budget is emitted whole and flagged Oversized.
func Split(est Estimator, text string, maxTokens int) []Chunk {
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = 1
	}

	units := splitUnits(text, est, maxTokens)

	var chunks []Chunk
	var cur strings.Builder
	curTokens := 0

	flush := func(oversized bool) {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      cur.String(),
			Tokens:    curTokens,
			Oversized: oversized,
		})
		cur.Reset()
		curTokens = 0
	}

	for _, unit := range units {
		unitTokens := est.Count(unit)
		if unitTokens > maxTokens {
			// Indivisible unit over budget: flush and emit it whole.
			flush(false)
			cur.WriteString(unit)
			curTokens = unitTokens
			flush(true)
			continue
		}
		// Counting the accumulated text as one string rather than summing
		// per-unit counts keeps the estimate honest across unit boundaries.
		if cur.Len() > 0 && est.Count(cur.String()+unit) > maxTokens {
			flush(false)
		}
		cur.WriteString(unit)
		curTokens = est.Count(cur.String())
	}
	flush(false)

	return chunks
}

// Join reassembles chunk texts in order. Split followed by Join is the
// identity on the input document.
func Join(chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// splitUnits decomposes text into the indivisible units chunk accumulation
// works over: paragraphs where they fit the budget, otherwise their lines,
// otherwise fixed rune windows. Each unit retains its trailing separator so
// that concatenating units reproduces the input byte-for-byte.
func splitUnits(text string, est Estimator, maxTokens int) []string {
	var units []string
	for _, para := range splitAfter(text, "\n\n") {
		if est.Count(para) <= maxTokens {
			units = append(units, para)
			continue
		}
		for _, line := range splitAfter(para, "\n") {
			if est.Count(line) <= maxTokens {
				units = append(units, line)
				continue
			}
			units = append(units, windows(line, oversizedLineWindow)...)
		}
	}
	return units
}

// splitAfter splits s on sep, keeping the separator attached to the
// preceding piece. Unlike strings.SplitAfter it drops the trailing empty
// piece produced when s ends with sep.
func splitAfter(s, sep string) []string {
	parts := strings.SplitAfter(s, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// windows slices s into pieces of at most size runes each. Pieces are cut by
// byte offset on the original string, so invalid UTF-8 sequences pass through
// untouched (each undecodable byte counts as one rune) and concatenating the
// pieces reproduces s exactly.
func windows(s string, size int) []string {
	var out []string
	for len(s) > 0 {
		var i, runes int
		for i < len(s) && runes < size {
			_, w := utf8.DecodeRuneInString(s[i:])
			i += w
			runes++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}
