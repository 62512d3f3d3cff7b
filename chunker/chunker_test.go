/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package chunker_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"chainguard.dev/prdigest/chunker"
)

// charEstimator counts one token per four characters, minimum one for
// non-empty text. Deterministic and encoding-free for tests.
type charEstimator struct{}

func (charEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// document builds a test document of n short paragraphs.
func document(n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "Paragraph %d talks about a merged pull request and what it changed.\n\n", i)
	}
	return sb.String()
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()
	if got := chunker.Split(charEstimator{}, "", 100); got != nil {
		t.Fatalf("Split of empty document = %v, want nil", got)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	t.Parallel()
	text := "A short document.\n\nTwo paragraphs."
	chunks := chunker.Split(charEstimator{}, text, 1000)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Fatalf("chunk text = %q, want the whole document", chunks[0].Text)
	}
	if chunks[0].Index != 0 {
		t.Fatalf("chunk index = %d, want 0", chunks[0].Index)
	}
	if chunks[0].Oversized {
		t.Fatal("single in-budget chunk flagged oversized")
	}
}

func TestSplitJoin_RoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
	}{
		{name: "paragraphs", text: document(50)},
		{name: "no trailing newline", text: strings.TrimRight(document(50), "\n")},
		{name: "single long line", text: strings.Repeat("word ", 5000)},
		{name: "mixed separators", text: "a\nb\n\nc\n\n\nd\n"},
		{name: "unicode", text: strings.Repeat("héllo wörld — ünïcode tëxt.\n\n", 200)},
		{name: "windows-ish blob", text: strings.Repeat("x", 10000)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			for _, budget := range []int{1, 10, 100, 100000} {
				chunks := chunker.Split(charEstimator{}, tc.text, budget)
				if got := chunker.Join(chunks); got != tc.text {
					t.Fatalf("budget %d: Join(Split(text)) != text (got %d bytes, want %d)",
						budget, len(got), len(tc.text))
				}
			}
		})
	}
}

func TestSplit_RespectsBudget(t *testing.T) {
	t.Parallel()
	est := charEstimator{}
	const budget = 50

	chunks := chunker.Split(est, document(100), budget)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.Oversized {
			continue
		}
		if got := est.Count(c.Text); got > budget {
			t.Fatalf("chunk %d has %d tokens, budget is %d", c.Index, got, budget)
		}
	}
}

func TestSplit_IndicesAreOrdinal(t *testing.T) {
	t.Parallel()
	chunks := chunker.Split(charEstimator{}, document(100), 50)
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk at position %d has Index %d", i, c.Index)
		}
	}
}

func TestSplit_OversizedUnit(t *testing.T) {
	t.Parallel()
	// One indivisible line far over a tiny budget, with normal text around it.
	long := strings.Repeat("x", 400)
	text := "before\n\n" + long + "\n\nafter\n\n"

	chunks := chunker.Split(charEstimator{}, text, 10)

	var oversized int
	for _, c := range chunks {
		if c.Oversized {
			oversized++
			if !strings.Contains(c.Text, "xxxx") {
				t.Fatalf("oversized flag on the wrong chunk: %q", c.Text)
			}
		}
	}
	if oversized == 0 {
		t.Fatal("expected an oversized chunk for the indivisible long line")
	}
	if got := chunker.Join(chunks); got != text {
		t.Fatal("round trip broken by oversized handling")
	}
}

func TestSplitJoin_InvalidUTF8(t *testing.T) {
	t.Parallel()
	// A long line with undecodable bytes in the middle still round-trips
	// byte-for-byte through the window fallback, with no replacement runes.
	text := strings.Repeat("x", 9000) + "\xff\xfe" + strings.Repeat("y", 9000)

	for _, budget := range []int{10, 100, 1000} {
		chunks := chunker.Split(charEstimator{}, text, budget)
		got := chunker.Join(chunks)
		if got != text {
			t.Fatalf("budget %d: round trip lost data: len(got)=%d len(want)=%d",
				budget, len(got), len(text))
		}
		// strings.ContainsRune(got, utf8.RuneError) would match any invalid
		// byte sequence, including the input's own \xff\xfe; search for the
		// literal replacement character instead.
		if strings.Contains(got, string(utf8.RuneError)) {
			t.Fatalf("budget %d: invalid bytes were replaced with U+FFFD", budget)
		}
	}
}

func TestSplit_HugeLineFallsBackToWindows(t *testing.T) {
	t.Parallel()
	// A single line too large for any paragraph or line split. Rune windows
	// keep each chunk bounded and the round trip exact.
	text := strings.Repeat("y", 50000)
	chunks := chunker.Split(charEstimator{}, text, 1000)
	if len(chunks) < 2 {
		t.Fatalf("expected the huge line to split into windows, got %d chunks", len(chunks))
	}
	if got := chunker.Join(chunks); got != text {
		t.Fatal("round trip broken for windowed line")
	}
}

func TestJoin_Empty(t *testing.T) {
	t.Parallel()
	if got := chunker.Join(nil); got != "" {
		t.Fatalf("Join(nil) = %q, want empty", got)
	}
}
