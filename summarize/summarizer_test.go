/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package summarize_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"chainguard.dev/prdigest/chunker"
	"chainguard.dev/prdigest/llm"
	"chainguard.dev/prdigest/llm/retry"
	"chainguard.dev/prdigest/summarize"
	"chainguard.dev/prdigest/tokenizer"
)

// fakeClient scripts completion responses and records every request.
type fakeClient struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(call int, req llm.Request) (*llm.Completion, error)
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()
	return f.respond(n, req)
}

func (f *fakeClient) Model() string { return "fake-model" }

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeClient) recorded() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// isMergeRequest distinguishes the final synthesis call from per-chunk calls
// by its prompt wording.
func isMergeRequest(req llm.Request) bool {
	return strings.Contains(req.Prompt, "partial analyses")
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 1,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Millisecond,
	}
}

func shortCompletion(text string) (*llm.Completion, error) {
	return &llm.Completion{Text: text, InputTokens: 10, OutputTokens: 5}, nil
}

// document builds a test document of n short paragraphs.
func document(n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "Paragraph %d describes a merged pull request, its author, and what changed in the service.\n\n", i)
	}
	return sb.String()
}

func TestDocument_Empty(t *testing.T) {
	t.Parallel()
	client := &fakeClient{respond: func(int, llm.Request) (*llm.Completion, error) {
		return shortCompletion("unexpected")
	}}
	s, err := summarize.New(client, tokenizer.New(""), summarize.Config{Retry: fastRetry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := s.Document(context.Background(), "")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if result.Summary != "" || result.ChunkCount != 0 || result.Rounds != 0 {
		t.Fatalf("empty document produced %+v", result)
	}
	if got := client.calls(); got != 0 {
		t.Fatalf("empty document made %d API calls, want 0", got)
	}
}

func TestDocument_SingleChunk(t *testing.T) {
	t.Parallel()
	client := &fakeClient{respond: func(int, llm.Request) (*llm.Completion, error) {
		return shortCompletion("the whole summary")
	}}
	s, err := summarize.New(client, tokenizer.New(""), summarize.Config{
		MaxChunkTokens: 100000,
		Retry:          fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := s.Document(context.Background(), document(3))
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got := client.calls(); got != 1 {
		t.Fatalf("single-chunk document made %d calls, want 1", got)
	}
	if result.Summary != "the whole summary" {
		t.Fatalf("Summary = %q", result.Summary)
	}
	if result.ChunkCount != 1 || result.Rounds != 0 {
		t.Fatalf("ChunkCount = %d, Rounds = %d, want 1 and 0", result.ChunkCount, result.Rounds)
	}
	if result.InputTokens != 10 || result.OutputTokens != 5 {
		t.Fatalf("token totals = %d/%d, want 10/5", result.InputTokens, result.OutputTokens)
	}
}

func TestDocument_MapThenMerge(t *testing.T) {
	t.Parallel()
	est := tokenizer.New("")
	doc := document(60)
	budget := est.Count(doc)/3 + 1
	wantChunks := len(chunker.Split(est, doc, budget))
	if wantChunks < 2 {
		t.Fatalf("test document split into %d chunks, need at least 2", wantChunks)
	}

	client := &fakeClient{respond: func(_ int, req llm.Request) (*llm.Completion, error) {
		if isMergeRequest(req) {
			return shortCompletion("the executive summary")
		}
		return shortCompletion("a chunk summary")
	}}
	s, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens: budget,
		Retry:          fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := s.Document(context.Background(), doc)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	// One call per chunk plus the merge.
	if got := client.calls(); got != wantChunks+1 {
		t.Fatalf("made %d calls, want %d", got, wantChunks+1)
	}
	if result.Summary != "the executive summary" {
		t.Fatalf("Summary = %q", result.Summary)
	}
	if result.ChunkCount != wantChunks {
		t.Fatalf("ChunkCount = %d, want %d", result.ChunkCount, wantChunks)
	}
	if result.Rounds != 1 {
		t.Fatalf("Rounds = %d, want 1", result.Rounds)
	}
	wantIn := int64(10 * (wantChunks + 1))
	wantOut := int64(5 * (wantChunks + 1))
	if result.InputTokens != wantIn || result.OutputTokens != wantOut {
		t.Fatalf("token totals = %d/%d, want %d/%d", result.InputTokens, result.OutputTokens, wantIn, wantOut)
	}

	// Exactly one request was the merge, and it came last.
	reqs := client.recorded()
	for i, req := range reqs {
		if isMergeRequest(req) != (i == len(reqs)-1) {
			t.Fatalf("request %d of %d: unexpected merge classification", i, len(reqs))
		}
	}
}

func TestDocument_FailFast(t *testing.T) {
	t.Parallel()
	est := tokenizer.New("")
	doc := document(60)
	budget := est.Count(doc)/3 + 1
	if len(chunker.Split(est, doc, budget)) < 2 {
		t.Fatal("test document did not split")
	}

	fatalErr := &llm.APIError{Provider: "fake", StatusCode: 401, Transient: false, Err: errors.New("bad key")}
	client := &fakeClient{respond: func(call int, _ llm.Request) (*llm.Completion, error) {
		if call == 2 {
			return nil, fatalErr
		}
		return shortCompletion("ok")
	}}
	s, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens: budget,
		Retry:          fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Document(context.Background(), doc)
	if err == nil {
		t.Fatal("expected failure")
	}
	var chunkErr *summarize.ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("expected ChunkError, got %T: %v", err, err)
	}
	if chunkErr.Index != 1 {
		t.Fatalf("ChunkError.Index = %d, want 1", chunkErr.Index)
	}
	if !errors.Is(err, fatalErr) {
		t.Fatalf("ChunkError does not wrap the cause: %v", err)
	}
	// Sequential dispatch stops at the failed chunk.
	if got := client.calls(); got != 2 {
		t.Fatalf("made %d calls after failure, want 2", got)
	}
}

func TestDocument_BestEffort(t *testing.T) {
	t.Parallel()
	est := tokenizer.New("")
	doc := document(60)
	budget := est.Count(doc)/3 + 1
	wantChunks := len(chunker.Split(est, doc, budget))
	if wantChunks < 2 {
		t.Fatal("test document did not split")
	}

	var mergePrompt string
	var mu sync.Mutex
	client := &fakeClient{}
	client.respond = func(call int, req llm.Request) (*llm.Completion, error) {
		if isMergeRequest(req) {
			mu.Lock()
			mergePrompt = req.Prompt
			mu.Unlock()
			return shortCompletion("best effort summary")
		}
		if call == 2 {
			return nil, &llm.APIError{Provider: "fake", StatusCode: 400, Transient: false, Err: errors.New("boom")}
		}
		return shortCompletion("a chunk summary")
	}
	s, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens: budget,
		BestEffort:     true,
		Retry:          fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := s.Document(context.Background(), doc)
	if err != nil {
		t.Fatalf("best-effort run failed: %v", err)
	}
	if result.Summary != "best effort summary" {
		t.Fatalf("Summary = %q", result.Summary)
	}
	// The failed section shows up as a placeholder in the merge input.
	if !strings.Contains(mergePrompt, "unavailable") {
		t.Fatal("merge prompt does not contain the placeholder for the failed chunk")
	}
	if got := client.calls(); got != wantChunks+1 {
		t.Fatalf("made %d calls, want %d", got, wantChunks+1)
	}
}

func TestDocument_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	transient := &llm.APIError{Provider: "fake", StatusCode: 429, Transient: true, Err: errors.New("rate limit")}
	client := &fakeClient{respond: func(call int, _ llm.Request) (*llm.Completion, error) {
		if call <= 2 {
			return nil, transient
		}
		return shortCompletion("recovered summary")
	}}
	s, err := summarize.New(client, tokenizer.New(""), summarize.Config{
		MaxChunkTokens: 100000,
		Retry: retry.Config{
			MaxAttempts: 4,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := s.Document(context.Background(), document(3))
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if result.Summary != "recovered summary" {
		t.Fatalf("Summary = %q", result.Summary)
	}
	// Two transient failures plus the success.
	if got := client.calls(); got != 3 {
		t.Fatalf("made %d calls, want 3", got)
	}
}

func TestDocument_ExhaustedRetriesReportChunk(t *testing.T) {
	t.Parallel()
	transient := &llm.APIError{Provider: "fake", StatusCode: 503, Transient: true, Err: errors.New("unavailable")}
	client := &fakeClient{respond: func(int, llm.Request) (*llm.Completion, error) {
		return nil, transient
	}}
	s, err := summarize.New(client, tokenizer.New(""), summarize.Config{
		MaxChunkTokens: 100000,
		Retry: retry.Config{
			MaxAttempts: 2,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Document(context.Background(), document(3))
	var chunkErr *summarize.ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("expected ChunkError, got %T: %v", err, err)
	}
	if !errors.Is(err, transient) {
		t.Fatalf("error does not wrap the transient cause: %v", err)
	}
	if got := client.calls(); got != 2 {
		t.Fatalf("made %d calls, want 2 (retry budget)", got)
	}
}

func TestDocument_Convergence(t *testing.T) {
	t.Parallel()
	est := tokenizer.New("")
	doc := document(60)
	budget := est.Count(doc)/3 + 1
	if len(chunker.Split(est, doc, budget)) < 2 {
		t.Fatal("test document did not split")
	}

	// Every response is itself far over the chunk budget, so joining can
	// never shrink below it.
	bloated := strings.Repeat("still way too much text ", 400)
	client := &fakeClient{respond: func(int, llm.Request) (*llm.Completion, error) {
		return shortCompletion(bloated)
	}}
	s, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens:  budget,
		MaxReduceRounds: 3,
		Retry:           fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Document(context.Background(), doc)
	var convErr *summarize.ConvergenceError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConvergenceError, got %T: %v", err, err)
	}
	if convErr.Rounds < 1 || convErr.Rounds > 3 {
		t.Fatalf("ConvergenceError.Rounds = %d, want within [1, 3]", convErr.Rounds)
	}
	if convErr.Tokens <= budget {
		t.Fatalf("ConvergenceError.Tokens = %d, want above the %d budget", convErr.Tokens, budget)
	}
}

func TestDocument_Cancellation(t *testing.T) {
	t.Parallel()
	est := tokenizer.New("")
	doc := document(60)
	budget := est.Count(doc)/3 + 1
	if len(chunker.Split(est, doc, budget)) < 2 {
		t.Fatal("test document did not split")
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{respond: func(call int, _ llm.Request) (*llm.Completion, error) {
		if call == 1 {
			cancel()
			return nil, ctx.Err()
		}
		return shortCompletion("should not happen")
	}}
	s, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens: budget,
		Retry:          fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Document(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// No further calls after cancellation, and no ChunkError wrapping.
	if got := client.calls(); got != 1 {
		t.Fatalf("made %d calls after cancellation, want 1", got)
	}
	var chunkErr *summarize.ChunkError
	if errors.As(err, &chunkErr) {
		t.Fatal("cancellation must not be wrapped in a ChunkError")
	}
}

var partPattern = regexp.MustCompile(`part (\d+) of`)

func TestDocument_ConcurrentMapPreservesOrder(t *testing.T) {
	t.Parallel()
	est := tokenizer.New("")
	doc := document(120)
	budget := est.Count(doc)/5 + 1
	wantChunks := len(chunker.Split(est, doc, budget))
	if wantChunks < 3 {
		t.Fatalf("test document split into %d chunks, need at least 3", wantChunks)
	}

	var mergePrompt string
	var mu sync.Mutex
	client := &fakeClient{}
	client.respond = func(_ int, req llm.Request) (*llm.Completion, error) {
		if isMergeRequest(req) {
			mu.Lock()
			mergePrompt = req.Prompt
			mu.Unlock()
			return shortCompletion("ordered summary")
		}
		m := partPattern.FindStringSubmatch(req.Prompt)
		if m == nil {
			return nil, fmt.Errorf("chunk prompt without part marker: %q", req.Prompt)
		}
		part, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, err
		}
		return shortCompletion(fmt.Sprintf("SECTION[%03d]", part))
	}
	s, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens: budget,
		Concurrency:    4,
		Retry:          fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := s.Document(context.Background(), doc); err != nil {
		t.Fatalf("Document: %v", err)
	}

	// Regardless of completion order, the merge input lists sections in
	// chunk order.
	var prev int
	for i := 1; i <= wantChunks; i++ {
		marker := fmt.Sprintf("SECTION[%03d]", i)
		pos := strings.Index(mergePrompt, marker)
		if pos == -1 {
			t.Fatalf("merge prompt missing %s", marker)
		}
		if pos < prev {
			t.Fatalf("section %d out of order in merge prompt", i)
		}
		prev = pos
	}
}
