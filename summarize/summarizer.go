/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package summarize implements chunked map-reduce summarization: a document
// is split into token-bounded chunks, each chunk is summarized independently,
// and the per-chunk summaries are recombined (re-chunking recursively if
// still too large) into one bounded-length executive summary.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/prdigest/chunker"
	"chainguard.dev/prdigest/llm"
	"chainguard.dev/prdigest/llm/retry"
	"chainguard.dev/prdigest/tokenizer"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// placeholderSummary substitutes a failed section in best-effort mode.
const placeholderSummary = "*Summary unavailable for this section.*"

const (
	defaultMaxChunkTokens  = 10000
	defaultMaxFinalWords   = 300
	defaultChunkOutTokens  = 1000
	defaultFinalOutTokens  = 1000
	defaultMaxReduceRounds = 5

	chunkTemperature = 0.3
	finalTemperature = 0.2
)

// Config tunes the summarization pipeline. The zero value gets sensible
// defaults from New.
type Config struct {
	// MaxChunkTokens is the token budget per chunk.
	MaxChunkTokens int
	// MaxFinalWords bounds the final executive summary length.
	MaxFinalWords int
	// ChunkOutputTokens caps per-chunk completion length.
	ChunkOutputTokens int64
	// FinalOutputTokens caps the final completion length.
	FinalOutputTokens int64
	// MaxReduceRounds bounds the recombination loop; exceeding it surfaces a
	// ConvergenceError.
	MaxReduceRounds int
	// Concurrency limits simultaneous chunk calls. 0 or 1 means sequential.
	Concurrency int
	// BestEffort substitutes a placeholder for chunks that fail instead of
	// aborting the pipeline. Off by default: a report silently missing a
	// section is worse than a clean failure.
	BestEffort bool
	// Retry is the backoff policy for each remote call.
	Retry retry.Config
}

// ChunkSummary is the result of summarizing one chunk.
type ChunkSummary struct {
	// Index is the source chunk's ordinal; recombination preserves it.
	Index int
	// Text is the generated summary.
	Text string
	// InputTokens and OutputTokens are the usage for this chunk's call.
	InputTokens  int64
	OutputTokens int64
}

// Result is the final synthesized summary with aggregate pipeline metadata.
type Result struct {
	// Summary is the executive summary text. Empty when the input was empty.
	Summary string
	// ChunkCount is how many chunks the document split into.
	ChunkCount int
	// Rounds is how many map rounds ran (1 for a document that reduced in a
	// single pass, 0 for a single-chunk document).
	Rounds int
	// InputTokens and OutputTokens aggregate usage across all remote calls.
	InputTokens  int64
	OutputTokens int64
}

// Summarizer drives the chunked map-reduce pipeline against a Client.
type Summarizer struct {
	client llm.Client
	est    *tokenizer.Estimator
	cfg    Config
}

// New creates a Summarizer. Zero fields in cfg are replaced with defaults.
func New(client llm.Client, est *tokenizer.Estimator, cfg Config) (*Summarizer, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if est == nil {
		return nil, errors.New("estimator cannot be nil")
	}
	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = defaultMaxChunkTokens
	}
	if cfg.MaxFinalWords <= 0 {
		cfg.MaxFinalWords = defaultMaxFinalWords
	}
	if cfg.ChunkOutputTokens <= 0 {
		cfg.ChunkOutputTokens = defaultChunkOutTokens
	}
	if cfg.FinalOutputTokens <= 0 {
		cfg.FinalOutputTokens = defaultFinalOutTokens
	}
	if cfg.MaxReduceRounds <= 0 {
		cfg.MaxReduceRounds = defaultMaxReduceRounds
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.DefaultConfig()
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Summarizer{client: client, est: est, cfg: cfg}, nil
}

// Document summarizes text through the full pipeline. An empty document
// short-circuits to an empty Result without any remote calls.
func (s *Summarizer) Document(ctx context.Context, text string) (*Result, error) {
	log := clog.FromContext(ctx)

	chunks := chunker.Split(s.est, text, s.cfg.MaxChunkTokens)
	if len(chunks) == 0 {
		return &Result{}, nil
	}

	result := &Result{ChunkCount: len(chunks)}

	// A document that fits one chunk needs no map phase: one direct call.
	if len(chunks) == 1 {
		prompt, err := buildDirectPrompt(chunks[0].Text, s.cfg.MaxFinalWords)
		if err != nil {
			return nil, err
		}
		completion, err := s.call(ctx, prompt, finalSystem, s.cfg.FinalOutputTokens, finalTemperature, 0)
		if err != nil {
			return nil, err
		}
		result.Summary = completion.Text
		result.InputTokens = completion.InputTokens
		result.OutputTokens = completion.OutputTokens
		return result, nil
	}

	log.With("chunks", len(chunks)).Info("Summarizing document in chunks")

	// Reduce is a bounded fixed-point loop: summarize every chunk, join in
	// order, and re-chunk the joined text until it fits one final call.
	joined := ""
	prevTokens := 0
	for round := 1; ; round++ {
		if round > s.cfg.MaxReduceRounds {
			return nil, &ConvergenceError{Rounds: round - 1, Tokens: prevTokens}
		}

		summaries, err := s.mapChunks(ctx, chunks, result)
		if err != nil {
			return nil, err
		}
		result.Rounds = round

		joined = joinSummaries(summaries)
		joinedTokens := s.est.Count(joined)

		if joinedTokens <= s.cfg.MaxChunkTokens {
			break
		}

		// Guarantee termination: every round must strictly shrink.
		if prevTokens > 0 && joinedTokens >= prevTokens {
			return nil, &ConvergenceError{Rounds: round, Tokens: joinedTokens}
		}
		prevTokens = joinedTokens

		log.With("round", round).
			With("tokens", joinedTokens).
			Info("Joined summaries still over budget, reducing again")
		chunks = chunker.Split(s.est, joined, s.cfg.MaxChunkTokens)
	}

	prompt, err := buildMergePrompt(joined, result.ChunkCount, s.cfg.MaxFinalWords)
	if err != nil {
		return nil, err
	}
	completion, err := s.call(ctx, prompt, finalSystem, s.cfg.FinalOutputTokens, finalTemperature, 0)
	if err != nil {
		return nil, err
	}
	result.Summary = completion.Text
	result.InputTokens += completion.InputTokens
	result.OutputTokens += completion.OutputTokens
	return result, nil
}

// mapChunks summarizes every chunk, sequentially or with bounded concurrency,
// and returns the summaries in original chunk order regardless of completion
// order.
func (s *Summarizer) mapChunks(ctx context.Context, chunks []chunker.Chunk, result *Result) ([]ChunkSummary, error) {
	summaries := make([]ChunkSummary, len(chunks))

	summarizeOne := func(ctx context.Context, chunk chunker.Chunk) error {
		prompt, err := buildChunkPrompt(chunk, len(chunks))
		if err != nil {
			return err
		}
		completion, err := s.call(ctx, prompt, chunkSystem, s.cfg.ChunkOutputTokens, chunkTemperature, chunk.Index)
		if err != nil {
			if s.cfg.BestEffort && !llm.IsCancelled(err) {
				clog.FromContext(ctx).With("chunk", chunk.Index).
					With("error", err.Error()).
					Warn("Chunk summarization failed, substituting placeholder")
				summaries[chunk.Index] = ChunkSummary{Index: chunk.Index, Text: placeholderSummary}
				return nil
			}
			return err
		}
		// One slot per chunk index, written exactly once; safe without a
		// lock even under concurrent dispatch.
		summaries[chunk.Index] = ChunkSummary{
			Index:        chunk.Index,
			Text:         completion.Text,
			InputTokens:  completion.InputTokens,
			OutputTokens: completion.OutputTokens,
		}
		return nil
	}

	if s.cfg.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Concurrency)
		for _, chunk := range chunks {
			g.Go(func() error {
				return summarizeOne(gctx, chunk)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, chunk := range chunks {
			// Stop issuing calls as soon as the caller cancels.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := summarizeOne(ctx, chunk); err != nil {
				return nil, err
			}
		}
	}

	for _, sum := range summaries {
		result.InputTokens += sum.InputTokens
		result.OutputTokens += sum.OutputTokens
	}
	return summaries, nil
}

// call issues one completion with retry. Failures are wrapped in a ChunkError
// carrying chunkIndex for diagnosis.
func (s *Summarizer) call(ctx context.Context, prompt, system string, maxTokens int64, temperature float64, chunkIndex int) (*llm.Completion, error) {
	completion, _, err := retry.Do(ctx, s.cfg.Retry, "summarize", llm.IsTransient, func() (*llm.Completion, error) {
		return s.client.Complete(ctx, llm.Request{
			System:      system,
			Prompt:      prompt,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	})
	if err != nil {
		if llm.IsCancelled(err) {
			return nil, err
		}
		return nil, &ChunkError{Index: chunkIndex, Err: err}
	}
	return completion, nil
}

// joinSummaries concatenates chunk summaries in chunk-index order.
func joinSummaries(summaries []ChunkSummary) string {
	parts := make([]string, len(summaries))
	for i, s := range summaries {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n\n")
}

func buildChunkPrompt(chunk chunker.Chunk, total int) (string, error) {
	p, err := chunkPrompt.BindInt("part", chunk.Index+1)
	if err != nil {
		return "", err
	}
	if p, err = p.BindInt("total", total); err != nil {
		return "", err
	}
	if p, err = p.BindString("content", chunk.Text); err != nil {
		return "", err
	}
	return p.Build()
}

func buildMergePrompt(content string, sections, wordLimit int) (string, error) {
	p, err := mergePrompt.BindInt("sections", sections)
	if err != nil {
		return "", err
	}
	if p, err = p.BindString("content", content); err != nil {
		return "", err
	}
	if p, err = p.BindInt("word_limit", wordLimit); err != nil {
		return "", err
	}
	return p.Build()
}

func buildDirectPrompt(content string, wordLimit int) (string, error) {
	p, err := directPrompt.BindString("content", content)
	if err != nil {
		return "", err
	}
	if p, err = p.BindInt("word_limit", wordLimit); err != nil {
		return "", err
	}
	return p.Build()
}
