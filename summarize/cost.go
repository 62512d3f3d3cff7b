/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package summarize

import (
	"chainguard.dev/prdigest/chunker"
	"github.com/shopspring/decimal"
)

// Pricing holds per-1K-token prices for a completion model.
type Pricing struct {
	// InputPer1K is the price per 1000 input tokens.
	InputPer1K decimal.Decimal
	// OutputPer1K is the price per 1000 output tokens.
	OutputPer1K decimal.Decimal
}

// GPT4oMiniPricing is the published gpt-4o-mini pricing.
var GPT4oMiniPricing = Pricing{
	InputPer1K:  decimal.NewFromFloat(0.00015),
	OutputPer1K: decimal.NewFromFloat(0.0006),
}

var thousand = decimal.NewFromInt(1000)

// CostFor prices a known token usage.
func (p Pricing) CostFor(inputTokens, outputTokens int64) decimal.Decimal {
	in := decimal.NewFromInt(inputTokens).Mul(p.InputPer1K).Div(thousand)
	out := decimal.NewFromInt(outputTokens).Mul(p.OutputPer1K).Div(thousand)
	return in.Add(out)
}

// CostEstimate is a pre-flight projection of what the map phase will cost.
type CostEstimate struct {
	// Chunks is how many map-phase calls the document needs.
	Chunks int
	// InputTokens and OutputTokens are the projected map-phase totals.
	InputTokens  int64
	OutputTokens int64
	// InputCost, OutputCost, and Total are the projected prices.
	InputCost  decimal.Decimal
	OutputCost decimal.Decimal
	Total      decimal.Decimal
}

// EstimateCost projects API cost for summarizing the given chunks before
// committing to the pipeline. Pure computation over chunk token counts and
// pricing: each chunk contributes its input tokens plus the expected output
// tokens. The CLI layer uses this to gate whether the pipeline runs at all,
// so the interface stays stable.
func EstimateCost(chunks []chunker.Chunk, pricing Pricing, expectedOutputPerChunk int64) CostEstimate {
	est := CostEstimate{
		Chunks:     len(chunks),
		InputCost:  decimal.Zero,
		OutputCost: decimal.Zero,
		Total:      decimal.Zero,
	}
	if len(chunks) == 0 {
		return est
	}

	for _, c := range chunks {
		est.InputTokens += int64(c.Tokens)
	}
	est.OutputTokens = expectedOutputPerChunk * int64(len(chunks))

	est.InputCost = decimal.NewFromInt(est.InputTokens).Mul(pricing.InputPer1K).Div(thousand)
	est.OutputCost = decimal.NewFromInt(est.OutputTokens).Mul(pricing.OutputPer1K).Div(thousand)
	est.Total = est.InputCost.Add(est.OutputCost)
	return est
}
