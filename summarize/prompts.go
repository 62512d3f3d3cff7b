/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package summarize

import (
	"chainguard.dev/prdigest/promptbuilder"
)

// chunkSystem instructs the model for per-chunk summarization.
const chunkSystem = "You are an expert technical writer. Create concise, well-structured summaries using markdown. " +
	"Focus on categorizing changes into new features, bug fixes, and improvements. Be specific and actionable."

// finalSystem instructs the model for the executive synthesis call.
const finalSystem = "You are a technical writer creating brief, engaging updates about software development progress. " +
	"Write in a conversational, article-style format with technical precision that's easy to read quickly. " +
	"Focus on business impact, user benefits, and technical achievements. Keep summaries concise and include relevant links. " +
	"Use appropriate technical terminology and remain accessible to both technical and non-technical stakeholders."

// chunkPrompt summarizes one chunk of a larger document.
var chunkPrompt = promptbuilder.MustPrompt(`Analyze the following content (part {{part}} of {{total}}) and create a brief summary:

{{content}}

Write a short, engaging summary that reads like a brief update. Focus on:

1. **What was accomplished** - Key changes, improvements, and technical enhancements
2. **Business impact** - How this affects users, operations, and system performance
3. **Notable highlights** - Most important points including technical achievements

Keep it:
- Simple and readable (like a newspaper article)
- Concise (under 100 words)
- Business-focused with technical precision

Use clear, professional language with appropriate technical terminology.
When issue-tracker data is available, use it for better context and include relevant issue links.`)

// mergePrompt synthesizes the per-chunk summaries into the final executive
// summary.
var mergePrompt = promptbuilder.MustPrompt(`Create a brief, engaging summary from {{sections}} partial analyses.

Raw content from all sections:
{{content}}

Write this as a short article or update, not a detailed report. Structure:

1. **Brief overview** (2-3 sentences) - What was accomplished overall
2. **Key highlights** (3-4 bullet points) - Most important changes

Requirements:
- Keep it under {{word_limit}} words total
- Write in a conversational, article-style format with technical precision
- Focus on business impact, user benefits, and technical achievements
- Include relevant issue links where helpful
- Make it easy to read quickly while being technically informative

Create a summary that reads like a brief newspaper article about the development progress.`)

// directPrompt summarizes a document that fits a single call.
var directPrompt = promptbuilder.MustPrompt(`Create a brief, engaging summary of the following content:

{{content}}

Write this as a short article or update, not a detailed report. Structure:

1. **Brief overview** (2-3 sentences) - What was accomplished overall
2. **Key highlights** (3-4 bullet points) - Most important changes

Requirements:
- Keep it under {{word_limit}} words total
- Write in a conversational, article-style format with technical precision
- Focus on business impact, user benefits, and technical achievements
- Include relevant issue links where helpful
- Make it easy to read quickly while being technically informative

Create a summary that reads like a brief newspaper article about the development progress.`)
