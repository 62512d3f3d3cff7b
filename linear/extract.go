/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package linear

import (
	"regexp"
)

// identifierPattern matches Linear issue identifiers as they appear in PR
// titles and bodies: TEAM-123, [TEAM-123], TEAM-123:, "Linear: TEAM-123",
// "Issue: TEAM-123". The surrounding punctuation variants all reduce to the
// bare identifier.
var identifierPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-[0-9]+)\b`)

// ExtractIdentifiers returns the unique Linear issue identifiers referenced
// in the given texts, in first-seen order.
func ExtractIdentifiers(texts ...string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, text := range texts {
		for _, match := range identifierPattern.FindAllStringSubmatch(text, -1) {
			id := match[1]
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
