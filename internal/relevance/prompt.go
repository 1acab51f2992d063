package relevance

import (
	"fmt"
	"strings"
)

const scoringInstructions = `Evaluate each result's relevance on a scale of 0-10 (10 = highly relevant, 0 = irrelevant).
Filter out results with score below 5.`

const scoringFormat = `Return ONLY a JSON array of objects with "index" (1-based), "score" (0-10), and "reason" (brief 3-5 word explanation) for relevant results.
Example: [{"index":1,"score":9,"reason":"Specializes in this item"},{"index":3,"score":7,"reason":"Nearby and highly rated"}]`

// buildScoringPrompt lists candidates as "i. label - detail", 1-based.
// The intent and the list come before the fixed instructions so the
// response cache key covers them.
func buildScoringPrompt[T Scorable[T]](intent string, kind Kind, cands []T) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User is looking for %q to %s.\nResults:\n", intent, kind)
	for i, c := range cands {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, c.Label(), c.Detail())
	}
	sb.WriteString("\n")
	sb.WriteString(scoringInstructions)
	sb.WriteString("\n")
	sb.WriteString(scoringFormat)
	return sb.String()
}

func buildRankingPrompt[T Scorable[T]](query string, cands []T) string {
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Label()
	}
	return fmt.Sprintf(`User is searching for: %q
Available items: %s

Rank these items by relevance to the search query. Return a JSON array of item names in order of relevance (most relevant first).
Only return the JSON array, nothing else.`, query, strings.Join(names, ", "))
}
