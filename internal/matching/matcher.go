// Package matching ranks stored records against a free-text query by edit
// distance between the lower-cased query and each product name.
package matching

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/kalambet/ecoswap/internal/items"
)

// DefaultLimit is the number of candidates returned by a search.
const DefaultLimit = 5

// Distance is the case-insensitive Levenshtein distance between a and b.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// Rank scores every record against query and returns at most limit
// candidates, closest first. Ties keep store order. A limit <= 0 means
// DefaultLimit. An empty record set yields an empty, non-nil slice.
func Rank(query string, records []items.Record, limit int) []items.Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := strings.ToLower(query)
	cands := make([]items.Candidate, len(records))
	for i, r := range records {
		cands[i] = items.Candidate{
			Record:          r,
			LexicalDistance: levenshtein.ComputeDistance(q, strings.ToLower(r.ProductName)),
		}
	}

	slices.SortStableFunc(cands, func(a, b items.Candidate) int {
		return cmp.Compare(a.LexicalDistance, b.LexicalDistance)
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}
