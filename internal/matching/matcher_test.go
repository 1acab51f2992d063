package matching

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/ecoswap/internal/items"
)

func named(names ...string) []items.Record {
	out := make([]items.Record, len(names))
	for i, n := range names {
		out[i] = items.Record{ProductName: n, Description: "desc " + n}
	}
	return out
}

func productNames(cands []items.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ProductName
	}
	return out
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("Bike", "bIKE"))
	assert.Equal(t, 4, Distance("bike", "Bicycle"))
	assert.Equal(t, 5, Distance("bike", "Blender"))
	assert.Equal(t, 7, Distance("bike", "Bike Helmet"))
	assert.Equal(t, 3, Distance("", "abc"))
}

func TestRank_OrdersByDistance(t *testing.T) {
	got := Rank("bike", named("Blender", "Bike Helmet", "Bicycle"), 0)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"Bicycle", "Blender", "Bike Helmet"}, productNames(got))
	assert.Equal(t, []int{4, 5, 7}, []int{got[0].LexicalDistance, got[1].LexicalDistance, got[2].LexicalDistance})
}

func TestRank_CaseInsensitive(t *testing.T) {
	got := Rank("LAMP", named("chair", "lamp"), 0)
	require.NotEmpty(t, got)
	assert.Equal(t, "lamp", got[0].ProductName)
	assert.Zero(t, got[0].LexicalDistance)
}

func TestRank_TruncatesToLimit(t *testing.T) {
	var names []string
	for i := 0; i < 12; i++ {
		names = append(names, fmt.Sprintf("item%02d", i))
	}
	got := Rank("item", named(names...), 0)
	assert.Len(t, got, DefaultLimit)

	got = Rank("item", named(names...), 3)
	assert.Len(t, got, 3)
}

func TestRank_FewerThanLimit(t *testing.T) {
	got := Rank("x", named("a", "b"), 0)
	assert.Len(t, got, 2)
}

func TestRank_Empty(t *testing.T) {
	got := Rank("bike", nil, 0)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_TiesKeepStoreOrder(t *testing.T) {
	// "cat" is distance 1 from each of these.
	got := Rank("cat", named("bat", "hat", "rat", "mat"), 0)
	assert.Equal(t, []string{"bat", "hat", "rat", "mat"}, productNames(got))
}

func TestRank_Idempotent(t *testing.T) {
	recs := named("Sofa", "Sewing machine", "Saw", "Sander", "Skis", "Sled", "Soap")
	first := Rank("saw", recs, 0)
	second := Rank("saw", recs, 0)
	assert.Equal(t, first, second)
}

func TestRank_KeepsRecordFields(t *testing.T) {
	got := Rank("lamp", named("lamp"), 0)
	require.Len(t, got, 1)
	assert.Equal(t, "desc lamp", got[0].Description)
	assert.Nil(t, got[0].Annotation)
}
