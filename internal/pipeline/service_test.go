package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/places"
	"github.com/kalambet/ecoswap/internal/relevance"
	"github.com/kalambet/ecoswap/internal/storage"
	"github.com/kalambet/ecoswap/internal/transport"
)

// --- mocks ---

// scriptedAI answers prompts by the first matching substring.
type scriptedAI struct {
	mu      sync.Mutex
	answers map[string]string
	fail    bool
	prompts []string
}

func (s *scriptedAI) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.fail {
		return "", fmt.Errorf("%w: connection refused", transport.ErrAIUnavailable)
	}
	for marker, answer := range s.answers {
		if strings.Contains(prompt, marker) {
			return answer, nil
		}
	}
	return "", fmt.Errorf("%w: unscripted prompt", transport.ErrAIUnavailable)
}

func (s *scriptedAI) count(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, marker) {
			n++
		}
	}
	return n
}

type failingStore struct{}

func (failingStore) Append(items.Record) error {
	return fmt.Errorf("%w: append: disk full", storage.ErrStorage)
}
func (failingStore) ReadAll() ([]items.Record, error) {
	return nil, fmt.Errorf("%w: read: permission denied", storage.ErrStorage)
}
func (failingStore) Close() error { return nil }

type mockPlaces struct {
	loc       places.Location
	locErr    error
	found     []places.Place
	nearbyErr error
	gotCat    advisor.Category
}

func (m *mockPlaces) Locate(context.Context) (places.Location, error) { return m.loc, m.locErr }
func (m *mockPlaces) Nearby(_ context.Context, _ relevance.Kind, c advisor.Category, _ places.Location) ([]places.Place, error) {
	m.gotCat = c
	return m.found, m.nearbyErr
}

// --- helpers ---

func newStore(t *testing.T, names ...string) storage.Store {
	t.Helper()
	s, err := storage.OpenFile(filepath.Join(t.TempDir(), "data.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	for _, n := range names {
		require.NoError(t, s.Append(record(n)))
	}
	return s
}

func record(name string) items.Record {
	return items.Record{
		ProductName:  name,
		Description:  "Lightly used " + name,
		ContactName:  "Ana",
		ContactEmail: "ana@example.com",
		ContactPhone: "555 010 0199",
	}
}

func newService(store storage.Store, ai *scriptedAI, pf PlaceFinder) *Service {
	d := Deps{Store: store, Places: pf}
	if ai != nil {
		d.ItemFilter = relevance.New[items.Candidate](ai, true)
		d.PlaceFilter = relevance.New[places.Place](ai, true)
		d.Advisor = advisor.New(ai)
	}
	return NewService(d)
}

func productNames(cands []items.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ProductName
	}
	return out
}

// --- ParseLegacy ---

func TestParseLegacy(t *testing.T) {
	submit := url.Values{
		"productname": {"Drill"}, "description": {"Cordless"}, "name": {"Bo"},
		"email": {"bo@x.io"}, "phonenum": {"123"}, "query": {"ignored"},
	}
	req, err := ParseLegacy(submit)
	require.NoError(t, err)
	sub, ok := req.(SubmitRequest)
	require.True(t, ok, "all five fields should select submit, got %T", req)
	assert.Equal(t, "Drill", sub.Record.ProductName)
	assert.False(t, sub.Strict)

	req, err = ParseLegacy(url.Values{"query": {"drill"}, "name": {"Bo"}})
	require.NoError(t, err)
	assert.Equal(t, SearchRequest{Query: "drill"}, req)

	_, err = ParseLegacy(url.Values{"foo": {"bar"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// --- Search / Submit ---

func TestSearch_EmptyStore(t *testing.T) {
	svc := newService(newStore(t), nil, nil)
	got, err := svc.Search(context.Background(), "bike")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSearch_EndToEnd(t *testing.T) {
	svc := newService(newStore(t, "Blender", "Bike Helmet", "Bicycle"), nil, nil)

	got, err := svc.Search(context.Background(), "bike")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bicycle", "Blender", "Bike Helmet"}, productNames(got))
	assert.Equal(t, 4, got[0].LexicalDistance)

	upper, err := svc.Search(context.Background(), "BIKE")
	require.NoError(t, err)
	assert.Equal(t, got, upper)
}

func TestRankedSearch(t *testing.T) {
	ai := &scriptedAI{answers: map[string]string{
		"Rank these items": "```json\n[\"Bike Helmet\", \"Bicycle\"]\n```",
	}}
	svc := newService(newStore(t, "Blender", "Bike Helmet", "Bicycle"), ai, nil)

	got, err := svc.RankedSearch(context.Background(), "helmet")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bike Helmet", "Bicycle", "Blender"}, productNames(got))
	assert.Equal(t, 1, ai.count("Rank these items"))
}

func TestRankedSearch_FallsBackToLexical(t *testing.T) {
	svc := newService(newStore(t, "Blender", "Bike Helmet", "Bicycle"), &scriptedAI{fail: true}, nil)

	got, err := svc.RankedSearch(context.Background(), "bike")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bicycle", "Blender", "Bike Helmet"}, productNames(got))
}

func TestRankedSearch_SingleResultSkipsModel(t *testing.T) {
	ai := &scriptedAI{}
	svc := newService(newStore(t, "Bicycle"), ai, nil)

	got, err := svc.RankedSearch(context.Background(), "bike")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Empty(t, ai.prompts)
}

func TestSearch_ReturnsAtMostFive(t *testing.T) {
	svc := newService(newStore(t, "a1", "a2", "a3", "a4", "a5", "a6", "a7"), nil, nil)
	got, err := svc.Search(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].LexicalDistance, got[i].LexicalDistance)
	}
}

func TestSearch_EmptyQueryRanksAll(t *testing.T) {
	svc := newService(newStore(t, "Drill", "Hammer drill", "Saw"), nil, nil)

	for _, q := range []string{"", " ", " | "} {
		got, err := svc.Search(context.Background(), q)
		require.NoError(t, err, "query %q", q)
		assert.Equal(t, []string{"Saw", "Drill", "Hammer drill"}, productNames(got), "query %q", q)
	}
}

func TestSearch_EmptyQueryEmptyStore(t *testing.T) {
	svc := newService(newStore(t), nil, nil)
	got, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_EmptyQuerySkipsAI(t *testing.T) {
	ai := &scriptedAI{}
	svc := newService(newStore(t, "Bicycle", "Blender"), ai, nil)

	d, err := svc.Discover(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bicycle", "Blender"}, productNames(d.Results))
	assert.Empty(t, d.Category)
	assert.Empty(t, d.Tip)
	assert.Empty(t, d.Suggestion)
	assert.Empty(t, ai.prompts)

	_, err = svc.RankedSearch(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, ai.prompts)
}

func TestSearch_StorageError(t *testing.T) {
	svc := newService(failingStore{}, nil, nil)
	_, err := svc.Search(context.Background(), "drill")
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func TestSubmit_ThenSearch(t *testing.T) {
	store := newStore(t)
	svc := newService(store, nil, nil)

	r := record("Tent")
	r.Description = "Sleeps | four "
	require.NoError(t, svc.Submit(context.Background(), SubmitRequest{Record: r}))

	got, err := svc.Search(context.Background(), "tent")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sleeps  four", got[0].Description)
	assert.Equal(t, "Ana", got[0].ContactName)
}

func TestSubmit_MissingEmailDoesNotMutate(t *testing.T) {
	store := newStore(t)
	svc := newService(store, nil, nil)

	r := record("Tent")
	r.ContactEmail = "  "
	err := svc.Submit(context.Background(), SubmitRequest{Record: r})

	var ve *items.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"email"}, ve.Fields)

	all, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmit_Strict(t *testing.T) {
	svc := newService(newStore(t), nil, nil)

	r := record("Tent")
	r.ContactEmail = "not-an-email"
	assert.NoError(t, svc.Submit(context.Background(), SubmitRequest{Record: r}))

	err := svc.Submit(context.Background(), SubmitRequest{Record: r, Strict: true})
	var ve *items.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
}

func TestSubmit_StorageError(t *testing.T) {
	svc := newService(failingStore{}, nil, nil)
	err := svc.Submit(context.Background(), SubmitRequest{Record: record("Tent")})
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func TestHandle(t *testing.T) {
	svc := newService(newStore(t, "Drill"), nil, nil)

	out, err := svc.Handle(context.Background(), SearchRequest{Query: "drill"})
	require.NoError(t, err)
	recs, ok := out.([]items.Record)
	require.True(t, ok)
	assert.Len(t, recs, 1)

	out, err = svc.Handle(context.Background(), SubmitRequest{Record: record("Saw")})
	require.NoError(t, err)
	assert.Equal(t, SavedAck, out)

	_, err = svc.Handle(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// --- Discover ---

func TestDiscover_FiltersAndEnriches(t *testing.T) {
	ai := &scriptedAI{answers: map[string]string{
		"Evaluate each result": `[{"index":1,"score":9,"reason":"exact"},{"index":2,"score":3,"reason":"meh"}]`,
		"exactly one of these": "Tools",
		"which action is most": `{"action":"Reuse","reason":"Drills last decades."}`,
		"eco-fact":             "💡 Sharing a drill saves 20 kg of CO2.",
	}}
	svc := newService(newStore(t, "Driller", "Drill"), ai, nil)

	d, err := svc.Discover(context.Background(), "drill")
	require.NoError(t, err)

	assert.Equal(t, []string{"Drill"}, productNames(d.Results))
	require.NotNil(t, d.Results[0].Annotation)
	assert.Equal(t, items.TierHigh, d.Results[0].Tier)
	assert.Equal(t, advisor.CategoryTools, d.Category)
	require.NotNil(t, d.Action)
	assert.Equal(t, advisor.ActionReuse, d.Action.Action)
	assert.True(t, strings.HasPrefix(d.Tip, "💡"))
	assert.Empty(t, d.Suggestion)
}

func TestDiscover_AIDownFallsBackToLexical(t *testing.T) {
	ai := &scriptedAI{fail: true}
	svc := newService(newStore(t, "Blender", "Bike Helmet", "Bicycle"), ai, nil)

	d, err := svc.Discover(context.Background(), "bike")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bicycle", "Blender", "Bike Helmet"}, productNames(d.Results))
	for _, c := range d.Results {
		assert.Nil(t, c.Annotation)
	}
	assert.Empty(t, d.Tip)
	assert.Empty(t, d.Category)
	assert.Nil(t, d.Action)
}

func TestDiscover_EmptyStoreGetsSuggestion(t *testing.T) {
	ai := &scriptedAI{answers: map[string]string{
		"found no results": "Try a tool library.",
	}}
	svc := newService(newStore(t), ai, nil)

	d, err := svc.Discover(context.Background(), "kayak")
	require.NoError(t, err)
	assert.Empty(t, d.Results)
	assert.Equal(t, "Try a tool library.", d.Suggestion)
	assert.Zero(t, ai.count("Evaluate each result"), "empty list must not be sent for scoring")
}

func TestDiscover_SearchErrorPropagates(t *testing.T) {
	svc := newService(failingStore{}, &scriptedAI{}, nil)
	_, err := svc.Discover(context.Background(), "drill")
	assert.ErrorIs(t, err, storage.ErrStorage)
}

// --- Nearby ---

func samplePlaces() []places.Place {
	return []places.Place{
		{Name: "Far Tailor", Address: "9 High St", Distance: 4000, Coordinates: places.Coordinates{Lat: 1, Lon: 2}},
		{Name: "Near Tailor", Address: "1 Low St", Distance: 300, Coordinates: places.Coordinates{Lat: 3, Lon: 4}},
	}
}

func TestNearby_ClassifiesFiltersAndDecorates(t *testing.T) {
	ai := &scriptedAI{answers: map[string]string{
		"exactly one of these": "fashion",
		"Evaluate each result": `[{"index":1,"score":6,"reason":"ok"},{"index":2,"score":8,"reason":"close"}]`,
		"eco-fact":             "💡 Mending extends garment life.",
	}}
	pf := &mockPlaces{loc: places.Location{Coordinates: places.Coordinates{Lat: 5, Lon: 6}, City: "Porto"}, found: samplePlaces()}
	svc := newService(newStore(t), ai, pf)

	res, err := svc.Nearby(context.Background(), NearbyRequest{Kind: relevance.KindRepair, Item: "jacket"})
	require.NoError(t, err)

	assert.Equal(t, advisor.CategoryFashion, pf.gotCat)
	assert.Equal(t, "Porto", res.Location.City)
	require.Len(t, res.Places, 2)
	assert.Equal(t, "Near Tailor", res.Places[0].Name)
	assert.Equal(t, "0.2 mi away", res.Places[0].DistanceText)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=3,4", res.Places[0].Directions)
	assert.NotEmpty(t, res.Tip)
	assert.Equal(t, 1, ai.count(`User is looking for "jacket" to repair.`))
}

func TestNearby_MaxDistance(t *testing.T) {
	pf := &mockPlaces{found: samplePlaces()}
	svc := newService(newStore(t), nil, pf)

	res, err := svc.Nearby(context.Background(), NearbyRequest{
		Kind: relevance.KindRecycle, Category: advisor.CategoryTools, MaxDistance: 1000,
	})
	require.NoError(t, err)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "Near Tailor", res.Places[0].Name)
	assert.Equal(t, advisor.CategoryTools, pf.gotCat)
}

func TestNearby_DefaultCategory(t *testing.T) {
	pf := &mockPlaces{}
	svc := newService(newStore(t), &scriptedAI{fail: true}, pf)

	_, err := svc.Nearby(context.Background(), NearbyRequest{Kind: relevance.KindRecycle, Item: "thing"})
	require.NoError(t, err)
	assert.Equal(t, advisor.DefaultCategory, pf.gotCat)
}

func TestNearby_GivenLocationSkipsDetection(t *testing.T) {
	pf := &mockPlaces{locErr: errors.New("should not be called")}
	svc := newService(newStore(t), nil, pf)

	loc := places.Location{Coordinates: places.Coordinates{Lat: 10, Lon: 20}}
	res, err := svc.Nearby(context.Background(), NearbyRequest{Kind: relevance.KindRecycle, Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Location.Lat)
}

func TestNearby_LocationUnavailable(t *testing.T) {
	pf := &mockPlaces{locErr: errors.New("ipinfo down")}
	svc := newService(newStore(t), nil, pf)

	_, err := svc.Nearby(context.Background(), NearbyRequest{Kind: relevance.KindRecycle})
	assert.ErrorIs(t, err, ErrLocationUnavailable)
}

func TestNearby_ProviderFailureYieldsEmpty(t *testing.T) {
	ai := &scriptedAI{answers: map[string]string{
		"found no results": "Check municipal drop-off days.",
		"eco-fact":         "💡 tip",
		"exactly one":      "E-waste",
	}}
	pf := &mockPlaces{nearbyErr: errors.New("502")}
	svc := newService(newStore(t), ai, pf)

	res, err := svc.Nearby(context.Background(), NearbyRequest{Kind: relevance.KindRecycle, Item: "phone"})
	require.NoError(t, err)
	assert.NotNil(t, res.Places)
	assert.Empty(t, res.Places)
	assert.Equal(t, "Check municipal drop-off days.", res.Suggestion)
}

func TestNearby_InvalidKind(t *testing.T) {
	svc := newService(newStore(t), nil, &mockPlaces{})
	_, err := svc.Nearby(context.Background(), NearbyRequest{Kind: relevance.KindBorrow})

	var ve *items.ValidationError
	assert.ErrorAs(t, err, &ve)
}
