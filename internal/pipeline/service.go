// Package pipeline is the query orchestrator. It composes the record store,
// lexical matcher and the best-effort AI stages into the search, submit,
// discover and nearby flows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/matching"
	"github.com/kalambet/ecoswap/internal/places"
	"github.com/kalambet/ecoswap/internal/relevance"
	"github.com/kalambet/ecoswap/internal/storage"
)

// ErrLocationUnavailable is returned by Nearby when no location was given
// and none could be detected.
var ErrLocationUnavailable = errors.New("location unavailable")

// PlaceFinder locates the caller and lists nearby providers.
// *places.Client implements it.
type PlaceFinder interface {
	Locate(ctx context.Context) (places.Location, error)
	Nearby(ctx context.Context, kind relevance.Kind, category advisor.Category, loc places.Location) ([]places.Place, error)
}

// Deps are the collaborators of a Service. Store is required; nil AI
// collaborators are replaced with pass-through versions.
type Deps struct {
	Store       storage.Store
	ItemFilter  relevance.Filter[items.Candidate]
	PlaceFilter relevance.Filter[places.Place]
	Advisor     *advisor.Advisor
	Places      PlaceFinder
}

// Service runs orchestrator flows. It is safe for concurrent use.
type Service struct {
	store       storage.Store
	itemFilter  relevance.Filter[items.Candidate]
	placeFilter relevance.Filter[places.Place]
	advisor     *advisor.Advisor
	places      PlaceFinder
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	if d.ItemFilter == nil {
		d.ItemFilter = relevance.NoOpFilter[items.Candidate]{}
	}
	if d.PlaceFilter == nil {
		d.PlaceFilter = relevance.NoOpFilter[places.Place]{}
	}
	if d.Advisor == nil {
		d.Advisor = advisor.New(nil)
	}
	return &Service{
		store:       d.Store,
		itemFilter:  d.ItemFilter,
		placeFilter: d.PlaceFilter,
		advisor:     d.Advisor,
		places:      d.Places,
	}
}

// Ack is the submit acknowledgement.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SavedAck is returned for every successful submit.
var SavedAck = Ack{Status: "success", Message: "Item saved"}

// Handle dispatches a parsed request. Search returns []items.Record; submit
// returns Ack.
func (s *Service) Handle(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case SearchRequest:
		cands, err := s.Search(ctx, r.Query)
		if err != nil {
			return nil, err
		}
		return items.Records(cands), nil
	case SubmitRequest:
		if err := s.Submit(ctx, r); err != nil {
			return nil, err
		}
		return SavedAck, nil
	default:
		return nil, ErrInvalidRequest
	}
}

// Search returns at most matching.DefaultLimit records closest to query.
// The query is sanitized like a stored field. An empty query is valid and
// ranks records by name length.
func (s *Service) Search(ctx context.Context, query string) ([]items.Candidate, error) {
	query = items.SanitizeField(query)
	records, err := s.store.ReadAll()
	if err != nil {
		return nil, err
	}
	return matching.Rank(query, records, matching.DefaultLimit), nil
}

// RankedSearch is Search with the lexical results reordered by the model's
// ranking of their names. When the model is unavailable or its answer is
// unusable the lexical order is kept.
func (s *Service) RankedSearch(ctx context.Context, query string) ([]items.Candidate, error) {
	cands, err := s.Search(ctx, query)
	query = items.SanitizeField(query)
	if err != nil || len(cands) < 2 || query == "" {
		return cands, err
	}
	return s.itemFilter.RankByQuery(ctx, query, cands), nil
}

// Submit validates and appends r.Record.
func (s *Service) Submit(ctx context.Context, r SubmitRequest) error {
	validate := r.Record.Validate
	if r.Strict {
		validate = r.Record.ValidateStrict
	}
	if err := validate(); err != nil {
		return err
	}
	if err := s.store.Append(r.Record); err != nil {
		return err
	}
	slog.Debug("item saved", "productname", items.SanitizeField(r.Record.ProductName))
	return nil
}

// Discovery is a search enriched by the AI stages.
type Discovery struct {
	Query      string                    `json:"query"`
	Results    []items.Candidate         `json:"results"`
	Category   advisor.Category          `json:"category,omitempty"`
	Action     *advisor.ActionSuggestion `json:"action,omitempty"`
	Suggestion string                    `json:"suggestion,omitempty"`
	Tip        string                    `json:"tip,omitempty"`
}

// Discover searches for query to borrow, then concurrently filters the
// results by relevance, classifies the item with a best-action suggestion,
// and fetches an eco tip. If nothing survives, an empty-state suggestion is
// added. An empty query returns the lexical results without any AI stage.
// Only search errors are returned.
func (s *Service) Discover(ctx context.Context, query string) (*Discovery, error) {
	start := time.Now()
	cands, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	query = items.SanitizeField(query)
	d := &Discovery{Query: query, Results: cands}
	if query == "" {
		return d, nil
	}

	var g errgroup.Group
	g.Go(func() error {
		d.Results = s.itemFilter.FilterByRelevance(ctx, query, relevance.KindBorrow, cands)
		return nil
	})
	g.Go(func() error {
		d.Category = s.advisor.Classify(ctx, query)
		if d.Category != "" {
			d.Action = s.advisor.SuggestAction(ctx, query, d.Category)
		}
		return nil
	})
	g.Go(func() error {
		d.Tip = s.advisor.EcoTip(ctx, query, "reuse")
		return nil
	})
	g.Wait()

	if len(d.Results) == 0 {
		d.Suggestion = s.advisor.EmptyStateSuggestion(ctx, query, string(relevance.KindBorrow))
	}

	slog.Debug("discover complete",
		"query", query,
		"lexical", len(cands),
		"results", len(d.Results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return d, nil
}

// NearbyRequest asks for providers that can recycle or repair Item.
type NearbyRequest struct {
	Kind relevance.Kind
	Item string
	// Category overrides classification when set.
	Category advisor.Category
	// Location overrides IP geolocation when set.
	Location *places.Location
	// MaxDistance in meters; zero keeps all results.
	MaxDistance float64
}

// NearbyResult lists providers nearest first as judged by the model.
type NearbyResult struct {
	Kind       relevance.Kind   `json:"kind"`
	Item       string           `json:"item,omitempty"`
	Category   advisor.Category `json:"category"`
	Location   places.Location  `json:"location"`
	Places     []places.Place   `json:"places"`
	Suggestion string           `json:"suggestion,omitempty"`
	Tip        string           `json:"tip,omitempty"`
}

// Nearby finds recycle or repair providers around the caller. A failing
// places provider yields an empty list, not an error.
func (s *Service) Nearby(ctx context.Context, req NearbyRequest) (*NearbyResult, error) {
	if req.Kind != relevance.KindRecycle && req.Kind != relevance.KindRepair {
		return nil, &items.ValidationError{Fields: []string{"kind"}, Reason: "must be recycle or repair"}
	}
	if s.places == nil {
		return nil, fmt.Errorf("%w: no places provider", ErrLocationUnavailable)
	}
	item := items.SanitizeField(req.Item)

	category := req.Category
	if category == "" && item != "" {
		category = s.advisor.Classify(ctx, item)
	}
	if category == "" {
		category = advisor.DefaultCategory
	}

	var loc places.Location
	if req.Location != nil {
		loc = *req.Location
	} else {
		var err error
		loc, err = s.places.Locate(ctx)
		if err != nil {
			slog.Warn("nearby: location detection failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
		}
	}

	found, err := s.places.Nearby(ctx, req.Kind, category, loc)
	if err != nil {
		slog.Warn("nearby: places lookup failed", "kind", req.Kind, "category", category, "error", err)
		found = nil
	}
	if found == nil {
		found = []places.Place{}
	}

	res := &NearbyResult{Kind: req.Kind, Item: item, Category: category, Location: loc, Places: found}
	if item != "" {
		var g errgroup.Group
		g.Go(func() error {
			res.Places = s.placeFilter.FilterByRelevance(ctx, item, req.Kind, found)
			return nil
		})
		g.Go(func() error {
			res.Tip = s.advisor.EcoTip(ctx, item, string(req.Kind))
			return nil
		})
		g.Wait()
	}

	res.Places = places.WithinDistance(res.Places, req.MaxDistance)
	for i := range res.Places {
		p := &res.Places[i]
		p.DistanceText = places.FormatDistance(p.Distance)
		p.Directions = places.DirectionsURL(p.Coordinates)
	}

	if len(res.Places) == 0 && item != "" {
		res.Suggestion = s.advisor.EmptyStateSuggestion(ctx, item, string(req.Kind))
	}
	return res, nil
}
