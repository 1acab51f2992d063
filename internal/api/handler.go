package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/pipeline"
	"github.com/kalambet/ecoswap/internal/places"
	"github.com/kalambet/ecoswap/internal/relevance"
	"github.com/kalambet/ecoswap/internal/storage"
	"github.com/kalambet/ecoswap/internal/transport"
)

const maxRequestBodySize = 64 << 10 // 64KB

// Deps holds the collaborators of the HTTP handler.
type Deps struct {
	Service *pipeline.Service
	Advisor *advisor.Advisor
	// Token, when set, is required as a bearer token for POST /v1/items.
	Token string
	// RateLimit is requests per second across all clients; zero disables it.
	RateLimit float64
}

// NewHandler returns the ecoswap HTTP API: the legacy GET dispatcher, the
// JSON REST endpoints and the AI assist endpoints.
func NewHandler(deps Deps) http.Handler {
	if deps.Advisor == nil {
		deps.Advisor = advisor.New(nil)
	}

	r := chi.NewRouter()
	r.Use(RequestID, logRequests, CORS)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.RateLimit > 0 {
			r.Use(RateLimit(deps.RateLimit, int(deps.RateLimit)))
		}

		r.Get("/api.php", handleLegacy(deps.Service))
		r.Get("/api", handleLegacy(deps.Service))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/items", handleSearch(deps.Service))
			r.Get("/items/discover", handleDiscover(deps.Service))
			r.Group(func(r chi.Router) {
				if deps.Token != "" {
					r.Use(BearerAuth(deps.Token))
				}
				r.Post("/items", handleSubmit(deps.Service))
			})
			r.Get("/nearby", handleNearby(deps.Service))

			r.Route("/assist", func(r chi.Router) {
				r.Get("/autocomplete", handleAutocomplete(deps.Advisor))
				r.Get("/classify", handleClassify(deps.Advisor))
				r.Get("/action", handleAction(deps.Advisor))
				r.Get("/description", handleDescription(deps.Advisor))
			})
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleSearch serves lexical search. rank=ai additionally lets the model
// reorder the results.
func handleSearch(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("q") {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing query parameter q")
			return
		}
		search := svc.Search
		if q.Get("rank") == "ai" {
			search = svc.RankedSearch
		}
		cands, err := search(r.Context(), q.Get("q"))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items.Records(cands))
	}
}

func handleSubmit(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var rec items.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := svc.Submit(r.Context(), pipeline.SubmitRequest{Record: rec, Strict: true}); err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, pipeline.SavedAck)
	}
}

func handleDiscover(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("q") {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing query parameter q")
			return
		}
		d, err := svc.Discover(r.Context(), q.Get("q"))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handleNearby(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseNearby(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		res, err := svc.Nearby(r.Context(), req)
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func parseNearby(r *http.Request) (pipeline.NearbyRequest, error) {
	q := r.URL.Query()
	var req pipeline.NearbyRequest

	kind, err := relevance.ParseKind(q.Get("kind"))
	if err != nil {
		return req, err
	}
	req.Kind = kind
	req.Item = q.Get("item")

	if s := q.Get("category"); s != "" {
		c, ok := advisor.ParseCategory(s)
		if !ok {
			return req, fmt.Errorf("unknown category %q", s)
		}
		req.Category = c
	}

	if s := q.Get("max_distance"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil || d < 0 {
			return req, fmt.Errorf("max_distance must be a non-negative number of meters")
		}
		req.MaxDistance = d
	}

	if q.Has("lat") || q.Has("lon") {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return req, fmt.Errorf("lat and lon must both be valid coordinates")
		}
		req.Location = &places.Location{
			Coordinates: places.Coordinates{Lat: lat, Lon: lon},
			City:        q.Get("city"),
		}
	}
	return req, nil
}

func handleAutocomplete(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"suggestions": a.Autocomplete(r.Context(), r.URL.Query().Get("q")),
		})
	}
}

func handleClassify(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := requireItem(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"item":     item,
			"category": a.Classify(r.Context(), item),
		})
	}
}

func handleAction(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := requireItem(w, r)
		if !ok {
			return
		}
		var category advisor.Category
		if s := r.URL.Query().Get("category"); s != "" {
			c, ok := advisor.ParseCategory(s)
			if !ok {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown category %q", s)
				return
			}
			category = c
		} else if category = a.Classify(r.Context(), item); category == "" {
			category = advisor.DefaultCategory
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"item":     item,
			"category": category,
			"action":   a.SuggestAction(r.Context(), item, category),
		})
	}
}

func handleDescription(a *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := requireItem(w, r)
		if !ok {
			return
		}
		desc, err := a.DescribeItem(r.Context(), item)
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"item":        item,
			"description": desc,
		})
	}
}

func requireItem(w http.ResponseWriter, r *http.Request) (string, bool) {
	item := items.SanitizeField(r.URL.Query().Get("item"))
	if item == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "item is required")
		return "", false
	}
	return item, true
}

// serviceError maps orchestrator errors onto status codes. Unknown errors
// are logged and hidden from the client.
func serviceError(w http.ResponseWriter, err error) {
	var verr *items.ValidationError
	switch {
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", verr.Error())
	case errors.Is(err, storage.ErrStorage):
		slog.Error("storage failure", "error", err)
		httpError(w, http.StatusInternalServerError, "storage_error", "item storage is unavailable")
	case errors.Is(err, pipeline.ErrLocationUnavailable):
		httpError(w, http.StatusServiceUnavailable, "location_unavailable", "location unavailable: pass lat and lon")
	case errors.Is(err, transport.ErrAIUnavailable):
		httpError(w, http.StatusServiceUnavailable, "ai_unavailable", "ai assistant is unavailable")
	default:
		slog.Error("request failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
