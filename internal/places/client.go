// Package places looks up the caller's location and nearby recycling or
// repair providers through the Geoapify HTTP API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/relevance"
)

const (
	DefaultBaseURL = "https://api.geoapify.com"
	DefaultRadiusM = 5000
	DefaultLimit   = 10
	defaultTimeout = 10 * time.Second
	// Geoapify's free tier allows 5 requests per second.
	defaultRatePerSec = 5
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("places provider not configured")
	// ErrUnknownCategory is returned for a kind/category pair with no
	// provider mapping.
	ErrUnknownCategory = errors.New("no place categories for item category")
)

// Config configures a Client. Zero values take defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	RadiusM    int
	Limit      int
	RatePerSec float64
	HTTPClient *http.Client
}

// Client talks to the Geoapify API. Outbound requests share one rate limiter.
type Client struct {
	apiKey     string
	baseURL    string
	radiusM    int
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RadiusM <= 0 {
		cfg.RadiusM = DefaultRadiusM
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		radiusM:    cfg.RadiusM,
		limit:      cfg.Limit,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

// ipInfoResponse mirrors the parts of GET /v1/ipinfo we use.
type ipInfoResponse struct {
	Location *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// Locate estimates the caller's position from the server's public IP.
func (c *Client) Locate(ctx context.Context) (Location, error) {
	q := url.Values{}
	var info ipInfoResponse
	if err := c.get(ctx, "/v1/ipinfo", q, &info); err != nil {
		return Location{}, fmt.Errorf("locating: %w", err)
	}
	if info.Location == nil || info.Location.Latitude == nil || info.Location.Longitude == nil {
		return Location{}, errors.New("locating: coordinates missing in response")
	}
	return Location{
		Coordinates: Coordinates{Lat: *info.Location.Latitude, Lon: *info.Location.Longitude},
		City:        info.City.Name,
	}, nil
}

// placesResponse mirrors the GeoJSON returned by GET /v2/places.
type placesResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Features *[]struct {
		Properties struct {
			Name         string  `json:"name"`
			AddressLine1 string  `json:"address_line1"`
			City         string  `json:"city"`
			Website      string  `json:"website"`
			Phone        string  `json:"phone"`
			Distance     float64 `json:"distance"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Nearby lists providers around loc for the given intent and item category.
// Places without a provider-reported distance get the haversine distance
// from loc.
func (c *Client) Nearby(ctx context.Context, kind relevance.Kind, category advisor.Category, loc Location) ([]Place, error) {
	cats, ok := CategoriesFor(kind, category)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownCategory, kind, category)
	}

	q := url.Values{}
	q.Set("categories", cats)
	q.Set("filter", fmt.Sprintf("circle:%s,%s,%d", ftoa(loc.Lon), ftoa(loc.Lat), c.radiusM))
	q.Set("limit", strconv.Itoa(c.limit))

	var resp placesResponse
	if err := c.get(ctx, "/v2/places", q, &resp); err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("querying places: %s: %s", resp.Error, resp.Message)
	}
	if resp.Features == nil {
		return nil, errors.New("querying places: no features in response")
	}

	out := make([]Place, 0, len(*resp.Features))
	for _, f := range *resp.Features {
		p := Place{
			Name:     f.Properties.Name,
			Address:  f.Properties.AddressLine1,
			City:     f.Properties.City,
			Website:  f.Properties.Website,
			Phone:    f.Properties.Phone,
			Distance: f.Properties.Distance,
		}
		// GeoJSON order is [lon, lat].
		if g := f.Geometry.Coordinates; len(g) >= 2 {
			p.Coordinates = Coordinates{Lat: g[1], Lon: g[0]}
			if p.Distance == 0 {
				p.Distance = Haversine(loc.Coordinates, p.Coordinates)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	q.Set("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
