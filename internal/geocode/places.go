// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/models"
)

// PlacesClient queries the external place-search provider for points of
// interest around a coordinate. Thin boundary wrapper: bounded timeout,
// no retries, errors surface to the handler as a search failure.
type PlacesClient struct {
	baseURL    string
	apiKey     string
	radius     int
	placeType  string
	language   string
	httpClient *http.Client
}

// NewPlacesClient creates a place-search client from configuration.
func NewPlacesClient(cfg *config.PlacesConfig) *PlacesClient {
	return &PlacesClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		radius:    cfg.RadiusMeters,
		placeType: cfg.Type,
		language:  cfg.Language,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// placesResponse is the subset of the provider's nearby-search payload we
// consume.
type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string  `json:"name"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Vicinity         string  `json:"vicinity"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Nearby returns places around the coordinate sorted by rating (highest
// first), ties broken by rating count. An empty slice means the provider
// found nothing nearby.
func (c *PlacesClient) Nearby(ctx context.Context, lat, lon float64) ([]models.Place, error) {
	q := url.Values{}
	q.Set("location", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(c.radius))
	q.Set("type", c.placeType)
	if c.language != "" {
		q.Set("language", c.language)
	}
	q.Set("key", c.apiKey)

	reqURL := c.baseURL + "/nearbysearch/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read places response: %w", err)
	}

	var parsed placesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}

	switch parsed.Status {
	case "OK", "ZERO_RESULTS":
	default:
		return nil, fmt.Errorf("places provider error: %s", parsed.Status)
	}

	places := make([]models.Place, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		places = append(places, models.Place{
			Name:             r.Name,
			Rating:           r.Rating,
			UserRatingsTotal: r.UserRatingsTotal,
			Vicinity:         r.Vicinity,
			Latitude:         r.Geometry.Location.Lat,
			Longitude:        r.Geometry.Location.Lng,
		})
	}

	sort.SliceStable(places, func(i, j int) bool {
		if places[i].Rating != places[j].Rating {
			return places[i].Rating > places[j].Rating
		}
		return places[i].UserRatingsTotal > places[j].UserRatingsTotal
	})

	return places, nil
}
