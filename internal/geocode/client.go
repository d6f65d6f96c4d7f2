// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/metrics"
)

// ErrNoResult indicates the provider answered but had no address for the
// coordinates.
var ErrNoResult = fmt.Errorf("no address found")

// Client is a reverse-geocoding client for a Nominatim-compatible
// provider, protected by a circuit breaker so a degraded provider cannot
// stall every ingestion for the full timeout.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[string]
	name       string
}

// NewClient creates a reverse-geocoding client from configuration.
// Circuit breaker: opens after 60% failures over at least 10 requests,
// recovers via half-open after 2 minutes.
func NewClient(cfg *config.GeocodeConfig) *Client {
	cbName := "reverse-geocode"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cb:   cb,
		name: cbName,
	}
}

// nominatimResponse is the subset of the provider's reverse-geocode
// payload we consume.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse looks up the human-readable address for the given coordinates.
// The request is bounded by the configured timeout and the caller's
// context, whichever ends first.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	address, err := c.cb.Execute(func() (string, error) {
		return c.reverse(ctx, lat, lon)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		}
		return "", err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return address, nil
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if c.language != "" {
		q.Set("accept-language", c.language)
	}

	reqURL := c.baseURL + "/reverse?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build reverse geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read reverse geocode response: %w", err)
	}

	var parsed nominatimResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode reverse geocode response: %w", err)
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("reverse geocode provider error: %s", parsed.Error)
	}
	if parsed.DisplayName == "" {
		return "", ErrNoResult
	}

	return parsed.DisplayName, nil
}

// stateToFloat maps circuit breaker states onto the gauge values used by
// the dashboard (0=closed, 1=half-open, 2=open).
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
