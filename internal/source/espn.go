// Package source fetches finalized scoreboards from the ESPN site API and
// extracts them into ingestion input records.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/metrics"
)

// sportPaths maps sport keys to ESPN API path segments
var sportPaths = map[string]string{
	"nba": "basketball/nba",
	"nhl": "hockey/nhl",
	"nfl": "football/nfl",
}

// SupportedSport reports whether a sport key has a scoreboard endpoint
func SupportedSport(sport string) bool {
	_, ok := sportPaths[sport]
	return ok
}

// Client is the ESPN scoreboard API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new ESPN scoreboard client
func NewClient(baseURL string, timeout time.Duration) *Client {
	// Create rate limiter (max 5 concurrent requests)
	rateLimiter := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     baseURL,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Scoreboard is the slice of the ESPN scoreboard payload the pipeline reads
type Scoreboard struct {
	Events []Event `json:"events"`
}

// Event is one scheduled or played game on the scoreboard
type Event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Status       EventStatus   `json:"status"`
	Competitions []Competition `json:"competitions"`
}

// EventStatus carries the game state ("pre", "in", "post")
type EventStatus struct {
	Type EventStatusType `json:"type"`
}

type EventStatusType struct {
	State     string `json:"state"`
	Completed bool   `json:"completed"`
}

// Competition holds the venue and the two competitors of an event
type Competition struct {
	Venue       Venue        `json:"venue"`
	Competitors []Competitor `json:"competitors"`
}

type Venue struct {
	FullName string `json:"fullName"`
}

// Competitor is one side of a competition. Scores arrive as strings.
type Competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     Team   `json:"team"`
}

type Team struct {
	DisplayName string `json:"displayName"`
}

// FetchScoreboard fetches the scoreboard for one sport and calendar date
func (c *Client) FetchScoreboard(ctx context.Context, sport string, date time.Time) (*Scoreboard, error) {
	path, ok := sportPaths[sport]
	if !ok {
		return nil, fmt.Errorf("no scoreboard endpoint for sport: %q", sport)
	}

	start := time.Now()
	body, err := c.get(ctx, path+"/scoreboard", map[string]string{
		"dates": date.Format("20060102"),
	})
	if err != nil {
		metrics.RecordSourceCall(sport, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to fetch %s scoreboard: %w", sport, err)
	}
	metrics.RecordSourceCall(sport, "success", time.Since(start).Seconds())

	var scoreboard Scoreboard
	if err := json.Unmarshal(body, &scoreboard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}

	log.Debug().
		Str("sport", sport).
		Str("date", date.Format("2006-01-02")).
		Int("events", len(scoreboard.Events)).
		Msg("Fetched scoreboard")

	return &scoreboard, nil
}

// get performs a GET request with retry logic and rate limiting
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, retryable, err := c.doOnce(ctx, url, params, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, url string, params map[string]string, attempt int) ([]byte, bool, error) {
	// Rate limiting: acquire semaphore
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sportseval-ingestion/1.0")

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", url).
		Int("attempt", attempt+1).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Retry on network errors
		return nil, true, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		log.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("size", len(body)).
			Msg("API request successful")
		return body, false, nil

	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable error, will retry")
		return nil, true, fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))

	default:
		return nil, false, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
}
