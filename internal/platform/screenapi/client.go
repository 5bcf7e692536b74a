// Package screenapi is a client for the imdb-api-style movie/TV metadata
// service: title search, title detail and image list endpoints, all keyed
// by an API key in the path.
package screenapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medialib/internal/media"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://imdb-api.com"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries int
}

func NewClient(baseURL, apiKey string, rps int, maxRetries int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
	}
}

// SearchTitleResponse matches /en/API/SearchTitle/{key}/{query}
type SearchTitleResponse struct {
	Results      []TitleResult `json:"results"`
	ErrorMessage string        `json:"errorMessage"`
}

type TitleResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"` // holds the year span, e.g. "(2008–2013)"
	Image       string `json:"image"`
}

// TitleDetails matches /en/API/Title/{key}/{id}
type TitleDetails struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Type         string        `json:"type"` // "Movie", "TVSeries", ...
	Year         string        `json:"year"`
	Plot         string        `json:"plot"`
	GenreList    []Genre       `json:"genreList"`
	TVSeriesInfo *TVSeriesInfo `json:"tvSeriesInfo"`
	ErrorMessage string        `json:"errorMessage"`
}

type Genre struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type TVSeriesInfo struct {
	YearEnd string `json:"yearEnd"` // empty while the series is ongoing
}

// ImagesResponse matches /en/API/Images/{key}/{id}
type ImagesResponse struct {
	Items        []ImageItem `json:"items"`
	ErrorMessage string      `json:"errorMessage"`
}

type ImageItem struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

func (c *Client) SearchTitle(ctx context.Context, query string) (*SearchTitleResponse, error) {
	u := fmt.Sprintf("%s/en/API/SearchTitle/%s/%s", c.baseURL, c.apiKey, url.PathEscape(query))

	var res SearchTitleResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	if res.ErrorMessage != "" {
		return nil, fmt.Errorf("search %q: %s: %w", query, res.ErrorMessage, media.ErrProviderUnavailable)
	}
	return &res, nil
}

func (c *Client) GetTitle(ctx context.Context, id string) (*TitleDetails, error) {
	u := fmt.Sprintf("%s/en/API/Title/%s/%s", c.baseURL, c.apiKey, url.PathEscape(id))

	var res TitleDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	if res.ErrorMessage != "" {
		return nil, fmt.Errorf("title %s: %s: %w", id, res.ErrorMessage, media.ErrProviderUnavailable)
	}
	return &res, nil
}

func (c *Client) GetImages(ctx context.Context, id string) (*ImagesResponse, error) {
	u := fmt.Sprintf("%s/en/API/Images/%s/%s", c.baseURL, c.apiKey, url.PathEscape(id))

	var res ImagesResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	if res.ErrorMessage != "" {
		return nil, fmt.Errorf("images %s: %s: %w", id, res.ErrorMessage, media.ErrProviderUnavailable)
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%v: %w", err, media.ErrProviderUnavailable)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("status %d: %w", resp.StatusCode, media.ErrProviderUnavailable)
				continue
			}
			return fmt.Errorf("status %d: %w", resp.StatusCode, media.ErrProviderUnavailable)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %v: %w", err, media.ErrMalformedResponse)
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
