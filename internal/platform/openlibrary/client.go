package openlibrary

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

const defaultBaseURL = "https://openlibrary.org"

// Cover images live on a separate host, keyed by the numeric cover id that
// search documents carry as cover_i.
const coverBaseURL = "https://covers.openlibrary.org/b/id"

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

func NewClient(baseURL, userAgent string, rps int, maxRetries int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:  userAgent,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
	}
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []SearchDoc `json:"docs"`
}

type SearchDoc struct {
	Key              string   `json:"key"` // "/works/OL...W"
	Title            string   `json:"title"`
	AuthorNames      []string `json:"author_name"`
	CoverID          int      `json:"cover_i"`
	FirstPublishYear int      `json:"first_publish_year"`
}

// KeyRef is the {"key": "/works/OL...W"} reference shape used throughout
// the provider's records.
type KeyRef struct {
	Key string `json:"key"`
}

type AuthorRef struct {
	Author KeyRef `json:"author"`
}

// WorkDetails matches works/{id}.json. A merged work comes back as a
// redirect record pointing at its canonical location.
type WorkDetails struct {
	Key              string      `json:"key"`
	Title            string      `json:"title"`
	Description      any         `json:"description"` // string or {type, value}
	Type             KeyRef      `json:"type"`
	Location         string      `json:"location"`
	Authors          []AuthorRef `json:"authors"`
	Covers           []int       `json:"covers"`
	FirstPublishDate string      `json:"first_publish_date"`
	SeriesName       string      `json:"series_name"`
}

// AuthorDetails matches authors/{key}.json
type AuthorDetails struct {
	Name         string `json:"name"`
	PersonalName string `json:"personal_name"`
	BirthDate    string `json:"birth_date"`
	Bio          any    `json:"bio"` // Can be string or {type: ..., value: ...}
}

func (c *Client) SearchTitles(ctx context.Context, title string, limit int) (*SearchResponse, error) {
	u := fmt.Sprintf("%s/search.json?title=%s&fields=key,title,author_name,cover_i,first_publish_year&limit=%d",
		c.baseURL, url.QueryEscape(title), limit)

	var res SearchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetWork fetches a work record. When the provider answers with a redirect
// record, the redirected key is resolved exactly once; a second redirect is
// an error.
func (c *Client) GetWork(ctx context.Context, workKey string) (*WorkDetails, error) {
	res, err := c.getWorkOnce(ctx, workKey)
	if err != nil {
		return nil, err
	}
	if res.Type.Key == "/type/redirect" && res.Location != "" {
		res, err = c.getWorkOnce(ctx, res.Location)
		if err != nil {
			return nil, err
		}
		if res.Type.Key == "/type/redirect" {
			return nil, fmt.Errorf("work %s: nested redirect: %w", workKey, media.ErrMalformedResponse)
		}
	}
	return res, nil
}

func (c *Client) getWorkOnce(ctx context.Context, workKey string) (*WorkDetails, error) {
	key := strings.TrimPrefix(workKey, "/works/")
	u := fmt.Sprintf("%s/works/%s.json", c.baseURL, key)

	var res WorkDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetAuthor(ctx context.Context, authorKey string) (*AuthorDetails, error) {
	// authorKey is usually "/authors/OL..." or just "OL..."
	key := strings.TrimPrefix(authorKey, "/authors/")
	u := fmt.Sprintf("%s/authors/%s.json", c.baseURL, key)

	var res AuthorDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CoverURL builds the medium-size cover image URL for a cover id.
func CoverURL(coverID int) string {
	return fmt.Sprintf("%s/%d-M.jpg", coverBaseURL, coverID)
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
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
		req.Header.Set("User-Agent", c.userAgent)

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
