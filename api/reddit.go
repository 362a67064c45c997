package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public read-only listing endpoint; no auth required
	DefaultBaseURL = "https://www.reddit.com/r"

	// DefaultUserAgent is sent on every request; Reddit rejects blank agents
	DefaultUserAgent = "Reddit-Scraper/1.0 (Educational Purpose)"

	defaultLimit = 25
	maxLimit     = 100
)

// Sort types accepted by the listing endpoint
var ValidSorts = map[string]bool{
	"hot":           true,
	"new":           true,
	"rising":        true,
	"top":           true,
	"controversial": true,
}

// Time filters accepted by top/controversial listings
var ValidTimeFilters = map[string]bool{
	"hour":  true,
	"day":   true,
	"week":  true,
	"month": true,
	"year":  true,
	"all":   true,
}

// FetchError represents a failed or malformed listing request.
// StatusCode is zero when the request never produced a response.
type FetchError struct {
	Subreddit  string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch r/%s failed with status %d: %v", e.Subreddit, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch r/%s failed: %v", e.Subreddit, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ListingEntry is one child of a Reddit listing. The same shape carries
// both posts (kind t3) and comments (kind t1); unset fields decode to
// zero values.
type ListingEntry struct {
	Kind string `json:"kind"`
	Data struct {
		ID            string  `json:"id"`
		Title         string  `json:"title"`
		Author        string  `json:"author"`
		Score         int     `json:"score"`
		NumComments   int     `json:"num_comments"`
		CreatedUTC    float64 `json:"created_utc"`
		URL           string  `json:"url"`
		SelfText      string  `json:"selftext"`
		Body          string  `json:"body"`
		Permalink     string  `json:"permalink"`
		LinkFlairText string  `json:"link_flair_text"`
		IsVideo       bool    `json:"is_video"`
	} `json:"data"`
}

// Listing is the envelope Reddit wraps every collection in
type Listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string         `json:"after"`
		Before   string         `json:"before"`
		Children []ListingEntry `json:"children"`
	} `json:"data"`
}

// Client is a read-only Reddit JSON API client. All requests share a
// single minimum-interval pacer so listing and comment fetches stay
// under the informal public rate limit.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	pacer      *rate.Limiter
	log        *logrus.Logger
}

// NewClient creates a Reddit API client. sleepSeconds is the minimum
// interval between any two requests; zero or negative disables pacing.
func NewClient(baseURL, userAgent string, sleepSeconds float64, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	// one permit, no burst: each request waits out the full interval
	pacer := rate.NewLimiter(rate.Inf, 1)
	if sleepSeconds > 0 {
		interval := time.Duration(sleepSeconds * float64(time.Second))
		pacer = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pacer:      pacer,
		log:        log,
	}
}

// listingURL builds the listing endpoint for a subreddit/sort pair.
// The t parameter is only meaningful for top and controversial sorts.
func (c *Client) listingURL(subreddit, sort string, limit int, timeFilter string) string {
	endpoint := fmt.Sprintf("%s/%s/%s.json?limit=%d", c.baseURL, subreddit, sort, limit)
	if sort == "top" || sort == "controversial" {
		endpoint += "&t=" + timeFilter
	}
	return endpoint
}

// FetchPosts fetches one page of posts for a subreddit and returns the
// raw listing entries in upstream order. No retries are performed.
func (c *Client) FetchPosts(ctx context.Context, subreddit, sort string, limit int, timeFilter string) ([]ListingEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	endpoint := c.listingURL(subreddit, sort, limit, timeFilter)

	c.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"sort":      sort,
		"limit":     limit,
	}).Info("Fetching posts")

	listing, err := c.getListing(ctx, subreddit, endpoint)
	if err != nil {
		return nil, err
	}

	return listing.Data.Children, nil
}

// FetchComments fetches the top-level comments of a post. The comment
// endpoint returns a two-element array: the post itself, then the
// comment listing. Fewer than two elements means the post has no
// comment tree and yields an empty slice.
func (c *Client) FetchComments(ctx context.Context, subreddit, postID string, limit int) ([]ListingEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	endpoint := fmt.Sprintf("%s/%s/comments/%s.json?limit=%d", c.baseURL, subreddit, postID, limit)

	c.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"post_id":   postID,
		"limit":     limit,
	}).Debug("Fetching comments")

	body, err := c.get(ctx, subreddit, endpoint)
	if err != nil {
		return nil, err
	}

	var payload []Listing
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Subreddit: subreddit, Err: fmt.Errorf("failed to decode comments response: %w", err)}
	}

	if len(payload) < 2 {
		return []ListingEntry{}, nil
	}

	return payload[1].Data.Children, nil
}

// getListing performs a paced GET and decodes a single listing envelope
func (c *Client) getListing(ctx context.Context, subreddit, endpoint string) (*Listing, error) {
	body, err := c.get(ctx, subreddit, endpoint)
	if err != nil {
		return nil, err
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &FetchError{Subreddit: subreddit, Err: fmt.Errorf("failed to decode listing response: %w", err)}
	}

	return &listing, nil
}

// get waits on the pacer, issues the request, and returns the response
// body for any 2xx status
func (c *Client) get(ctx context.Context, subreddit, endpoint string) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, &FetchError{Subreddit: subreddit, Err: fmt.Errorf("rate limiter wait aborted: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Subreddit: subreddit, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Subreddit: subreddit, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Subreddit: subreddit, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{
			"subreddit":     subreddit,
			"status_code":   resp.StatusCode,
			"response_body": string(body),
		}).Error("Reddit API error response")
		return nil, &FetchError{
			Subreddit:  subreddit,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed with status %d", resp.StatusCode),
		}
	}

	return body, nil
}
