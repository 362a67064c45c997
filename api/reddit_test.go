package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

const sampleListing = `{
	"kind": "Listing",
	"data": {
		"after": "t3_next",
		"children": [
			{
				"kind": "t3",
				"data": {
					"id": "abc123",
					"title": "Test Post 1",
					"author": "test_user",
					"score": 100,
					"num_comments": 5,
					"created_utc": 1700000000,
					"url": "https://reddit.com/test1",
					"selftext": "This is a test post",
					"permalink": "/r/Python/comments/abc123/",
					"link_flair_text": "Discussion",
					"is_video": false
				}
			},
			{
				"kind": "t3",
				"data": {
					"id": "def456",
					"title": "Test Post 2",
					"author": "another_user",
					"score": 50,
					"created_utc": 1700003600,
					"is_video": true
				}
			}
		]
	}
}`

const sampleComments = `[
	{"kind": "Listing", "data": {"children": []}},
	{
		"kind": "Listing",
		"data": {
			"children": [
				{
					"kind": "t1",
					"data": {
						"author": "commenter1",
						"body": "Great post!",
						"score": 10,
						"created_utc": 1700000100,
						"permalink": "/r/Python/comments/abc123/comment1/"
					}
				},
				{
					"kind": "more",
					"data": {}
				}
			]
		}
	}
]`

func TestListingURL(t *testing.T) {
	c := NewClient("https://www.reddit.com/r", "", 0, testLogger())

	tests := []struct {
		name       string
		subreddit  string
		sort       string
		limit      int
		timeFilter string
		expected   string
	}{
		{
			name:      "hot has no time filter",
			subreddit: "Python", sort: "hot", limit: 25, timeFilter: "week",
			expected: "https://www.reddit.com/r/Python/hot.json?limit=25",
		},
		{
			name:      "new has no time filter",
			subreddit: "golang", sort: "new", limit: 10, timeFilter: "all",
			expected: "https://www.reddit.com/r/golang/new.json?limit=10",
		},
		{
			name:      "top carries time filter",
			subreddit: "Python", sort: "top", limit: 5, timeFilter: "month",
			expected: "https://www.reddit.com/r/Python/top.json?limit=5&t=month",
		},
		{
			name:      "controversial carries time filter",
			subreddit: "news", sort: "controversial", limit: 50, timeFilter: "day",
			expected: "https://www.reddit.com/r/news/controversial.json?limit=50&t=day",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := c.listingURL(tc.subreddit, tc.sort, tc.limit, tc.timeFilter)
			if result != tc.expected {
				t.Errorf("listingURL(%q, %q, %d, %q) = %q; want %q",
					tc.subreddit, tc.sort, tc.limit, tc.timeFilter, result, tc.expected)
			}
		})
	}
}

func TestFetchPosts(t *testing.T) {
	var gotPath, gotAgent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(sampleListing))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent/1.0", 0, testLogger())

	entries, err := c.FetchPosts(context.Background(), "Python", "hot", 10, "week")
	require.NoError(t, err)

	assert.Equal(t, "/Python/hot.json?limit=10", gotPath)
	assert.Equal(t, "test-agent/1.0", gotAgent)

	require.Len(t, entries, 2)
	assert.Equal(t, "abc123", entries[0].Data.ID)
	assert.Equal(t, "Test Post 1", entries[0].Data.Title)
	assert.Equal(t, 100, entries[0].Data.Score)
	assert.Equal(t, "Discussion", entries[0].Data.LinkFlairText)

	// missing fields decode to zero values
	assert.Equal(t, "", entries[1].Data.SelfText)
	assert.Equal(t, 0, entries[1].Data.NumComments)
	assert.True(t, entries[1].Data.IsVideo)
}

func TestFetchPostsClampsLimit(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sampleListing))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 0, testLogger())

	_, err := c.FetchPosts(context.Background(), "Python", "hot", 500, "week")
	require.NoError(t, err)
	assert.Equal(t, "limit=100", gotQuery)

	_, err = c.FetchPosts(context.Background(), "Python", "hot", 0, "week")
	require.NoError(t, err)
	assert.Equal(t, "limit=25", gotQuery)
}

func TestFetchPostsServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 0, testLogger())

	_, err := c.FetchPosts(context.Background(), "Python", "hot", 10, "week")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "Python", fetchErr.Subreddit)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
}

func TestFetchPostsMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 0, testLogger())

	_, err := c.FetchPosts(context.Background(), "Python", "hot", 10, "week")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "Python", fetchErr.Subreddit)
}

func TestFetchComments(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleComments))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 0, testLogger())

	entries, err := c.FetchComments(context.Background(), "Python", "abc123", 10)
	require.NoError(t, err)

	assert.Equal(t, "/Python/comments/abc123.json", gotPath)
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].Kind)
	assert.Equal(t, "commenter1", entries[0].Data.Author)
	assert.Equal(t, "Great post!", entries[0].Data.Body)
	assert.Equal(t, "more", entries[1].Kind)
}

func TestFetchCommentsShortPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a post with no comment tree returns a single-element array
		w.Write([]byte(`[{"kind": "Listing", "data": {"children": []}}]`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 0, testLogger())

	entries, err := c.FetchComments(context.Background(), "Python", "abc123", 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestFetchCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleListing))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchPosts(ctx, "Python", "hot", 10, "week")
	assert.Error(t, err)
}
