package models

// Reply represents a single top-level comment on a post
type Reply struct {
	Author      string  `json:"author"`
	Body        string  `json:"body"`
	Score       int     `json:"score"`
	CreatedUTC  float64 `json:"created_utc"`
	CreatedDate string  `json:"created_date"`
	Permalink   string  `json:"permalink"`
}

// Post represents a scraped Reddit post
type Post struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	CreatedDate string  `json:"created_date"`
	URL         string  `json:"url"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Flair       string  `json:"flair"`
	IsVideo     bool    `json:"is_video"`
	Replies     []Reply `json:"replies"`
}

// ChannelResult records the outcome of processing one subreddit
type ChannelResult struct {
	Subreddit  string
	PostCount  int
	OutputFile string
	Err        error
}

// Succeeded reports whether the channel was processed without error
func (r ChannelResult) Succeeded() bool {
	return r.Err == nil
}

// RunSummary aggregates per-channel outcomes for one pipeline run
type RunSummary struct {
	Results    []ChannelResult
	TotalPosts int
}

// Succeeded returns the number of channels processed without error
func (s RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of channels that ended in error
func (s RunSummary) Failed() int {
	return len(s.Results) - s.Succeeded()
}
